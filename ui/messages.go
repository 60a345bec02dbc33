package ui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/drawlapp/drawl/pkg/ambience"
	"github.com/drawlapp/drawl/pkg/narrate"
)

const (
	// statusTickInterval paces the state polls that feed the status bar.
	statusTickInterval = 100 * time.Millisecond

	// statusMessageTimeout is how long a flash note stays in the status
	// bar before the regular state note returns.
	statusMessageTimeout = 3 * time.Second
)

type (
	// statusTickMsg asks the model to re-poll playback state.
	statusTickMsg time.Time

	// audibleMsg reports a flip of the queue's audible signal.
	audibleMsg bool

	// ambienceToggledMsg reports the ambient bed's new running state.
	ambienceToggledMsg bool
)

// lineDoneMsg carries the settled outcome of a submitted line back to
// the transcript.
type lineDoneMsg struct {
	id      int
	outcome narrate.Outcome
}

func statusTick() tea.Cmd {
	return tea.Tick(statusTickInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// listenAudible delivers the next audible flip from the queue callback
// bridge. Update re-arms it after every delivery.
func listenAudible(ch <-chan bool) tea.Cmd {
	return func() tea.Msg {
		return audibleMsg(<-ch)
	}
}

// waitLineCmd blocks until a submitted line settles and reports its
// outcome. Submission itself happens in the update loop so that queue
// order follows submission order.
func waitLineCmd(id int, h *narrate.Handle) tea.Cmd {
	return func() tea.Msg {
		<-h.Finished()
		out, _ := h.Outcome()
		return lineDoneMsg{id: id, outcome: out}
	}
}

func toggleAmbienceCmd(amb *ambience.Scheduler) tea.Cmd {
	return func() tea.Msg {
		if amb.Running() {
			if err := amb.Stop(); err != nil && !errors.Is(err, ambience.ErrNotRunning) {
				log.Warn("UI: ambience stop", "error", err)
			}
			return ambienceToggledMsg(false)
		}
		amb.Start()
		return ambienceToggledMsg(true)
	}
}

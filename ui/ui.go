// Package ui provides the interactive narration console: a transcript
// of submitted lines, an input field and a status bar over the playback
// queue and the ambient bed.
package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/drawlapp/drawl/internal/speech"
	"github.com/drawlapp/drawl/pkg/ambience"
	"github.com/drawlapp/drawl/pkg/narrate"
)

// Config contains TUI-specific configuration.
type Config struct {
	// MaxHistory bounds the transcript lines kept on screen.
	MaxHistory int `env:"DRAWL_TUI_HISTORY" envDefault:"50"`

	// ShowStats keeps playback counters in the status bar.
	ShowStats bool `env:"DRAWL_TUI_STATS" envDefault:"true"`
}

// NewProgram returns a new Tea program wired to the given playback
// pieces. Lines are submitted to the queue up front, in order, and show
// in the transcript as they settle. The caller keeps ownership of the
// queue, scheduler and engine and tears them down after the program
// returns.
func NewProgram(cfg Config, q *narrate.Queue, amb *ambience.Scheduler, engine speech.Engine, lines []string) *tea.Program {
	log.Debug("UI: starting", "history", cfg.MaxHistory, "preloaded", len(lines))
	return tea.NewProgram(newModel(cfg, q, amb, engine, lines), tea.WithAltScreen())
}

// transcriptLine is one submitted narration line and its fate.
type transcriptLine struct {
	id     int
	text   string
	done   bool
	kind   narrate.OutcomeKind
	reason error
}

type model struct {
	cfg    Config
	queue  *narrate.Queue
	amb    *ambience.Scheduler
	engine speech.Engine

	input  textinput.Model
	spin   spinner.Model
	typing bool

	width  int
	height int

	audible    bool
	audibleCh  chan bool
	muted      bool
	ambienceOn bool

	stats   narrate.Stats
	strokes uint64
	history []transcriptLine
	nextID  int
	waits   []tea.Cmd

	flash    string
	flashAt  time.Time
	quitting bool
}

func newModel(cfg Config, q *narrate.Queue, amb *ambience.Scheduler, engine speech.Engine, lines []string) model {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 50
	}

	ti := textinput.New()
	ti.Placeholder = "say something"
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Width = 72

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle))

	// The queue's audible callback must never block, so flips land in a
	// buffered channel and the Tea loop drains it.
	ch := make(chan bool, 8)
	q.OnAudibleChange(func(v bool) {
		select {
		case ch <- v:
		default:
		}
	})

	m := model{
		cfg:        cfg,
		queue:      q,
		amb:        amb,
		engine:     engine,
		input:      ti,
		spin:       sp,
		width:      80,
		height:     24,
		audibleCh:  ch,
		muted:      q.IsMuted(),
		ambienceOn: amb != nil && amb.Running(),
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id := m.nextID
		m.nextID++
		m.pushLine(transcriptLine{id: id, text: line})
		m.waits = append(m.waits, waitLineCmd(id, q.Submit(speech.Fetch(engine, line))))
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.spin.Tick,
		statusTick(),
		listenAudible(m.audibleCh),
	}
	cmds = append(cmds, m.waits...)
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(20, m.width-6)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusTickMsg:
		m.stats = m.queue.Stats()
		m.muted = m.queue.IsMuted()
		if m.amb != nil {
			m.ambienceOn = m.amb.Running()
			m.strokes = m.amb.Stats().Triggered
		}
		if m.flash != "" && time.Since(m.flashAt) > statusMessageTimeout {
			m.flash = ""
		}
		return m, statusTick()

	case audibleMsg:
		m.audible = bool(msg)
		return m, listenAudible(m.audibleCh)

	case lineDoneMsg:
		m.finishLine(msg.id, msg.outcome)
		return m, nil

	case ambienceToggledMsg:
		m.ambienceOn = bool(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	// Anything else, cursor blinks included, belongs to the input.
	if m.typing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if text == "" {
				m.typing = false
				m.input.Blur()
				return m, nil
			}
			id := m.nextID
			m.nextID++
			m.pushLine(transcriptLine{id: id, text: text})
			h := m.queue.Submit(speech.Fetch(m.engine, text))
			return m, waitLineCmd(id, h)

		case "esc":
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			return m, nil

		case "ctrl+c":
			return m.quit()

		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m.quit()

	case "enter", "i":
		m.typing = true
		return m, m.input.Focus()

	case "c":
		m.queue.Clear()
		m.setFlash("queue cleared")
		return m, nil

	case "m":
		m.muted = !m.queue.IsMuted()
		m.queue.SetMuted(m.muted)
		if m.muted {
			m.setFlash("narration muted")
		} else {
			m.setFlash("narration unmuted")
		}
		return m, nil

	case "a":
		if m.amb == nil {
			m.setFlash("no ambient bed")
			return m, nil
		}
		return m, toggleAmbienceCmd(m.amb)
	}
	return m, nil
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.queue.Clear()
	return m, tea.Quit
}

func (m *model) pushLine(ln transcriptLine) {
	m.history = append(m.history, ln)
	if len(m.history) > m.cfg.MaxHistory {
		m.history = m.history[len(m.history)-m.cfg.MaxHistory:]
	}
}

func (m *model) finishLine(id int, out narrate.Outcome) {
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].id == id {
			m.history[i].done = true
			m.history[i].kind = out.Kind
			m.history[i].reason = out.Reason
			return
		}
	}
}

func (m *model) setFlash(s string) {
	m.flash = s
	m.flashAt = time.Now()
}

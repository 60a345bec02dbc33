package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/drawlapp/drawl/pkg/narrate"
)

const ellipsis = "…"

var (
	pencilYellow = lipgloss.AdaptiveColor{Light: "#E2C044", Dark: "#E2C044"}
	graphite     = lipgloss.AdaptiveColor{Light: "#1B1B1B", Dark: "#1B1B1B"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(graphite).
			Background(pencilYellow).
			Bold(true).
			Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarFlashStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}).
				Background(lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}).
				Render

	statusBarEngineStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#DDDDDD"}).
				Background(lipgloss.AdaptiveColor{Light: "#8E8E8E", Dark: "#323232"}).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Render

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}).
			Render

	playedMarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}).
			Render

	skippedMarkStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#D15D5D", Dark: "#ED6767"}).
				Render

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#8E8E8E", Dark: "#747373"})
)

func drawlLogoView() string {
	return logoStyle(" drawl ")
}

// View renders the transcript, the input line, the status bar and the
// help line as exactly one screen of text.
func (m model) View() string {
	if m.quitting {
		return ""
	}

	rows := max(1, m.height-3)
	lines := make([]string, 0, rows+3)

	start := max(0, len(m.history)-rows)
	visible := m.history[start:]
	for pad := rows - len(visible); pad > 0; pad-- {
		lines = append(lines, "")
	}
	for _, ln := range visible {
		lines = append(lines, m.lineView(ln))
	}

	lines = append(lines, m.inputView(), m.statusBarView(), m.helpView())
	return strings.Join(lines, "\n")
}

func (m model) lineView(ln transcriptLine) string {
	avail := max(10, m.width-4)
	text := runewidth.Truncate(ln.text, avail, ellipsis)

	if !ln.done {
		return " " + m.spin.View() + " " + text
	}

	switch ln.kind {
	case narrate.OutcomeSkipped:
		line := " " + skippedMarkStyle("↷") + " " + text
		if ln.reason != nil {
			used := runewidth.StringWidth(text) + 4
			if rest := m.width - used - 1; rest > 8 {
				line += " " + dimStyle(runewidth.Truncate(ln.reason.Error(), rest, ellipsis))
			}
		}
		return line
	case narrate.OutcomeCancelled:
		return " " + dimStyle("✗") + " " + dimStyle(text)
	default:
		return " " + playedMarkStyle("✓") + " " + text
	}
}

func (m model) inputView() string {
	if m.typing {
		return m.input.View()
	}
	return " " + dimStyle("press enter to write a line, or q to quit")
}

func (m model) statusBarView() string {
	logo := drawlLogoView()
	engineTag := statusBarEngineStyle(" " + m.engine.Name() + " ")

	flashing := m.flash != ""
	var note string
	if flashing {
		note = m.flash
	} else {
		note = m.stateNote()
		if m.cfg.ShowStats {
			note += " | " + m.statsNote()
		}
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(engineTag),
	)), ellipsis)
	if flashing {
		note = statusBarFlashStyle(note)
	} else {
		note = statusBarNoteStyle(note)
	}

	// Empty space
	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(engineTag),
	)
	emptySpace := strings.Repeat(" ", padding)
	if flashing {
		emptySpace = statusBarFlashStyle(emptySpace)
	} else {
		emptySpace = statusBarNoteStyle(emptySpace)
	}

	return logo + note + emptySpace + engineTag
}

func (m model) stateNote() string {
	parts := make([]string, 0, 3)
	if m.audible {
		parts = append(parts, "▶ speaking")
	} else {
		parts = append(parts, "idle")
	}
	if m.muted {
		parts = append(parts, "muted")
	}
	if m.ambienceOn {
		if m.audible {
			parts = append(parts, "♪ ducked")
		} else {
			parts = append(parts, "♪ ambient")
		}
	}
	return strings.Join(parts, " · ")
}

func (m model) statsNote() string {
	s := fmt.Sprintf("%d pending · %d played · %d skipped",
		m.stats.Pending, m.stats.Played, m.stats.Skipped)
	if m.amb != nil {
		s += fmt.Sprintf(" · %d strokes", m.strokes)
	}
	return s
}

func (m model) helpView() string {
	if m.typing {
		return helpViewStyle(" enter: speak it • esc: back")
	}
	return helpViewStyle(" enter: narrate • c: clear • m: mute • a: ambience • q: quit")
}

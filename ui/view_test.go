package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drawlapp/drawl/pkg/narrate"
)

func TestViewFillsExactlyOneScreen(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	if got := strings.Count(m.View(), "\n"); got != 23 {
		t.Fatalf("view has %d newlines, want 23 for a 24-row screen", got)
	}

	m.pushLine(transcriptLine{id: 0, text: "one"})
	m.pushLine(transcriptLine{id: 1, text: strings.Repeat("very long line ", 40)})
	if got := strings.Count(m.View(), "\n"); got != 23 {
		t.Fatalf("view has %d newlines with history, want 23", got)
	}
}

func TestViewAnchorsTranscriptAboveInput(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m.pushLine(transcriptLine{id: 0, text: "first"})
	m.pushLine(transcriptLine{id: 1, text: "latest"})

	lines := strings.Split(m.View(), "\n")
	// 21 transcript rows, then input, status bar and help.
	if !strings.Contains(lines[20], "latest") {
		t.Errorf("bottom transcript row = %q, want the latest line", lines[20])
	}
	if !strings.Contains(lines[19], "first") {
		t.Errorf("row above = %q, want the earlier line", lines[19])
	}
	if lines[0] != "" {
		t.Errorf("top row = %q, want blank padding", lines[0])
	}
}

func TestViewEmptyWhileQuitting(t *testing.T) {
	m := newTestModel(t)
	m.quitting = true
	if got := m.View(); got != "" {
		t.Errorf("quitting view = %q, want empty", got)
	}
}

func TestLineViewMarks(t *testing.T) {
	m := newTestModel(t)
	m.width = 80

	pending := m.lineView(transcriptLine{text: "still waiting"})
	if !strings.Contains(pending, "still waiting") {
		t.Errorf("pending line = %q, want the text visible", pending)
	}

	played := m.lineView(transcriptLine{text: "it spoke", done: true, kind: narrate.OutcomePlayed})
	if !strings.Contains(played, "✓") || !strings.Contains(played, "it spoke") {
		t.Errorf("played line = %q, want check mark and text", played)
	}

	skipped := m.lineView(transcriptLine{
		text:   "broken",
		done:   true,
		kind:   narrate.OutcomeSkipped,
		reason: errors.New("engine exploded"),
	})
	if !strings.Contains(skipped, "↷") || !strings.Contains(skipped, "engine exploded") {
		t.Errorf("skipped line = %q, want marker and reason", skipped)
	}

	cancelled := m.lineView(transcriptLine{text: "dropped", done: true, kind: narrate.OutcomeCancelled})
	if !strings.Contains(cancelled, "✗") {
		t.Errorf("cancelled line = %q, want cross marker", cancelled)
	}
}

func TestLineViewTruncatesLongText(t *testing.T) {
	m := newTestModel(t)
	m.width = 40

	long := m.lineView(transcriptLine{text: strings.Repeat("x", 200), done: true, kind: narrate.OutcomePlayed})
	if strings.Contains(long, strings.Repeat("x", 40)) {
		t.Errorf("line was not truncated: %q", long)
	}
	if !strings.Contains(long, ellipsis) {
		t.Errorf("truncated line missing ellipsis: %q", long)
	}
}

func TestStatusBarShowsPlaybackState(t *testing.T) {
	m := newTestModel(t)
	m.cfg.ShowStats = false
	m.audible = true
	m.muted = true
	m.ambienceOn = true

	bar := m.statusBarView()
	for _, want := range []string{"drawl", "stub", "▶ speaking", "muted", "♪ ducked"} {
		if !strings.Contains(bar, want) {
			t.Errorf("status bar %q missing %q", bar, want)
		}
	}

	m.audible = false
	bar = m.statusBarView()
	if !strings.Contains(bar, "♪ ambient") {
		t.Errorf("status bar %q should show the unducked bed", bar)
	}
	if strings.Contains(bar, "ducked") {
		t.Errorf("status bar %q should not show ducking while silent", bar)
	}
}

func TestStatusBarShowsStats(t *testing.T) {
	m := newTestModel(t)
	m.stats = narrate.Stats{Pending: 2, Played: 3, Skipped: 1}
	m.strokes = 4

	bar := m.statusBarView()
	for _, want := range []string{"2 pending", "3 played", "1 skipped", "4 strokes"} {
		if !strings.Contains(bar, want) {
			t.Errorf("status bar %q missing %q", bar, want)
		}
	}

	m.cfg.ShowStats = false
	if bar := m.statusBarView(); strings.Contains(bar, "pending") {
		t.Errorf("status bar %q should hide stats", bar)
	}
}

func TestStatusBarFlashWins(t *testing.T) {
	m := newTestModel(t)
	m.flash = "queue cleared"
	m.flashAt = time.Now()

	bar := m.statusBarView()
	if !strings.Contains(bar, "queue cleared") {
		t.Errorf("status bar %q missing the flash note", bar)
	}
	if strings.Contains(bar, "idle") {
		t.Errorf("status bar %q should replace the state note while flashing", bar)
	}
}

func TestHelpFollowsMode(t *testing.T) {
	m := newTestModel(t)

	if help := m.helpView(); !strings.Contains(help, "q: quit") {
		t.Errorf("browse help = %q, want quit hint", help)
	}

	m.typing = true
	if help := m.helpView(); !strings.Contains(help, "esc: back") {
		t.Errorf("typing help = %q, want esc hint", help)
	}
}

func TestInputViewSwapsWithMode(t *testing.T) {
	m := newTestModel(t)

	if got := m.inputView(); !strings.Contains(got, "press enter") {
		t.Errorf("browse input line = %q, want the hint", got)
	}

	m = update(t, m, keyRune('i'))
	if got := m.inputView(); strings.Contains(got, "press enter") {
		t.Errorf("typing input line = %q, want the text input", got)
	}
}

// Package speech turns narration text into WAV clips by driving local
// text-to-speech programs. Engines share a small Synthesize contract so
// the playback queue can treat piper, system speech commands and cached
// clips alike.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// defaultTimeout bounds a single synthesis subprocess run.
const defaultTimeout = 30 * time.Second

var (
	// ErrEngineNotFound means no usable speech binary is installed.
	ErrEngineNotFound = errors.New("speech engine not found")

	// ErrNoModel means the engine has no voice model to synthesize with.
	ErrNoModel = errors.New("no voice model found")
)

// Engine produces one WAV clip per narration line.
type Engine interface {
	// Name identifies the engine in logs and cache keys.
	Name() string

	// Voice identifies the selected voice in cache keys.
	Voice() string

	// Validate reports whether the engine can synthesize right now.
	Validate() error

	// Synthesize renders text as WAV bytes. Blank text yields no audio
	// and no error. The context bounds the whole run.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Detect returns the best installed engine: piper when a binary and a
// voice model are present, a system speech command otherwise. With both
// installed the piper engine gets the system one as a standby.
func Detect() (Engine, error) {
	var engines []Engine

	if p, err := NewPiper(); err != nil {
		log.Debug("Speech: piper unavailable", "err", err)
	} else if err := p.Validate(); err != nil {
		log.Debug("Speech: piper present but unusable", "err", err)
	} else {
		engines = append(engines, p)
	}

	if s, err := NewSay(); err != nil {
		log.Debug("Speech: system speech unavailable", "err", err)
	} else {
		engines = append(engines, s)
	}

	switch len(engines) {
	case 0:
		return nil, fmt.Errorf("%w: install piper or espeak", ErrEngineNotFound)
	case 1:
		log.Debug("Speech: engine selected", "engine", engines[0].Name())
		return engines[0], nil
	default:
		log.Debug("Speech: engine selected",
			"engine", engines[0].Name(), "standby", engines[1].Name())
		return NewFallback(engines[0], engines[1], 3), nil
	}
}

// NewLimited wraps e with a requests-per-minute ceiling on synthesis.
// perMinute <= 0 returns e unchanged.
func NewLimited(e Engine, perMinute int) Engine {
	if perMinute <= 0 {
		return e
	}
	return &limited{
		Engine:  e,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// limited throttles Synthesize. Name, Voice and Validate pass through
// to the wrapped engine.
type limited struct {
	Engine
	limiter *rate.Limiter
}

func (l *limited) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return l.Engine.Synthesize(ctx, text)
}

// findBinary resolves name on PATH, then the given absolute locations.
func findBinary(name string, fallbacks ...string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	for _, path := range fallbacks {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrEngineNotFound, name)
}

// stderrTail formats the last line of a subprocess's stderr for inclusion
// in an error message. Empty stderr formats as nothing.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	return ": " + s
}

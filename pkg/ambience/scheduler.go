// Package ambience plays the pencil-scratch bed that runs under
// narration. A scheduler triggers short stroke sounds at randomized
// intervals on its own gain stage, sampling the ducking controller
// before each trigger so the bed steps aside while narration speaks.
package ambience

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/drawlapp/drawl/pkg/audio"
	"github.com/drawlapp/drawl/pkg/duck"
)

// Strokes carved out of longer source material stay within this window.
const (
	minStrokeLen = 150 * time.Millisecond
	maxStrokeLen = 350 * time.Millisecond
	longSample   = 500 * time.Millisecond
)

// ErrNotRunning is returned by Stop when the scheduler is idle.
var ErrNotRunning = errors.New("ambience: scheduler not running")

// Config tunes the stroke scheduler.
type Config struct {
	// MinInterval is the shortest pause between strokes.
	MinInterval time.Duration

	// MaxInterval is the longest pause between strokes.
	MaxInterval time.Duration

	// NormalVolume is the bed level while narration is silent.
	NormalVolume float64

	// DuckedVolume is the bed level while narration is audible.
	DuckedVolume float64

	// MinRate is the lowest playback-rate multiplier applied per stroke.
	MinRate float64

	// MaxRate is the highest playback-rate multiplier applied per stroke.
	MaxRate float64
}

// DefaultConfig returns the standard stroke timing and levels.
func DefaultConfig() Config {
	return Config{
		MinInterval:  300 * time.Millisecond,
		MaxInterval:  900 * time.Millisecond,
		NormalVolume: 0.5,
		DuckedVolume: 0.15,
		MinRate:      0.85,
		MaxRate:      1.2,
	}
}

func (c Config) validate() error {
	if c.MinInterval <= 0 || c.MaxInterval < c.MinInterval {
		return fmt.Errorf("ambience: bad interval range %v..%v", c.MinInterval, c.MaxInterval)
	}
	if c.NormalVolume < 0 || c.NormalVolume > 1 || c.DuckedVolume < 0 || c.DuckedVolume > 1 {
		return fmt.Errorf("ambience: volumes must be in [0, 1], got %v/%v", c.NormalVolume, c.DuckedVolume)
	}
	if c.MinRate <= 0 || c.MaxRate < c.MinRate {
		return fmt.Errorf("ambience: bad rate range %v..%v", c.MinRate, c.MaxRate)
	}
	return nil
}

// Stats is a point-in-time snapshot of scheduler activity.
type Stats struct {
	Triggered uint64
}

// Scheduler fires stroke sounds on its own timeline, independent of the
// narration queue. Strokes are fire-and-forget: each voice plays out on
// its own and overlapping strokes are fine.
type Scheduler struct {
	backend audio.Backend
	stage   *audio.GainStage
	ducker  *duck.Controller
	clip    *audio.Clip
	cfg     Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	stats   Stats
}

// New creates a scheduler playing clip through its own gain stage on
// backend. A nil clip falls back to the synthesized stroke; a nil
// ducker disables ducking.
func New(backend audio.Backend, ducker *duck.Controller, clip *audio.Clip, cfg Config) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if clip == nil {
		clip = DefaultStrokeClip()
	}
	return &Scheduler{
		backend: backend,
		stage:   backend.NewGainStage(cfg.NormalVolume),
		ducker:  ducker,
		clip:    clip,
		cfg:     cfg,
	}, nil
}

// Start begins triggering strokes. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	log.Debug("Ambience: scheduler started")
	go s.loop(stopCh, done)
}

// Stop halts the stroke timeline and waits for the loop to exit.
// Strokes already sounding play out on their own.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	close(stopCh)
	<-done
	log.Debug("Ambience: scheduler stopped")
	return nil
}

// Running reports whether the stroke timeline is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns a snapshot of scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) loop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(s.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			s.stroke()
			timer.Reset(s.nextInterval())
		}
	}
}

// stroke triggers one playback. The ducking state is sampled here,
// immediately before the trigger, not when the interval was scheduled.
func (s *Scheduler) stroke() {
	if s.ducker != nil {
		s.ducker.Apply(s.stage, s.cfg.DuckedVolume, s.cfg.NormalVolume)
	}

	voice, err := s.backend.NewVoice(s.clip, s.stage, s.strokeSpec())
	if err != nil {
		log.Debug("Ambience: stroke voice failed", "error", err)
		return
	}
	voice.Start()

	s.mu.Lock()
	s.stats.Triggered++
	s.mu.Unlock()
}

// strokeSpec randomizes the per-stroke rate and, for source material
// longer than a single stroke, the window played out of it.
func (s *Scheduler) strokeSpec() audio.VoiceSpec {
	spec := audio.VoiceSpec{Rate: s.cfg.MinRate}
	if spread := s.cfg.MaxRate - s.cfg.MinRate; spread > 0 {
		spec.Rate += rand.Float64() * spread
	}
	if d := s.clip.Duration(); d > longSample {
		spec.Duration = minStrokeLen + rand.N(maxStrokeLen-minStrokeLen)
		if room := d - spec.Duration; room > 0 {
			spec.Offset = rand.N(room)
		}
	}
	return spec
}

func (s *Scheduler) nextInterval() time.Duration {
	span := s.cfg.MaxInterval - s.cfg.MinInterval
	if span <= 0 {
		return s.cfg.MinInterval
	}
	return s.cfg.MinInterval + rand.N(span)
}

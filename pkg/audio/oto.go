//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// otoBackend drives a real output device through ebitengine/oto. One oto
// context is created per backend; oto allows only one per process, so
// callers should too.
type otoBackend struct {
	ctx   *oto.Context
	start time.Time

	mu     sync.Mutex
	state  State
	closed bool
}

func newProductionBackend() (Backend, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	// Platform-specific buffer sizes: CoreAudio likes a bigger cushion,
	// ALSA can run tighter.
	switch runtime.GOOS {
	case "darwin":
		opts.BufferSize = 100 * time.Millisecond
	case "windows":
		opts.BufferSize = 80 * time.Millisecond
	default:
		opts.BufferSize = 50 * time.Millisecond
	}

	log.Debug("Audio: initializing output device",
		"sample_rate", opts.SampleRate,
		"channels", opts.ChannelCount,
		"buffer_size", opts.BufferSize)

	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("create audio context: %w", err)
	}

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return nil, errors.New("audio context initialization timeout")
	}

	b := &otoBackend{
		ctx:   ctx,
		start: time.Now(),
		state: StateSuspended,
	}
	// Hold the device suspended until a caller resumes it, matching the
	// autoplay behavior the narration queue is written against.
	if err := ctx.Suspend(); err != nil {
		log.Warn("Audio: could not suspend fresh context", "error", err)
		b.state = StateRunning
	}

	log.Debug("Audio: output device ready", "state", b.state)
	return b, nil
}

func (b *otoBackend) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *otoBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	if b.state == StateRunning {
		return nil
	}
	if err := b.ctx.Resume(); err != nil {
		return fmt.Errorf("resume audio context: %w", err)
	}
	b.state = StateRunning
	return nil
}

func (b *otoBackend) Suspend() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	if b.state == StateSuspended {
		return nil
	}
	if err := b.ctx.Suspend(); err != nil {
		return fmt.Errorf("suspend audio context: %w", err)
	}
	b.state = StateSuspended
	return nil
}

func (b *otoBackend) Decode(data []byte) (*Clip, error) {
	clip, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	return Convert(clip, DefaultFormat()), nil
}

func (b *otoBackend) NewGainStage(initial float64) *GainStage {
	return newGainStage(initial, b.Now)
}

func (b *otoBackend) NewVoice(clip *Clip, stage *GainStage, spec VoiceSpec) (Voice, error) {
	if clip == nil {
		return nil, ErrNilClip
	}
	pcm := renderVoicePCM(clip, spec)
	if len(pcm) == 0 {
		return nil, ErrEmptyClip
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBackendClosed
	}
	player := b.ctx.NewPlayer(bytes.NewReader(pcm))
	b.mu.Unlock()

	v := &otoVoice{
		player: player,
		stage:  stage,
		dur:    DefaultFormat().Duration(len(pcm)),
		done:   make(chan struct{}),
	}
	if stage != nil {
		stage.attach(v)
	}
	return v, nil
}

func (b *otoBackend) Now() time.Duration {
	return time.Since(b.start)
}

func (b *otoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	// oto contexts have no Close; park the device instead.
	if b.state == StateRunning {
		if err := b.ctx.Suspend(); err != nil {
			log.Debug("Audio: suspend on close failed", "error", err)
		}
		b.state = StateSuspended
	}
	return nil
}

// otoVoice is a one-shot player over an in-memory PCM reader. A watcher
// goroutine closes done when the device has drained the clip.
type otoVoice struct {
	player *oto.Player
	stage  *GainStage
	dur    time.Duration
	done   chan struct{}

	startOnce  sync.Once
	finishOnce sync.Once
}

func (v *otoVoice) setGain(g float64) {
	v.player.SetVolume(g)
}

func (v *otoVoice) Start() {
	v.startOnce.Do(func() {
		v.player.Play()
		go v.watch()
	})
}

func (v *otoVoice) watch() {
	// Earliest possible end first, then poll the device for the drain.
	timer := time.NewTimer(v.dur)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-v.done:
		return
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !v.player.IsPlaying() {
			v.finish()
			return
		}
		select {
		case <-v.done:
			return
		case <-ticker.C:
		}
	}
}

func (v *otoVoice) Stop() error {
	v.finish()
	return nil
}

func (v *otoVoice) Done() <-chan struct{} {
	return v.done
}

func (v *otoVoice) finish() {
	v.finishOnce.Do(func() {
		if v.stage != nil {
			v.stage.detach(v)
		}
		if err := v.player.Close(); err != nil {
			log.Debug("Audio: player close", "error", err)
		}
		close(v.done)
	})
}

package audio

import (
	"sync"
	"time"
)

// MockBackend is a deterministic Backend for tests and headless
// environments. It decodes real WAV data but plays it on a fake device:
// voices complete after the clip's duration divided by the configured
// time scale. Failure injection and counters cover the paths a real
// device would exercise.
//
// Configure (SetTimeScale, SetDecodeErr, ...) before use; the setters
// are safe but not meant for mid-playback reconfiguration.
type MockBackend struct {
	start time.Time

	mu        sync.Mutex
	state     State
	closed    bool
	timeScale float64
	decodeErr error
	voiceErr  error
	resumeErr error
	decodes   int
	resumes   int
	voices    []*MockVoice
}

// NewMockBackend returns a mock backend in the suspended state with a
// time scale of 1.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		start:     time.Now(),
		state:     StateSuspended,
		timeScale: 1,
	}
}

// SetTimeScale makes simulated playback and the backend clock run n
// times faster than real time.
func (b *MockBackend) SetTimeScale(n float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > 0 {
		b.timeScale = n
	}
}

// SetDecodeErr forces Decode to fail with err until reset with nil.
func (b *MockBackend) SetDecodeErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decodeErr = err
}

// SetVoiceErr forces NewVoice to fail with err until reset with nil.
func (b *MockBackend) SetVoiceErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voiceErr = err
}

// SetResumeErr forces Resume to fail with err until reset with nil.
func (b *MockBackend) SetResumeErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resumeErr = err
}

func (b *MockBackend) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *MockBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	b.resumes++
	if b.resumeErr != nil {
		return b.resumeErr
	}
	b.state = StateRunning
	return nil
}

func (b *MockBackend) Suspend() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	b.state = StateSuspended
	return nil
}

func (b *MockBackend) Decode(data []byte) (*Clip, error) {
	b.mu.Lock()
	b.decodes++
	forced := b.decodeErr
	b.mu.Unlock()

	if forced != nil {
		return nil, forced
	}
	clip, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	return Convert(clip, DefaultFormat()), nil
}

func (b *MockBackend) NewGainStage(initial float64) *GainStage {
	return newGainStage(initial, b.Now)
}

func (b *MockBackend) NewVoice(clip *Clip, stage *GainStage, spec VoiceSpec) (Voice, error) {
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
	if b.voiceErr != nil {
		err := b.voiceErr
		b.mu.Unlock()
		return nil, err
	}
	v := &MockVoice{
		backend: b,
		stage:   stage,
		dur:     DefaultFormat().Duration(len(pcm)),
		done:    make(chan struct{}),
	}
	b.voices = append(b.voices, v)
	b.mu.Unlock()

	if stage != nil {
		stage.attach(v)
	}
	return v, nil
}

// Now runs at the configured time scale so gain ramps speed up together
// with simulated playback.
func (b *MockBackend) Now() time.Duration {
	b.mu.Lock()
	scale := b.timeScale
	b.mu.Unlock()
	return time.Duration(float64(time.Since(b.start)) * scale)
}

func (b *MockBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	voices := append([]*MockVoice(nil), b.voices...)
	b.mu.Unlock()

	for _, v := range voices {
		v.finish()
	}
	return nil
}

// DecodeCount reports how many Decode calls the backend has seen.
func (b *MockBackend) DecodeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.decodes
}

// ResumeCount reports how many Resume calls the backend has seen.
func (b *MockBackend) ResumeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resumes
}

// VoiceCount reports how many voices have been created.
func (b *MockBackend) VoiceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.voices)
}

// Voices returns a snapshot of every voice created so far, oldest first.
func (b *MockBackend) Voices() []*MockVoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MockVoice(nil), b.voices...)
}

// CompleteAll force-finishes every outstanding voice.
func (b *MockBackend) CompleteAll() {
	for _, v := range b.Voices() {
		v.finish()
	}
}

func (b *MockBackend) scale() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeScale
}

// MockVoice simulates a one-shot playback node. It finishes on a timer
// scaled by the backend's time scale, or earlier via Stop or Complete.
type MockVoice struct {
	backend *MockBackend
	stage   *GainStage
	dur     time.Duration
	done    chan struct{}

	mu        sync.Mutex
	started   bool
	stopped   bool
	gainTrace []float64

	startOnce  sync.Once
	finishOnce sync.Once
}

func (v *MockVoice) setGain(g float64) {
	v.mu.Lock()
	v.gainTrace = append(v.gainTrace, g)
	v.mu.Unlock()
}

func (v *MockVoice) Start() {
	v.startOnce.Do(func() {
		v.mu.Lock()
		v.started = true
		v.mu.Unlock()

		wait := time.Duration(float64(v.dur) / v.backend.scale())
		timer := time.AfterFunc(wait, v.finish)
		go func() {
			<-v.done
			timer.Stop()
		}()
	})
}

func (v *MockVoice) Stop() error {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
	v.finish()
	return nil
}

func (v *MockVoice) Done() <-chan struct{} {
	return v.done
}

// Complete force-finishes the voice as if it reached its natural end.
func (v *MockVoice) Complete() {
	v.finish()
}

// PlaybackDuration returns the simulated (unscaled) playback time.
func (v *MockVoice) PlaybackDuration() time.Duration {
	return v.dur
}

// WasStarted reports whether Start was called.
func (v *MockVoice) WasStarted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.started
}

// WasStopped reports whether the voice was halted by Stop.
func (v *MockVoice) WasStopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

// Finished reports whether the done channel has closed.
func (v *MockVoice) Finished() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// GainTrace returns every gain value pushed to the voice, oldest first.
func (v *MockVoice) GainTrace() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]float64(nil), v.gainTrace...)
}

// LastGain returns the most recent gain value pushed to the voice, or 1
// if none was.
func (v *MockVoice) LastGain() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.gainTrace) == 0 {
		return 1
	}
	return v.gainTrace[len(v.gainTrace)-1]
}

func (v *MockVoice) finish() {
	v.finishOnce.Do(func() {
		if v.stage != nil {
			v.stage.detach(v)
		}
		close(v.done)
	})
}

package audio

import (
	"errors"
	"time"
)

// Backend errors shared by all implementations.
var (
	// ErrBackendClosed is returned by operations on a closed backend.
	ErrBackendClosed = errors.New("audio: backend closed")
	// ErrNilClip is returned when a voice is requested for a nil clip.
	ErrNilClip = errors.New("audio: nil clip")
	// ErrEmptyClip is returned when a voice would have nothing to play.
	ErrEmptyClip = errors.New("audio: empty clip")
)

// State is the output graph's run state. Backends start suspended and
// stay silent until resumed, mirroring platform autoplay policies.
type State int

const (
	StateSuspended State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// VoiceSpec shapes a single voice: a playback-rate multiplier and an
// optional sub-clip window. The zero value plays the whole clip at
// normal speed.
type VoiceSpec struct {
	Rate     float64       // 0 means 1.0
	Offset   time.Duration // start offset into the clip
	Duration time.Duration // 0 means to the end of the clip
}

// Voice is a one-shot playback node. Its Done channel closes exactly
// once, on natural end or on Stop, whichever comes first.
type Voice interface {
	// Start begins playback. Calling it again has no effect.
	Start()
	// Stop halts playback and releases the node. Stopping a voice that
	// already ended is not an error.
	Stop() error
	// Done is closed once the voice has finished or been stopped.
	Done() <-chan struct{}
}

// Backend is the opaque audio-rendering boundary. Implementations own
// the output device; callers own clip data and gain stages.
type Backend interface {
	// State reports whether the output graph is running or suspended.
	State() State
	// Resume moves the graph to the running state. Best effort: callers
	// treat failure as "maybe silent", not fatal.
	Resume() error
	// Suspend silences the graph until the next Resume.
	Suspend() error
	// Decode turns encoded bytes into a clip in the house format,
	// failing with *DecodeError on malformed input.
	Decode(data []byte) (*Clip, error)
	// NewGainStage creates a shared volume control voices can be routed
	// through.
	NewGainStage(initial float64) *GainStage
	// NewVoice creates a one-shot voice for the clip, attached to the
	// stage for the voice's lifetime.
	NewVoice(clip *Clip, stage *GainStage, spec VoiceSpec) (Voice, error)
	// Now is the backend clock used for scheduling gain ramps.
	Now() time.Duration
	// Close releases the output device. Voices still playing are
	// dropped.
	Close() error
}

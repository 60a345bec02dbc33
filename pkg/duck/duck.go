// Package duck lowers the volume of secondary sound sources while
// narration is audible. It owns no audio state of its own: it samples a
// Source and steers gain stages handed to it, so any number of
// independently scheduled sources can share one controller.
package duck

import (
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/drawlapp/drawl/pkg/audio"
)

const (
	// DefaultRampDuration keeps volume moves short enough to track
	// narration onsets without an audible pop.
	DefaultRampDuration = 150 * time.Millisecond

	// DefaultTolerance is how close the current gain must be to the
	// target for Apply to skip scheduling a redundant ramp.
	DefaultTolerance = 0.01
)

// Source reports whether the sound that forces ducking is audible right
// now. The narration queue satisfies it.
type Source interface {
	IsAudible() bool
}

// Controller decides when ducking applies and ramps gain stages between
// their normal and ducked levels. Construct with New; src must not be
// nil.
type Controller struct {
	src  Source
	ramp time.Duration
	tol  float64
}

// Option is a functional option for configuring the controller.
type Option func(*Controller)

// WithRampDuration sets how long gain moves take.
func WithRampDuration(d time.Duration) Option {
	return func(c *Controller) {
		c.ramp = d
	}
}

// WithTolerance sets the no-op band around the target gain.
func WithTolerance(tol float64) Option {
	return func(c *Controller) {
		c.tol = tol
	}
}

// New creates a controller sampling src.
func New(src Source, opts ...Option) *Controller {
	c := &Controller{
		src:  src,
		ramp: DefaultRampDuration,
		tol:  DefaultTolerance,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShouldDuck samples the source at call time. Callers that trigger
// their own sounds should sample immediately before each trigger rather
// than caching the answer.
func (c *Controller) ShouldDuck() bool {
	return c.src.IsAudible()
}

// Apply moves stage toward the level the current ducking state calls
// for: ducked while the source is audible, normal otherwise. The
// stage's current value is anchored before the ramp is scheduled;
// ramping from an unanchored value is ignored by some output graphs.
// Within tolerance of the target the call is a no-op.
func (c *Controller) Apply(stage *audio.GainStage, ducked, normal float64) {
	target := normal
	if c.ShouldDuck() {
		target = ducked
	}
	cur := stage.Value()
	if math.Abs(cur-target) <= c.tol {
		return
	}
	log.Debug("Duck: ramping gain", "from", cur, "to", target, "over", c.ramp)
	stage.SetValueNow(cur)
	stage.RampToValue(target, c.ramp)
}

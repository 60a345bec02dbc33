package audio

import (
	"sync"
	"time"
)

// gainSink receives gain values pushed from a stage. Voices implement it.
type gainSink interface {
	setGain(v float64)
}

// GainStage is a shared volume control through which voices are routed.
// Values are linear amplitude, clamped to [0, 1]. Writes follow
// set-then-ramp semantics: SetValueNow anchors the value immediately and
// cancels any pending ramp, RampToValue moves linearly from whatever
// value is current when the ramp is scheduled.
type GainStage struct {
	clock func() time.Duration

	mu      sync.Mutex
	value   float64
	sinks   map[gainSink]struct{}
	rampGen uint64
}

func newGainStage(initial float64, clock func() time.Duration) *GainStage {
	if clock == nil {
		start := time.Now()
		clock = func() time.Duration { return time.Since(start) }
	}
	return &GainStage{
		clock: clock,
		value: clampGain(initial),
		sinks: make(map[gainSink]struct{}),
	}
}

// Value returns the stage's current gain.
func (g *GainStage) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// SetValueNow sets the gain immediately, cancelling any pending ramp.
func (g *GainStage) SetValueNow(v float64) {
	g.mu.Lock()
	g.rampGen++
	g.value = clampGain(v)
	v = g.value
	sinks := g.snapshotLocked()
	g.mu.Unlock()

	for _, s := range sinks {
		s.setGain(v)
	}
}

// RampToValue schedules a linear ramp from the current value to target
// over the given duration. A zero or negative duration applies the
// target immediately.
func (g *GainStage) RampToValue(target float64, over time.Duration) {
	target = clampGain(target)
	if over <= 0 {
		g.SetValueNow(target)
		return
	}

	g.mu.Lock()
	g.rampGen++
	gen := g.rampGen
	from := g.value
	g.mu.Unlock()

	go g.runRamp(gen, from, target, over)
}

func (g *GainStage) runRamp(gen uint64, from, to float64, over time.Duration) {
	began := g.clock()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		frac := float64(g.clock()-began) / float64(over)
		if frac > 1 {
			frac = 1
		}
		v := from + (to-from)*frac

		g.mu.Lock()
		if g.rampGen != gen {
			g.mu.Unlock()
			return
		}
		g.value = v
		sinks := g.snapshotLocked()
		g.mu.Unlock()

		for _, s := range sinks {
			s.setGain(v)
		}
		if frac >= 1 {
			return
		}
	}
}

// attach routes a sink through the stage and pushes the current value to
// it right away.
func (g *GainStage) attach(s gainSink) {
	g.mu.Lock()
	g.sinks[s] = struct{}{}
	v := g.value
	g.mu.Unlock()
	s.setGain(v)
}

func (g *GainStage) detach(s gainSink) {
	g.mu.Lock()
	delete(g.sinks, s)
	g.mu.Unlock()
}

func (g *GainStage) snapshotLocked() []gainSink {
	out := make([]gainSink, 0, len(g.sinks))
	for s := range g.sinks {
		out = append(out, s)
	}
	return out
}

func clampGain(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

package duck

import (
	"math"
	"testing"
	"time"

	"github.com/drawlapp/drawl/pkg/audio"
)

type fakeSource struct {
	audible bool
}

func (s *fakeSource) IsAudible() bool { return s.audible }

func newTestStage(t *testing.T, initial float64) *audio.GainStage {
	t.Helper()
	b := audio.NewMockBackend()
	t.Cleanup(func() { _ = b.Close() })
	b.SetTimeScale(10)
	return b.NewGainStage(initial)
}

func waitForGain(t *testing.T, stage *audio.GainStage, want float64) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if math.Abs(stage.Value()-want) < 1e-9 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("gain = %v, never reached %v", stage.Value(), want)
}

func TestShouldDuckTracksSource(t *testing.T) {
	src := &fakeSource{}
	c := New(src)

	if c.ShouldDuck() {
		t.Error("should not duck while the source is silent")
	}
	src.audible = true
	if !c.ShouldDuck() {
		t.Error("should duck while the source is audible")
	}
	src.audible = false
	if c.ShouldDuck() {
		t.Error("ducking must clear when the source goes silent")
	}
}

func TestApplyRampsTowardDucked(t *testing.T) {
	stage := newTestStage(t, 0.5)
	src := &fakeSource{audible: true}
	c := New(src, WithRampDuration(50*time.Millisecond))

	c.Apply(stage, 0.1, 0.5)
	waitForGain(t, stage, 0.1)
}

func TestApplyRampsBackToNormal(t *testing.T) {
	stage := newTestStage(t, 0.1)
	src := &fakeSource{}
	c := New(src, WithRampDuration(50*time.Millisecond))

	c.Apply(stage, 0.1, 0.5)
	waitForGain(t, stage, 0.5)
}

func TestApplyWithinToleranceIsNoOp(t *testing.T) {
	stage := newTestStage(t, 0.505)
	src := &fakeSource{}
	c := New(src, WithRampDuration(20*time.Millisecond), WithTolerance(0.01))

	c.Apply(stage, 0.1, 0.5)
	time.Sleep(60 * time.Millisecond)
	if got := stage.Value(); got != 0.505 {
		t.Errorf("gain = %v, want 0.505 untouched (within tolerance)", got)
	}
}

func TestApplyAnchorsBeforeRamping(t *testing.T) {
	stage := newTestStage(t, 1)
	src := &fakeSource{audible: true}
	c := New(src, WithRampDuration(time.Hour))

	// With an hour-long ramp the value barely moves, so an un-anchored
	// jump straight to the target would show up immediately.
	c.Apply(stage, 0, 1)
	if got := stage.Value(); got < 0.9 {
		t.Errorf("gain = %v right after Apply, want it still near the anchored 1", got)
	}
	stage.SetValueNow(1) // cancel the long ramp
}

func TestZeroRampAppliesImmediately(t *testing.T) {
	stage := newTestStage(t, 1)
	src := &fakeSource{audible: true}
	c := New(src, WithRampDuration(0))

	c.Apply(stage, 0.2, 1)
	if got := stage.Value(); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("gain = %v, want 0.2 immediately with a zero ramp", got)
	}
}

func TestApplyFlipsWithSourceMidStream(t *testing.T) {
	stage := newTestStage(t, 0.5)
	src := &fakeSource{audible: true}
	c := New(src, WithRampDuration(30*time.Millisecond))

	c.Apply(stage, 0.1, 0.5)
	waitForGain(t, stage, 0.1)

	src.audible = false
	c.Apply(stage, 0.1, 0.5)
	waitForGain(t, stage, 0.5)
}

package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Fallback pairs a primary engine with a standby and moves synthesis to
// the standby after the primary fails maxFailures times in a row. A
// success before the switch resets the count; once switched it never
// moves back.
type Fallback struct {
	mu          sync.Mutex
	primary     Engine
	standby     Engine
	failures    int
	maxFailures int
	onStandby   bool
}

// NewFallback wraps primary with standby. maxFailures <= 0 switches on
// the first failure.
func NewFallback(primary, standby Engine, maxFailures int) *Fallback {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &Fallback{primary: primary, standby: standby, maxFailures: maxFailures}
}

// Name returns the active engine's name.
func (f *Fallback) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked().Name()
}

// Voice returns the active engine's voice.
func (f *Fallback) Voice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked().Voice()
}

// Validate passes when either engine validates. An unusable primary
// moves synthesis to the standby immediately.
func (f *Fallback) Validate() error {
	primaryErr := f.primary.Validate()
	if primaryErr == nil {
		return nil
	}
	if err := f.standby.Validate(); err != nil {
		return fmt.Errorf("primary: %v, standby: %w", primaryErr, err)
	}
	f.mu.Lock()
	if !f.onStandby {
		log.Warn("Speech: primary engine unusable, using standby",
			"standby", f.standby.Name(), "err", primaryErr)
		f.onStandby = true
	}
	f.mu.Unlock()
	return nil
}

// Synthesize runs the active engine, counting consecutive primary
// failures and retrying on the standby once the limit is reached.
func (f *Fallback) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.onStandby {
		return f.standby.Synthesize(ctx, text)
	}

	data, err := f.primary.Synthesize(ctx, text)
	if err == nil {
		if f.failures > 0 {
			log.Info("Speech: primary engine recovered", "failures", f.failures)
			f.failures = 0
		}
		return data, nil
	}

	f.failures++
	log.Warn("Speech: primary engine failed",
		"attempt", f.failures, "max", f.maxFailures, "err", err)
	if f.failures < f.maxFailures {
		return nil, err
	}

	log.Warn("Speech: switching to standby engine", "standby", f.standby.Name())
	f.onStandby = true
	data, standbyErr := f.standby.Synthesize(ctx, text)
	if standbyErr != nil {
		return nil, fmt.Errorf("both engines failed: %v; standby: %w", err, standbyErr)
	}
	return data, nil
}

func (f *Fallback) activeLocked() Engine {
	if f.onStandby {
		return f.standby
	}
	return f.primary
}

package narrate

import "sync"

// oneshot is a single-fire completion notifier. Normal completion and
// cancellation can both race to fire it; only the first attempt counts
// and later ones are no-ops, so every exit path may fire unconditionally.
type oneshot struct {
	once sync.Once
	ch   chan struct{}
}

func newOneshot() *oneshot {
	return &oneshot{ch: make(chan struct{})}
}

// fire marks the signal done. Redundant calls have no effect.
func (o *oneshot) fire() {
	o.once.Do(func() { close(o.ch) })
}

// done returns a channel that is closed once the signal has fired.
func (o *oneshot) done() <-chan struct{} {
	return o.ch
}

// fired reports whether the signal has already fired.
func (o *oneshot) fired() bool {
	select {
	case <-o.ch:
		return true
	default:
		return false
	}
}

package narrate

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// FetchFunc produces the encoded audio for one narration line. The queue
// invokes it the moment the line is submitted, so fetch latency for
// entry N+1 overlaps with playback of entry N. ctx is cancelled when the
// queue is cleared before the entry is dequeued; a cancelled fetch's
// result is ignored, so implementations may also just return late.
// Returning (nil, nil) means "nothing to say" and skips the entry.
type FetchFunc func(ctx context.Context) ([]byte, error)

// OutcomeKind labels how an entry left the queue.
type OutcomeKind int

const (
	// OutcomePlayed - the entry's audio reached the output and ended
	// naturally.
	OutcomePlayed OutcomeKind = iota
	// OutcomeSkipped - no audio was produced; Outcome.Reason says why.
	OutcomeSkipped
	// OutcomeCancelled - the queue was cleared or closed before (or
	// while) the entry played.
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePlayed:
		return "played"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the final disposition of one submitted narration line.
type Outcome struct {
	Kind   OutcomeKind
	Reason error // set for OutcomeSkipped
}

// Handle tracks one submission through the queue. Both channels fire
// exactly once and never hang; Started always fires no later than
// Finished.
type Handle struct {
	id       uuid.UUID
	started  *oneshot
	finished *oneshot

	mu      sync.Mutex
	outcome Outcome
	settled bool
}

// ID identifies the submission, mostly for logs.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Started is closed when the entry's audio begins playback, or
// immediately when the entry is skipped or cancelled.
func (h *Handle) Started() <-chan struct{} {
	return h.started.done()
}

// Finished is closed when playback completes, is skipped, or is
// cancelled.
func (h *Handle) Finished() <-chan struct{} {
	return h.finished.done()
}

// Outcome returns the entry's disposition. ok is false until Finished
// has fired.
func (h *Handle) Outcome() (Outcome, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome, h.settled
}

// settle records the outcome (first writer wins) and fires both signals.
func (h *Handle) settle(o Outcome) {
	h.mu.Lock()
	if !h.settled {
		h.settled = true
		h.outcome = o
	}
	h.mu.Unlock()
	h.started.fire()
	h.finished.fire()
}

// entry is a queued narration request. The fetch goroutine delivers into
// res exactly once; cancel releases the fetch context once the result is
// in or the entry is dropped.
type entry struct {
	handle *Handle
	cancel context.CancelFunc
	res    chan fetchResult
}

type fetchResult struct {
	data []byte
	err  error
}

// newEntry creates the entry and starts its fetch immediately.
func newEntry(fetch FetchFunc) *entry {
	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		handle: &Handle{
			id:       uuid.New(),
			started:  newOneshot(),
			finished: newOneshot(),
		},
		cancel: cancel,
		res:    make(chan fetchResult, 1),
	}
	go func() {
		data, err := fetch(ctx)
		e.res <- fetchResult{data: data, err: err}
	}()
	return e
}

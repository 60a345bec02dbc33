package narrate

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/drawlapp/drawl/pkg/audio"
)

// Config holds queue construction options.
type Config struct {
	// Volume is the narration level while unmuted, linear in [0, 1].
	Volume float64

	// Rate is the playback-rate multiplier for narration clips. Zero
	// plays at the clip's natural rate.
	Rate float64
}

// DefaultConfig returns the standard queue configuration.
func DefaultConfig() Config {
	return Config{Volume: 1.0}
}

// Stats is a point-in-time snapshot of queue activity.
type Stats struct {
	Submitted uint64
	Played    uint64
	Skipped   uint64
	Cancelled uint64
	Pending   int
}

// Queue is the narration pipeline. One instance owns the generation
// counter, the audible flag and the mute flag; consumers receive the
// instance explicitly instead of reaching for package state.
//
// A single processing goroutine (the loop) runs while entries are
// pending. Submit starts it when needed; Clear invalidates it by
// bumping the generation.
type Queue struct {
	backend audio.Backend
	stage   *audio.GainStage
	volume  float64
	rate    float64

	mu      sync.Mutex
	pending []*entry
	gen     uint64
	looping bool
	audible bool
	muted   bool
	active  audio.Voice
	subs    []func(bool)
	closed  bool
	stats   Stats
}

// New creates a queue playing through its own gain stage on backend. The
// caller keeps ownership of the backend.
func New(backend audio.Backend, cfg Config) *Queue {
	if cfg.Volume < 0 {
		cfg.Volume = 0
	}
	if cfg.Volume > 1 {
		cfg.Volume = 1
	}
	if cfg.Rate < 0 {
		cfg.Rate = 0
	}
	return &Queue{
		backend: backend,
		stage:   backend.NewGainStage(cfg.Volume),
		volume:  cfg.Volume,
		rate:    cfg.Rate,
	}
}

// Submit enqueues one narration line and starts its fetch immediately.
// The fetch runs even while earlier entries are still playing; playback
// order stays strictly first-submitted-first-played. Submit never
// blocks and the returned handle never hangs.
func (q *Queue) Submit(fetch FetchFunc) *Handle {
	e := newEntry(fetch)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		e.cancel()
		e.handle.settle(Outcome{Kind: OutcomeCancelled})
		return e.handle
	}
	q.pending = append(q.pending, e)
	q.stats.Submitted++
	gen := q.gen
	start := !q.looping
	if start {
		q.looping = true
	}
	depth := len(q.pending)
	q.mu.Unlock()

	log.Debug("Narrate: submitted", "id", e.handle.id, "pending", depth)
	if start {
		go q.run(gen)
	}
	return e.handle
}

// Clear cancels all pending and in-flight narration and returns
// synchronously. Every entry still queued - including the head whose
// fetch the loop is waiting on - has its fetch cancelled and both of
// its signals fired, the active voice (if any) is hard-stopped, and the
// audible flag drops to false. Nothing submitted before the call will
// become audible after it: the loop re-checks the generation after
// every wait and discards stale results. Clearing an idle queue is a
// no-op beyond bumping the generation.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.gen++
	gen := q.gen
	voice := q.active
	q.active = nil
	dropped := q.pending
	q.pending = nil
	q.looping = false
	q.stats.Cancelled += uint64(len(dropped))
	subs := q.setAudibleLocked(false)
	q.mu.Unlock()

	if voice != nil {
		// Stopping a voice that already ended is fine.
		if err := voice.Stop(); err != nil {
			log.Debug("Narrate: stop on cleared voice", "error", err)
		}
	}
	for _, e := range dropped {
		e.cancel()
		e.handle.settle(Outcome{Kind: OutcomeCancelled})
	}
	q.notify(subs)

	log.Debug("Narrate: cleared", "generation", gen, "dropped", len(dropped))
}

// IsAudible reports whether a narration clip is audibly playing right
// now. Fetching and decoding do not count.
func (q *Queue) IsAudible() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.audible
}

// SetMuted silences or restores the narration output stage. Fetches,
// playback lifecycle and the audible flag all proceed as usual while
// muted; only the output level changes. Redundant calls are no-ops.
func (q *Queue) SetMuted(muted bool) {
	q.mu.Lock()
	if q.muted == muted {
		q.mu.Unlock()
		return
	}
	q.muted = muted
	q.mu.Unlock()

	if muted {
		q.stage.SetValueNow(0)
	} else {
		q.stage.SetValueNow(q.volume)
	}
	log.Debug("Narrate: mute changed", "muted", muted)
}

// IsMuted reports the mute flag.
func (q *Queue) IsMuted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.muted
}

// OnAudibleChange registers a callback invoked after the audible flag
// changes. The callback receives the flag's current value at delivery
// time; bursts of activity may deliver the same value more than once.
// Callbacks run outside the queue's lock and may call queue methods.
func (q *Queue) OnAudibleChange(fn func(bool)) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.subs = append(q.subs, fn)
	q.mu.Unlock()
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Pending = len(q.pending)
	return s
}

// Close clears the queue and rejects further submissions; their handles
// settle as cancelled immediately. Closing twice is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.Clear()
}

// run is the processing loop for one generation. It exits when the
// queue drains or the generation moves on. A stale loop never touches
// the guard or the audible flag: Clear already reset both, and a fresh
// loop may own them by the time the stale one wakes.
func (q *Queue) run(gen uint64) {
	log.Debug("Narrate: loop started", "generation", gen)
	for {
		q.mu.Lock()
		if q.gen != gen {
			q.mu.Unlock()
			log.Debug("Narrate: loop abandoned", "generation", gen)
			return
		}
		if len(q.pending) == 0 {
			q.looping = false
			q.mu.Unlock()
			log.Debug("Narrate: loop drained", "generation", gen)
			return
		}
		// Peek rather than remove: while the fetch is awaited the entry
		// stays in the queue, where a Clear can cancel and settle it
		// without waiting for the fetch to notice.
		e := q.pending[0]
		q.mu.Unlock()

		if !q.play(e, gen) {
			return
		}
	}
}

// play carries the head entry through fetch, decode and playback. It
// returns false when the loop must abandon because the generation moved
// on. Entry-scoped failures degrade to a skip and return true; no
// failure aborts the queue.
func (q *Queue) play(e *entry, gen uint64) bool {
	id := e.handle.id

	res := <-e.res
	e.cancel()

	// Dequeue for real only while the epoch still stands; if it moved
	// on, Clear has already settled this entry and counted it.
	q.mu.Lock()
	if q.gen != gen {
		q.mu.Unlock()
		e.handle.settle(Outcome{Kind: OutcomeCancelled})
		return false
	}
	q.pending = q.pending[1:]
	q.mu.Unlock()

	e.handle.started.fire()

	if res.err != nil {
		log.Debug("Narrate: fetch failed, skipping", "id", id, "error", res.err)
		q.count(OutcomeSkipped)
		e.handle.settle(Outcome{
			Kind:   OutcomeSkipped,
			Reason: fmt.Errorf("%w: %v", ErrFetchFailed, res.err),
		})
		return true
	}
	if len(res.data) == 0 {
		log.Debug("Narrate: nothing to say, skipping", "id", id)
		q.count(OutcomeSkipped)
		e.handle.settle(Outcome{Kind: OutcomeSkipped, Reason: ErrNoAudio})
		return true
	}

	if q.backend.State() == audio.StateSuspended {
		if err := q.backend.Resume(); err != nil {
			// Keep going: playback may simply stay silent until the
			// platform lets the device run.
			log.Warn("Narrate: audio backend resume failed", "error", err)
		} else {
			q.applyStageGain()
		}
		if q.stale(gen) {
			q.count(OutcomeCancelled)
			e.handle.settle(Outcome{Kind: OutcomeCancelled})
			return false
		}
	}

	clip, err := q.backend.Decode(res.data)
	if q.stale(gen) {
		q.count(OutcomeCancelled)
		e.handle.settle(Outcome{Kind: OutcomeCancelled})
		return false
	}
	if err != nil {
		log.Warn("Narrate: undecodable narration audio, skipping", "id", id, "error", err)
		q.count(OutcomeSkipped)
		e.handle.settle(Outcome{
			Kind:   OutcomeSkipped,
			Reason: fmt.Errorf("%w: %v", ErrDecodeFailed, err),
		})
		return true
	}

	q.mu.Lock()
	if q.gen != gen {
		q.mu.Unlock()
		q.count(OutcomeCancelled)
		e.handle.settle(Outcome{Kind: OutcomeCancelled})
		return false
	}
	voice, err := q.backend.NewVoice(clip, q.stage, audio.VoiceSpec{Rate: q.rate})
	if err != nil {
		q.mu.Unlock()
		log.Warn("Narrate: playback node creation failed, skipping", "id", id, "error", err)
		q.count(OutcomeSkipped)
		e.handle.settle(Outcome{
			Kind:   OutcomeSkipped,
			Reason: fmt.Errorf("%w: %v", ErrPlaybackFailed, err),
		})
		return true
	}
	q.active = voice
	subs := q.setAudibleLocked(true)
	q.mu.Unlock()

	q.notify(subs)
	log.Debug("Narrate: playing", "id", id, "duration", clip.Duration())
	voice.Start()

	<-voice.Done()

	q.mu.Lock()
	own := q.gen == gen
	if own {
		subs = q.setAudibleLocked(false)
		if q.active == voice {
			q.active = nil
		}
		q.stats.Played++
	} else {
		subs = nil
		q.stats.Cancelled++
	}
	q.mu.Unlock()

	q.notify(subs)
	if own {
		e.handle.settle(Outcome{Kind: OutcomePlayed})
		log.Debug("Narrate: finished", "id", id)
	} else {
		e.handle.settle(Outcome{Kind: OutcomeCancelled})
	}
	return own
}

// stale reports whether the generation has moved past gen.
func (q *Queue) stale(gen uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.gen != gen
}

func (q *Queue) count(kind OutcomeKind) {
	q.mu.Lock()
	switch kind {
	case OutcomeSkipped:
		q.stats.Skipped++
	case OutcomeCancelled:
		q.stats.Cancelled++
	}
	q.mu.Unlock()
}

// setAudibleLocked flips the audible flag and returns the subscribers to
// notify, or nil when nothing changed. Callers hold q.mu.
func (q *Queue) setAudibleLocked(v bool) []func(bool) {
	if q.audible == v {
		return nil
	}
	q.audible = v
	return append(([]func(bool))(nil), q.subs...)
}

// notify delivers the current audible value to the given subscribers.
// The value is re-read at delivery time so a subscriber can never be
// left believing narration is audible after it stopped being so.
func (q *Queue) notify(subs []func(bool)) {
	if len(subs) == 0 {
		return
	}
	q.mu.Lock()
	v := q.audible
	q.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

// applyStageGain re-asserts the mute-aware output level, used after the
// backend leaves the suspended state.
func (q *Queue) applyStageGain() {
	q.mu.Lock()
	muted := q.muted
	q.mu.Unlock()
	if muted {
		q.stage.SetValueNow(0)
	} else {
		q.stage.SetValueNow(q.volume)
	}
}

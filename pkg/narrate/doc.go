// Package narrate serializes speech playback. Callers submit fetch
// operations that produce encoded audio; the queue runs every fetch
// eagerly but plays results strictly in submission order, one at a time,
// through a mute-aware gain stage on an audio backend.
//
// Each submission returns a Handle with two single-fire channels:
// Started closes when the entry's audio becomes audible (or the entry is
// skipped or cancelled), Finished when it is done. Neither ever hangs: a
// failed fetch degrades to a silent skip and Clear resolves everything
// still waiting.
//
// Cancellation is epoch-based. Clear bumps a generation counter; the
// processing loop re-checks it after every wait (fetch, resume, decode,
// playback) and abandons stale work instead of killing it. Audio from
// before a Clear can therefore never become audible after it.
package narrate

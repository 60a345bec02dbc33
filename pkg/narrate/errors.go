package narrate

import "errors"

// Skip reasons carried in Outcome.Reason. All of them stay inside the
// queue: callers only ever observe them through Handle.Outcome.
var (
	// ErrFetchFailed marks an entry whose fetch returned an error.
	ErrFetchFailed = errors.New("narrate: fetch failed")
	// ErrNoAudio marks an entry whose fetch produced no data.
	ErrNoAudio = errors.New("narrate: fetch produced no audio")
	// ErrDecodeFailed marks an entry whose audio could not be decoded.
	ErrDecodeFailed = errors.New("narrate: undecodable audio")
	// ErrPlaybackFailed marks an entry whose playback node could not be
	// created.
	ErrPlaybackFailed = errors.New("narrate: playback node creation failed")
)

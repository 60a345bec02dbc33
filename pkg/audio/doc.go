// Package audio is the playback boundary for drawl. It hides the real
// audio device behind a small Backend interface: decode WAV bytes into
// PCM clips, route one-shot voices through shared gain stages, and track
// a running/suspended output state.
//
// Two implementations ship with the package: an oto-based production
// backend and a deterministic mock for tests and headless environments.
// New(KindAuto) picks between them based on the environment.
package audio

package audio

import "time"

// Clip is a decoded, playable PCM buffer. The zero value is empty; clips
// returned by the package are always frame-aligned.
type Clip struct {
	Format Format
	PCM    []byte
}

// Duration returns the clip's playback time at its own sample rate.
func (c *Clip) Duration() time.Duration {
	if c == nil {
		return 0
	}
	return c.Format.Duration(len(c.PCM))
}

// Empty reports whether the clip holds no audio.
func (c *Clip) Empty() bool {
	return c == nil || len(c.PCM) == 0
}

// Window returns the sub-clip starting at offset and running for dur.
// Bounds are clamped to the clip; dur <= 0 means "to the end". The
// returned clip shares the backing array.
func (c *Clip) Window(offset, dur time.Duration) *Clip {
	if c == nil {
		return nil
	}
	start := c.Format.Bytes(offset)
	if start < 0 {
		start = 0
	}
	if start > len(c.PCM) {
		start = len(c.PCM)
	}
	end := len(c.PCM)
	if dur > 0 {
		if n := start + c.Format.Bytes(dur); n < end {
			end = n
		}
	}
	return &Clip{Format: c.Format, PCM: c.PCM[start:end]}
}

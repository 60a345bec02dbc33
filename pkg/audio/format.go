package audio

import (
	"fmt"
	"time"
)

// House playback format. Narration engines, the ambient sampler and the
// output device all meet at 22.05kHz mono signed 16-bit little-endian.
const (
	SampleRate     = 22050
	Channels       = 1
	BitDepth       = 16
	BytesPerSample = BitDepth / 8
)

// Format describes the PCM layout of a clip.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns the house playback format.
func DefaultFormat() Format {
	return Format{
		SampleRate: SampleRate,
		Channels:   Channels,
		BitDepth:   BitDepth,
	}
}

// BytesPerFrame returns the byte size of one frame (one sample across all
// channels).
func (f Format) BytesPerFrame() int {
	return (f.BitDepth / 8) * f.Channels
}

// Duration converts a PCM byte count into playback time.
func (f Format) Duration(n int) time.Duration {
	fpb := f.BytesPerFrame()
	if fpb <= 0 || f.SampleRate <= 0 {
		return 0
	}
	frames := n / fpb
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Bytes converts a playback time into a frame-aligned PCM byte count.
func (f Format) Bytes(d time.Duration) int {
	if d <= 0 || f.SampleRate <= 0 {
		return 0
	}
	frames := int(d * time.Duration(f.SampleRate) / time.Second)
	return frames * f.BytesPerFrame()
}

func (f Format) validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("unsupported channel count %d", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
	return nil
}

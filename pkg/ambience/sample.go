package ambience

import (
	"fmt"
	"os"
	"time"

	"github.com/drawlapp/drawl/pkg/audio"
)

// DefaultStrokeClip synthesizes a short graphite-on-paper scratch, used
// when no sample file is configured.
func DefaultStrokeClip() *audio.Clip {
	return audio.NoiseBurst(220*time.Millisecond, 160*time.Millisecond)
}

// LoadStrokeClip reads a WAV sample from disk and converts it to the
// house format. Longer recordings work well: the scheduler carves a
// random window out of them per stroke.
func LoadStrokeClip(path string) (*audio.Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stroke sample: %w", err)
	}
	clip, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decode stroke sample %s: %w", path, err)
	}
	return audio.Convert(clip, audio.DefaultFormat()), nil
}

package speech

import (
	"context"
	"fmt"
	"os"

	"github.com/drawlapp/drawl/pkg/narrate"
)

// Fetch returns a queue fetcher that synthesizes text with e.
func Fetch(e Engine, text string) narrate.FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		return e.Synthesize(ctx, text)
	}
}

// File returns a queue fetcher that reads a WAV clip from disk.
func File(path string) narrate.FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read clip: %w", err)
		}
		return data, nil
	}
}

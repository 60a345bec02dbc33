package speech

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/drawlapp/drawl/internal/clipcache"
)

// Cached wraps an engine with a clip cache. Lookups key on the engine
// name, voice and a text digest, so a voice change never replays stale
// audio.
type Cached struct {
	engine Engine
	store  clipcache.Store
}

// NewCached returns an engine that consults store before synthesizing.
func NewCached(engine Engine, store clipcache.Store) *Cached {
	return &Cached{engine: engine, store: store}
}

// Name returns the wrapped engine's name.
func (c *Cached) Name() string { return c.engine.Name() }

// Voice returns the wrapped engine's voice.
func (c *Cached) Voice() string { return c.engine.Voice() }

// Validate validates the wrapped engine.
func (c *Cached) Validate() error { return c.engine.Validate() }

// Synthesize returns the cached clip when present, synthesizing and
// storing it otherwise. Failed and empty runs are never cached.
func (c *Cached) Synthesize(ctx context.Context, text string) ([]byte, error) {
	key := clipcache.Key(c.engine.Name(), c.engine.Voice(), text)
	if data, ok := c.store.Get(key); ok {
		log.Debug("Speech: cache hit", "key", key)
		return data, nil
	}

	data, err := c.engine.Synthesize(ctx, text)
	if err != nil || len(data) == 0 {
		return data, err
	}
	if err := c.store.Put(key, data); err != nil {
		log.Debug("Speech: cache write failed", "err", err)
	}
	return data, nil
}

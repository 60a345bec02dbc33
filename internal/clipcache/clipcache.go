// Package clipcache stores synthesized narration audio so repeated
// lines skip the speech engine. Two tiers: a small in-memory LRU in
// front of a compressed on-disk store that persists across runs.
package clipcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrTooLarge is returned when a clip exceeds the cache capacity.
	ErrTooLarge = errors.New("clipcache: clip larger than cache capacity")
)

// Store is what cache consumers depend on. Administrative operations
// (Clear, Stats, Close) live on the concrete tiers.
type Store interface {
	// Get returns the cached clip bytes for key, if present.
	Get(key string) ([]byte, bool)
	// Put stores clip bytes under key, evicting older clips as needed.
	Put(key string, data []byte) error
}

// Stats is a point-in-time snapshot of one tier's state.
type Stats struct {
	Clips     int
	Size      int64
	Capacity  int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns the fraction of lookups served from this tier.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d clips, %s of %s, %.0f%% hit rate",
		s.Clips,
		humanize.IBytes(uint64(s.Size)),
		humanize.IBytes(uint64(s.Capacity)),
		s.HitRate()*100)
}

// Key derives the cache key for one synthesized line. Speed and volume
// are applied at playback time and do not enter the key.
func Key(engine, voice, text string) string {
	sum := sha256.Sum256([]byte(text))
	return engine + "/" + voice + "/" + hex.EncodeToString(sum[:])
}

package clipcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "clips.index"

	// Clips below this size are stored uncompressed; zstd overhead
	// outweighs the savings.
	compressMin = 1024
)

// Disk is the persistent tier. Clips live as individual files named by
// key hash; a gob index maps keys to files and survives restarts.
// Entries whose file goes missing or fails to decompress are dropped on
// access rather than failing the lookup.
type Disk struct {
	dir      string
	capacity int64
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	mu    sync.Mutex
	size  int64
	index map[string]*diskEntry
	stats Stats
}

// diskEntry fields are exported for gob.
type diskEntry struct {
	File       string
	Size       int64 // stored size, after compression
	Raw        int64 // clip size before compression
	Compressed bool
	Stored     time.Time
	LastAccess time.Time
}

// NewDisk opens the persistent tier in dir, creating it if needed. A
// compression level of 0 stores clips raw; the decoder is always
// available so existing compressed clips stay readable.
func NewDisk(dir string, capacity int64, level int) (*Disk, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("clipcache: create %s: %w", dir, err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	var err error
	d.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("clipcache: zstd decoder: %w", err)
	}
	if level > 0 {
		d.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("clipcache: zstd encoder: %w", err)
		}
	}

	if err := d.loadIndex(); err != nil {
		log.Debug("Cache: starting with a fresh index", "dir", dir, "error", err)
		d.index = make(map[string]*diskEntry)
	}
	for _, e := range d.index {
		d.size += e.Size
	}
	return d, nil
}

func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.index[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(d.dir, e.File))
	if err != nil {
		d.dropLocked(key, e)
		d.stats.Misses++
		return nil, false
	}
	if e.Compressed {
		raw, err := d.decoder.DecodeAll(data, nil)
		if err != nil {
			log.Debug("Cache: corrupt clip dropped", "key", key, "error", err)
			d.dropLocked(key, e)
			d.stats.Misses++
			return nil, false
		}
		data = raw
	}

	e.LastAccess = time.Now()
	d.stats.Hits++
	return data, true
}

func (d *Disk) Put(key string, data []byte) error {
	raw := int64(len(data))
	payload := data
	compressed := false
	if d.encoder != nil && raw > compressMin {
		if c := d.encoder.EncodeAll(data, nil); int64(len(c)) < raw {
			payload = c
			compressed = true
		}
	}
	size := int64(len(payload))
	if size > d.capacity {
		return ErrTooLarge
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.index[key]; ok {
		d.dropLocked(key, old)
	}
	for d.size+size > d.capacity && len(d.index) > 0 {
		d.evictOldestLocked()
	}

	name := fileName(key)
	if err := writeAtomic(filepath.Join(d.dir, name), payload); err != nil {
		return fmt.Errorf("clipcache: write clip: %w", err)
	}

	now := time.Now()
	d.index[key] = &diskEntry{
		File:       name,
		Size:       size,
		Raw:        raw,
		Compressed: compressed,
		Stored:     now,
		LastAccess: now,
	}
	d.size += size
	return nil
}

func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range d.index {
		os.Remove(filepath.Join(d.dir, e.File))
	}
	d.index = make(map[string]*diskEntry)
	d.size = 0
	return d.saveIndexLocked()
}

func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.Clips = len(d.index)
	s.Size = d.size
	s.Capacity = d.capacity
	return s
}

// Close persists the index. The cache directory stays usable by a
// future NewDisk.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveIndexLocked()
}

func (d *Disk) dropLocked(key string, e *diskEntry) {
	os.Remove(filepath.Join(d.dir, e.File))
	delete(d.index, key)
	d.size -= e.Size
}

func (d *Disk) evictOldestLocked() {
	var oldestKey string
	var oldest *diskEntry
	for key, e := range d.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldestKey, oldest = key, e
		}
	}
	if oldest == nil {
		return
	}
	d.dropLocked(oldestKey, oldest)
	d.stats.Evictions++
}

func (d *Disk) loadIndex() error {
	f, err := os.Open(filepath.Join(d.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(&d.index)
}

func (d *Disk) saveIndexLocked() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d.index); err != nil {
		return fmt.Errorf("clipcache: encode index: %w", err)
	}
	if err := writeAtomic(filepath.Join(d.dir, indexFile), buf.Bytes()); err != nil {
		return fmt.Errorf("clipcache: write index: %w", err)
	}
	return nil
}

// fileName hashes the key into a stable on-disk name.
func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16]) + ".clip"
}

// writeAtomic writes via a temp file and rename so readers never see a
// partial clip.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

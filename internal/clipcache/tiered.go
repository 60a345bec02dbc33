package clipcache

import (
	"errors"
)

// Tiered fronts the disk tier with the memory tier. Lookups check
// memory first and promote disk hits into it; writes land in both tiers
// before returning.
type Tiered struct {
	mem  *Memory
	disk *Disk
}

// NewTiered combines the two tiers.
func NewTiered(mem *Memory, disk *Disk) *Tiered {
	return &Tiered{mem: mem, disk: disk}
}

func (t *Tiered) Get(key string) ([]byte, bool) {
	if data, ok := t.mem.Get(key); ok {
		return data, true
	}
	data, ok := t.disk.Get(key)
	if !ok {
		return nil, false
	}
	// Promotion is best effort; a clip too big for the memory tier
	// still serves from disk.
	_ = t.mem.Put(key, data)
	return data, true
}

func (t *Tiered) Put(key string, data []byte) error {
	_ = t.mem.Put(key, data)
	return t.disk.Put(key, data)
}

// Clear drops every clip from both tiers.
func (t *Tiered) Clear() error {
	return errors.Join(t.mem.Clear(), t.disk.Clear())
}

// Close persists the disk tier's index.
func (t *Tiered) Close() error {
	return t.disk.Close()
}

// MemoryStats returns the front tier's counters.
func (t *Tiered) MemoryStats() Stats {
	return t.mem.Stats()
}

// DiskStats returns the persistent tier's counters.
func (t *Tiered) DiskStats() Stats {
	return t.disk.Stats()
}

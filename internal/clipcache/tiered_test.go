package clipcache

import (
	"bytes"
	"strings"
	"testing"
)

func newTestTiered(t *testing.T) *Tiered {
	t.Helper()
	disk, err := NewDisk(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	tc := NewTiered(NewMemory(1<<16), disk)
	t.Cleanup(func() { _ = tc.Close() })
	return tc
}

func TestTieredPromotesDiskHits(t *testing.T) {
	tc := newTestTiered(t)

	want := []byte("synthesized line")
	if err := tc.Put("k", want); err != nil {
		t.Fatal(err)
	}

	// Cold memory tier, as after a restart.
	if err := tc.mem.Clear(); err != nil {
		t.Fatal(err)
	}

	got, ok := tc.Get("k")
	if !ok || !bytes.Equal(got, want) {
		t.Fatal("disk tier should serve after memory goes cold")
	}
	if got := tc.MemoryStats().Clips; got != 1 {
		t.Errorf("memory clips = %d, want promoted 1", got)
	}

	diskHits := tc.DiskStats().Hits
	if _, ok := tc.Get("k"); !ok {
		t.Fatal("second lookup should hit")
	}
	if got := tc.DiskStats().Hits; got != diskHits {
		t.Error("second lookup should be served from memory, not disk")
	}
}

func TestTieredMiss(t *testing.T) {
	tc := newTestTiered(t)
	if _, ok := tc.Get("absent"); ok {
		t.Error("empty tiered cache should miss")
	}
}

func TestTieredClear(t *testing.T) {
	tc := newTestTiered(t)
	if err := tc.Put("k", []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := tc.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := tc.Get("k"); ok {
		t.Error("cleared cache should miss")
	}
	if s := tc.DiskStats(); s.Clips != 0 {
		t.Errorf("disk stats after clear = %+v", s)
	}
}

func TestKeyDerivation(t *testing.T) {
	a := Key("piper", "amy", "hello world")
	b := Key("piper", "amy", "hello world")
	if a != b {
		t.Error("same inputs must derive the same key")
	}
	if Key("say", "amy", "hello world") == a {
		t.Error("engine must enter the key")
	}
	if Key("piper", "joe", "hello world") == a {
		t.Error("voice must enter the key")
	}
	if Key("piper", "amy", "hello there") == a {
		t.Error("text must enter the key")
	}
	if !strings.HasPrefix(a, "piper/amy/") {
		t.Errorf("key %q should be prefixed by engine and voice", a)
	}
}

func TestStatsString(t *testing.T) {
	s := Stats{Clips: 3, Size: 2048, Capacity: 1 << 20, Hits: 1, Misses: 1}
	got := s.String()
	want := "3 clips, 2.0 KiB of 1.0 MiB, 50% hit rate"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

package clipcache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestDisk(t *testing.T, capacity int64) (*Disk, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := NewDisk(dir, capacity, 3)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, dir
}

// clipFiles lists the stored clip files, excluding the index.
func clipFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".clip") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func TestDiskRoundtrip(t *testing.T) {
	d, dir := newTestDisk(t, 1<<20)

	// Compressible and above the compression floor.
	want := bytes.Repeat([]byte("drawl "), 1000)
	if err := d.Put("k", want); err != nil {
		t.Fatal(err)
	}
	got, ok := d.Get("k")
	if !ok || !bytes.Equal(got, want) {
		t.Fatalf("Get returned %d bytes, ok=%v; want %d bytes", len(got), ok, len(want))
	}

	s := d.Stats()
	if s.Clips != 1 || s.Hits != 1 {
		t.Errorf("stats = %+v, want 1 clip, 1 hit", s)
	}
	if s.Size >= int64(len(want)) {
		t.Errorf("stored size %d not compressed below %d", s.Size, len(want))
	}
	if got := clipFiles(t, dir); len(got) != 1 {
		t.Errorf("clip files on disk = %d, want 1", len(got))
	}
}

func TestDiskPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := bytes.Repeat([]byte("stroke"), 500)
	if err := d.Put("k", want); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewDisk(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("k")
	if !ok || !bytes.Equal(got, want) {
		t.Fatalf("reopened Get ok=%v, %d bytes; want %d bytes", ok, len(got), len(want))
	}
}

func TestDiskDropsCorruptClip(t *testing.T) {
	d, dir := newTestDisk(t, 1<<20)

	if err := d.Put("k", bytes.Repeat([]byte("ambient"), 1000)); err != nil {
		t.Fatal(err)
	}
	files := clipFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("clip files = %d, want 1", len(files))
	}
	if err := os.WriteFile(files[0], []byte("not zstd"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := d.Get("k"); ok {
		t.Fatal("corrupt clip should miss")
	}
	if s := d.Stats(); s.Clips != 0 {
		t.Errorf("corrupt entry not dropped, stats = %+v", s)
	}
	if got := clipFiles(t, dir); len(got) != 0 {
		t.Errorf("corrupt file left on disk: %v", got)
	}
}

func TestDiskDropsMissingFile(t *testing.T) {
	d, dir := newTestDisk(t, 1<<20)

	if err := d.Put("k", []byte("short clip")); err != nil {
		t.Fatal(err)
	}
	for _, f := range clipFiles(t, dir) {
		if err := os.Remove(f); err != nil {
			t.Fatal(err)
		}
	}

	if _, ok := d.Get("k"); ok {
		t.Fatal("entry with a missing file should miss")
	}
	if s := d.Stats(); s.Clips != 0 || s.Size != 0 {
		t.Errorf("stats = %+v, want empty", s)
	}
}

func TestDiskEvictsLeastRecentlyUsed(t *testing.T) {
	// Payloads below the compression floor keep stored sizes exact.
	d, _ := newTestDisk(t, 1100)
	clip := func(b byte) []byte { return bytes.Repeat([]byte{b}, 512) }

	if err := d.Put("a", clip('a')); err != nil {
		t.Fatal(err)
	}
	if err := d.Put("b", clip('b')); err != nil {
		t.Fatal(err)
	}
	// Touch "a" so "b" is the eviction candidate.
	if _, ok := d.Get("a"); !ok {
		t.Fatal("a should be cached")
	}

	if err := d.Put("c", clip('c')); err != nil {
		t.Fatal(err)
	}

	if _, ok := d.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := d.Get(k); !ok {
			t.Errorf("%s should have survived eviction", k)
		}
	}
	if got := d.Stats().Evictions; got != 1 {
		t.Errorf("evictions = %d, want 1", got)
	}
}

func TestDiskTooLarge(t *testing.T) {
	d, _ := newTestDisk(t, 100)
	err := d.Put("big", bytes.Repeat([]byte{7}, 200))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestDiskToleratesBadIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFile), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := NewDisk(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("bad index should not fail open: %v", err)
	}
	defer d.Close()

	if err := d.Put("k", []byte("fresh")); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Get("k"); !ok {
		t.Error("cache should work after a bad index")
	}
}

func TestDiskUncompressedLevelZero(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	want := bytes.Repeat([]byte("raw"), 2000)
	if err := d.Put("k", want); err != nil {
		t.Fatal(err)
	}
	if got := d.Stats().Size; got != int64(len(want)) {
		t.Errorf("stored size = %d, want raw %d", got, len(want))
	}
	got, ok := d.Get("k")
	if !ok || !bytes.Equal(got, want) {
		t.Fatal("uncompressed roundtrip failed")
	}
}

package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"horcrux/store"
)

func TestSnapshotterDumpWaitProducesReadableFile(t *testing.T) {
	dir := t.TempDir()
	shard := store.New(0)
	shard.Insert("key", store.Value{Flags: 1, Data: []byte("value")})
	shard.Insert("key2", store.Value{Data: []byte("value2")})

	snap := New(dir, nil)
	outcome := snap.Dump(shard, true)
	if outcome != Finished {
		t.Fatalf("expected Finished, got %v", outcome)
	}

	canonical := CanonicalPath(dir, shard.ID())
	f, err := os.Open(canonical)
	if err != nil {
		t.Fatalf("canonical snapshot file missing: %v", err)
	}
	defer f.Close()

	restored := store.New(0)
	if err := DecodeInto(f, restored); err != nil {
		t.Fatalf("decode of canonical file failed: %v", err)
	}

	val, ok := restored.Get("key")
	if !ok || string(val.Data) != "value" || val.Flags != 1 {
		t.Fatalf("unexpected restored value for key: %+v ok=%v", val, ok)
	}
}

func TestSnapshotterDumpNoWaitReturnsAccepted(t *testing.T) {
	dir := t.TempDir()
	shard := store.New(0)
	shard.Insert("a", store.Value{Data: []byte("1")})

	snap := New(dir, nil)
	outcome := snap.Dump(shard, false)
	if outcome != Accepted && outcome != Finished {
		t.Fatalf("expected Accepted (or a synchronous fallback Finished), got %v", outcome)
	}
}

func TestSnapshotRepeatedDumpsProduceEquivalentFile(t *testing.T) {
	dir := t.TempDir()
	shard := store.New(0)
	shard.Insert("a", store.Value{Data: []byte("1")})
	shard.Insert("b", store.Value{Data: []byte("2")})

	snap := New(dir, nil)
	if outcome := snap.Dump(shard, true); outcome != Finished {
		t.Fatalf("first dump: expected Finished, got %v", outcome)
	}
	first := readEntries(t, CanonicalPath(dir, shard.ID()))

	if outcome := snap.Dump(shard, true); outcome != Finished {
		t.Fatalf("second dump: expected Finished, got %v", outcome)
	}
	second := readEntries(t, CanonicalPath(dir, shard.ID()))

	if len(first) != len(second) {
		t.Fatalf("expected same entry count across repeated dumps, got %d and %d", len(first), len(second))
	}
	for k, v := range first {
		if string(second[k].Data) != string(v.Data) {
			t.Fatalf("entry %q differs across repeated dumps: %q vs %q", k, v.Data, second[k].Data)
		}
	}
}

func readEntries(t *testing.T, path string) map[string]store.Value {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()

	out := map[string]store.Value{}
	if err := Decode(f, func(e Entry) bool {
		out[e.Key] = e.Value
		return true
	}); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return out
}

func TestCanonicalPathNaming(t *testing.T) {
	got := CanonicalPath("/tmp/x", 3)
	want := filepath.Join("/tmp/x", "snapshot-3")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

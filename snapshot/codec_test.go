package snapshot

import (
	"bytes"
	"errors"
	"testing"

	"horcrux/store"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	shard := store.New(0)
	shard.Insert("key", store.Value{Flags: 0, Data: []byte("value")})
	shard.Insert("key2", store.Value{Flags: 7, Data: []byte("value2")})

	var buf bytes.Buffer
	if err := Encode(&buf, shard); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got := map[string]store.Value{}
	if err := Decode(&buf, func(e Entry) bool {
		got[e.Key] = e.Value
		return true
	}); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if string(got["key"].Data) != "value" {
		t.Fatalf("unexpected value for key: %q", got["key"].Data)
	}
	if got["key2"].Flags != 7 || string(got["key2"].Data) != "value2" {
		t.Fatalf("unexpected value for key2: %+v", got["key2"])
	}
}

func TestEncodeEmptyShard(t *testing.T) {
	shard := store.New(0)

	var buf bytes.Buffer
	if err := Encode(&buf, shard); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected empty dump, got %d bytes", buf.Len())
	}

	var count int
	if err := Decode(&buf, func(Entry) bool { count++; return true }); err != nil {
		t.Fatalf("decode of empty dump failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no entries, got %d", count)
	}
}

func TestDecodeTruncatedAfterKeyLen(t *testing.T) {
	// A key_len byte claiming 5 bytes of key, but none follow.
	buf := bytes.NewReader([]byte{5})

	err := Decode(buf, func(Entry) bool { return true })
	if !errors.Is(err, ErrParseSnapshot) {
		t.Fatalf("expected ErrParseSnapshot, got %v", err)
	}
}

func TestDecodeTruncatedFlagsField(t *testing.T) {
	// A complete key, then a partial flags field.
	buf := bytes.NewBuffer(nil)
	buf.WriteByte(1)
	buf.WriteString("k")
	buf.Write([]byte{0, 0}) // only 2 of the 4 flags bytes

	err := Decode(buf, func(Entry) bool { return true })
	if !errors.Is(err, ErrParseSnapshot) {
		t.Fatalf("expected ErrParseSnapshot, got %v", err)
	}
}

func TestDecodeInvalidUTF8Key(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	buf.WriteByte(1)
	buf.WriteByte(0xff) // invalid UTF-8 byte
	buf.Write([]byte{0, 0, 0, 0}) // flags
	buf.Write([]byte{0, 0, 0, 0}) // data len

	err := Decode(buf, func(Entry) bool { return true })
	if !errors.Is(err, ErrParseSnapshot) {
		t.Fatalf("expected ErrParseSnapshot, got %v", err)
	}
}

func TestEncodeRejectsOversizeKey(t *testing.T) {
	shard := store.New(0)
	longKey := make([]byte, store.MaxKeyLen+1)
	for i := range longKey {
		longKey[i] = 'a'
	}
	shard.Insert(string(longKey), store.Value{Data: []byte("v")})

	var buf bytes.Buffer
	err := Encode(&buf, shard)
	if !errors.Is(err, ErrParseSnapshot) {
		t.Fatalf("expected ErrParseSnapshot for oversize key, got %v", err)
	}
}

func TestDecodeIntoAppliesEntries(t *testing.T) {
	shard := store.New(0)
	shard.Insert("a", store.Value{Data: []byte("1")})

	var buf bytes.Buffer
	if err := Encode(&buf, shard); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	fresh := store.New(0)
	if err := DecodeInto(&buf, fresh); err != nil {
		t.Fatalf("decode into failed: %v", err)
	}

	val, ok := fresh.Get("a")
	if !ok || string(val.Data) != "1" {
		t.Fatalf("expected restored key 'a'='1', got %+v ok=%v", val, ok)
	}
}

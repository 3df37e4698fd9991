// Package snapshot implements the binary dump format and the fork-based
// copy-on-write snapshotter that produces it.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"horcrux/store"
)

// ErrParseSnapshot is returned by Decode when the input is truncated or
// malformed. It wraps a human-readable reason.
var ErrParseSnapshot = errors.New("parse snapshot")

// Entry is one decoded (key, Value) pair, as handed to Decode's
// callback. Decode itself never touches a Shard; DecodeInto is the
// variant that inserts entries into one.
type Entry struct {
	Key   string
	Value store.Value
}

/*
Encode serializes shard's entries as the concatenation, in iteration
order, of:

	key_len:u8 | key_bytes | flags:u32_be | data_len:u32_be | data_bytes

The format has no header, no trailer, and no checksum: each snapshot is
a full rewrite, never a delta, so versioning the format would add cost
without benefit. Encode is total for any shard whose
keys are all <= store.MaxKeyLen bytes, a constraint enforced at the
protocol layer (the protocol package rejects longer keys with
ErrParseRequest before they ever reach a shard). A longer key makes
Encode return ErrParseSnapshot.
*/
func Encode(w io.Writer, shard *store.Shard) error {
	bw := bufio.NewWriter(w)

	var encodeErr error
	shard.Iterate(func(key string, value store.Value) bool {
		if len(key) > store.MaxKeyLen {
			encodeErr = fmt.Errorf("%w: key %q exceeds %d bytes", ErrParseSnapshot, key, store.MaxKeyLen)
			return false
		}

		if err := bw.WriteByte(byte(len(key))); err != nil {
			encodeErr = err
			return false
		}
		if _, err := bw.WriteString(key); err != nil {
			encodeErr = err
			return false
		}
		if err := binary.Write(bw, binary.BigEndian, value.Flags); err != nil {
			encodeErr = err
			return false
		}
		if err := binary.Write(bw, binary.BigEndian, uint32(len(value.Data))); err != nil {
			encodeErr = err
			return false
		}
		if _, err := bw.Write(value.Data); err != nil {
			encodeErr = err
			return false
		}
		return true
	})
	if encodeErr != nil {
		return encodeErr
	}

	return bw.Flush()
}

/*
Decode reads entries until end-of-input. The format is self-delimiting:
there is no count or length field for the whole stream, so the only way
to know a dump is complete is to run out of bytes exactly on an entry
boundary. fn is called once per decoded entry; returning false from fn
stops decoding early without that being treated as an error.

Decode fails with ErrParseSnapshot when the next key_len cannot be read
but bytes remain, when any length field would read past end-of-input,
or when key or data bytes are not valid UTF-8 — the wire protocol only
ever carries UTF-8 text, so a non-UTF-8 snapshot can only mean
corruption.
*/
func Decode(r io.Reader, fn func(Entry) bool) error {
	br := bufio.NewReader(r)

	for {
		keyLen, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("%w: reading key length: %v", ErrParseSnapshot, err)
		}

		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBytes); err != nil {
			return fmt.Errorf("%w: reading key bytes: %v", ErrParseSnapshot, err)
		}
		if !utf8.Valid(keyBytes) {
			return fmt.Errorf("%w: key is not valid UTF-8", ErrParseSnapshot)
		}

		var flags uint32
		if err := binary.Read(br, binary.BigEndian, &flags); err != nil {
			return fmt.Errorf("%w: reading flags: %v", ErrParseSnapshot, err)
		}

		var dataLen uint32
		if err := binary.Read(br, binary.BigEndian, &dataLen); err != nil {
			return fmt.Errorf("%w: reading data length: %v", ErrParseSnapshot, err)
		}

		dataBytes := make([]byte, dataLen)
		if _, err := io.ReadFull(br, dataBytes); err != nil {
			return fmt.Errorf("%w: reading data bytes: %v", ErrParseSnapshot, err)
		}
		if !utf8.Valid(dataBytes) {
			return fmt.Errorf("%w: data is not valid UTF-8", ErrParseSnapshot)
		}

		if !fn(Entry{
			Key:   string(keyBytes),
			Value: store.Value{Flags: flags, Data: dataBytes},
		}) {
			return nil
		}
	}
}

// DecodeInto applies every decoded entry directly to shard, the shape
// used by startup restore (restore.go).
func DecodeInto(r io.Reader, shard *store.Shard) error {
	return Decode(r, func(e Entry) bool {
		shard.Insert(e.Key, e.Value)
		return true
	})
}

package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"horcrux/store"
)

// CanonicalPath returns the canonical on-disk snapshot path for shard id
// under dir, e.g. "<dir>/snapshot-3".
func CanonicalPath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("snapshot-%d", id))
}

/*
Restore loads shard's canonical snapshot file into shard, if one
exists. A missing file is not an error: the shard simply starts empty.
A present but malformed file is reported to the caller as a non-fatal
RestoreDB error so it can be logged and startup can continue with
whatever was restored before the corruption was hit — Decode already
applies entries as it goes, so a truncated dump still yields a partial,
best-effort restore.
*/
func Restore(dir string, shard *store.Shard) error {
	path := CanonicalPath(dir, shard.ID())

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: opening %s: %v", ErrRestoreDB, path, err)
	}
	defer f.Close()

	if err := DecodeInto(f, shard); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRestoreDB, path, err)
	}
	return nil
}

// ErrRestoreDB is the sentinel for the RestoreDB error kind: the
// snapshot file for a shard is unreadable or malformed at startup.
var ErrRestoreDB = errors.New("restore db")

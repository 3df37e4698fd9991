package snapshot

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"horcrux/store"
)

// Outcome reports how a snapshot request was handled, mapping directly
// to the worker.Response kinds for Snapshot requests.
type Outcome int

const (
	// Accepted means the fork succeeded and the caller did not ask to
	// wait for completion.
	Accepted Outcome = iota
	// Finished means the dump completed and was installed at the
	// canonical path: a forked dump the caller waited for, or the
	// synchronous fallback dump whether or not the caller asked to wait.
	Finished
	// Failed means fork failed, the child exited non-zero, or the
	// fallback dump hit an I/O error.
	Failed
)

// Snapshotter produces durable dumps for one shard directory.
type Snapshotter struct {
	dir    string
	logger *zap.Logger
}

// New creates a Snapshotter writing under dir.
func New(dir string, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{dir: dir, logger: logger}
}

/*
Dump produces a durable snapshot of shard:

  - fork success, wait=false: returns Accepted without awaiting the
    child.
  - fork success, wait=true: blocks on the child's exit status and
    returns Finished (status 0) or Failed (otherwise).
  - fork failure: returns Failed immediately.

On platforms with no bare-fork primitive (fork_other.go), Dump falls
back to a synchronous in-process dump on the calling goroutine — still
correct, but without the "worker is not blocked during the dump"
property; see errNoForkPrimitive.
*/
func (s *Snapshotter) Dump(shard *store.Shard, wait bool) Outcome {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pid, isChild, err := rawFork()
	if isChild {
		dumpChild(shard, s.dir)
		// dumpChild always exits the process; this is unreachable.
		return Failed
	}
	if err != nil {
		if err == errNoForkPrimitive {
			return s.fallbackDump(shard)
		}
		s.logger.Error("snapshot fork failed",
			zap.Int("shard", shard.ID()), zap.Error(err))
		return Failed
	}

	s.logger.Info("snapshot process started",
		zap.Int("shard", shard.ID()), zap.Int("pid", pid))

	if !wait {
		return Accepted
	}

	ok, err := waitForChild(pid)
	if err != nil {
		s.logger.Error("snapshot wait failed",
			zap.Int("shard", shard.ID()), zap.Int("pid", pid), zap.Error(err))
		return Failed
	}
	if !ok {
		s.logger.Warn("snapshot child exited non-zero",
			zap.Int("shard", shard.ID()), zap.Int("pid", pid))
		return Failed
	}
	s.logger.Info("snapshot process finished",
		zap.Int("shard", shard.ID()), zap.Int("pid", pid))
	return Finished
}

// dumpChild runs only in the forked child. It must never touch the
// parent's zap core (a buffered writer whose state was duplicated,
// not shared, by the fork) — any diagnostic it needs to emit goes
// straight to the inherited stderr fd via an unbuffered unix.Write.
func dumpChild(shard *store.Shard, dir string) {
	canonical := CanonicalPath(dir, shard.ID())
	tmp := fmt.Sprintf("%s-%d", canonical, time.Now().UnixNano())

	f, err := os.Create(tmp)
	if err != nil {
		childWarn("snapshot: create failed: " + err.Error())
		exitChild(1)
	}

	if err := Encode(f, shard); err != nil {
		childWarn("snapshot: encode failed: " + err.Error())
		f.Close()
		exitChild(1)
	}

	if err := f.Sync(); err != nil {
		childWarn("snapshot: sync failed: " + err.Error())
		f.Close()
		exitChild(1)
	}

	if err := f.Close(); err != nil {
		childWarn("snapshot: close failed: " + err.Error())
		exitChild(1)
	}

	if err := os.Rename(tmp, canonical); err != nil {
		childWarn("snapshot: rename failed: " + err.Error())
		exitChild(2)
	}

	exitChild(0)
}

// fallbackDump performs the dump synchronously on the calling
// goroutine when no fork primitive is available. It is always
// "finished" by the time it returns, so both wait=true and wait=false
// callers get the same outcome.
func (s *Snapshotter) fallbackDump(shard *store.Shard) Outcome {
	canonical := CanonicalPath(s.dir, shard.ID())
	tmp := fmt.Sprintf("%s-%d", canonical, time.Now().UnixNano())

	f, err := os.Create(tmp)
	if err != nil {
		s.logger.Error("snapshot fallback create failed", zap.Error(err))
		return Failed
	}

	if err := Encode(f, shard); err != nil {
		s.logger.Error("snapshot fallback encode failed", zap.Error(err))
		f.Close()
		os.Remove(tmp)
		return Failed
	}
	if err := f.Sync(); err != nil {
		s.logger.Error("snapshot fallback sync failed", zap.Error(err))
		f.Close()
		os.Remove(tmp)
		return Failed
	}
	if err := f.Close(); err != nil {
		s.logger.Error("snapshot fallback close failed", zap.Error(err))
		os.Remove(tmp)
		return Failed
	}
	if err := os.Rename(tmp, canonical); err != nil {
		s.logger.Error("snapshot fallback rename failed", zap.Error(err))
		return Failed
	}
	return Finished
}

//go:build linux

package snapshot

import "golang.org/x/sys/unix"

/*
rawFork clones the calling OS thread via clone(2) with only SIGCHLD set
— the same flag combination the C library uses to implement fork(2) —
bypassing exec entirely so the child inherits the parent's full address
space as a copy-on-write page image. This is the one place in the
module that reaches for a raw syscall instead of the os package:
os.StartProcess and exec.Command only ever expose fork+exec, never a
bare fork, and a bare fork is the whole point of the design (no deep
copy, no doubled peak memory).

clone(2) rather than the legacy fork(2) syscall number because fork(2)
does not exist on every architecture Go supports (notably arm64); clone
with SIGCHLD and no other flags is the portable equivalent on every
Linux architecture golang.org/x/sys/unix exposes SYS_CLONE for.

The caller must have locked the calling goroutine to its OS thread
(runtime.LockOSThread) before calling rawFork, so the clone always
duplicates the same, known thread. In the child return (isChild true),
nothing may run that depends on other OS threads or Ps existing: no
goroutine creation, no channel operations backed by the scheduler, no
allocation pattern that could provoke a GC needing another M. dumpChild
upholds that by doing only direct, already-linked calls into bufio, os,
and unix — never touching any buffered stdio inherited from the parent.
*/
func rawFork() (pid int, isChild bool, err error) {
	r1, _, errno := unix.RawSyscall(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0)
	if errno != 0 {
		return 0, false, errno
	}
	if r1 == 0 {
		return 0, true, nil
	}
	return int(r1), false, nil
}

// waitForChild blocks until pid exits, reporting whether it exited with
// status 0.
func waitForChild(pid int) (exitedZero bool, err error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		return ws.Exited() && ws.ExitStatus() == 0, nil
	}
}

// exitChild terminates the calling process immediately via the raw
// exit syscall, without running deferred Go finalizers or flushing any
// buffer the parent set up before the fork.
func exitChild(code int) {
	unix.Exit(code)
}

// childWarn writes a single line directly to the child's stderr fd.
// fmt.Fprintln(os.Stderr, ...) would risk flushing state os.Stderr's
// buffering inherited from the parent; unix.Write on the raw fd never
// buffers anything.
func childWarn(msg string) {
	_, _ = unix.Write(2, []byte(msg+"\n"))
}

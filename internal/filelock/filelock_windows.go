//go:build windows

package filelock

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// Backoff while another process holds the store's create lock. Creates are
// short, so the wait stays small.
const (
	minRetry = time.Millisecond
	maxRetry = 20 * time.Millisecond
)

// lockedBytes is the range every process locks: the first byte of the lock
// file is enough to serialise creates.
var lockedBytes = struct{ low, high uint32 }{1, 0}

// lockFile polls with LOCKFILE_FAIL_IMMEDIATELY. A blocking LockFileEx would
// pin the OS thread and can starve the rest of the process.
func lockFile(f *os.File) error {
	h := windows.Handle(f.Fd())
	wait := minRetry
	for {
		err := windows.LockFileEx(h,
			windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
			0, lockedBytes.low, lockedBytes.high, new(windows.Overlapped))
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, windows.ERROR_LOCK_VIOLATION):
			return err
		}
		time.Sleep(wait)
		wait = min(wait*2, maxRetry)
	}
}

func unlockFile(f *os.File) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0,
		lockedBytes.low, lockedBytes.high, new(windows.Overlapped))
}

// Package filelock serialises ticket creation in a file-backed board: a
// create checks that the id is free and then writes the document, and two
// CLI processes must not interleave those steps.
package filelock

import "os"

const lockFileMode = 0o600

// Lock takes the exclusive lock on the store's lock file at path, creating
// the file if needed. Call the returned unlock once the document is
// written.
//
// Only one process can hold the lock at a time; other callers block
// until the lock is available. Locks are per open file description, so
// goroutines of one process must also serialise through Lock.
func Lock(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode) //nolint:gosec // lock file path from trusted source
	if err != nil {
		return nil, err
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	return func() error {
		unlockErr := unlockFile(f)
		closeErr := f.Close()
		if unlockErr != nil {
			return unlockErr
		}
		return closeErr
	}, nil
}

package state

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/devlog-tools/logsync/internal/core/model"
)

// CycleLock is the advisory lock that serializes sync cycles over one state
// directory. A trigger that loses the race is a coalesced no-op: the cycle
// already in flight picks up the latest state.
type CycleLock struct {
	path string
	file *os.File
}

// NewCycleLock creates a lock rooted in stateDir.
func NewCycleLock(stateDir string) *CycleLock {
	return &CycleLock{path: filepath.Join(stateDir, "cycle.lock")}
}

// TryAcquire attempts to take the lock without blocking. Returns false when
// another cycle holds it.
func (l *CycleLock) TryAcquire() (bool, error) {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, &model.StateStoreError{Op: "lock", Err: err}
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if err == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, &model.StateStoreError{Op: "lock", Err: err}
	}

	l.file = file
	return true, nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *CycleLock) Release() {
	if l.file == nil {
		return
	}
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file.Close()
	l.file = nil
}

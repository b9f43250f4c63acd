package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLockHeld is returned when another pass currently holds the lock. A held
// lock is not a failure: the caller logs it and exits cleanly.
var ErrLockHeld = errors.New("another pass holds the lock")

// Lock is the pass mutual-exclusion file. It is created with O_EXCL and
// carries the owning pid so a lock left behind by a crashed process can be
// detected and broken.
type Lock struct {
	path     string
	acquired bool
}

// NewLock creates a lock handle for the given path without acquiring it.
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock. It returns ErrLockHeld when a live process owns
// it, and an infrastructure error when the lock file cannot be created at
// all. A lock owned by a dead pid is broken and re-taken once.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return NewInfrastructureError("lock", fmt.Errorf("failed to create lock directory: %w", err))
	}

	if err := l.tryCreate(); err == nil {
		return nil
	} else if !os.IsExist(err) {
		return NewInfrastructureError("lock", fmt.Errorf("failed to create lock file: %w", err))
	}

	stale, err := l.isStale()
	if err != nil {
		return NewInfrastructureError("lock", err)
	}
	if !stale {
		return ErrLockHeld
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return NewInfrastructureError("lock", fmt.Errorf("failed to break stale lock: %w", err))
	}
	if err := l.tryCreate(); err != nil {
		if os.IsExist(err) {
			// Someone else won the race for the broken lock.
			return ErrLockHeld
		}
		return NewInfrastructureError("lock", fmt.Errorf("failed to create lock file: %w", err))
	}
	return nil
}

// Release removes the lock file if this handle owns it.
func (l *Lock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (l *Lock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = f.Close()
		_ = os.Remove(l.path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(l.path)
		return err
	}
	l.acquired = true
	return nil
}

// isStale reports whether the pid in the lock file no longer exists. An
// unreadable or garbled lock file counts as stale.
func (l *Lock) isStale() (bool, error) {
	body, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil || pid <= 0 {
		return true, nil
	}
	if pid == os.Getpid() {
		return false, nil
	}

	// Signal 0 probes for existence without sending anything.
	if err := syscall.Kill(pid, syscall.Signal(0)); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return true, nil
		}
		// EPERM means the process exists but belongs to someone else.
		return false, nil
	}
	return false, nil
}

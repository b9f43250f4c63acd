package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pass.lock")
	lock := NewLock(path)

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file missing after acquire: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lock file still present after release, stat err = %v", err)
	}

	// Releasing twice is a no-op.
	if err := lock.Release(); err != nil {
		t.Errorf("second Release failed: %v", err)
	}
}

func TestLockConcurrentHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pass.lock")

	first := NewLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Release()

	second := NewLock(path)
	err := second.Acquire()
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	// The loser must not damage the winner's lock.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file damaged by losing acquirer: %v", err)
	}
}

func TestLockBreaksStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pass.lock")

	// A garbled lock file counts as stale.
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("failed to seed stale lock: %v", err)
	}

	lock := NewLock(path)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("expected stale lock to be broken, got %v", err)
	}
	defer lock.Release()

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}
	if string(body) == "not-a-pid\n" {
		t.Errorf("stale lock content survived acquire")
	}
}

package lock_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"liepavoice/internal/lock"
)

func TestExclusiveExcludesOthers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")

	held, err := lock.Acquire(dir, lock.Exclusive)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(held.Path()); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}

	if _, err := lock.Acquire(dir, lock.Exclusive); !errors.Is(err, lock.ErrBusy) {
		t.Fatalf("expected ErrBusy for second exclusive lock, got %v", err)
	}
	if _, err := lock.Acquire(dir, lock.Shared); !errors.Is(err, lock.ErrBusy) {
		t.Fatalf("expected ErrBusy for shared lock, got %v", err)
	}

	if err := held.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	again, err := lock.Acquire(dir, lock.Exclusive)
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	_ = again.Release()
}

func TestSharedLocksCoexist(t *testing.T) {
	dir := t.TempDir()

	first, err := lock.Acquire(dir, lock.Shared)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Release()
	second, err := lock.Acquire(dir, lock.Shared)
	if err != nil {
		t.Fatalf("expected shared locks to coexist, got %v", err)
	}
	defer second.Release()

	if _, err := lock.Acquire(dir, lock.Exclusive); !errors.Is(err, lock.ErrBusy) {
		t.Fatalf("expected ErrBusy while shared locks are held, got %v", err)
	}
}

func TestReleaseNil(t *testing.T) {
	var l *lock.Lock
	if err := l.Release(); err != nil {
		t.Fatalf("nil release should be a no-op: %v", err)
	}
}

func TestAcquireBesideSurvivesReplacement(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dataset")

	held, err := lock.AcquireBeside(dir, lock.Exclusive)
	if err != nil {
		t.Fatalf("AcquireBeside failed: %v", err)
	}
	defer held.Release()
	if filepath.Dir(held.Path()) != filepath.Dir(dir) {
		t.Fatalf("expected lock file beside %s, got %s", dir, held.Path())
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := lock.AcquireBeside(dir, lock.Shared); !errors.Is(err, lock.ErrBusy) {
		t.Fatalf("expected ErrBusy after directory replacement, got %v", err)
	}
}

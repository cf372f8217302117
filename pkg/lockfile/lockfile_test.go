package lockfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestPathForIsDeterministic(t *testing.T) {
	a := PathFor("executor foo bar")
	b := PathFor("executor foo bar")
	if a != b {
		t.Fatalf("expected same key to hash to the same path: %q != %q", a, b)
	}
	if PathFor("executor foo bar") == PathFor("executor foo baz") {
		t.Fatalf("expected different keys to hash to different paths")
	}
}

func TestAcquireAndUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	lock, err := Acquire(ctx, path)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
}

func TestAcquireBlocksSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	first, err := Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer first.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := Acquire(ctx, path); err == nil {
		t.Fatalf("expected second acquire to fail while first holds the lock")
	}
}

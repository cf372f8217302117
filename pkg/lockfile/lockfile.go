// Package lockfile derives a deterministic, collision-resistant lock
// path for the CLI's --exclusive flag and wraps gofrs/flock for the
// actual cross-process advisory lock, grounded on the buildkite-agent
// reference's Shell.LockFile retry loop.
package lockfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
)

const retryInterval = 200 * time.Millisecond

// PathFor derives a stable lock file path under the OS temp directory
// from key (e.g. the executor's argv joined, or a caller-chosen
// identifier): same key always hashes to the same path, so two
// invocations of the same logical job serialize against each other
// without the caller having to manage a shared lock directory.
func PathFor(key string) string {
	h := xxhash.Sum64String(key)
	name := fmt.Sprintf("executor-%016x.lock", h)
	return filepath.Join(os.TempDir(), name)
}

// Lock is a held advisory lock; release it with Unlock.
type Lock struct {
	flock *flock.Flock
}

// Acquire blocks, retrying on a fixed interval, until the lock at path
// is obtained or ctx is done.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	fl := flock.New(path)

	got, err := fl.TryLockContext(ctx, retryInterval)
	if err != nil {
		return nil, fmt.Errorf("lockfile: acquire %q: %w", path, err)
	}
	if !got {
		return nil, fmt.Errorf("lockfile: could not acquire %q", path)
	}
	return &Lock{flock: fl}, nil
}

// Unlock releases the lock. Safe to call once.
func (l *Lock) Unlock() error {
	return l.flock.Unlock()
}

package stage

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/errors"
)

// lockRetryDelay is the polling interval while another holder owns the lock.
const lockRetryDelay = 50 * time.Millisecond

// LockFilename is the lock file name for id inside the staging area.
func LockFilename(id asset.ID) string {
	return string(id) + ".lock"
}

// LockPath is the lock file for id inside stagingArea.
func LockPath(stagingArea string, id asset.ID) string {
	return filepath.Join(stagingArea, LockFilename(id))
}

// WithLock runs fn while holding an exclusive advisory lock on path.
// Acquisition waits until the lock is free or ctx is done; a context without a
// deadline waits indefinitely. The lock is released on every exit from fn,
// panics included. The lock file is created on demand and left in place.
func WithLock(ctx context.Context, path string, fn func() error) (err error) {
	fl := flock.New(path)

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrLockUnavailable), "failed to acquire lock %s", path)
	}
	if !locked {
		return errors.Wrapf(errors.ErrLockUnavailable, "failed to acquire lock %s", path)
	}

	defer func() {
		if uerr := fl.Unlock(); uerr != nil && err == nil {
			err = errors.Wrapf(uerr, "failed to release lock %s", path)
		}
	}()

	return fn()
}

// Package lock provides cross-process advisory file locking for the
// JSON state files under the town root, serializing concurrent CLI/daemon
// invocations that read-modify-write the same workflow or config file.
package lock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Acquire opens path+".lock" and blocks until an exclusive lock is held.
// The returned release function unlocks and closes the underlying file;
// callers must defer it.
func Acquire(path string) (release func(), err error) {
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring flock on %s: %w", path, err)
	}
	return func() {
		_ = fl.Unlock()
	}, nil
}

// AcquireShared opens path+".lock" and blocks until a shared (read) lock
// is held. Use this around reads that must not observe a partial write.
func AcquireShared(path string) (release func(), err error) {
	fl := flock.New(path + ".lock")
	if err := fl.RLock(); err != nil {
		return nil, fmt.Errorf("acquiring shared flock on %s: %w", path, err)
	}
	return func() {
		_ = fl.Unlock()
	}, nil
}

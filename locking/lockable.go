package locking

import "sync"

// ReleaseFunc releases a previously acquired lock. It must be called exactly
// once per successful acquisition.
type ReleaseFunc func() error

// Lockable is the external scoped-lock collaborator CausalLock decorates.
// The cause argument is an opaque hint describing why the lock is taken;
// implementations may ignore it. CauseMesh never reimplements blocking: all
// real waiting happens inside the Lockable.
type Lockable interface {
	// Lock acquires the lock (write or read) and returns its release
	// handle. Blocks until acquired.
	Lock(write bool, cause any) (ReleaseFunc, error)

	// TryLock attempts acquisition without blocking. The boolean reports
	// whether the lock was acquired; the release handle is non-nil only
	// on success.
	TryLock(write bool, cause any) (ReleaseFunc, bool, error)
}

// Marker identifies cause values that CausalLock must record as-is instead
// of wrapping in an internally-created causable. Implement it on causes
// whose lifecycle the caller manages itself.
type Marker interface {
	CauseMarker()
}

var _ Lockable = (*MutexLockable)(nil)

// MutexLockable is a minimal RWMutex-backed Lockable. It ignores the cause
// argument entirely; cause tracking is the decorator's job.
type MutexLockable struct {
	mu sync.RWMutex
}

// Lock acquires the mutex, exclusively when write is true.
func (m *MutexLockable) Lock(write bool, _ any) (ReleaseFunc, error) {
	if write {
		m.mu.Lock()
		return func() error { m.mu.Unlock(); return nil }, nil
	}
	m.mu.RLock()
	return func() error { m.mu.RUnlock(); return nil }, nil
}

// TryLock attempts to acquire the mutex without blocking.
func (m *MutexLockable) TryLock(write bool, _ any) (ReleaseFunc, bool, error) {
	if write {
		if !m.mu.TryLock() {
			return nil, false, nil
		}
		return func() error { m.mu.Unlock(); return nil }, true, nil
	}
	if !m.mu.TryRLock() {
		return nil, false, nil
	}
	return func() error { m.mu.RUnlock(); return nil }, true, nil
}

package locking

import (
	"fmt"
	"sync"

	"github.com/hupe1980/causemesh/core"
	"github.com/hupe1980/causemesh/logging"
	"github.com/hupe1980/causemesh/registry"
)

// Options configures a CausalLock.
type Options struct {
	// Registry supplies the causable factory used to wrap raw causes.
	// Defaults to a private registry.
	Registry *registry.Registry

	// Logger receives wrapper-finish failures and debug diagnostics.
	// Defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// CausalLock satisfies Lockable itself, so decorators compose.
var _ Lockable = (*CausalLock)(nil)

// CausalLock decorates a Lockable so that every acquisition carries a live
// causable describing why the lock is held. Raw (non-Marker) causes are
// wrapped in an internally-created, already-started causable; values
// implementing Marker pass through untouched. For write acquisitions the
// recorded cause joins the active-write-cause list until its release, giving
// diagnostic collaborators (deadlock heuristics, state dumps) an answer to
// "who holds this and why".
//
// Release semantics: the internal wrapper is finished first, with any error
// or panic it raises caught and logged, never propagated; the underlying
// lock release always happens regardless of the wrapper outcome.
type CausalLock struct {
	inner  Lockable
	reg    *registry.Registry
	logger logging.Logger

	mu      sync.Mutex
	entries []*causeEntry
}

// causeEntry is one held write acquisition. Removal targets the exact entry,
// so reentrant identical-cause locking holds one entry per acquisition and
// each release drops exactly one occurrence.
type causeEntry struct {
	cause any
}

// NewCausalLock decorates inner with cause tracking.
func NewCausalLock(inner Lockable, optFns ...func(o *Options)) *CausalLock {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	return &CausalLock{inner: inner, reg: opts.Registry, logger: opts.Logger}
}

// Lock acquires the underlying lock, recording the (possibly wrapped) cause
// for write acquisitions.
func (l *CausalLock) Lock(write bool, cause any) (ReleaseFunc, error) {
	recorded, wrapped, err := l.wrap(cause)
	if err != nil {
		return nil, err
	}
	release, err := l.inner.Lock(write, recorded)
	if err != nil {
		l.finishWrapper(wrapped, recorded)
		return nil, err
	}
	return l.held(write, recorded, wrapped, release), nil
}

// TryLock attempts acquisition without blocking. On failure the internal
// wrapper (if any) is finished immediately and no cause is recorded.
func (l *CausalLock) TryLock(write bool, cause any) (ReleaseFunc, bool, error) {
	recorded, wrapped, err := l.wrap(cause)
	if err != nil {
		return nil, false, err
	}
	release, ok, err := l.inner.TryLock(write, recorded)
	if err != nil || !ok {
		l.finishWrapper(wrapped, recorded)
		return nil, false, err
	}
	return l.held(write, recorded, wrapped, release), true, nil
}

// wrap prepares the cause for recording: nil stays nil, Marker values pass
// through as-is, anything else is wrapped in a started causable from the
// registry.
func (l *CausalLock) wrap(cause any) (recorded any, wrapped registry.CausableInUse, err error) {
	if cause == nil {
		return nil, nil, nil
	}
	if _, ok := cause.(Marker); ok {
		return cause, nil, nil
	}
	wrapped, err = l.reg.Cause(cause)
	if err != nil {
		return nil, nil, fmt.Errorf("wrapping lock cause: %w", err)
	}
	return wrapped, wrapped, nil
}

// held registers the write cause and builds the release handle.
func (l *CausalLock) held(write bool, recorded any, wrapped registry.CausableInUse, release ReleaseFunc) ReleaseFunc {
	var ent *causeEntry
	if write && recorded != nil {
		ent = &causeEntry{cause: recorded}
		l.mu.Lock()
		l.entries = append(l.entries, ent)
		l.mu.Unlock()
	}
	return func() error {
		// Wrapper finish runs first but can never block the release
		// of the underlying lock.
		l.finishWrapper(wrapped, recorded)
		err := release()
		if ent != nil {
			l.remove(ent)
		}
		return err
	}
}

// finishWrapper closes an internally-created wrapper, isolating any failure
// (error or panic) from the caller's resource handling.
func (l *CausalLock) finishWrapper(wrapped registry.CausableInUse, recorded any) {
	if wrapped == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic finishing lock cause", "cause", fmt.Sprint(recorded), "panic", fmt.Sprint(r))
		}
	}()
	if err := wrapped.Close(); err != nil {
		l.logger.Error("finishing lock cause failed", "cause", fmt.Sprint(recorded), "error", err)
	}
}

// remove drops the given entry, scanning from the most recent acquisition.
func (l *CausalLock) remove(ent *causeEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i] == ent {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// CurrentCauses returns the causes currently associated with held write
// locks, oldest first. The slice is a snapshot; elements are the recorded
// causes themselves (wrapped causables or Marker values), raw for
// performance-sensitive diagnostics.
func (l *CausalLock) CurrentCauses() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]any, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.cause
	}
	return out
}

// UnfinishedCauses returns CurrentCauses filtered of entries whose causable
// has already finished but has not yet been removed, a transient window
// between wrapper finish and list removal during release.
func (l *CausalLock) UnfinishedCauses() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]any, 0, len(l.entries))
	for _, e := range l.entries {
		if c, ok := e.cause.(core.Causable); ok && c.Finished() {
			continue
		}
		out = append(out, e.cause)
	}
	return out
}

// RootCausable returns the first not-yet-terminated causable among the
// current causes, or nil when none qualifies.
func (l *CausalLock) RootCausable() core.Causable {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if c, ok := e.cause.(core.Causable); ok && !c.Terminated() {
			return c
		}
	}
	return nil
}

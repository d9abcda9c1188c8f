// Package locking integrates cause chains with an external scoped-lock
// abstraction. CausalLock decorates any Lockable so the set of causes
// currently holding write locks stays observable for diagnostics, without
// reimplementing any blocking behavior.
//
// A raw cause passed to Lock or TryLock is wrapped in an internally-created
// causable whose use scope spans the acquisition; values implementing Marker
// opt out of wrapping. MutexLockable ships as a minimal reference
// collaborator for tests and examples.
package locking

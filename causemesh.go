// Package causemesh provides a high-level façade over the cause-chain core
// and its service abstractions (registry, locking & logging) for batching
// causally related side effects. Most applications interact with this
// package by:
//  1. Creating a CauseMesh via New() (optionally overriding the registry or logger)
//  2. Opening a root scope with Cause(...) and performing work that creates
//     nested causables referencing it
//  3. Registering deferred effects on the root via OnFinish(key)
//  4. Closing the scope, which drains all registered effects exactly once
//
// The façade delegates sharing to registry.Registry while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger.
package causemesh

import (
	"github.com/hupe1980/causemesh/core"
	"github.com/hupe1980/causemesh/locking"
	"github.com/hupe1980/causemesh/logging"
	"github.com/hupe1980/causemesh/registry"
)

// Options configures the CauseMesh instance.
type Options struct {
	// Registry overrides the dedup registry (defaults to a fresh one).
	Registry *registry.Registry

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// CauseMesh is the high-level façade aggregating the registry and logger.
type CauseMesh struct {
	opts Options
	reg  *registry.Registry
}

// New creates a new CauseMesh instance with optional overrides. Any unset
// service is initialized with an in-memory default.
func New(optFns ...func(o *Options)) *CauseMesh {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = registry.New(func(o *registry.Options) {
			o.Logger = opts.Logger
		})
	}

	return &CauseMesh{opts: opts, reg: opts.Registry}
}

// Registry returns the underlying dedup registry.
func (m *CauseMesh) Registry() *registry.Registry { return m.reg }

// Cause returns an already-started, shareable causable for the given cause
// list. Close the handle to end this caller's participation.
func (m *CauseMesh) Cause(causes ...any) (registry.CausableInUse, error) {
	return m.reg.Cause(causes...)
}

// SimpleCause builds a plain, not-yet-started causable with no sharing.
func (m *CauseMesh) SimpleCause(causes ...any) (core.Causable, error) {
	return m.reg.SimpleCause(causes...)
}

// Broken wraps causes in a ChainBreak for crossing a goroutine or queue
// boundary.
func (m *CauseMesh) Broken(causes ...any) *core.ChainBreak {
	return m.reg.Broken(causes...)
}

// NewCausalLock decorates inner with cause tracking bound to this instance's
// registry and logger.
func (m *CauseMesh) NewCausalLock(inner locking.Lockable) *locking.CausalLock {
	return locking.NewCausalLock(inner, func(o *locking.Options) {
		o.Registry = m.reg
		o.Logger = m.opts.Logger
	})
}

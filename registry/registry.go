package registry

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/causemesh/core"
	"github.com/hupe1980/causemesh/internal/util"
	"github.com/hupe1980/causemesh/logging"
)

// ErrHandleClosed is returned when a CausableInUse handle is closed twice.
var ErrHandleClosed = errors.New("causable handle already closed")

// CausableInUse is an already-started causable bound to one factory call.
// Closing the handle ends this caller's participation; the underlying
// causable finishes only once every handle sharing it has closed.
type CausableInUse interface {
	core.Causable
	io.Closer
}

// Options configures a Registry.
type Options struct {
	// Logger receives debug diagnostics for attach / evict transitions.
	// Defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Registry is the dedup layer for shared causables. Concurrent Cause calls
// whose normalized cause sequences are value-equal attach to one live
// instance, tracked with a per-entry depth count; the last closer finishes
// and evicts it.
//
// Sharing is value-based, matching the factory's purpose: call sites that
// rebuild the same logical cause list participate in the same logical event.
// Live nodes (causables, breaks) still compare by identity inside the
// fingerprint, so two distinct chains never merge. See util.Fingerprint.
//
// All entry bookkeeping (attach, depth increment, decrement, eviction) is
// serialized under one mutex, making the sequence linearizable: a closing
// goroutine can never finish an instance another goroutine has attached to,
// and a new caller can never attach to an instance that is finishing
// (finishing happens strictly after eviction).
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  logging.Logger
}

type entry struct {
	fingerprint string
	causable    *core.BaseCausable
	closer      io.Closer
	depth       int
}

// New constructs an empty registry. Registries are plain values meant to be
// injected; there is no package-level instance.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		entries: make(map[string]*entry),
		logger:  opts.Logger,
	}
}

// SimpleCause builds a plain, not-yet-started causable with no sharing.
func (r *Registry) SimpleCause(causes ...any) (core.Causable, error) {
	return core.NewCausable(causes...)
}

// Broken wraps causes in a ChainBreak for crossing a goroutine or queue
// boundary.
func (r *Registry) Broken(causes ...any) *core.ChainBreak {
	return core.NewChainBreak(causes...)
}

// Cause returns an already-started causable for the given cause list,
// sharing one underlying instance with every concurrent caller whose
// (nil-filtered) cause sequence is value-equal. Each call must be paired
// with exactly one Close on the returned handle.
func (r *Registry) Cause(causes ...any) (CausableInUse, error) {
	refs := core.Refs(causes...)
	fp := util.Fingerprint(refs)

	r.mu.Lock()
	defer r.mu.Unlock()

	if ent, ok := r.entries[fp]; ok {
		ent.depth++
		r.logger.Debug("attached to shared causable", "causable", fmt.Sprint(ent.causable), "depth", ent.depth)
		return &handle{Causable: ent.causable, reg: r, ent: ent}, nil
	}

	c, err := core.NewCausableFromRefs(refs)
	if err != nil {
		return nil, err
	}
	closer, err := c.Use()
	if err != nil {
		// Unreachable for a freshly built causable; surfaced rather
		// than swallowed in case Use's contract ever changes.
		return nil, err
	}
	ent := &entry{fingerprint: fp, causable: c, closer: closer, depth: 1}
	r.entries[fp] = ent
	r.logger.Debug("started shared causable", "causable", fmt.Sprint(c))
	return &handle{Causable: c, reg: r, ent: ent}, nil
}

// Size reports the number of live shared instances, for diagnostics.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

var _ CausableInUse = (*handle)(nil)

type handle struct {
	core.Causable
	reg    *Registry
	ent    *entry
	closed atomic.Bool
}

// Close decrements the shared instance's depth. The handle whose Close
// brings the depth to zero evicts the entry and finishes the causable;
// eviction happens under the registry lock, finishing after it, so a
// concurrent Cause call observes either the live entry or none at all.
func (h *handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrHandleClosed
	}

	h.reg.mu.Lock()
	h.ent.depth--
	last := h.ent.depth == 0
	if last {
		delete(h.reg.entries, h.ent.fingerprint)
	}
	h.reg.mu.Unlock()

	if !last {
		return nil
	}
	h.reg.logger.Debug("finishing shared causable", "causable", fmt.Sprint(h.ent.causable))
	return h.ent.closer.Close()
}

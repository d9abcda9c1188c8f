package core

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Lifecycle phases. Transitions are one-way: new → started → finishing →
// terminated.
const (
	phaseNew int32 = iota
	phaseStarted
	phaseFinishing
	phaseTerminated
)

var _ Causable = (*BaseCausable)(nil)

// BaseCausable is the reference Causable implementation. Registration and
// draining assume a single logical thread of causal execution; only the
// phase word is atomic so that diagnostic collaborators on other goroutines
// can query Finished / Terminated safely.
type BaseCausable struct {
	id     string
	causes []CauseRef
	root   Causable
	phase  atomic.Int32

	// pending holds undrained effects in registration order; byKey
	// deduplicates concurrent-in-window registrations of the same key.
	pending []*Effect
	byKey   map[*Key]*Effect
}

// NewCausable builds a causable over the given (heterogeneous, nil-tolerant)
// cause list. Construction fails atomically with ErrFinishedCause if any
// causable among the causes, directly or inside a group, has already
// terminated; no partially linked node escapes. The first nested causable in
// sequence order determines the root by delegating to its own resolved root.
func NewCausable(causes ...any) (*BaseCausable, error) {
	return newFromRefs(Refs(causes...))
}

// NewCausableFromRefs is NewCausable for an already-normalized ref sequence.
func NewCausableFromRefs(refs []CauseRef) (*BaseCausable, error) {
	return newFromRefs(refs)
}

func newFromRefs(refs []CauseRef) (*BaseCausable, error) {
	root, err := resolveRoot(refs)
	if err != nil {
		return nil, err
	}
	b := &BaseCausable{id: NewID(), causes: refs}
	if root == nil {
		b.root = b
	} else {
		b.root = root
	}
	return b, nil
}

// resolveRoot scans refs in order, validating that no referenced causable
// has terminated, and returns the root delegated to by the first nested
// causable (nil when the new node is its own root). Breaks are skipped
// entirely; groups are descended for validation but only top-level nested
// refs elect the root.
func resolveRoot(refs []CauseRef) (Causable, error) {
	var root Causable
	for _, ref := range refs {
		switch ref.kind {
		case NestedRef:
			c := ref.causable
			if c.Terminated() || c.Root().Terminated() {
				return nil, fmt.Errorf("%w: %v", ErrFinishedCause, c)
			}
			if root == nil {
				root = c.Root()
			}
		case GroupRef:
			if err := validateRefs(ref.group); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

func validateRefs(refs []CauseRef) error {
	for _, ref := range refs {
		switch ref.kind {
		case NestedRef:
			if ref.causable.Terminated() || ref.causable.Root().Terminated() {
				return fmt.Errorf("%w: %v", ErrFinishedCause, ref.causable)
			}
		case GroupRef:
			if err := validateRefs(ref.group); err != nil {
				return err
			}
		}
	}
	return nil
}

// ID returns the causable's unique identifier.
func (b *BaseCausable) ID() string { return b.id }

// Causes returns a copy of the owned cause sequence.
func (b *BaseCausable) Causes() []CauseRef {
	out := make([]CauseRef, len(b.causes))
	copy(out, b.causes)
	return out
}

// Root returns the root resolved at construction.
func (b *BaseCausable) Root() Causable { return b.root }

// CauseLike probes self first, then walks the chain with a FIFO worklist so
// nearer causes are checked before more distant ones.
func (b *BaseCausable) CauseLike(probe func(any) any) any {
	if v := probe(b); v != nil {
		return v
	}
	queue := b.Causes()
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		switch ref.kind {
		case PlainRef:
			if v := probe(ref.value); v != nil {
				return v
			}
		case NestedRef:
			if v := probe(ref.causable); v != nil {
				return v
			}
			queue = append(queue, ref.causable.Causes()...)
		case BrokenRef:
			queue = append(queue, ref.brk.Causes()...)
		case GroupRef:
			queue = append(queue, ref.group...)
		}
	}
	return nil
}

// HasCauseLike reports whether any node of the chain satisfies pred.
func (b *BaseCausable) HasCauseLike(pred func(any) bool) bool {
	found := b.CauseLike(func(v any) any {
		if pred(v) {
			return v
		}
		return nil
	})
	return found != nil
}

// OnFinish returns the effect accumulator for key, creating it on first
// call. Registration is permitted during draining; such effects join the
// next drain pass.
func (b *BaseCausable) OnFinish(key *Key) (*Effect, error) {
	if key == nil {
		return nil, ErrNilKey
	}
	switch b.phase.Load() {
	case phaseNew:
		return nil, ErrNotStarted
	case phaseTerminated:
		return nil, ErrTerminated
	}
	if e, ok := b.byKey[key]; ok {
		return e, nil
	}
	e := newEffect(key)
	b.byKey[key] = e
	b.pending = append(b.pending, e)
	return e, nil
}

// Finished reports whether draining is in progress or done.
func (b *BaseCausable) Finished() bool { return b.phase.Load() >= phaseFinishing }

// Terminated reports whether draining has completed.
func (b *BaseCausable) Terminated() bool { return b.phase.Load() == phaseTerminated }

// Use starts the causable's active window. The returned closer triggers
// draining; it must be closed exactly once.
func (b *BaseCausable) Use() (io.Closer, error) {
	if !b.phase.CompareAndSwap(phaseNew, phaseStarted) {
		return nil, ErrAlreadyStarted
	}
	b.byKey = make(map[*Key]*Effect)
	return &useScope{c: b}, nil
}

// String renders the causable for log output.
func (b *BaseCausable) String() string {
	return fmt.Sprintf("causable(%s, %d causes)", b.id[:8], len(b.causes))
}

// useScope closes a Use window.
type useScope struct{ c *BaseCausable }

// Close drains the causable's registered effects and terminates it.
func (s *useScope) Close() error { return s.c.finish() }

// finish runs the two-phase drain: a fixpoint over primary actions
// (reentrant registrations join the next pass) followed by after actions
// popped in reverse registration order, looping until the registered-effects
// set stays empty. After the loop the causable is terminated permanently.
func (b *BaseCausable) finish() error {
	if b.phase.Load() == phaseNew {
		return ErrNotStarted
	}
	if !b.phase.CompareAndSwap(phaseStarted, phaseFinishing) {
		return ErrAlreadyFinished
	}

	// Outer loop: after actions may themselves register new effects,
	// which restart the whole algorithm.
	for len(b.pending) > 0 {
		var afterStack []*Effect

		// Primary fixpoint: snapshot-and-swap the pending set each
		// pass so reentrant registrations land in a fresh slice
		// instead of mutating the one being iterated.
		for len(b.pending) > 0 {
			batch := b.pending
			b.pending = nil
			for _, e := range batch {
				// Spent before executing: a reentrant
				// registration of the same key during its own
				// primary yields a fresh effect for the next
				// pass rather than a lost write.
				delete(b.byKey, e.key)
				if e.key.HasPrimary() && !e.primaryDone {
					e.primaryDone = true
					e.key.primary(e.values)
				}
				if e.key.HasAfter() && !e.afterDone {
					afterStack = append(afterStack, e)
				}
			}
		}

		// After actions observe the fully settled state: last
		// registered runs first.
		for i := len(afterStack) - 1; i >= 0; i-- {
			e := afterStack[i]
			if !e.afterDone {
				e.afterDone = true
				e.key.after(e.values)
			}
		}
	}

	b.phase.Store(phaseTerminated)
	return nil
}

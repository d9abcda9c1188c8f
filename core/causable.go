package core

import (
	"errors"
	"io"

	"github.com/google/uuid"
)

var (
	// ErrNotStarted is returned when an operation requires a started
	// causable (OnFinish before Use, or finishing a scope never opened).
	ErrNotStarted = errors.New("causable not started")

	// ErrAlreadyStarted is returned by a second call to Use.
	ErrAlreadyStarted = errors.New("causable already in use")

	// ErrAlreadyFinished is returned when a use scope is closed twice.
	ErrAlreadyFinished = errors.New("causable already finished")

	// ErrTerminated is returned by OnFinish after draining has completed;
	// a terminated causable accepts no further effects.
	ErrTerminated = errors.New("causable terminated")

	// ErrFinishedCause is returned when constructing a causable whose
	// cause list references an already-terminated causable.
	ErrFinishedCause = errors.New("cannot use a finished causable as a cause")

	// ErrNilKey is returned by OnFinish when passed a nil key.
	ErrNilKey = errors.New("nil causable key")
)

// Causable is a node in a cause chain: an in-flight event that may be caused
// by other events and that can batch deferred effects until its use scope
// closes. Implementations are not safe for concurrent registration or
// draining; a single logical thread of causal execution drives a chain (see
// the package documentation and ChainBreak).
type Causable interface {
	// Causes returns a copy of the owned cause sequence, immutable after
	// construction.
	Causes() []CauseRef

	// Root returns the resolved root of the chain. Resolution happens
	// once at construction; Root is O(1) and idempotent. A causable with
	// no live (non-break) causable among its causes is its own root.
	Root() Causable

	// CauseLike probes the chain for a cause the probe recognizes. The
	// probe is applied to the causable itself first, then to causes in
	// breadth-first order over a FIFO worklist: plain values are probed
	// directly, a nested causable is probed and then contributes its own
	// causes, a chain break contributes its wrapped causes, and a group
	// contributes its elements. The first non-nil probe result is
	// returned; nil once the chain is exhausted.
	CauseLike(probe func(any) any) any

	// HasCauseLike reports whether any node of the chain satisfies pred,
	// using the same traversal order as CauseLike.
	HasCauseLike(pred func(any) bool) bool

	// OnFinish returns the effect accumulator for key on this causable,
	// creating it on first call. Every caller passing the same key to the
	// same causable receives the identical *Effect; writes merge. Returns
	// ErrNotStarted before Use and ErrTerminated after draining has
	// completed. Registration while draining is in progress is permitted
	// and feeds the next drain pass.
	OnFinish(key *Key) (*Effect, error)

	// Finished reports whether draining is in progress or done.
	Finished() bool

	// Terminated reports whether draining has completed; a terminated
	// causable accepts no further effects.
	Terminated() bool

	// Use transitions the causable to its active window exactly once and
	// returns the scope closer that triggers draining. A second call
	// returns ErrAlreadyStarted.
	Use() (io.Closer, error)
}

// NewID generates a new unique identifier for causables, keys and breaks.
func NewID() string { return uuid.NewString() }

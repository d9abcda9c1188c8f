package core

import "fmt"

// ChainBreak is a deliberate discontinuity in a cause chain. It carries
// cause information across a boundary, typically a goroutine or queue
// hand-off, without making the wrapped causes part of root resolution, so
// the receiving side never assumes single ownership of the upstream chain.
//
// The wrapped causes stay discoverable through CauseLike / HasCauseLike
// traversal on any causable that lists the break among its causes.
type ChainBreak struct {
	id   string
	refs []CauseRef
}

// NewChainBreak wraps the given causes (normalized like any cause list) in a
// break. Unlike causable construction there is no terminated-cause check:
// the whole point of a break is that the upstream chain may finish
// independently of whoever holds the break.
func NewChainBreak(causes ...any) *ChainBreak {
	return &ChainBreak{id: NewID(), refs: Refs(causes...)}
}

// Causes returns a copy of the wrapped cause sequence.
func (b *ChainBreak) Causes() []CauseRef {
	out := make([]CauseRef, len(b.refs))
	copy(out, b.refs)
	return out
}

// ID returns the break's unique identifier.
func (b *ChainBreak) ID() string { return b.id }

// String renders the break for log output.
func (b *ChainBreak) String() string {
	return fmt.Sprintf("chainbreak(%s, %d causes)", b.id[:8], len(b.refs))
}

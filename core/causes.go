package core

import "fmt"

// RefKind discriminates the closed set of cause element shapes. Cause lists
// accepted by the constructors are heterogeneous by design (plain values,
// other causables, chain breaks, nested collections); normalizing them into
// tagged CauseRef values gives traversal and root resolution a single
// dispatch point instead of scattered runtime type checks.
type RefKind int

const (
	// PlainRef is an opaque caller-supplied value carried for diagnostics.
	PlainRef RefKind = iota
	// NestedRef references another Causable; it participates in root
	// resolution and contributes its own causes during traversal.
	NestedRef
	// BrokenRef references a ChainBreak; its wrapped causes stay
	// discoverable but it never participates in root resolution.
	BrokenRef
	// GroupRef is an ordered collection of further refs.
	GroupRef
)

// CauseRef is one element of a Causable's cause sequence. The zero value is
// not valid; refs are produced by Refs or the typed constructors below.
type CauseRef struct {
	kind     RefKind
	value    any
	causable Causable
	brk      *ChainBreak
	group    []CauseRef
}

// PlainCause wraps an opaque value as a cause element.
func PlainCause(v any) CauseRef { return CauseRef{kind: PlainRef, value: v} }

// NestedCause wraps another Causable as a cause element.
func NestedCause(c Causable) CauseRef { return CauseRef{kind: NestedRef, causable: c} }

// BrokenCause wraps a ChainBreak as a cause element.
func BrokenCause(b *ChainBreak) CauseRef { return CauseRef{kind: BrokenRef, brk: b} }

// GroupCause wraps an ordered collection of refs as a single cause element.
func GroupCause(refs []CauseRef) CauseRef { return CauseRef{kind: GroupRef, group: refs} }

// Kind returns the ref's discriminator.
func (r CauseRef) Kind() RefKind { return r.kind }

// Causable returns the referenced causable for NestedRef kinds, nil otherwise.
func (r CauseRef) Causable() Causable { return r.causable }

// Break returns the referenced chain break for BrokenRef kinds, nil otherwise.
func (r CauseRef) Break() *ChainBreak { return r.brk }

// Group returns the member refs for GroupRef kinds, nil otherwise.
func (r CauseRef) Group() []CauseRef { return r.group }

// Raw returns the underlying value regardless of kind: the plain value, the
// Causable, the *ChainBreak, or the []CauseRef group. Intended for
// diagnostics and log output.
func (r CauseRef) Raw() any {
	switch r.kind {
	case NestedRef:
		return r.causable
	case BrokenRef:
		return r.brk
	case GroupRef:
		return r.group
	default:
		return r.value
	}
}

// String renders the ref for log output.
func (r CauseRef) String() string {
	switch r.kind {
	case NestedRef:
		return fmt.Sprintf("nested(%v)", r.causable)
	case BrokenRef:
		return fmt.Sprintf("broken(%v)", r.brk)
	case GroupRef:
		return fmt.Sprintf("group%v", r.group)
	default:
		return fmt.Sprintf("plain(%v)", r.value)
	}
}

// Refs normalizes a heterogeneous cause list into tagged refs. Nil elements
// are dropped. A Causable becomes a NestedRef, a *ChainBreak a BrokenRef, a
// []CauseRef or []any a GroupRef (normalized recursively), and anything else
// a PlainRef.
func Refs(causes ...any) []CauseRef {
	refs := make([]CauseRef, 0, len(causes))
	for _, c := range causes {
		if c == nil {
			continue
		}
		switch v := c.(type) {
		case CauseRef:
			refs = append(refs, v)
		case Causable:
			refs = append(refs, NestedCause(v))
		case *ChainBreak:
			if v != nil {
				refs = append(refs, BrokenCause(v))
			}
		case []CauseRef:
			refs = append(refs, GroupCause(v))
		case []any:
			refs = append(refs, GroupCause(Refs(v...)))
		default:
			refs = append(refs, PlainCause(v))
		}
	}
	return refs
}

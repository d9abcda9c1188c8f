package core

import (
	"fmt"
	"maps"
)

// Action consumes the accumulated values of an effect when it fires.
type Action func(values map[string]any)

// Key identifies one kind of deferred, mergeable side effect. It pairs at
// most one primary action (run during the drain fixpoint, may itself cause
// further events) with at most one after action (run once all primary work
// has settled, in reverse registration order).
//
// A key is immutable and single-shot per causable: once its effect has been
// drained it is spent there; callers construct a fresh key per logical batch
// kind per use.
type Key struct {
	id      string
	name    string
	primary Action
	after   Action
}

// NewKey creates a key with a primary action only.
func NewKey(name string, primary Action) *Key {
	return &Key{id: NewID(), name: name, primary: primary}
}

// NewAfterKey creates a key with an after action only. Such keys have no
// defer-first semantics during draining; they simply run once the primary
// fixpoint has settled.
func NewAfterKey(name string, after Action) *Key {
	return &Key{id: NewID(), name: name, after: after}
}

// NewKeyWithAfter creates a key carrying both a primary and an after action.
func NewKeyWithAfter(name string, primary, after Action) *Key {
	return &Key{id: NewID(), name: name, primary: primary, after: after}
}

// ID returns the key's unique identifier.
func (k *Key) ID() string { return k.id }

// Name returns the diagnostic name supplied at construction.
func (k *Key) Name() string { return k.name }

// HasPrimary reports whether the key carries a primary action.
func (k *Key) HasPrimary() bool { return k.primary != nil }

// HasAfter reports whether the key carries an after action.
func (k *Key) HasAfter() bool { return k.after != nil }

// String renders the key for log output.
func (k *Key) String() string { return fmt.Sprintf("key(%s)", k.name) }

// Effect is the per-(key, causable) accumulator. It is created by the first
// OnFinish call for a key and shared by reference with every subsequent
// caller passing the same key to the same causable, so writes from different
// call sites merge into one map. An effect executes at most once and
// remembers that it has.
type Effect struct {
	key         *Key
	values      map[string]any
	primaryDone bool
	afterDone   bool
}

func newEffect(key *Key) *Effect {
	return &Effect{key: key, values: make(map[string]any)}
}

// Key returns the key this effect accumulates for.
func (e *Effect) Key() *Key { return e.key }

// Values returns the shared accumulator map. Mutations are visible to every
// holder of the effect and to the key's actions when they fire.
func (e *Effect) Values() map[string]any { return e.values }

// Set stores a single value in the accumulator.
func (e *Effect) Set(key string, value any) { e.values[key] = value }

// Get reads a single value from the accumulator.
func (e *Effect) Get(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Merge copies all entries of delta into the accumulator, overwriting on
// collision.
func (e *Effect) Merge(delta map[string]any) { maps.Copy(e.values, delta) }

// Executed reports whether the effect has been drained (its primary action
// ran, or for after-only keys, its after action ran).
func (e *Effect) Executed() bool {
	if e.key.HasPrimary() {
		return e.primaryDone
	}
	return e.afterDone
}

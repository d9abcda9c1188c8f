package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// terminated builds a causable that has already run its full lifecycle.
func terminated(t *testing.T) *BaseCausable {
	t.Helper()
	c, err := NewCausable()
	require.NoError(t, err)
	scope, err := c.Use()
	require.NoError(t, err)
	require.NoError(t, scope.Close())
	require.True(t, c.Terminated())
	return c
}

// -------------------- Lifecycle Tests --------------------

func TestUse_OnlyOnce(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)

	scope, err := c.Use()
	require.NoError(t, err)
	require.NotNil(t, scope)

	_, err = c.Use()
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	require.NoError(t, scope.Close())

	// Still once-only after termination.
	_, err = c.Use()
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestOnFinish_LifecycleErrors(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)
	key := NewKey("batch", func(map[string]any) {})

	_, err = c.OnFinish(key)
	assert.ErrorIs(t, err, ErrNotStarted)

	scope, err := c.Use()
	require.NoError(t, err)

	_, err = c.OnFinish(nil)
	assert.ErrorIs(t, err, ErrNilKey)

	_, err = c.OnFinish(key)
	assert.NoError(t, err)

	require.NoError(t, scope.Close())

	_, err = c.OnFinish(key)
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestFinish_Errors(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)
	scope, err := c.Use()
	require.NoError(t, err)

	require.NoError(t, scope.Close())
	assert.ErrorIs(t, scope.Close(), ErrAlreadyFinished)
}

func TestPhases(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)
	assert.False(t, c.Finished())
	assert.False(t, c.Terminated())

	scope, err := c.Use()
	require.NoError(t, err)
	assert.False(t, c.Finished())

	var duringDrain bool
	key := NewKey("probe", func(map[string]any) {
		duringDrain = c.Finished() && !c.Terminated()
	})
	_, err = c.OnFinish(key)
	require.NoError(t, err)

	require.NoError(t, scope.Close())
	assert.True(t, duringDrain)
	assert.True(t, c.Finished())
	assert.True(t, c.Terminated())
}

// -------------------- Construction & Root Resolution Tests --------------------

func TestRoot_SelfWhenNoLiveCause(t *testing.T) {
	solo, err := NewCausable("just-a-value", 42)
	require.NoError(t, err)
	assert.Same(t, Causable(solo), solo.Root())

	brk := NewChainBreak("upstream")
	viaBreak, err := NewCausable(brk)
	require.NoError(t, err)
	assert.Same(t, Causable(viaBreak), viaBreak.Root())
}

func TestRoot_DelegatesToFirstNestedCause(t *testing.T) {
	root, err := NewCausable()
	require.NoError(t, err)
	child, err := NewCausable(root)
	require.NoError(t, err)
	grandchild, err := NewCausable("plain-first", child)
	require.NoError(t, err)

	assert.Same(t, Causable(root), child.Root())
	assert.Same(t, Causable(root), grandchild.Root())
}

func TestRoot_BreakExcluded(t *testing.T) {
	root, err := NewCausable()
	require.NoError(t, err)
	child, err := NewCausable(root)
	require.NoError(t, err)

	brk := NewChainBreak(child)
	c, err := NewCausable(brk, child)
	require.NoError(t, err)

	// The break is skipped; child elects the root.
	assert.Same(t, Causable(root), c.Root())
}

func TestNewCausable_TerminatedCauseFails(t *testing.T) {
	dead := terminated(t)

	_, err := NewCausable(dead)
	assert.ErrorIs(t, err, ErrFinishedCause)

	// Also inside a group.
	_, err = NewCausable([]any{"v", dead})
	assert.ErrorIs(t, err, ErrFinishedCause)

	// A terminated root behind a live intermediate is caught too.
	root, err := NewCausable()
	require.NoError(t, err)
	child, err := NewCausable(root)
	require.NoError(t, err)
	scope, err := root.Use()
	require.NoError(t, err)
	require.NoError(t, scope.Close())

	_, err = NewCausable(child)
	assert.ErrorIs(t, err, ErrFinishedCause)

	// The same holds for a live intermediate inside a group.
	_, err = NewCausable([]any{child})
	assert.ErrorIs(t, err, ErrFinishedCause)
}

func TestNewCausable_DropsNilCauses(t *testing.T) {
	c, err := NewCausable(nil, "a", nil, 1)
	require.NoError(t, err)
	assert.Len(t, c.Causes(), 2)
}

// -------------------- Traversal Tests --------------------

func TestCauseLike_BreadthFirstOrder(t *testing.T) {
	inner, err := NewCausable("deep")
	require.NoError(t, err)
	brk := NewChainBreak("handed-off")
	c, err := NewCausable("near", inner, brk)
	require.NoError(t, err)

	var visited []any
	result := c.CauseLike(func(v any) any {
		visited = append(visited, v)
		return nil
	})
	assert.Nil(t, result)

	// Self first, then near causes before distant ones; the break itself
	// is not probed, only its wrapped causes.
	require.Len(t, visited, 5)
	assert.Same(t, Causable(c), visited[0])
	assert.Equal(t, "near", visited[1])
	assert.Same(t, Causable(inner), visited[2])
	assert.Equal(t, "deep", visited[3])
	assert.Equal(t, "handed-off", visited[4])
}

func TestCauseLike_FirstMatchWins(t *testing.T) {
	inner, err := NewCausable("match-far")
	require.NoError(t, err)
	c, err := NewCausable("match-near", inner)
	require.NoError(t, err)

	got := c.CauseLike(func(v any) any {
		if s, ok := v.(string); ok {
			return s
		}
		return nil
	})
	assert.Equal(t, "match-near", got)
}

func TestHasCauseLike(t *testing.T) {
	inner, err := NewCausable(7)
	require.NoError(t, err)
	c, err := NewCausable("s", inner)
	require.NoError(t, err)

	assert.True(t, c.HasCauseLike(func(v any) bool {
		n, ok := v.(int)
		return ok && n == 7
	}))
	assert.False(t, c.HasCauseLike(func(v any) bool {
		n, ok := v.(int)
		return ok && n == 8
	}))
}

func TestCauseLike_GroupElements(t *testing.T) {
	c, err := NewCausable([]any{"grouped", 3})
	require.NoError(t, err)

	assert.True(t, c.HasCauseLike(func(v any) bool { return v == "grouped" }))
	assert.True(t, c.HasCauseLike(func(v any) bool { return v == 3 }))
}

// -------------------- Effect Accumulation Tests --------------------

func TestOnFinish_SharedAccumulator(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)
	scope, err := c.Use()
	require.NoError(t, err)

	var seen map[string]any
	key := NewKey("merge", func(values map[string]any) { seen = values })

	first, err := c.OnFinish(key)
	require.NoError(t, err)
	second, err := c.OnFinish(key)
	require.NoError(t, err)
	assert.Same(t, first, second)

	first.Set("from-first", 1)
	second.Set("from-second", 2)
	v, ok := first.Get("from-second")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	require.NoError(t, scope.Close())
	assert.Equal(t, map[string]any{"from-first": 1, "from-second": 2}, seen)
	assert.True(t, first.Executed())
}

func TestOnFinish_NestedCausablesBatchOnRoot(t *testing.T) {
	root, err := NewCausable()
	require.NoError(t, err)
	scope, err := root.Use()
	require.NoError(t, err)

	var calls int
	key := NewKey("flush", func(values map[string]any) {
		calls++
		assert.Len(t, values, 3)
	})

	// Three logically nested events all contribute to one batch on the
	// root, however the chain grew.
	for i := 0; i < 3; i++ {
		child, err := NewCausable(root)
		require.NoError(t, err)
		eff, err := child.Root().OnFinish(key)
		require.NoError(t, err)
		eff.Set(NewID(), i)
	}

	require.NoError(t, scope.Close())
	assert.Equal(t, 1, calls)
}

// -------------------- Draining Tests --------------------

func TestDrain_TwoPhaseOrdering(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)
	scope, err := c.Use()
	require.NoError(t, err)

	var order []string
	keyD := NewKey("D", func(map[string]any) { order = append(order, "D.primary") })

	keyA := NewKeyWithAfter("A",
		func(map[string]any) {
			order = append(order, "A.primary")
			// Reentrant registration during draining.
			_, err := c.OnFinish(keyD)
			assert.NoError(t, err)
		},
		func(map[string]any) { order = append(order, "A.after") },
	)
	keyB := NewKey("B", func(map[string]any) { order = append(order, "B.primary") })
	keyC := NewAfterKey("C", func(map[string]any) { order = append(order, "C.after") })

	for _, k := range []*Key{keyA, keyB, keyC} {
		_, err := c.OnFinish(k)
		require.NoError(t, err)
	}

	require.NoError(t, scope.Close())

	// Primaries run to fixpoint (including reentrant D), then after
	// actions pop in reverse registration order.
	assert.Equal(t, []string{"A.primary", "B.primary", "D.primary", "C.after", "A.after"}, order)
}

func TestDrain_AfterActionCausesMorePrimaries(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)
	scope, err := c.Use()
	require.NoError(t, err)

	var order []string
	late := NewKey("late", func(map[string]any) { order = append(order, "late.primary") })
	trigger := NewAfterKey("trigger", func(map[string]any) {
		order = append(order, "trigger.after")
		_, err := c.OnFinish(late)
		assert.NoError(t, err)
	})
	early := NewKey("early", func(map[string]any) { order = append(order, "early.primary") })

	_, err = c.OnFinish(trigger)
	require.NoError(t, err)
	_, err = c.OnFinish(early)
	require.NoError(t, err)

	require.NoError(t, scope.Close())

	assert.Equal(t, []string{"early.primary", "trigger.after", "late.primary"}, order)
	assert.True(t, c.Terminated())
}

func TestDrain_PrimaryRunsOncePerEffect(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)
	scope, err := c.Use()
	require.NoError(t, err)

	var calls int
	key := NewKey("once", func(map[string]any) { calls++ })
	for i := 0; i < 5; i++ {
		_, err := c.OnFinish(key)
		require.NoError(t, err)
	}

	require.NoError(t, scope.Close())
	assert.Equal(t, 1, calls)
}

func TestDrain_EmptyEffects(t *testing.T) {
	c, err := NewCausable()
	require.NoError(t, err)
	scope, err := c.Use()
	require.NoError(t, err)
	require.NoError(t, scope.Close())
	assert.True(t, c.Terminated())
}

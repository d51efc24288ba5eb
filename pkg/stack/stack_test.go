package stack_test

import (
	"testing"

	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushAndCurrentOwner(t *testing.T) {
	var s stack.Stack[struct{}]
	s.Push("A", struct{}{})
	s.Push("B", struct{}{})

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, model.ModKey("B"), current.Key)

	prev, ok := s.Previous()
	require.True(t, ok)
	assert.Equal(t, model.ModKey("A"), prev.Key)
}

func TestPushSameKeyIsNoop(t *testing.T) {
	var s stack.Stack[int]
	s.Push("A", 1)
	s.Push("A", 2)

	assert.Equal(t, 1, s.Len())
	v, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, 1, v, "re-push must not overwrite the original value")
}

func TestRemoveMidStack(t *testing.T) {
	var s stack.Stack[struct{}]
	s.Push("A", struct{}{})
	s.Push("B", struct{}{})
	s.Push("C", struct{}{})

	s.Remove("B")

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, model.ModKey("A"), entries[0].Key)
	assert.Equal(t, model.ModKey("C"), entries[1].Key)
}

func TestRemoveAbsentKeyIsNoop(t *testing.T) {
	var s stack.Stack[struct{}]
	s.Push("A", struct{}{})

	s.Remove("Z")

	assert.Equal(t, 1, s.Len())
}

func TestEmptyAfterAllRemoved(t *testing.T) {
	var s stack.Stack[struct{}]
	s.Push("A", struct{}{})
	s.Remove("A")

	assert.True(t, s.Empty())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestRenameKeyPreservesPosition(t *testing.T) {
	var s stack.Stack[int]
	s.Push("A", 1)
	s.Push("OLD", 2)
	s.Push("C", 3)

	s.RenameKey("OLD", "NEW")

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, model.ModKey("NEW"), entries[1].Key)
	assert.Equal(t, 2, entries[1].Value)
}

func TestNoStackHoldsTwoEntriesForSameKey(t *testing.T) {
	var s stack.Stack[int]
	s.Push("A", 1)
	s.Push("B", 2)
	s.Push("A", 3)

	seen := map[model.ModKey]int{}
	for _, e := range s.Entries() {
		seen[e.Key]++
	}
	for k, count := range seen {
		assert.Equal(t, 1, count, "key %s appeared %d times", k, count)
	}
}

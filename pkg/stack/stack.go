// Package stack implements the InstallerStack<K,V> described in spec.md
// §3: an ordered sequence of (ModKey, Value) entries per key. Insertion
// appends to the tail; removal targets a specific ModKey wherever it sits.
package stack

import "github.com/modforge/modforge/pkg/model"

// Entry is one (ModKey, Value) pair in an installer stack.
type Entry[V any] struct {
	Key   model.ModKey
	Value V
}

// Stack is an ordered installer stack for a single ledger key. The zero
// value is an empty stack ready to use.
type Stack[V any] struct {
	entries []Entry[V]
}

// Len reports the number of entries.
func (s *Stack[V]) Len() int { return len(s.entries) }

// Empty reports whether the stack has no entries; per spec.md an empty
// stack means the ledger key is absent entirely.
func (s *Stack[V]) Empty() bool { return len(s.entries) == 0 }

// Push appends an entry to the tail, making key the new current owner.
// If key already has an entry anywhere in the stack, Push is a no-op
// (spec.md §4.2: "adding a file whose normalized path already has a
// stack entry for the same ModKey is a no-op").
func (s *Stack[V]) Push(key model.ModKey, value V) {
	if s.indexOf(key) >= 0 {
		return
	}
	s.entries = append(s.entries, Entry[V]{Key: key, Value: value})
}

// Remove deletes the entry for key wherever it sits in the stack. It is
// a no-op if key is not present, so callers can safely retry after a
// partial failure (spec.md §4.2).
func (s *Stack[V]) Remove(key model.ModKey) {
	idx := s.indexOf(key)
	if idx < 0 {
		return
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
}

func (s *Stack[V]) indexOf(key model.ModKey) int {
	for i, e := range s.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// Current returns the tail entry (the current owner) and true, or the
// zero value and false if the stack is empty.
func (s *Stack[V]) Current() (Entry[V], bool) {
	if len(s.entries) == 0 {
		var zero Entry[V]
		return zero, false
	}
	return s.entries[len(s.entries)-1], true
}

// Previous returns the penultimate entry and true, or the zero value and
// false if the stack has fewer than two entries.
func (s *Stack[V]) Previous() (Entry[V], bool) {
	if len(s.entries) < 2 {
		var zero Entry[V]
		return zero, false
	}
	return s.entries[len(s.entries)-2], true
}

// Has reports whether key holds an entry anywhere in the stack.
func (s *Stack[V]) Has(key model.ModKey) bool {
	return s.indexOf(key) >= 0
}

// Get returns the value stored for key and true, or the zero value and
// false if key is absent.
func (s *Stack[V]) Get(key model.ModKey) (V, bool) {
	idx := s.indexOf(key)
	if idx < 0 {
		var zero V
		return zero, false
	}
	return s.entries[idx].Value, true
}

// Entries returns the ordered list of entries, oldest-first, matching
// installersOf's contract in spec.md §4.2. The returned slice is a copy;
// mutating it does not affect the stack.
func (s *Stack[V]) Entries() []Entry[V] {
	out := make([]Entry[V], len(s.entries))
	copy(out, s.entries)
	return out
}

// RenameKey rewrites every entry for oldKey to newKey in place,
// preserving stack position — used by Ledger.ReplaceMod for atomic
// version upgrades (spec.md §4.2).
func (s *Stack[V]) RenameKey(oldKey, newKey model.ModKey) {
	for i := range s.entries {
		if s.entries[i].Key == oldKey {
			s.entries[i].Key = newKey
		}
	}
}

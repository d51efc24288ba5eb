package ledger

import (
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/stack"
)

// AddGameValue records value as name's new content, capturing the
// pre-existing bytes into OriginalValues the first time name is
// claimed. current, when non-nil, is the game-specific reader's report
// of the value presently in effect (a GameMode collaborator concern,
// spec.md §6.4); nil means the value did not previously exist.
func (l *Ledger) AddGameValue(modKey model.ModKey, name string, value []byte, current []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mods[modKey]; !ok {
		return merr.New(merr.ErrUnknownMod, "unknown mod key").WithDetail("modKey", string(modKey))
	}

	s, ok := l.gameValues[name]
	if !ok {
		s = &stack.Stack[[]byte]{}
		l.gameValues[name] = s
	}

	if s.Empty() && current != nil {
		s.Push(model.OriginalValuesKey, current)
	}

	s.Push(modKey, value)
	return nil
}

// RemoveGameValue removes modKey's entry for name. Returns the restored
// original bytes (nil if none) so the caller's GameMode writer can
// apply them; the ledger itself has no game-specific write path.
func (l *Ledger) RemoveGameValue(modKey model.ModKey, name string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeGameValueLocked(modKey, name)
}

func (l *Ledger) removeGameValueLocked(modKey model.ModKey, name string) ([]byte, error) {
	s, ok := l.gameValues[name]
	if !ok {
		return nil, nil
	}
	if modKey == model.OriginalValuesKey && s.Len() == 1 {
		return nil, merr.New(merr.ErrInvariantViolation, "cannot remove the sole OriginalValues entry").
			WithDetail("name", name)
	}

	s.Remove(modKey)

	var restored []byte
	if current, ok := s.Current(); ok && s.Len() == 1 && current.Key == model.OriginalValuesKey {
		restored = current.Value
		s.Remove(model.OriginalValuesKey)
	}

	if s.Empty() {
		delete(l.gameValues, name)
	}
	return restored, nil
}

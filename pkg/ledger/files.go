package ledger

import (
	"path/filepath"

	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/stack"
)

func (l *Ledger) fileStack(path model.FilePath) *stack.Stack[FileValue] {
	s, ok := l.files[path]
	if !ok {
		s = &stack.Stack[FileValue]{}
		l.files[path] = s
	}
	return s
}

// AddFile normalizes path; if it is not yet tracked and the physical
// file exists in the game directory, pushes an OriginalValues entry
// first with a backup of the current bytes, then appends (key, ∅).
// Re-adding the same key for a path already tracking it is a no-op
// (spec.md §4.2).
func (l *Ledger) AddFile(key model.ModKey, rawPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mods[key]; !ok {
		return merr.New(merr.ErrUnknownMod, "unknown mod key").WithDetail("modKey", string(key))
	}

	path := model.NormalizeFilePath(rawPath)
	s := l.fileStack(path)

	if s.Empty() {
		l.fileDisplayPaths[path] = rawPath
		if content, err := l.fs.ReadFile(filepath.Join(l.gameRoot, rawPath)); err == nil {
			hash, err := l.backups.Store(path, content)
			if err != nil {
				return err
			}
			s.Push(model.OriginalValuesKey, FileValue{BackupHash: hash})
		}
	}

	s.Push(key, FileValue{})
	return nil
}

// RemoveFile removes key's entry for path wherever it sits. If the
// stack empties, OriginalValues bytes are restored to the game
// directory (if any were captured) and the entry removed entirely.
func (l *Ledger) RemoveFile(key model.ModKey, rawPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeFileLocked(key, model.NormalizeFilePath(rawPath))
}

func (l *Ledger) removeFileLocked(key model.ModKey, path model.FilePath) error {
	s, ok := l.files[path]
	if !ok {
		return nil
	}
	if key == model.OriginalValuesKey && s.Len() == 1 {
		return merr.New(merr.ErrInvariantViolation, "cannot remove the sole OriginalValues entry").
			WithDetail("path", string(path))
	}

	s.Remove(key)

	// Only OriginalValues left: the stack is logically empty of real
	// installers, so restore the pristine bytes and drop the entry
	// entirely (spec.md §4.2, scenario S3).
	if current, ok := s.Current(); ok && s.Len() == 1 && current.Key == model.OriginalValuesKey {
		if current.Value.BackupHash != "" {
			content, err := l.backups.Load(current.Value.BackupHash)
			if err != nil {
				return err
			}
			if err := l.fs.WriteFile(filepath.Join(l.gameRoot, l.displayPath(path)), content, 0644); err != nil {
				return merr.Wrap(err, merr.ErrLedgerIO, "restoring original file")
			}
			if err := l.backups.Remove(current.Value.BackupHash); err != nil {
				return err
			}
		}
		s.Remove(model.OriginalValuesKey)
	}

	if s.Empty() {
		delete(l.files, path)
		delete(l.fileDisplayPaths, path)
	}
	return nil
}

// displayPath returns the as-written casing captured by AddFile for
// path, falling back to the folded form if the path was never claimed
// through AddFile (e.g. a purely ini/game-value key never reaches here).
func (l *Ledger) displayPath(path model.FilePath) string {
	if display, ok := l.fileDisplayPaths[path]; ok {
		return display
	}
	return string(path)
}

// CurrentOwner returns path's tail entry (the current owner), or false
// if path is untracked.
func (l *Ledger) CurrentOwner(path model.FilePath) (model.ModKey, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.files[path]
	if !ok {
		return "", false
	}
	entry, ok := s.Current()
	if !ok {
		return "", false
	}
	return entry.Key, true
}

// PreviousOwner returns path's penultimate entry, or false if fewer
// than two entries exist.
func (l *Ledger) PreviousOwner(path model.FilePath) (model.ModKey, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.files[path]
	if !ok {
		return "", false
	}
	entry, ok := s.Previous()
	if !ok {
		return "", false
	}
	return entry.Key, true
}

// InstallersOf returns the ordered installer list for path, oldest
// first.
func (l *Ledger) InstallersOf(path model.FilePath) []model.ModKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.files[path]
	if !ok {
		return nil
	}
	entries := s.Entries()
	out := make([]model.ModKey, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

// RestoreOriginalContent writes path's OriginalValues bytes back to the
// game directory, without touching the ledger's stack entries. Used by
// VMA's purgeLinks to put the pristine file back in place after
// un-materializing every link, while leaving staging and ownership
// history intact (spec.md §4.3).
func (l *Ledger) RestoreOriginalContent(rawPath string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	path := model.NormalizeFilePath(rawPath)
	s, ok := l.files[path]
	if !ok {
		return nil
	}
	entries := s.Entries()
	if len(entries) == 0 || entries[0].Key != model.OriginalValuesKey || entries[0].Value.BackupHash == "" {
		return nil
	}
	content, err := l.backups.Load(entries[0].Value.BackupHash)
	if err != nil {
		return err
	}
	if err := l.fs.WriteFile(filepath.Join(l.gameRoot, l.displayPath(path)), content, 0644); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "restoring original file")
	}
	return nil
}

// FilesOf returns the set of FilePath currently carrying an entry for
// key.
func (l *Ledger) FilesOf(key model.ModKey) []model.FilePath {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.FilePath
	for path, s := range l.files {
		if s.Has(key) {
			out = append(out, path)
		}
	}
	return out
}

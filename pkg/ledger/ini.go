package ledger

import (
	"bytes"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/stack"
)

// iniDisplayKey carries the as-written file/section/key casing for an
// ini coordinate, captured the moment it is first claimed by AddIniEdit
// and used for every later read/write against that folded model.IniKey.
type iniDisplayKey struct {
	File    string
	Section string
	Key     string
}

// loadIni reads the ini file through the ledger's own fsx.FS (never the
// real OS directly, so tests can run entirely against fsx.Memory) and
// parses it with ini.v1's byte-slice source form. A missing file yields
// an empty document rather than an error, since AddIniEdit must succeed
// against a game directory that doesn't have the file yet.
func (l *Ledger) loadIni(rawFile string) (*ini.File, error) {
	path := filepath.Join(l.gameRoot, rawFile)
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return ini.Empty(), nil
	}
	return ini.Load(data)
}

func (l *Ledger) readIniValue(rawFile, section, key string) (string, bool) {
	cfg, err := l.loadIni(rawFile)
	if err != nil {
		return "", false
	}
	sec, err := cfg.GetSection(section)
	if err != nil {
		return "", false
	}
	if !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).String(), true
}

func (l *Ledger) writeIniValue(rawFile, section, key, value string) error {
	cfg, err := l.loadIni(rawFile)
	if err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "loading ini file")
	}
	cfg.Section(section).Key(key).SetValue(value)

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "serializing ini file")
	}
	path := filepath.Join(l.gameRoot, rawFile)
	if err := l.fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "saving ini file")
	}
	return nil
}

// deleteIniKey removes key from section entirely, used to undo a mod's
// edit that introduced a key which never previously existed (the
// OriginalValues entry is the iniAbsent sentinel).
func (l *Ledger) deleteIniKey(rawFile, section, key string) error {
	cfg, err := l.loadIni(rawFile)
	if err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "loading ini file")
	}
	sec, err := cfg.GetSection(section)
	if err != nil {
		return nil
	}
	sec.DeleteKey(key)

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "serializing ini file")
	}
	path := filepath.Join(l.gameRoot, rawFile)
	if err := l.fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "saving ini file")
	}
	return nil
}

// AddIniEdit records value as key's new literal content, capturing the
// pre-existing value (or the ABSENT sentinel) into OriginalValues the
// first time the key is claimed, matching AddFile's protocol.
func (l *Ledger) AddIniEdit(modKey model.ModKey, file, section, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mods[modKey]; !ok {
		return merr.New(merr.ErrUnknownMod, "unknown mod key").WithDetail("modKey", string(modKey))
	}

	ik := model.NormalizeIniKey(file, section, key)
	s, ok := l.iniEdits[ik]
	if !ok {
		s = &stack.Stack[string]{}
		l.iniEdits[ik] = s
	}

	if s.Empty() {
		l.iniDisplayKeys[ik] = iniDisplayKey{File: file, Section: section, Key: key}
		if existing, found := l.readIniValue(file, section, key); found {
			s.Push(model.OriginalValuesKey, existing)
		} else {
			s.Push(model.OriginalValuesKey, iniAbsent)
		}
	}

	s.Push(modKey, value)
	return l.writeIniValue(file, section, key, value)
}

// RemoveIniEdit removes modKey's entry for the ini coordinate. When the
// stack collapses to just OriginalValues, the original literal (or
// absence) is restored and the entry dropped entirely.
func (l *Ledger) RemoveIniEdit(modKey model.ModKey, file, section, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeIniEditLocked(modKey, model.NormalizeIniKey(file, section, key))
}

func (l *Ledger) removeIniEditLocked(modKey model.ModKey, ik model.IniKey) error {
	s, ok := l.iniEdits[ik]
	if !ok {
		return nil
	}
	if modKey == model.OriginalValuesKey && s.Len() == 1 {
		return merr.New(merr.ErrInvariantViolation, "cannot remove the sole OriginalValues entry").
			WithDetail("iniKey", ik.String())
	}

	s.Remove(modKey)

	if current, ok := s.Current(); ok && s.Len() == 1 && current.Key == model.OriginalValuesKey {
		display := l.iniDisplayKeys[ik]
		if current.Value != iniAbsent {
			if err := l.writeIniValue(display.File, display.Section, display.Key, current.Value); err != nil {
				return err
			}
		} else if err := l.deleteIniKey(display.File, display.Section, display.Key); err != nil {
			return err
		}
		s.Remove(model.OriginalValuesKey)
	}

	if s.Empty() {
		delete(l.iniEdits, ik)
		delete(l.iniDisplayKeys, ik)
	}
	return nil
}

// CurrentIniValue returns the currently-winning literal for the ini
// coordinate, or false if untracked.
func (l *Ledger) CurrentIniValue(file, section, key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ik := model.NormalizeIniKey(file, section, key)
	s, ok := l.iniEdits[ik]
	if !ok {
		return "", false
	}
	entry, ok := s.Current()
	if !ok {
		return "", false
	}
	return entry.Value, true
}

// Package ledger implements the Installation Log (IL) of spec.md §4.2:
// the transactional, stack-structured ownership ledger recording, for
// every installed file path and edited configuration key, the full
// ordered history of mods that have claimed it.
package ledger

import (
	"sync"

	"github.com/gofrs/flock"

	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/mlog"
	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/stack"
)

// OwnershipOracle is the narrow view of the ledger the Virtual Mod
// Activator depends on, breaking the IL<->VMA cyclic reference called
// out in spec.md §9. Ledger implements it directly.
type OwnershipOracle interface {
	CurrentOwner(path model.FilePath) (model.ModKey, bool)
	AddFile(key model.ModKey, rawPath string) error
	RemoveFile(key model.ModKey, rawPath string) error
	RestoreOriginalContent(rawPath string) error
}

// ActiveModSet is the narrow view of VMA state the ledger depends on
// (spec.md §9: "IL consults VMA for the set of ACTIVE mods"). The
// Virtual Mod Activator implements it; Ledger only holds the interface,
// wired in after both sides are constructed.
type ActiveModSet interface {
	IsActive(key model.ModKey) bool
}

// FileValue is the stack value type for the files map. Ordinary mod
// entries carry a zero FileValue; only the OriginalValues bottom entry
// carries a BackupHash (spec.md §3, §6.3).
type FileValue struct {
	BackupHash string
}

// iniAbsent is the sentinel OriginalValues records for an INI key that
// did not previously exist, distinguishing "restore to empty" from "key
// was never present" on full uninstall.
const iniAbsent = "\x00ABSENT\x00"

// Ledger is the Installation Log. It is safe for concurrent use; the
// Transaction Coordinator serializes writers via Lock/Unlock and this
// struct's own RWMutex guards in-memory state.
type Ledger struct {
	mu sync.RWMutex

	mods map[model.ModKey]model.Mod

	files      map[model.FilePath]*stack.Stack[FileValue]
	iniEdits   map[model.IniKey]*stack.Stack[string]
	gameValues map[string]*stack.Stack[[]byte]

	// fileDisplayPaths and iniDisplayKeys carry the as-written casing for
	// each folded key, captured the moment a path/ini-coordinate is first
	// claimed. Every subsequent read/write/restore against that key uses
	// this casing, so a case-sensitive filesystem never sees a value
	// written under one case and restored under another.
	fileDisplayPaths map[model.FilePath]string
	iniDisplayKeys   map[model.IniKey]iniDisplayKey

	keyGen  *model.KeyGenerator
	fs      fsx.FS
	backups *backupStore

	gameRoot    string
	primaryPath string
	lock        *flock.Flock

	activeMods ActiveModSet
}

// New returns an empty Ledger persisting to primaryPath, with backups
// stored under backupDir. gameRoot is the live game directory AddFile/
// AddIniEdit consult to detect and back up pre-existing content. The
// advisory file lock (spec.md §5) targets a sibling ".lock" file,
// matching the cross-platform pattern of using a separate lock file
// rather than locking the data file itself.
func New(fs fsx.FS, gameRoot, primaryPath, backupDir string) *Ledger {
	return &Ledger{
		mods:             make(map[model.ModKey]model.Mod),
		files:            make(map[model.FilePath]*stack.Stack[FileValue]),
		iniEdits:         make(map[model.IniKey]*stack.Stack[string]),
		gameValues:       make(map[string]*stack.Stack[[]byte]),
		fileDisplayPaths: make(map[model.FilePath]string),
		iniDisplayKeys:   make(map[model.IniKey]iniDisplayKey),
		keyGen:           model.NewKeyGenerator(),
		fs:               fs,
		backups:          newBackupStore(fs, backupDir),
		gameRoot:         gameRoot,
		primaryPath:      primaryPath,
		lock:             flock.New(primaryPath + ".lock"),
	}
}

// SetActiveModSet wires VMA's ActiveModSet view into the ledger,
// completing the interface seam spec.md §9 mandates. Call once after
// both the ledger and its VMA are constructed.
func (l *Ledger) SetActiveModSet(a ActiveModSet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeMods = a
}

// ActivateMod assigns and returns a fresh ModKey, failing with
// ErrDuplicateMod if an active mod with identical archive-path+version
// exists (spec.md §4.2).
func (l *Ledger) ActivateMod(mod model.Mod) (model.ModKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.mods {
		if existing.SameArchive(mod) {
			return "", merr.New(merr.ErrDuplicateMod, "mod with same archive and version already active").
				WithDetail("archivePath", mod.ArchivePath).WithDetail("humanVersion", mod.HumanVersion)
		}
	}

	key := l.keyGen.Next()
	mod.Key = key
	l.mods[key] = mod
	log := mlog.Get("ledger")
	log.Info().Str("modKey", string(key)).Str("archive", mod.ArchivePath).Msg("mod activated")
	return key, nil
}

// DeactivateMod removes every entry the mod holds across all three
// stack maps and deletes the mod record. Fails with ErrUnknownMod if
// key is not present.
func (l *Ledger) DeactivateMod(key model.ModKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mods[key]; !ok {
		return merr.New(merr.ErrUnknownMod, "unknown mod key").WithDetail("modKey", string(key))
	}

	for path, s := range l.files {
		if s.Has(key) {
			l.removeFileLocked(key, path)
		}
	}
	for ik, s := range l.iniEdits {
		if s.Has(key) {
			l.removeIniEditLocked(key, ik)
		}
	}
	for name, s := range l.gameValues {
		if s.Has(key) {
			// The restored OriginalValues bytes are intentionally
			// discarded here: the ledger has no game-write path of its
			// own, so applying a game-specific value restore is the
			// caller's responsibility, and DeactivateMod has none to
			// hand it to.
			l.removeGameValueLocked(key, name)
		}
	}

	delete(l.mods, key)
	log := mlog.Get("ledger")
	log.Info().Str("modKey", string(key)).Msg("mod deactivated")
	return nil
}

// ReplaceMod performs an atomic rename/upgrade: assigns a new key and
// rewrites every stack entry from oldKey to the new key in place,
// preserving stack position (spec.md §4.2, used on version upgrades).
func (l *Ledger) ReplaceMod(oldKey model.ModKey, newMod model.Mod) (model.ModKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mods[oldKey]; !ok {
		return "", merr.New(merr.ErrUnknownMod, "unknown mod key").WithDetail("modKey", string(oldKey))
	}

	newKey := l.keyGen.Next()
	newMod.Key = newKey

	for _, s := range l.files {
		s.RenameKey(oldKey, newKey)
	}
	for _, s := range l.iniEdits {
		s.RenameKey(oldKey, newKey)
	}
	for _, s := range l.gameValues {
		s.RenameKey(oldKey, newKey)
	}

	delete(l.mods, oldKey)
	l.mods[newKey] = newMod
	return newKey, nil
}

// GetMod returns the mod record for key.
func (l *Ledger) GetMod(key model.ModKey) (model.Mod, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.mods[key]
	return m, ok
}

// ActiveMods returns every mod currently in the ledger.
func (l *Ledger) ActiveMods() []model.Mod {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Mod, 0, len(l.mods))
	for _, m := range l.mods {
		out = append(out, m)
	}
	return out
}

// VersionMismatch pairs the ledger-recorded version against the
// current archive's reported version for one mod.
type VersionMismatch struct {
	ModKey   model.ModKey
	Recorded string
	Current  string
}

// MismatchedVersions iterates active mods (per ActiveModSet, if wired;
// otherwise every mod in the ledger) and compares the ledger-recorded
// HumanVersion against currentVersions, keyed by ModKey, emitting a
// mismatch for every divergence (spec.md §4.2).
func (l *Ledger) MismatchedVersions(currentVersions map[model.ModKey]string) []VersionMismatch {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var mismatches []VersionMismatch
	for key, mod := range l.mods {
		if l.activeMods != nil && !l.activeMods.IsActive(key) {
			continue
		}
		current, ok := currentVersions[key]
		if !ok || current == mod.HumanVersion {
			continue
		}
		mismatches = append(mismatches, VersionMismatch{ModKey: key, Recorded: mod.HumanVersion, Current: current})
	}
	return mismatches
}

// Lock acquires the cross-process advisory lock on the ledger file,
// held from begin() to commit()/rollback() per spec.md §5. block
// selects the policy: true blocks until acquired, false fails fast.
func (l *Ledger) Lock(block bool) error {
	if block {
		if err := l.lock.Lock(); err != nil {
			return merr.Wrap(err, merr.ErrLedgerIO, "acquiring ledger lock")
		}
		return nil
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "acquiring ledger lock")
	}
	if !ok {
		return merr.New(merr.ErrLedgerIO, "ledger is locked by another process")
	}
	return nil
}

// Unlock releases the advisory lock.
func (l *Ledger) Unlock() error {
	return l.lock.Unlock()
}

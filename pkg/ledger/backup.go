package ledger

import (
	"crypto/sha1" //nolint:gosec // spec.md §6.3 mandates SHA-1 for backup filenames, not a security primitive
	"encoding/hex"
	"path/filepath"

	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
)

// backupStore persists the pristine bytes an OriginalValues entry
// captures, in a sibling folder whose filenames are the normalized
// path's SHA-1 hash (spec.md §6.3). The ledger records only the hash.
type backupStore struct {
	fs  fsx.FS
	dir string
}

func newBackupStore(fs fsx.FS, dir string) *backupStore {
	return &backupStore{fs: fs, dir: dir}
}

// hashOf returns the hex SHA-1 digest of a normalized FilePath, the
// backup blob's filename.
func hashOf(path model.FilePath) string {
	sum := sha1.Sum([]byte(path)) //nolint:gosec // filename derivation, not a security boundary
	return hex.EncodeToString(sum[:])
}

func (b *backupStore) path(hash string) string {
	return filepath.Join(b.dir, hash)
}

// Store writes content under path's hash and returns the hash to record
// in the ledger.
func (b *backupStore) Store(path model.FilePath, content []byte) (string, error) {
	if err := b.fs.MkdirAll(b.dir, 0755); err != nil {
		return "", merr.Wrap(err, merr.ErrLedgerIO, "creating backup directory")
	}
	hash := hashOf(path)
	if err := b.fs.WriteFile(b.path(hash), content, 0644); err != nil {
		return "", merr.Wrap(err, merr.ErrLedgerIO, "writing backup blob")
	}
	return hash, nil
}

// Load returns the bytes stored under hash.
func (b *backupStore) Load(hash string) ([]byte, error) {
	data, err := b.fs.ReadFile(b.path(hash))
	if err != nil {
		return nil, merr.Wrap(err, merr.ErrLedgerIO, "reading backup blob")
	}
	return data, nil
}

// Remove deletes the blob stored under hash. Callers must ensure no
// OriginalValues entry still references it (spec.md §6.3: "removal of a
// backup is forbidden while its OriginalValues entry exists" — enforced
// by the ledger only ever calling this once the entry is gone).
func (b *backupStore) Remove(hash string) error {
	if err := b.fs.Remove(b.path(hash)); err != nil {
		return merr.Wrap(err, merr.ErrLedgerIO, "removing backup blob")
	}
	return nil
}

package model

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// Mod is the identity the ledger tracks. Equality between two external
// mod references is ArchivePath+HumanVersion (spec.md §3); a mismatch
// against the ledger's recorded HumanVersion is reported as version
// drift by Ledger.MismatchedVersions.
type Mod struct {
	Key ModKey

	ArchivePath    string
	DisplayName    string
	HumanVersion   string
	MachineVersion *semver.Version
	InstallDate    time.Time

	// Richer optional metadata carried for round-tripping, mirroring
	// nmm-core::ModInfo. None of these participate in equality.
	DownloadID    string
	Author        string
	Description   string
	CategoryID    int
	Website       string
	DownloadDate  *time.Time
	IsEndorsed    bool
	LoadOrder     int
}

// SameArchive reports whether other identifies the same archive+version
// as m, the equality test spec.md §3 mandates for mods.
func (m Mod) SameArchive(other Mod) bool {
	return m.ArchivePath == other.ArchivePath && m.HumanVersion == other.HumanVersion
}

// IsOriginalValues reports whether m is the reserved pseudo-mod
// representing the game's pristine state.
func (m Mod) IsOriginalValues() bool {
	return m.Key == OriginalValuesKey
}

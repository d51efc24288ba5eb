// Package vma implements the Virtual Mod Activator of spec.md §4.3: the
// in-memory authoritative overlay state (VirtualLink records)
// synchronized with the game directory through the Link Primitive and
// persisted to VirtualModConfig.xml.
package vma

import (
	"github.com/modforge/modforge/pkg/model"
)

// State is a mod's position in the VMA state machine (spec.md §4.3).
type State int

const (
	Unstaged State = iota
	Staged
	Active
)

func (s State) String() string {
	switch s {
	case Staged:
		return "staged"
	case Active:
		return "active"
	default:
		return "unstaged"
	}
}

// VirtualLink is a logical ownership record that may or may not be
// currently materialized (spec.md §3).
type VirtualLink struct {
	ModKey      model.ModKey
	RealPath    string
	VirtualPath string
	Priority    int
	IsActive    bool

	// insertionOrder breaks priority ties by "last insertion" per
	// spec.md §9's Open Question resolution; higher wins.
	insertionOrder int64
}

// VirtualModInfo is per-mod overlay metadata, one per activated mod
// (spec.md §3).
type VirtualModInfo struct {
	ModKey          model.ModKey
	DownloadID      string
	DisplayName     string
	ArchiveFileName string
	ArchivePath     string
	FileVersion     string
}

// normVirtualPath folds a virtual path to the same case-insensitive
// canonical form the ledger uses for FilePath, so VMA's link map keys
// agree with IL's ownership keys.
func normVirtualPath(p string) string {
	return string(model.NormalizeFilePath(p))
}

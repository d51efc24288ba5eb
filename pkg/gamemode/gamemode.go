// Package gamemode models the "GameMode provider" collaborator interface
// from spec.md §6.4: per-game installation root, path-adjustment hook,
// and extension-to-link-kind classification, plus the richer descriptor
// shape (stop folders, critical plugins, theme) that original_source's
// nmm-core::game_mode carries and spec.md §9.1 folds into scope.
package gamemode

import (
	"path"
	"strings"

	"github.com/modforge/modforge/pkg/linkkind"
)

// Theme carries cosmetic per-game presentation data, grounded on
// nmm-core::game_mode::GameTheme. It has no effect on core semantics;
// it exists so cmd/modforge can style status output per active game.
type Theme struct {
	PrimaryColor string
	IconPath     string
}

// Descriptor is the capability object spec.md §9 recommends in place of
// per-game class hierarchies: a small set of orthogonal, opaque
// providers the core consults without ever branching on game identity.
type Descriptor struct {
	ModeID    string
	Name      string
	Theme     Theme

	// InstallRoot is the absolute path to the game's data directory,
	// the destination volume every VirtualLink materializes into.
	InstallRoot string

	// StopFolders are directory names that terminate the legacy-archive
	// path-adjustment walk (see AdjustPath).
	StopFolders []string

	// ExtensionLinkKind maps a lower-cased file extension (with leading
	// dot) to the link-kind hint LP must honor, e.g. ".esp" -> RequireHard
	// for Bethesda titles whose engine exclusively locks plugin files.
	ExtensionLinkKind map[string]linkkind.Hint

	CriticalPlugins   []string
	OfficialPlugins   []string
	PluginExtensions  []string
	MaxActivePlugins  int
	RequiredToolName  string
}

// AdjustPath implements the path-adjustment hook spec.md §4.3 calls out.
// It converts backslashes to slashes, cleans the path, and walks its
// segments; at the first segment that equals one of the descriptor's
// stop folders (case-insensitively) it drops every segment before it,
// so "MyMod/Data/textures/x.dds" becomes "Data/textures/x.dds". If no
// segment is a stop folder the cleaned path is returned unchanged; a
// missing top-level data folder is not added.
func (d Descriptor) AdjustPath(baseFilePath string) string {
	clean := path.Clean(strings.ReplaceAll(baseFilePath, "\\", "/"))
	segments := strings.Split(clean, "/")
	offset := 0
	for _, seg := range segments {
		for _, stop := range d.StopFolders {
			if strings.EqualFold(seg, stop) {
				return clean[offset:]
			}
		}
		offset += len(seg) + 1
	}
	return clean
}

// LinkHint returns the link-kind hint for virtualPath's extension, or
// the zero hint (no requirement) if the extension is unclassified.
func (d Descriptor) LinkHint(virtualPath string) linkkind.Hint {
	ext := strings.ToLower(path.Ext(virtualPath))
	return d.ExtensionLinkKind[ext]
}

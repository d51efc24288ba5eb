package config

import (
	"strings"

	"github.com/modforge/modforge/pkg/gamemode"
	"github.com/modforge/modforge/pkg/linkkind"
)

// Config is modforge's resolved runtime configuration.
type Config struct {
	Paths    Paths          `koanf:"paths"`
	Volumes  VolumePolicy   `koanf:"volumes"`
	Lock     LockPolicy     `koanf:"lock"`
	GameMode GameModeConfig `koanf:"game_mode"`
}

// Paths holds the filesystem locations the core operates against
// (spec.md §4.1-§4.3 collaborators).
type Paths struct {
	// GameRoot is the live game directory VMA materializes links into.
	GameRoot string `koanf:"game_root"`
	// StagingRoot is where staged mod archives live before activation.
	StagingRoot string `koanf:"staging_root"`
	// StateDir holds InstallLog.xml and VirtualModConfig.xml.
	StateDir string `koanf:"state_dir"`
	// BackupDir holds OriginalValues backup blobs (spec.md §6.3).
	BackupDir string `koanf:"backup_dir"`
}

// VolumePolicy configures the multi-volume mirroring behavior spec.md
// §4.3 scenario S4 describes.
type VolumePolicy struct {
	MultiVolume bool   `koanf:"multi_volume"`
	MirrorDir   string `koanf:"mirror_dir"`
}

// LockPolicy configures the advisory ledger lock contention behavior
// spec.md §5 calls out.
type LockPolicy struct {
	// Block selects begin()'s behavior when the ledger lock is already
	// held by another process: true blocks until it frees, false fails
	// fast with ErrTransactionAborted.
	Block bool `koanf:"block"`
}

// GameModeConfig is the on-disk shape of a gamemode.Descriptor, decoded
// from TOML and converted via Descriptor.
type GameModeConfig struct {
	ModeID           string            `koanf:"mode_id"`
	Name             string            `koanf:"name"`
	StopFolders      []string          `koanf:"stop_folders"`
	ExtensionHints   map[string]string `koanf:"extension_hints"`
	CriticalPlugins  []string          `koanf:"critical_plugins"`
	OfficialPlugins  []string          `koanf:"official_plugins"`
	PluginExtensions []string          `koanf:"plugin_extensions"`
	MaxActivePlugins int               `koanf:"max_active_plugins"`
	RequiredToolName string            `koanf:"required_tool_name"`
}

// Descriptor converts the config-file shape into the gamemode.Descriptor
// the core consumes, resolving extension hint strings ("hard" or empty)
// into linkkind.Hint values and setting InstallRoot from the resolved
// Paths.GameRoot.
func (c *Config) Descriptor() gamemode.Descriptor {
	hints := make(map[string]linkkind.Hint, len(c.GameMode.ExtensionHints))
	for ext, kind := range c.GameMode.ExtensionHints {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		ext = strings.ToLower(ext)
		if strings.EqualFold(kind, "hard") {
			hints[ext] = linkkind.RequireHard
		} else {
			hints[ext] = linkkind.NoHint
		}
	}

	return gamemode.Descriptor{
		ModeID:            c.GameMode.ModeID,
		Name:              c.GameMode.Name,
		InstallRoot:       c.Paths.GameRoot,
		StopFolders:       c.GameMode.StopFolders,
		ExtensionLinkKind: hints,
		CriticalPlugins:   c.GameMode.CriticalPlugins,
		OfficialPlugins:   c.GameMode.OfficialPlugins,
		PluginExtensions:  c.GameMode.PluginExtensions,
		MaxActivePlugins:  c.GameMode.MaxActivePlugins,
		RequiredToolName:  c.GameMode.RequiredToolName,
	}
}

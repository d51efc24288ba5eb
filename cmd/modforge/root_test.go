package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTestConfig returns a config file path pointing at fresh temp
// directories for game root and staging, so each test gets an isolated
// on-disk ledger and overlay.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gameRoot := filepath.Join(dir, "game", "Data")
	staging := filepath.Join(dir, "staging")
	require.NoError(t, os.MkdirAll(gameRoot, 0o755))
	require.NoError(t, os.MkdirAll(staging, 0o755))

	cfgPath := filepath.Join(dir, "modforge.toml")
	doc := `
[paths]
game_root = "` + gameRoot + `"
staging_root = "` + staging + `"
state_dir = "` + filepath.Join(dir, "state") + `"
backup_dir = "` + filepath.Join(dir, "backups") + `"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))
	return cfgPath
}

func TestInstallAndStatusCommands(t *testing.T) {
	cfgPath := writeTestConfig(t)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"--config", cfgPath, "install", "--archive", "mods/nice-armor.zip", "--name", "Nice Armor"})
	require.NoError(t, rootCmd.Execute())

	rootCmd = NewRootCmd()
	rootCmd.SetArgs([]string{"--config", cfgPath, "status"})
	require.NoError(t, rootCmd.Execute())
}

func TestUninstallUnknownModReturnsError(t *testing.T) {
	cfgPath := writeTestConfig(t)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"--config", cfgPath, "uninstall", "NO-SUCH-MOD"})
	err := rootCmd.Execute()
	require.Error(t, err)
}

func TestInstallDryRunDoesNotPersist(t *testing.T) {
	cfgPath := writeTestConfig(t)

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"--config", cfgPath, "--dry-run", "install", "--archive", "mods/x.zip"})
	require.NoError(t, rootCmd.Execute())

	require.Empty(t, theApp.core.Ledger.ActiveMods())
}

func TestVersionCommandSkipsBootstrap(t *testing.T) {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
}

package ledger_test

import (
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/ledger"
	"github.com/modforge/modforge/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*ledger.Ledger, *fsx.Memory) {
	t.Helper()
	fs := fsx.NewMemory()
	require.NoError(t, fs.MkdirAll("/game/Data", 0755))
	l := ledger.New(fs, "/game", "/state/InstallLog.xml", "/state/backups")
	return l, fs
}

// S1 — simple install/uninstall.
func TestScenarioSimpleInstallUninstall(t *testing.T) {
	l, fs := newTestLedger(t)

	keyA, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0", InstallDate: time.Unix(0, 0)})
	require.NoError(t, err)

	require.NoError(t, l.AddFile(keyA, "Data/textures/x.dds"))

	owner, ok := l.CurrentOwner(model.NormalizeFilePath("Data/textures/x.dds"))
	require.True(t, ok)
	assert.Equal(t, keyA, owner)

	require.NoError(t, l.DeactivateMod(keyA))

	_, ok = l.CurrentOwner(model.NormalizeFilePath("Data/textures/x.dds"))
	assert.False(t, ok, "file must be untracked after full uninstall")

	entries, err := fs.ReadDir("/state/backups")
	if err == nil {
		assert.Empty(t, entries, "no backup should have been captured for a file that didn't pre-exist")
	}
}

// S2 — conflict between two mods claiming the same path.
func TestScenarioConflict(t *testing.T) {
	l, _ := newTestLedger(t)

	keyA, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"})
	require.NoError(t, err)
	require.NoError(t, l.AddFile(keyA, "Data/textures/x.dds"))

	keyB, err := l.ActivateMod(model.Mod{ArchivePath: "b.zip", HumanVersion: "1.0"})
	require.NoError(t, err)
	require.NoError(t, l.AddFile(keyB, "Data/textures/x.dds"))

	path := model.NormalizeFilePath("Data/textures/x.dds")
	owner, ok := l.CurrentOwner(path)
	require.True(t, ok)
	assert.Equal(t, keyB, owner)

	prev, ok := l.PreviousOwner(path)
	require.True(t, ok)
	assert.Equal(t, keyA, prev)

	installers := l.InstallersOf(path)
	require.Len(t, installers, 2)
	assert.Equal(t, keyA, installers[0])
	assert.Equal(t, keyB, installers[1])

	require.NoError(t, l.RemoveFile(keyB, "Data/textures/x.dds"))
	owner, ok = l.CurrentOwner(path)
	require.True(t, ok)
	assert.Equal(t, keyA, owner)
}

// S3 — original value preservation for an ini edit.
func TestScenarioOriginalIniPreservation(t *testing.T) {
	l, fs := newTestLedger(t)

	require.NoError(t, fs.WriteFile("/game/Skyrim.ini", []byte("[Display]\nfShadowDistance = 3000\n"), 0644))

	keyA, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"})
	require.NoError(t, err)

	require.NoError(t, l.AddIniEdit(keyA, "Skyrim.ini", "Display", "fShadowDistance", "8000"))

	current, ok := l.CurrentIniValue("Skyrim.ini", "Display", "fShadowDistance")
	require.True(t, ok)
	assert.Equal(t, "8000", current)

	require.NoError(t, l.DeactivateMod(keyA))

	content, err := fs.ReadFile("/game/Skyrim.ini")
	require.NoError(t, err)
	assert.Contains(t, string(content), "3000")

	_, ok = l.CurrentIniValue("Skyrim.ini", "Display", "fShadowDistance")
	assert.False(t, ok, "ini edit entry must be gone after restore")
}

// TestScenarioOriginalFilePreservationCaseSensitive covers spec.md S3 on
// a case-sensitive filesystem: the restored bytes must land back on the
// exact path they were captured from, not a lower-cased sibling.
func TestScenarioOriginalFilePreservationCaseSensitive(t *testing.T) {
	l, fs := newTestLedger(t)
	require.NoError(t, fs.WriteFile("/game/Data/Textures/RockWall.dds", []byte("orig"), 0644))

	keyA, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"})
	require.NoError(t, err)
	require.NoError(t, l.AddFile(keyA, "Data/Textures/RockWall.dds"))
	require.NoError(t, l.DeactivateMod(keyA))

	content, err := fs.ReadFile("/game/Data/Textures/RockWall.dds")
	require.NoError(t, err, "restore must land on the original mixed-case path")
	assert.Equal(t, "orig", string(content))

	_, err = fs.ReadFile("/game/data/textures/rockwall.dds")
	assert.Error(t, err, "restore must not have created a lower-cased sibling file")
}

// TestRemoveIniEditRestoresAbsentKeyByDeleting covers spec.md §4.2: a
// mod that adds a previously-nonexistent ini key must leave the file
// exactly as it found it once its edit is fully undone, not leave the
// key behind with whatever value it last held.
func TestRemoveIniEditRestoresAbsentKeyByDeleting(t *testing.T) {
	l, fs := newTestLedger(t)
	require.NoError(t, fs.WriteFile("/game/Skyrim.ini", []byte("[Display]\nfOther = 1\n"), 0644))

	keyA, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"})
	require.NoError(t, err)

	require.NoError(t, l.AddIniEdit(keyA, "Skyrim.ini", "Display", "bNewKey", "1"))
	require.NoError(t, l.DeactivateMod(keyA))

	content, err := fs.ReadFile("/game/Skyrim.ini")
	require.NoError(t, err)
	assert.NotContains(t, string(content), "bNewKey", "a key absent before the mod's edit must be deleted, not left behind")
	assert.Contains(t, string(content), "fOther")
}

func TestActivateModRejectsDuplicateArchiveVersion(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"})
	require.NoError(t, err)

	_, err = l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"})
	require.Error(t, err)
}

func TestRemoveOriginalValuesAfterAutoRestoreIsNoOp(t *testing.T) {
	l, fs := newTestLedger(t)
	require.NoError(t, fs.WriteFile("/game/Data/x.dds", []byte("orig"), 0644))

	keyA, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"})
	require.NoError(t, err)
	require.NoError(t, l.AddFile(keyA, "Data/x.dds"))
	require.NoError(t, l.RemoveFile(keyA, "Data/x.dds"))

	// After the sole real mod is removed, OriginalValues auto-restores
	// and the entry vanishes; explicitly removing it again is a no-op,
	// not an invariant violation, because the stack is already gone.
	err = l.RemoveFile(model.OriginalValuesKey, "Data/x.dds")
	assert.NoError(t, err)
}

func TestReplaceModPreservesStackPosition(t *testing.T) {
	l, _ := newTestLedger(t)

	keyA, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"})
	require.NoError(t, err)
	require.NoError(t, l.AddFile(keyA, "Data/x.dds"))

	newKey, err := l.ReplaceMod(keyA, model.Mod{ArchivePath: "a.zip", HumanVersion: "2.0"})
	require.NoError(t, err)

	path := model.NormalizeFilePath("Data/x.dds")
	owner, ok := l.CurrentOwner(path)
	require.True(t, ok)
	assert.Equal(t, newKey, owner)

	_, ok = l.GetMod(keyA)
	assert.False(t, ok, "old key must be gone after replace")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := fsx.NewMemory()
	require.NoError(t, fs.MkdirAll("/game/Data", 0755))
	l := ledger.New(fs, "/game", "/state/InstallLog.xml", "/state/backups")

	keyA, err := l.ActivateMod(model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0", DisplayName: "Mod A"})
	require.NoError(t, err)
	require.NoError(t, l.AddFile(keyA, "Data/textures/x.dds"))

	require.NoError(t, l.Save())

	// Reload into a fresh ledger sharing the same backing fs/path.
	l2 := ledger.New(fs, "/game", "/state/InstallLog.xml", "/state/backups")
	require.NoError(t, l2.Load())

	path := model.NormalizeFilePath("Data/textures/x.dds")
	owner, ok := l2.CurrentOwner(path)
	require.True(t, ok)
	assert.Equal(t, keyA, owner)
}

// TestSaveLoadRoundTripModInfo covers spec.md §9.1: the nmm-core::ModInfo
// metadata a mod carries alongside its identity must survive a Save/Load
// cycle, not just the identity fields checked by TestSaveLoadRoundTrip.
func TestSaveLoadRoundTripModInfo(t *testing.T) {
	fs := fsx.NewMemory()
	require.NoError(t, fs.MkdirAll("/game/Data", 0755))
	l := ledger.New(fs, "/game", "/state/InstallLog.xml", "/state/backups")

	downloadDate := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	machineVersion := semver.MustParse("1.0.0")
	keyA, err := l.ActivateMod(model.Mod{
		ArchivePath:    "a.zip",
		HumanVersion:   "1.0",
		MachineVersion: machineVersion,
		DisplayName:    "Mod A",
		DownloadID:     "nexus-42",
		Author:         "Jane Modder",
		Description:    "Adds a nice sword",
		CategoryID:     7,
		Website:        "https://example.com/mod-a",
		DownloadDate:   &downloadDate,
		IsEndorsed:     true,
		LoadOrder:      3,
	})
	require.NoError(t, err)

	require.NoError(t, l.Save())

	l2 := ledger.New(fs, "/game", "/state/InstallLog.xml", "/state/backups")
	require.NoError(t, l2.Load())

	mod, ok := l2.GetMod(keyA)
	require.True(t, ok)
	require.NotNil(t, mod.MachineVersion)
	assert.True(t, machineVersion.Equal(mod.MachineVersion))
	assert.Equal(t, "nexus-42", mod.DownloadID)
	assert.Equal(t, "Jane Modder", mod.Author)
	assert.Equal(t, "Adds a nice sword", mod.Description)
	assert.Equal(t, 7, mod.CategoryID)
	assert.Equal(t, "https://example.com/mod-a", mod.Website)
	require.NotNil(t, mod.DownloadDate)
	assert.True(t, downloadDate.Equal(*mod.DownloadDate))
	assert.True(t, mod.IsEndorsed)
	assert.Equal(t, 3, mod.LoadOrder)
}

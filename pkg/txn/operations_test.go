package txn_test

import (
	"context"
	"testing"

	"github.com/modforge/modforge/pkg/events"
	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/gamemode"
	"github.com/modforge/modforge/pkg/ledger"
	"github.com/modforge/modforge/pkg/linkprimitive"
	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/txn"
	"github.com/modforge/modforge/pkg/vma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T) (*txn.Core, *fsx.Memory) {
	t.Helper()
	fs := fsx.NewMemory()
	require.NoError(t, fs.MkdirAll("/game", 0755))
	require.NoError(t, fs.MkdirAll("/staging", 0755))

	l := ledger.New(fs, "/game", "/state/InstallLog.xml", "/state/backups")
	lp := linkprimitive.New(fs)
	a := vma.New(fs, lp, l, gamemode.Descriptor{}, "/staging", "/game", events.NewBus())
	l.SetActiveModSet(a)

	// The ledger's advisory lock is a real file beside its primary path,
	// which exists only inside fs here, so the coordinator locks a fake.
	coord := txn.NewCoordinator(&fakeLocker{}, true,
		txn.Persister{Name: "installlog", Path: "/state/InstallLog.xml", Save: func(string) error { return l.Save() }},
		txn.Persister{Name: "overlay", Path: "/state/VirtualModConfig.xml", Save: a.Save},
	)
	return &txn.Core{Ledger: l, Activator: a, Coordinator: coord}, fs
}

func TestInstallModCommitsLedgerAndOverlayDocuments(t *testing.T) {
	core, fs := newTestCore(t)
	ctx := context.Background()

	key, err := core.InstallMod(ctx, model.Mod{ArchivePath: "a.zip", HumanVersion: "1.0"},
		vma.VirtualModInfo{DisplayName: "A"}, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	_, err = fs.ReadFile("/state/InstallLog.xml")
	assert.NoError(t, err, "commit must persist the install log")
	_, err = fs.ReadFile("/state/VirtualModConfig.xml")
	assert.NoError(t, err, "commit must persist the overlay document")
}

func TestInstallModRollsBackOnDuplicateArchive(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	_, err := core.InstallMod(ctx, model.Mod{ArchivePath: "b.zip", HumanVersion: "1.0"},
		vma.VirtualModInfo{DisplayName: "B"}, nil, nil)
	require.NoError(t, err)

	// Second install of the identical archive+version must fail inside
	// the transaction and leave no partial state behind.
	_, err = core.InstallMod(ctx, model.Mod{ArchivePath: "b.zip", HumanVersion: "1.0"},
		vma.VirtualModInfo{DisplayName: "B"}, nil, nil)
	require.Error(t, err)

	assert.Len(t, core.Ledger.ActiveMods(), 1, "failed second install must leave exactly the first mod behind")
}

func TestAddFileLinkFailsForMissingStagedSourceOnceActive(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	// The mod isn't enabled during install, so a missing staged file
	// goes unnoticed until EnableMod's winner is materialized; once
	// active, AddFileLink's own reconcile call must fail fast.
	key, err := core.InstallMod(ctx, model.Mod{ArchivePath: "f.zip", HumanVersion: "1.0"},
		vma.VirtualModInfo{DisplayName: "F"}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, core.Activator.EnableMod(ctx, key))

	_, err = core.Activator.AddFileLink(ctx, key, "missing.dds", false, 0)
	assert.Error(t, err, "materializing a link with no staged source must fail")
}

func TestUninstallModReversesInstallMod(t *testing.T) {
	core, fs := newTestCore(t)
	ctx := context.Background()

	key, err := core.InstallMod(ctx, model.Mod{ArchivePath: "c.zip", HumanVersion: "1.0"},
		vma.VirtualModInfo{DisplayName: "C"}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, core.UninstallMod(ctx, key))

	_, ok := core.Ledger.GetMod(key)
	assert.False(t, ok)
	_, ok = core.Activator.ModInfoOf(key)
	assert.False(t, ok)

	_, err = fs.ReadFile("/state/InstallLog.xml")
	assert.NoError(t, err)
}

func TestEnableDisableModRoundTrip(t *testing.T) {
	core, fs := newTestCore(t)
	ctx := context.Background()

	key, err := core.InstallMod(ctx, model.Mod{ArchivePath: "d.zip", HumanVersion: "1.0"},
		vma.VirtualModInfo{DisplayName: "D"}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile("/staging/"+string(key)+"/x.dds", []byte("D"), 0644))
	_, err = core.Activator.AddFileLink(ctx, key, "x.dds", false, 0)
	require.NoError(t, err)

	require.NoError(t, core.EnableMod(ctx, key))
	assert.Equal(t, vma.Active, core.Activator.StateOf(key))

	content, err := fs.ReadFile("/game/x.dds")
	require.NoError(t, err)
	assert.Equal(t, "D", string(content))

	require.NoError(t, core.DisableMod(ctx, key))
	assert.Equal(t, vma.Staged, core.Activator.StateOf(key))
}

func TestReprioritizeRematerializesWinner(t *testing.T) {
	core, fs := newTestCore(t)
	ctx := context.Background()

	keyA, err := core.InstallMod(ctx, model.Mod{ArchivePath: "e1.zip", HumanVersion: "1.0"},
		vma.VirtualModInfo{DisplayName: "E1"}, nil, nil)
	require.NoError(t, err)
	keyB, err := core.InstallMod(ctx, model.Mod{ArchivePath: "e2.zip", HumanVersion: "1.0"},
		vma.VirtualModInfo{DisplayName: "E2"}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile("/staging/"+string(keyA)+"/x.dds", []byte("A"), 0644))
	require.NoError(t, fs.WriteFile("/staging/"+string(keyB)+"/x.dds", []byte("B"), 0644))

	require.NoError(t, core.Activator.EnableMod(ctx, keyA))
	_, err = core.Activator.AddFileLink(ctx, keyA, "x.dds", false, 0)
	require.NoError(t, err)
	require.NoError(t, core.Activator.EnableMod(ctx, keyB))
	_, err = core.Activator.AddFileLink(ctx, keyB, "x.dds", false, 0)
	require.NoError(t, err)

	content, err := fs.ReadFile("/game/x.dds")
	require.NoError(t, err)
	assert.Equal(t, "B", string(content))

	linkA := core.Activator.FindLink("x.dds", keyA)
	require.NotNil(t, linkA)
	require.NoError(t, core.Reprioritize(ctx, linkA, 5))

	content, err = fs.ReadFile("/game/x.dds")
	require.NoError(t, err)
	assert.Equal(t, "A", string(content))
}

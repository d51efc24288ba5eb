package main

import (
	"os"
	"path/filepath"

	"github.com/modforge/modforge/pkg/config"
	"github.com/modforge/modforge/pkg/events"
	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/ledger"
	"github.com/modforge/modforge/pkg/linkprimitive"
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/mlog"
	"github.com/modforge/modforge/pkg/txn"
	"github.com/modforge/modforge/pkg/vma"
)

// app bundles the wired core plus the paths its persisters write to,
// the state a cobra RunE needs beyond the composite Core spec.md §4.4
// already exposes.
type app struct {
	cfg     *config.Config
	core    *txn.Core
	vmaPath string
}

// newApp loads configuration from cfgPath (or the embedded defaults if
// empty), constructs the Installation Log, Virtual Mod Activator, and
// Transaction Coordinator against the real OS filesystem, and loads any
// existing persisted state. A missing install log or overlay document
// is treated as a fresh installation rather than an error.
func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	fs := fsx.NewOS()
	descriptor := cfg.Descriptor()

	ledgerPath := filepath.Join(cfg.Paths.StateDir, "InstallLog.xml")
	vmaPath := filepath.Join(cfg.Paths.StateDir, "VirtualModConfig.xml")

	if err := fs.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		return nil, merr.Wrap(err, merr.ErrLedgerIO, "creating state directory")
	}

	lg := ledger.New(fs, cfg.Paths.GameRoot, ledgerPath, cfg.Paths.BackupDir)
	lp := linkprimitive.New(fs)
	bus := events.NewBus()
	act := vma.New(fs, lp, lg, descriptor, cfg.Paths.StagingRoot, cfg.Paths.GameRoot, bus)
	lg.SetActiveModSet(act)

	if _, err := os.Stat(ledgerPath); err == nil {
		if err := lg.Load(); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(vmaPath); err == nil {
		if err := act.Load(vmaPath); err != nil {
			return nil, err
		}
	}

	persisters := []txn.Persister{
		{Name: "installLog", Path: ledgerPath, Save: func(string) error { return lg.Save() }},
		{Name: "virtualModConfig", Path: vmaPath, Save: act.Save},
	}
	coord := txn.NewCoordinator(lg, cfg.Lock.Block, persisters...)

	log := mlog.Get("cmd")
	log.Info().
		Str("gameRoot", cfg.Paths.GameRoot).
		Str("gameMode", descriptor.ModeID).
		Msg("modforge core ready")

	return &app{
		cfg:     cfg,
		vmaPath: vmaPath,
		core: &txn.Core{
			Ledger:      lg,
			Activator:   act,
			Coordinator: coord,
		},
	}, nil
}

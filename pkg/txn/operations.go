package txn

import (
	"context"

	"github.com/modforge/modforge/pkg/ledger"
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/mlog"
	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/vma"
)

// Core bundles the Installation Log and Virtual Mod Activator behind
// the transaction boundary. Every externally-triggered operation
// (spec.md §4.4: install, uninstall, enable, disable, reprioritize,
// switch profile) is a method here, each opening or re-entering a
// transaction via its Coordinator and rolling back on any failure.
type Core struct {
	Ledger      *ledger.Ledger
	Activator   *vma.Activator
	Coordinator *Coordinator
}

// FileLink names one file the installing mod contributes, relative to
// its staged archive root.
type FileLink struct {
	BaseFilePath string
	Priority     int
}

// IniEdit names one INI coordinate the installing mod writes.
type IniEdit struct {
	File, Section, Key, Value string
}

// InstallMod activates mod in the ledger, stages it in the VMA, and
// registers every file link and INI edit it carries, all inside one
// transaction. Any failure rolls back the entire set (spec.md §4.4
// "all-or-nothing").
func (c *Core) InstallMod(ctx context.Context, mod model.Mod, info vma.VirtualModInfo, files []FileLink, iniEdits []IniEdit) (model.ModKey, error) {
	ctx, tx, err := c.Coordinator.Begin(ctx)
	if err != nil {
		return "", err
	}
	done := mlog.OperationTimer(mlog.Get("txn"), "installMod")
	defer done()

	key, err := c.Ledger.ActivateMod(mod)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}
	tx.Journal("activateMod", func() error { return c.Ledger.DeactivateMod(key) })

	info.ModKey = key
	c.Activator.StageMod(info)
	tx.Journal("stageMod", func() error { c.Activator.UnstageMod(key); return nil })

	for _, f := range files {
		virtualPath, err := c.Activator.AddFileLink(ctx, key, f.BaseFilePath, false, f.Priority)
		if err != nil {
			_ = tx.Rollback()
			return "", err
		}
		vp := virtualPath
		tx.Journal("addFileLink:"+vp, func() error { return c.Activator.RemoveFileLink(ctx, vp, key) })
	}

	for _, edit := range iniEdits {
		if err := c.Ledger.AddIniEdit(key, edit.File, edit.Section, edit.Key, edit.Value); err != nil {
			_ = tx.Rollback()
			return "", err
		}
		e := edit
		tx.Journal("addIniEdit:"+e.File, func() error {
			return c.Ledger.RemoveIniEdit(key, e.File, e.Section, e.Key)
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return key, nil
}

// UninstallMod removes every file link the mod owns in the VMA, then
// deactivates it in the ledger (dropping any remaining INI or
// game-specific edits), all inside one transaction.
func (c *Core) UninstallMod(ctx context.Context, key model.ModKey) error {
	ctx, tx, err := c.Coordinator.Begin(ctx)
	if err != nil {
		return err
	}
	done := mlog.OperationTimer(mlog.Get("txn"), "uninstallMod")
	defer done()

	mod, ok := c.Ledger.GetMod(key)
	if !ok {
		_ = tx.Rollback()
		return merr.New(merr.ErrUnknownMod, "unknown mod key").WithDetail("modKey", string(key))
	}
	info, _ := c.Activator.ModInfoOf(key)

	for _, path := range c.Ledger.FilesOf(key) {
		virtualPath := string(path)
		priority := 0
		for _, l := range c.Activator.Links(virtualPath) {
			if l.ModKey == key {
				priority = l.Priority
				break
			}
		}
		if err := c.Activator.RemoveFileLink(ctx, virtualPath, key); err != nil {
			_ = tx.Rollback()
			return err
		}
		vp, pr := virtualPath, priority
		// switching=false: RemoveFileLink above already dropped the
		// ledger's ownership entry via the oracle, so undo must run
		// AddFile again through the oracle, not skip it, or the ledger
		// entry never comes back and CurrentOwner is left pointing at
		// whatever mod was underneath (spec.md §4.4 undo symmetry).
		tx.Journal("removeFileLink:"+virtualPath, func() error {
			_, err := c.Activator.AddFileLink(ctx, key, vp, false, pr)
			return err
		})
	}

	if err := c.Ledger.DeactivateMod(key); err != nil {
		_ = tx.Rollback()
		return err
	}
	tx.Journal("deactivateMod", func() error {
		_, err := c.Ledger.ActivateMod(mod)
		return err
	})

	c.Activator.UnstageMod(key)
	tx.Journal("unstageMod", func() error { c.Activator.StageMod(info); return nil })

	return tx.Commit(ctx)
}

// EnableMod transitions mod to Active and materializes its links.
func (c *Core) EnableMod(ctx context.Context, key model.ModKey) error {
	ctx, tx, err := c.Coordinator.Begin(ctx)
	if err != nil {
		return err
	}
	if err := c.Activator.EnableMod(ctx, key); err != nil {
		_ = tx.Rollback()
		return err
	}
	tx.Journal("enableMod", func() error { return c.Activator.DisableMod(ctx, key) })
	return tx.Commit(ctx)
}

// DisableMod transitions mod to Staged and un-materializes its links.
func (c *Core) DisableMod(ctx context.Context, key model.ModKey) error {
	ctx, tx, err := c.Coordinator.Begin(ctx)
	if err != nil {
		return err
	}
	if err := c.Activator.DisableMod(ctx, key); err != nil {
		_ = tx.Rollback()
		return err
	}
	tx.Journal("disableMod", func() error { return c.Activator.EnableMod(ctx, key) })
	return tx.Commit(ctx)
}

// Reprioritize changes link's priority and recomputes its materialized
// winner, per spec.md §4.3 scenario S6.
func (c *Core) Reprioritize(ctx context.Context, link *vma.VirtualLink, newPriority int) error {
	ctx, tx, err := c.Coordinator.Begin(ctx)
	if err != nil {
		return err
	}
	oldPriority := link.Priority
	if err := c.Activator.UpdateLinkPriority(ctx, link, newPriority); err != nil {
		_ = tx.Rollback()
		return err
	}
	tx.Journal("updateLinkPriority", func() error {
		return c.Activator.UpdateLinkPriority(ctx, link, oldPriority)
	})
	return tx.Commit(ctx)
}

// SwitchProfile deactivates every currently-active mod not in keep and
// activates every mod in keep not already active, as one transaction —
// the composite "switch profile" operation spec.md §2 names alongside
// install/uninstall/enable/disable/reprioritize.
func (c *Core) SwitchProfile(ctx context.Context, keep []model.ModKey) error {
	ctx, tx, err := c.Coordinator.Begin(ctx)
	if err != nil {
		return err
	}

	wanted := make(map[model.ModKey]bool, len(keep))
	for _, k := range keep {
		wanted[k] = true
	}

	for _, mod := range c.Ledger.ActiveMods() {
		key := mod.Key
		active := c.Activator.StateOf(key) == vma.Active
		switch {
		case active && !wanted[key]:
			if err := c.Activator.DisableMod(ctx, key); err != nil {
				_ = tx.Rollback()
				return err
			}
			k := key
			tx.Journal("switchProfile:disable:"+string(k), func() error { return c.Activator.EnableMod(ctx, k) })
		case !active && wanted[key]:
			if err := c.Activator.EnableMod(ctx, key); err != nil {
				_ = tx.Rollback()
				return err
			}
			k := key
			tx.Journal("switchProfile:enable:"+string(k), func() error { return c.Activator.DisableMod(ctx, k) })
		}

		if err := ctx.Err(); err != nil {
			_ = tx.Rollback()
			return merr.Wrap(err, merr.ErrCancelled, "profile switch cancelled")
		}
	}

	return tx.Commit(ctx)
}

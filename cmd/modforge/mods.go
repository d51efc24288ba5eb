package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modforge/modforge/pkg/model"
)

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <mod-key>",
		Short:   "Reverse an install: drop every file link and ledger entry a mod owns",
		Args:    cobra.ExactArgs(1),
		GroupID: "mods",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := model.ModKey(args[0])
			if dryRun {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("dry-run: would uninstall %s", key)))
				return nil
			}
			if err := theApp.core.UninstallMod(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("uninstalled %s", key)))
			return nil
		},
	}
}

func newEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "enable <mod-key>",
		Short:   "Move a staged mod to active and materialize its links",
		Args:    cobra.ExactArgs(1),
		GroupID: "mods",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := model.ModKey(args[0])
			if dryRun {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("dry-run: would enable %s", key)))
				return nil
			}
			if err := theApp.core.EnableMod(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("enabled %s", key)))
			return nil
		},
	}
}

func newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "disable <mod-key>",
		Short:   "Move an active mod back to staged and un-materialize its links",
		Args:    cobra.ExactArgs(1),
		GroupID: "mods",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := model.ModKey(args[0])
			if dryRun {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("dry-run: would disable %s", key)))
				return nil
			}
			if !force && key == model.OriginalValuesKey {
				return fmt.Errorf("refusing to disable the reserved original-values entry without --force")
			}
			if err := theApp.core.DisableMod(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("disabled %s", key)))
			return nil
		},
	}
}

func newSwitchProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "switch-profile <mod-key>...",
		Short:   "Activate exactly the given mods, disabling every other active mod",
		GroupID: "mods",
		RunE: func(cmd *cobra.Command, args []string) error {
			keep := make([]model.ModKey, len(args))
			for i, a := range args {
				keep[i] = model.ModKey(a)
			}
			if dryRun {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("dry-run: would keep %d mod(s) active", len(keep))))
				return nil
			}
			if err := theApp.core.SwitchProfile(cmd.Context(), keep); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("switched to %d active mod(s)", len(keep))))
			return nil
		},
	}
}

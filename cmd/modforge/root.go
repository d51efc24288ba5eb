package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/mlog"
)

var (
	verbosity  int
	dryRun     bool
	force      bool
	configPath string

	theApp *app
)

// NewRootCmd creates the modforge root command, wiring persistent flags
// and bootstrapping the app on PersistentPreRunE so every subcommand
// runs against a loaded Core.
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	rootCmd := &cobra.Command{
		Use:   "modforge",
		Short: "A transactional mod manager for moddable games",
		Long: `modforge tracks which mod owns which installed file, overlays staged
mods onto a live game directory through symbolic or hard links, and wraps
every install, uninstall, enable, disable, reprioritize, and profile
switch in an all-or-nothing transaction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mlog.Setup(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("command started")

			if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
				renderer.SetWidth(cols)
			}

			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			theApp = a
			return nil
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "preview changes without executing them")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "override safety refusals, e.g. disabling the reserved original-values entry")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a modforge.toml config file")

	rootCmd.AddGroup(&cobra.Group{ID: "mods", Title: "MOD COMMANDS:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})

	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newUninstallCmd())
	rootCmd.AddCommand(newEnableCmd())
	rootCmd.AddCommand(newDisableCmd())
	rootCmd.AddCommand(newReprioritizeCmd())
	rootCmd.AddCommand(newSwitchProfileCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func exitCodeFor(err error) int {
	var merrErr *merr.Error
	if !errors.As(err, &merrErr) {
		return 1
	}
	switch merrErr.Code {
	case merr.ErrInvalidInput, merr.ErrNotFound:
		return 2
	case merr.ErrTransactionAborted, merr.ErrCancelled:
		return 3
	default:
		return 1
	}
}

func printError(err error) {
	fmt.Println(errorStyle.Render(fmt.Sprintf("error: %v", err)))
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
)

func newReprioritizeCmd() *cobra.Command {
	var priority int

	cmd := &cobra.Command{
		Use:     "reprioritize <mod-key> <virtual-path>",
		Short:   "Change a file link's priority and recompute its materialized winner",
		Args:    cobra.ExactArgs(2),
		GroupID: "mods",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := model.ModKey(args[0])
			virtualPath := args[1]

			link := theApp.core.Activator.FindLink(virtualPath, key)
			if link == nil {
				return merr.New(merr.ErrNotFound, "no such link for that mod").
					WithDetail("modKey", string(key)).
					WithDetail("virtualPath", virtualPath)
			}

			if dryRun {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("dry-run: would set %s priority %d -> %d", virtualPath, link.Priority, priority)))
				return nil
			}

			if err := theApp.core.Reprioritize(cmd.Context(), link, priority); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("%s priority now %d", virtualPath, priority)))
			return nil
		},
	}

	cmd.Flags().IntVar(&priority, "priority", 0, "new priority (higher wins ties by most-recent-insertion)")
	return cmd
}

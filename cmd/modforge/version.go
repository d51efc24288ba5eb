package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at release build time, matching the
// teacher's own version.Version wiring.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		GroupID: "misc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("modforge version %s\n", version)
		},
	}
}

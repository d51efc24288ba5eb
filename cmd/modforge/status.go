package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/style"
	"github.com/modforge/modforge/pkg/vma"
)

func newStatusCmd() *cobra.Command {
	var showFiles bool

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "List every tracked mod, its state, and the files it owns",
		GroupID: "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			mods := theApp.core.Ledger.ActiveMods()
			sort.Slice(mods, func(i, j int) bool { return mods[i].Key < mods[j].Key })

			statuses := make([]style.ModStatus, 0, len(mods))
			for _, mod := range mods {
				if mod.IsOriginalValues() {
					continue
				}

				files := theApp.core.Ledger.FilesOf(mod.Key)
				var links []style.LinkStatus
				if showFiles {
					for _, f := range files {
						links = append(links, linkStatusFor(mod.Key, f))
					}
				} else if theApp.core.Activator.StateOf(mod.Key) != vma.Active {
					links = []style.LinkStatus{{Status: style.StatusStaged}}
				} else {
					links = []style.LinkStatus{{Status: style.StatusActive}}
				}

				statuses = append(statuses, style.ModStatus{
					Key:         string(mod.Key),
					DisplayName: mod.DisplayName,
					Version:     mod.HumanVersion,
					Status:      style.AggregateModStatus(links),
					Links:       links,
				})
			}

			fmt.Println(renderer.RenderModList(statuses))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showFiles, "files", false, "also list each mod's owned files and materialized target")
	return cmd
}

// linkStatusFor reports the given mod's ownership status for a file it
// holds an entry for: active if it currently wins the materialization
// race, conflict if another mod's link shadows it, staged otherwise.
func linkStatusFor(mod model.ModKey, path model.FilePath) style.LinkStatus {
	links := theApp.core.Activator.Links(string(path))

	var ownLink, winner *vma.VirtualLink
	for i := range links {
		l := &links[i]
		if l.ModKey == mod {
			ownLink = l
		}
		if l.IsActive {
			winner = l
		}
	}

	ls := style.LinkStatus{VirtualPath: string(path)}
	switch {
	case ownLink == nil:
		ls.Status = style.StatusError
	case winner == ownLink:
		ls.Status = style.StatusActive
		ls.RealPath = ownLink.RealPath
	case winner != nil:
		ls.Status = style.StatusConflict
	default:
		ls.Status = style.StatusStaged
	}
	return ls
}

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
	"github.com/modforge/modforge/pkg/txn"
	"github.com/modforge/modforge/pkg/vma"
)

func newInstallCmd() *cobra.Command {
	var (
		archivePath string
		displayName string
		modVersion  string
		downloadID  string
		files       []string
		iniEdits    []string
	)

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Activate a mod and register the files it contributes",
		GroupID: "mods",
		RunE: func(cmd *cobra.Command, args []string) error {
			if archivePath == "" {
				return merr.New(merr.ErrInvalidInput, "--archive is required")
			}
			if displayName == "" {
				displayName = archivePath
			}

			fileLinks, err := parseFileLinks(files)
			if err != nil {
				return err
			}
			edits, err := parseIniEdits(iniEdits)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Println(mutedStyle.Render(fmt.Sprintf(
					"dry-run: would install %q (%d file link(s), %d ini edit(s))",
					displayName, len(fileLinks), len(edits))))
				return nil
			}

			if len(fileLinks) > 1 {
				for i, link := range fileLinks {
					fmt.Println(renderer.RenderProgress(i+1, len(fileLinks), "linking "+link.BaseFilePath))
				}
			}

			mod := model.Mod{
				ArchivePath:  archivePath,
				DisplayName:  displayName,
				HumanVersion: modVersion,
				DownloadID:   downloadID,
				InstallDate:  time.Now(),
			}
			info := vma.VirtualModInfo{
				DownloadID:      downloadID,
				DisplayName:     displayName,
				ArchiveFileName: archivePath,
				ArchivePath:     archivePath,
				FileVersion:     modVersion,
			}

			key, err := theApp.core.InstallMod(cmd.Context(), mod, info, fileLinks, edits)
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("installed %s as %s", displayName, key)))
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "path to the staged mod archive")
	cmd.Flags().StringVar(&displayName, "name", "", "display name (defaults to the archive path)")
	cmd.Flags().StringVar(&modVersion, "mod-version", "", "human-readable mod version")
	cmd.Flags().StringVar(&downloadID, "download-id", "", "originating download identifier")
	cmd.Flags().StringArrayVar(&files, "file", nil, "file this mod contributes, as path[:priority] (repeatable)")
	cmd.Flags().StringArrayVar(&iniEdits, "ini", nil, "INI edit, as file:section:key=value (repeatable)")
	return cmd
}

// parseFileLinks turns "path[:priority]" flag values into FileLinks.
func parseFileLinks(raw []string) ([]txn.FileLink, error) {
	links := make([]txn.FileLink, 0, len(raw))
	for _, r := range raw {
		path, priorityStr, hasPriority := strings.Cut(r, ":")
		priority := 0
		if hasPriority {
			p, err := strconv.Atoi(priorityStr)
			if err != nil {
				return nil, merr.Wrap(err, merr.ErrInvalidInput, "invalid --file priority").WithDetail("value", r)
			}
			priority = p
		}
		links = append(links, txn.FileLink{BaseFilePath: path, Priority: priority})
	}
	return links, nil
}

// parseIniEdits turns "file:section:key=value" flag values into IniEdits.
func parseIniEdits(raw []string) ([]txn.IniEdit, error) {
	edits := make([]txn.IniEdit, 0, len(raw))
	for _, r := range raw {
		coord, value, ok := strings.Cut(r, "=")
		if !ok {
			return nil, merr.New(merr.ErrInvalidInput, "--ini must contain '='").WithDetail("value", r)
		}
		parts := strings.SplitN(coord, ":", 3)
		if len(parts) != 3 {
			return nil, merr.New(merr.ErrInvalidInput, "--ini must be file:section:key=value").WithDetail("value", r)
		}
		edits = append(edits, txn.IniEdit{File: parts[0], Section: parts[1], Key: parts[2], Value: value})
	}
	return edits, nil
}

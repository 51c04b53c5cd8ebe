package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/tora/internal/exporter"
	"github.com/nikbrunner/tora/internal/importer"
)

func importCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.html>",
		Short: "import a Netscape bookmark file, skipping urls already saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			folders, links, err := importer.ParseHTMLBookmarks(file)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				stats, err := importer.Merge(ctx, a.mutate, a.userID, a.view().Snapshot(), folders, links, a.log)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				success(w, "imported %d links, %d folders", stats.LinksAdded, stats.FoldersAdded)
				if stats.FoldersReused > 0 {
					printField(w, "Folders reused", fmt.Sprint(stats.FoldersReused))
				}
				if stats.Duplicates > 0 {
					printField(w, "Duplicates skipped", fmt.Sprint(stats.Duplicates))
				}
				if stats.Invalid > 0 {
					warn(w, "%d invalid links skipped", stats.Invalid)
				}
				if stats.InvalidFolders > 0 {
					warn(w, "%d invalid folders skipped, %d of their links saved unfiled", stats.InvalidFolders, stats.Unfiled)
				}
				return nil
			})
		},
	}
}

func exportCmd(opts *rootOptions) *cobra.Command {
	var pinCode string

	command := &cobra.Command{
		Use:   "export [path]",
		Short: "export links as Netscape bookmark HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var outputPath string
			if len(args) == 1 {
				outputPath = args[0]
			} else {
				var err error
				if outputPath, err = exporter.DefaultExportPath(); err != nil {
					return err
				}
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				unlocked, err := a.unlockVault(ctx, pinCode)
				if err != nil {
					return err
				}

				html, res := exporter.ExportHTML(a.view(), exporter.Options{IncludePrivate: unlocked})
				if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "exported %d links, %d folders to %s", res.Links, res.Folders, outputPath)
				return nil
			})
		},
	}

	command.Flags().StringVar(&pinCode, "pin", "", "vault PIN, includes private folders and links")
	return command
}

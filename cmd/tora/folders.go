package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/projection"
)

func foldersCmd(opts *rootOptions) *cobra.Command {
	command := &cobra.Command{
		Use:     "folders",
		Aliases: []string{"folder", "f"},
		Short:   "list and edit folders",
	}
	command.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	command.AddCommand(
		listFoldersCmd(opts),
		addFolderCmd(opts),
		renameFolderCmd(opts),
		privateFolderCmd(opts),
		deleteFolderCmd(opts),
		reorderFoldersCmd(opts),
		moveFolderCmd(opts),
	)
	return command
}

func listFoldersCmd(opts *rootOptions) *cobra.Command {
	var search, pinCode string

	command := &cobra.Command{
		Use:   "list",
		Short: "list folders in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				view := a.view()
				folders := view.PublicFolders
				unlocked, err := a.unlockVault(ctx, pinCode)
				if err != nil {
					return err
				}
				if unlocked {
					private, err := a.vault.PrivateFolders(a.userID, view)
					if err != nil {
						return err
					}
					folders = append(append([]model.Folder{}, folders...), private...)
				}
				printFolders(cmd.OutOrStdout(), projection.FilteredFolders(folders, search), view.LinkCounts)
				return nil
			})
		},
	}

	command.Flags().StringVarP(&search, "search", "s", "", "only folders whose name contains this")
	command.Flags().StringVar(&pinCode, "pin", "", "vault PIN, adds private folders")
	return command
}

func addFolderCmd(opts *rootOptions) *cobra.Command {
	var params model.NewFolderParams

	command := &cobra.Command{
		Use:   "add <name>",
		Short: "create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				params.Name = args[0]
				params.UserID = a.userID
				folder, err := a.mutate.AddFolder(ctx, params)
				if err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "created folder %s (%s)", folder.Name, folder.ID)
				return nil
			})
		},
	}

	command.Flags().BoolVarP(&params.IsPrivate, "private", "p", false, "keep the folder in the vault")
	command.Flags().StringVarP(&params.Description, "description", "d", "", "description")
	command.Flags().StringVarP(&params.Color, "color", "c", "", "display color")
	return command
}

func renameFolderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <folder-id> <name>",
		Short: "rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := requireFolder(a, args[0]); err != nil {
					return err
				}
				name := args[1]
				if err := a.mutate.UpdateFolder(ctx, args[0], model.FolderUpdate{Name: &name}); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "renamed %s to %s", args[0], name)
				return nil
			})
		},
	}
}

func privateFolderCmd(opts *rootOptions) *cobra.Command {
	var off bool

	command := &cobra.Command{
		Use:   "private <folder-id>",
		Short: "move a folder into the vault, or out with --off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := requireFolder(a, args[0]); err != nil {
					return err
				}
				private := !off
				if err := a.mutate.UpdateFolder(ctx, args[0], model.FolderUpdate{IsPrivate: &private}); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "folder %s private: %s", args[0], yesNo(private))
				return nil
			})
		},
	}

	command.Flags().BoolVar(&off, "off", false, "make the folder public again")
	return command
}

func deleteFolderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <folder-id>",
		Short: "delete a folder and every link in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := requireFolder(a, args[0]); err != nil {
					return err
				}
				links := a.view().Count(args[0])
				if err := a.mutate.DeleteFolder(ctx, args[0]); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "deleted folder %s and %d links", args[0], links)
				return nil
			})
		},
	}
}

func reorderFoldersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <folder-id>...",
		Short: "set the display order of folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				version := a.view().Version
				if err := a.mutate.ReorderFolders(ctx, args); err != nil {
					return err
				}
				a.awaitVersion(ctx, version)
				view := a.view()
				printFolders(cmd.OutOrStdout(), view.PublicFolders, view.LinkCounts)
				return nil
			})
		},
	}
}

func moveFolderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <folder-id> <target-folder-id>",
		Short: "move a folder to the position of another one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				view := a.view()
				ids := projection.FolderIDs(view.PublicFolders)
				if slices.Equal(projection.MoveFolder(ids, args[0], args[1]), ids) {
					warn(cmd.OutOrStdout(), "order unchanged")
					return nil
				}
				if err := a.mutate.MoveFolder(ctx, ids, args[0], args[1]); err != nil {
					return err
				}
				a.awaitVersion(ctx, view.Version)
				view = a.view()
				printFolders(cmd.OutOrStdout(), view.PublicFolders, view.LinkCounts)
				return nil
			})
		},
	}
}

// requireFolder fails for ids the synced data doesn't know.
func requireFolder(a *app, id string) error {
	if a.view().Snapshot().GetFolderByID(id) == nil {
		return fmt.Errorf("folder %s not found", id)
	}
	return nil
}

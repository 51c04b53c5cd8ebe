package main

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/projection"
)

func linksCmd(opts *rootOptions) *cobra.Command {
	command := &cobra.Command{
		Use:     "links",
		Aliases: []string{"link", "l"},
		Short:   "list and edit links",
	}
	command.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	command.AddCommand(
		listLinksCmd(opts),
		addLinkCmd(opts),
		deleteLinkCmd(opts),
		favoriteLinkCmd(opts),
		copyLinkCmd(opts),
	)
	return command
}

func listLinksCmd(opts *rootOptions) *cobra.Command {
	var folderID, tab, search, pinCode string
	var unfiled bool

	command := &cobra.Command{
		Use:   "list",
		Short: "list links, optionally narrowed by folder, tab and search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := projection.Tab(tab)
			if !t.Valid() {
				return fmt.Errorf("unknown tab %q, want one of %v", tab, projection.Tabs)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				view := a.view()
				links := view.PublicLinks
				unlocked, err := a.unlockVault(ctx, pinCode)
				if err != nil {
					return err
				}
				if unlocked {
					if links, err = a.vault.PrivateLinks(a.userID, view); err != nil {
						return err
					}
				}

				now := time.Now()
				var out []model.Link
				switch {
				case folderID != "":
					out = projection.FilteredLinks(links, &folderID, t, search, now)
				case unfiled:
					out = projection.FilteredLinks(links, nil, t, search, now)
				default:
					// Every folder in display order, then everything not shown
					// under one: unfiled links, links in locked folders and
					// links whose folder is gone.
					folders := view.PublicFolders
					if unlocked {
						folders = append(append([]model.Folder{}, folders...), view.PrivateFolders...)
					}
					for _, f := range folders {
						id := f.ID
						out = append(out, projection.FilteredLinks(links, &id, t, search, now)...)
					}
					out = append(out, projection.FilteredLinksOutside(links, projection.FolderIDs(folders), t, search, now)...)
				}

				printLinks(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	command.Flags().StringVarP(&folderID, "folder", "f", "", "only links in this folder")
	command.Flags().BoolVar(&unfiled, "unfiled", false, "only links outside any folder")
	command.Flags().StringVarP(&tab, "tab", "t", string(projection.TabAll), "all, recent or favorites")
	command.Flags().StringVarP(&search, "search", "s", "", "match title, url or description")
	command.Flags().StringVar(&pinCode, "pin", "", "vault PIN, lists private links instead")
	command.MarkFlagsMutuallyExclusive("folder", "unfiled")
	return command
}

func addLinkCmd(opts *rootOptions) *cobra.Command {
	var params model.NewLinkParams
	var platform, folderID string
	var quick bool

	command := &cobra.Command{
		Use:   "add <url>",
		Short: "save a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				params.URL = args[0]
				params.UserID = a.userID
				params.Platform = model.Platform(platform)
				if params.Title == "" {
					params.Title = args[0]
				}
				switch {
				case quick:
					folder, err := quickAddFolder(ctx, a)
					if err != nil {
						return err
					}
					params.FolderID = &folder.ID
				case folderID != "":
					if err := requireFolder(a, folderID); err != nil {
						return err
					}
					params.FolderID = &folderID
				}

				link, err := a.mutate.AddLink(ctx, params)
				if err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "saved %s (%s)", link.Title, link.ID)
				return nil
			})
		},
	}

	command.Flags().StringVarP(&params.Title, "title", "t", "", "title (default: the url)")
	command.Flags().StringVarP(&platform, "platform", "P", string(model.PlatformWeb), "web, video, article, code, shop or phone")
	command.Flags().StringVarP(&folderID, "folder", "f", "", "folder id")
	command.Flags().StringVarP(&params.Description, "description", "d", "", "description")
	command.Flags().BoolVarP(&params.IsPrivate, "private", "p", false, "keep the link in the vault")
	command.Flags().BoolVarP(&quick, "quick", "q", false, "save into the quick-add folder from the config")
	command.MarkFlagsMutuallyExclusive("folder", "quick")
	return command
}

// quickAddFolder returns the configured quick-add folder, creating it on first use.
func quickAddFolder(ctx context.Context, a *app) (model.Folder, error) {
	name := a.cfg.QuickAddFolder
	if f := a.view().Snapshot().GetFolderByName(name); f != nil {
		return *f, nil
	}
	folder, err := a.mutate.AddFolder(ctx, model.NewFolderParams{Name: name, UserID: a.userID})
	if err != nil {
		return model.Folder{}, fmt.Errorf("create quick-add folder %q: %w", name, err)
	}
	return folder, nil
}

func deleteLinkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <link-id>",
		Short: "delete a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := requireLink(a, args[0]); err != nil {
					return err
				}
				if err := a.mutate.DeleteLink(ctx, args[0]); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "deleted link %s", args[0])
				return nil
			})
		},
	}
}

func favoriteLinkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fav <link-id>",
		Short: "toggle the favorite mark of a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				link, err := requireLink(a, args[0])
				if err != nil {
					return err
				}
				if err := a.mutate.ToggleFavorite(ctx, link.ID, link.IsFavorite); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "%s favorite: %s", link.Title, yesNo(!link.IsFavorite))
				return nil
			})
		},
	}
}

func copyLinkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <link-id>",
		Short: "copy a link's url to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				link, err := requireLink(a, args[0])
				if err != nil {
					return err
				}
				write := clipboard.WriteAll
				if opts.clipboard != nil {
					write = opts.clipboard
				}
				if err := write(link.URL); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				success(cmd.OutOrStdout(), "copied %s", link.URL)
				return nil
			})
		},
	}
}

func requireLink(a *app, id string) (model.Link, error) {
	link := a.view().Snapshot().GetLinkByID(id)
	if link == nil {
		return model.Link{}, fmt.Errorf("link %s not found", id)
	}
	return *link, nil
}

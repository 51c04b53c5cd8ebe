package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/tora/internal/docstore"
)

type rootOptions struct {
	user       string
	db         string
	configPath string
	memory     bool

	// set by tests
	store     docstore.Store
	logOutput io.Writer
	clipboard func(string) error
}

// newRootCmd builds the command tree. opts may carry a prebuilt store.
func newRootCmd(opts *rootOptions) *cobra.Command {
	if opts == nil {
		opts = &rootOptions{}
	}

	root := &cobra.Command{
		Use:   "tora",
		Short: "organize links in folders, synced across devices",
		Example: `tora folders add Reading
tora links add https://go.dev --title "Go" --folder <folder-id>
tora links list --tab recent
tora search go
tora vault unlock 1234
tora import bookmarks.html
tora watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "user id to sign in as (default from config)")
	root.PersistentFlags().StringVar(&opts.db, "db", "", "SQLite database path")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/tora/config.json)")
	root.PersistentFlags().BoolVar(&opts.memory, "memory", false, "use an in-memory store (nothing is saved)")

	root.AddCommand(
		foldersCmd(opts),
		linksCmd(opts),
		searchCmd(opts),
		vaultCmd(opts),
		importCmd(opts),
		exportCmd(opts),
		checkCmd(opts),
		watchCmd(opts),
	)

	root.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

// withApp opens a synced session for the duration of fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

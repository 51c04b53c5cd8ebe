package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func watchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "print a summary every time the synced data changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				w := cmd.OutOrStdout()
				printSummary := func() {
					st := a.engine.State()
					view := a.view()
					line := fmt.Sprintf("%s v%d %s: %d folders, %d links (%d private)",
						time.Now().Format(time.TimeOnly), view.Version, st.Phase,
						len(view.PublicFolders), len(view.PublicLinks), len(view.PrivateLinks))
					if st.LastErr != nil {
						warn(w, "%s, last error: %v", line, st.LastErr)
						return
					}
					fmt.Fprintln(w, line)
				}

				printSummary()
				for range a.engine.Changes(ctx) {
					printSummary()
				}
				return nil
			})
		},
	}
}

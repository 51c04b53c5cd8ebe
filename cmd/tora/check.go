package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/tora/internal/culler"
)

func checkCmd(opts *rootOptions) *cobra.Command {
	var concurrency int
	var timeout time.Duration
	var deleteDead bool
	var pinCode string

	command := &cobra.Command{
		Use:   "check",
		Short: "find links whose pages are gone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				unlocked, err := a.unlockVault(ctx, pinCode)
				if err != nil {
					return err
				}
				view := a.view()
				links := view.PublicLinks
				if unlocked {
					links = view.Links
				}

				checker := culler.New(culler.Options{
					Concurrency:    concurrency,
					Timeout:        timeout,
					ExcludeDomains: a.cfg.CullExcludeDomains,
					Log:            a.log,
				})

				errOut := cmd.ErrOrStderr()
				results := checker.Check(ctx, links, func(completed, total int) {
					fmt.Fprintf(errOut, "\rchecked %d/%d", completed, total)
				})
				fmt.Fprintln(errOut)

				w := cmd.OutOrStdout()
				groups := culler.GroupByStatus(results)
				table := newTable(w, "Status", "ID", "Title", "URL", "Detail")
				for _, status := range []culler.Status{culler.Dead, culler.Unreachable} {
					for _, r := range groups[status] {
						detail := r.Error
						if detail == "" && r.StatusCode != 0 {
							detail = fmt.Sprint(r.StatusCode)
						}
						table.Append([]string{status.String(), r.Link.ID, r.Link.Title, r.Link.URL, detail})
					}
				}
				table.Render()

				printField(w, "Healthy", fmt.Sprint(len(groups[culler.Healthy])))
				printField(w, "Dead", fmt.Sprint(len(groups[culler.Dead])))
				printField(w, "Unreachable", fmt.Sprint(len(groups[culler.Unreachable])))
				printField(w, "Skipped", fmt.Sprint(len(groups[culler.Skipped])))

				if !deleteDead {
					return nil
				}
				for _, r := range groups[culler.Dead] {
					if err := a.mutate.DeleteLink(ctx, r.Link.ID); err != nil {
						return fmt.Errorf("delete %s: %w", r.Link.ID, err)
					}
				}
				warn(w, "deleted %d dead links", len(groups[culler.Dead]))
				return nil
			})
		},
	}

	command.Flags().IntVarP(&concurrency, "concurrency", "n", culler.DefaultConcurrency, "parallel requests")
	command.Flags().DurationVar(&timeout, "timeout", culler.DefaultTimeout, "per-request timeout")
	command.Flags().BoolVar(&deleteDead, "delete-dead", false, "delete links reported dead")
	command.Flags().StringVar(&pinCode, "pin", "", "vault PIN, includes private links")
	return command
}

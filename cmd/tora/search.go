package main

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/picker"
	"github.com/nikbrunner/tora/internal/projection"
)

func searchCmd(opts *rootOptions) *cobra.Command {
	var pinCode string
	var list bool

	command := &cobra.Command{
		Use:   "search <query>...",
		Short: "fuzzy search link titles, then pick one to open",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				unlocked, err := a.unlockVault(ctx, pinCode)
				if err != nil {
					return err
				}
				searchable := func() []model.Link {
					view := a.view()
					if unlocked {
						return view.Links
					}
					return view.PublicLinks
				}

				results := projection.FuzzySearch(searchable(), query)
				if list || len(results) == 0 {
					links := make([]model.Link, len(results))
					for i, r := range results {
						links[i] = r.Link
					}
					if len(links) == 0 {
						warn(cmd.OutOrStdout(), "no links match %q", query)
						return nil
					}
					printLinks(cmd.OutOrStdout(), links)
					return nil
				}

				p := picker.New(results, query)
				if opts.clipboard != nil {
					p = p.WithClipboard(opts.clipboard)
				}
				program := tea.NewProgram(p, tea.WithContext(ctx), tea.WithOutput(cmd.ErrOrStderr()))

				// Keep the results current while the picker is open.
				watchCtx, stopWatch := context.WithCancel(ctx)
				defer stopWatch()
				changes := a.engine.Changes(watchCtx)
				go func() {
					for range changes {
						program.Send(picker.ResultsMsg(projection.FuzzySearch(searchable(), query)))
					}
				}()

				final, err := program.Run()
				if err != nil {
					return err
				}

				link, action, ok := final.(picker.Picker).Choice()
				if !ok {
					return nil
				}
				switch action {
				case picker.ActionOpen:
					return openURL(openTarget(link))
				case picker.ActionFavorite:
					if err := a.mutate.ToggleFavorite(ctx, link.ID, link.IsFavorite); err != nil {
						return err
					}
					success(cmd.OutOrStdout(), "%s favorite: %s", link.Title, yesNo(!link.IsFavorite))
				}
				return nil
			})
		},
	}

	command.Flags().StringVar(&pinCode, "pin", "", "vault PIN, includes private links")
	command.Flags().BoolVar(&list, "list", false, "print the matches instead of opening the picker")
	return command
}

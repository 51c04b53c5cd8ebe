package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/tora/internal/pin"
)

func vaultCmd(opts *rootOptions) *cobra.Command {
	command := &cobra.Command{
		Use:   "vault",
		Short: "private links behind a 4-digit PIN",
	}
	command.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	command.AddCommand(
		unlockVaultCmd(opts),
		setPinCmd(opts),
		removePinCmd(opts),
	)
	return command
}

func unlockVaultCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <pin>",
		Short: "show private folders and links; the first unlock sets the PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				created, err := a.vault.Unlock(ctx, a.userID, args[0])
				if err != nil {
					return err
				}
				if created {
					success(cmd.OutOrStdout(), "vault PIN set")
				}

				view := a.view()
				folders, err := a.vault.PrivateFolders(a.userID, view)
				if err != nil {
					return err
				}
				links, err := a.vault.PrivateLinks(a.userID, view)
				if err != nil {
					return err
				}
				printFolders(cmd.OutOrStdout(), folders, view.LinkCounts)
				printLinks(cmd.OutOrStdout(), links)
				return nil
			})
		},
	}
}

func setPinCmd(opts *rootOptions) *cobra.Command {
	var current string

	command := &cobra.Command{
		Use:   "set-pin <new-pin>",
		Short: "set or change the vault PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				gate := pin.NewStoreGate(a.store)
				has, err := gate.HasPin(ctx, a.userID)
				if err != nil {
					return err
				}
				if has {
					ok, err := gate.VerifyPin(ctx, a.userID, current)
					if err != nil {
						return err
					}
					if !ok {
						return errors.New("current PIN does not match (use --current)")
					}
				}
				if err := gate.SetPin(ctx, a.userID, args[0]); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "vault PIN updated")
				return nil
			})
		},
	}

	command.Flags().StringVar(&current, "current", "", "the PIN in use")
	return command
}

func removePinCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-pin",
		Short: "forget the vault PIN; the next unlock sets a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.vault.Reset(ctx, a.userID); err != nil {
					return err
				}
				warn(cmd.OutOrStdout(), "vault PIN removed")
				return nil
			})
		},
	}
}

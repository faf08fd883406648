package main

import (
	"fmt"

	"github.com/papertoplan/ptp/internal/login"
	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage backend users",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersAddCmd())
	cmd.AddCommand(newUsersRmCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List usernames known to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(a *app) error {
				names, err := login.SyncUsers(cmd.Context(), a.client, a.users)
				if err != nil {
					return friendly(err)
				}
				out := cmd.OutOrStdout()
				if len(names) == 0 {
					fmt.Fprintln(out, "No users.")
					return nil
				}
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newUsersAddCmd() *cobra.Command {
	var (
		configPath string
		pin        string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user with a 4-digit PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !login.ValidPin(pin) {
				return fmt.Errorf("%s", login.MsgPinFormat)
			}
			return withApp(cmd, configPath, func(a *app) error {
				if err := a.client.CreateUser(cmd.Context(), args[0], pin); err != nil {
					return friendly(err)
				}
				if _, err := login.SyncUsers(cmd.Context(), a.client, a.users); err != nil {
					a.log.Sugar().Warnw("refresh user cache", "error", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s created.\n", args[0])
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN for the new user")
	cmd.MarkFlagRequired("pin")
	return cmd
}

func newUsersRmCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "rm <username>",
		Aliases: []string{"remove"},
		Short:   "Delete a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(a *app) error {
				if err := a.client.DeleteUser(cmd.Context(), args[0]); err != nil {
					return friendly(err)
				}
				if _, err := login.SyncUsers(cmd.Context(), a.client, a.users); err != nil {
					a.log.Sugar().Warnw("refresh user cache", "error", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s removed.\n", args[0])
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

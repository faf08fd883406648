package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/papertoplan/ptp/internal/login"
	"github.com/papertoplan/ptp/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func newPairCmd() *cobra.Command {
	var (
		configPath string
		skipCheck  bool
	)

	cmd := &cobra.Command{
		Use:   "pair <backend-url>",
		Short: "Pair this device with a backend",
		Long:  "Stores the backend URL (as encoded in the pairing QR code) and checks that the service answers. Existing credentials are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPair(cmd, configPath, args[0], skipCheck)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&skipCheck, "no-check", false, "store the URL without contacting the backend")
	return cmd
}

// normalizeBaseURL validates a scanned backend URL and strips trailing slashes.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid backend URL %q: want http(s)://host[:port]", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func runPair(cmd *cobra.Command, configPath, rawURL string, skipCheck bool) error {
	baseURL, err := normalizeBaseURL(rawURL)
	if err != nil {
		return err
	}

	return withApp(cmd, configPath, func(a *app) error {
		out := cmd.OutOrStdout()
		if err := a.store.SetBaseURL(baseURL); err != nil {
			return err
		}
		a.log.Info("paired", zap.String("base_url", baseURL))
		fmt.Fprintf(out, "Paired with %s\n", baseURL)

		if skipCheck {
			return nil
		}
		status, err := a.client.Status(cmd.Context())
		if err != nil {
			fmt.Fprintf(out, "Warning: backend not reachable: %s\n", friendly(err))
			return nil
		}
		fmt.Fprintf(out, "Backend %s is %s\n", orDash(status.Service), orDash(status.Status))
		return nil
	})
}

func newLoginCmd() *cobra.Command {
	var (
		configPath string
		username   string
		pin        string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a username and 4-digit PIN",
		Long:  "Fetches the user list from the backend, then verifies the PIN. Without --pin the PIN is read from the terminal without echo.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, configPath, username, pin)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&username, "user", "u", "", "username to log in as")
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN (prompted when omitted)")
	return cmd
}

func runLogin(cmd *cobra.Command, configPath, username, pin string) error {
	return withApp(cmd, configPath, func(a *app) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		names, err := login.SyncUsers(ctx, a.client, a.users)
		if err != nil {
			// The backend still decides; a stale cache only loses the pre-check.
			a.log.Warn("user list unavailable", zap.Error(err))
			fmt.Fprintf(out, "Warning: could not fetch users: %s\n", friendly(err))
		}

		in := bufio.NewReader(cmd.InOrStdin())
		if username == "" {
			if len(names) > 0 {
				fmt.Fprintf(out, "Users: %s\n", strings.Join(names, ", "))
			}
			if username, err = promptLine(cmd, in, "Username: "); err != nil {
				return err
			}
		}
		if pin == "" {
			if pin, err = promptSecret(cmd, in, "PIN: "); err != nil {
				return err
			}
		}

		form := login.NewForm(a.client, a.store, a.users).WithLogger(a.log.Named("login"))
		form.Username = username
		form.Pin = pin
		if err := form.Submit(ctx); err != nil {
			return fmt.Errorf("%s", form.Error)
		}
		fmt.Fprintf(out, "Logged in as %s\n", form.Username)
		return nil
	})
}

func promptLine(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return promptLine(cmd, in, label)
	}
	fmt.Fprint(cmd.OutOrStdout(), label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read PIN: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func newLogoutCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Long:  "Clears the username and PIN. The paired backend is kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(a *app) error {
				if err := a.store.Logout(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newResetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the backend and the credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(a *app) error {
				if err := a.store.ClearSession(); err != nil {
					return err
				}
				if err := a.users.Replace(nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session cleared. Pair again to continue.")
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newWhoamiCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the paired backend and logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(a *app) error {
				snap, err := a.store.Snapshot()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend:  %s\n", orDash(snap.BaseURL))
				fmt.Fprintf(out, "User:     %s\n", orDash(snap.Username))
				fmt.Fprintf(out, "Resource: %s\n", a.cfg.Resource)
				fmt.Fprintf(out, "Screen:   %s\n", session.InitialScreen(snap))
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

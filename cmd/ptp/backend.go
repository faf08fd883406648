package main

import (
	"fmt"
	"sort"

	"github.com/papertoplan/ptp/internal/api"
	"github.com/spf13/cobra"
)

func newBackendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Configure the backend's AI host",
	}

	cmd.AddCommand(newBackendSetCmd())
	cmd.AddCommand(newBackendTestCmd())
	return cmd
}

func newBackendSetCmd() *cobra.Command {
	var (
		configPath string
		cfg        api.BackendConfig
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the AI host and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Host == "" {
				return fmt.Errorf("--host is required")
			}
			return withApp(cmd, configPath, func(a *app) error {
				if err := a.client.UpdateBackendConfig(cmd.Context(), cfg); err != nil {
					return friendly(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backend now uses %s\n", cfg.Host)
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&cfg.Host, "host", "", "AI host URL")
	cmd.Flags().StringVar(&cfg.LogicModel, "logic-model", "", "model for text analysis")
	cmd.Flags().StringVar(&cfg.VisionModel, "vision-model", "", "model for image transcription")
	return cmd
}

func newBackendTestCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Ask the backend to probe its AI host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(a *app) error {
				res, err := a.client.TestConnection(cmd.Context())
				if err != nil {
					return friendly(err)
				}
				keys := make([]string, 0, len(res))
				for k := range res {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", k, res[k])
				}
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

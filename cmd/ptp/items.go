package main

import (
	"context"
	"fmt"

	"github.com/papertoplan/ptp/internal/board"
	"github.com/papertoplan/ptp/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Long:  "Lists notes or consultations (per the configured resource), newest first as returned by the backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, configPath, status)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&status, "status", "s", "", "only show items with this status")
	return cmd
}

func runList(cmd *cobra.Command, configPath, status string) error {
	return withApp(cmd, configPath, func(a *app) error {
		items, err := a.client.List(cmd.Context())
		if err != nil {
			return friendly(err)
		}
		if status != "" {
			kept := items[:0]
			for _, it := range items {
				if it.Status == status {
					kept = append(kept, it)
				}
			}
			items = kept
		}
		renderItems(cmd.OutOrStdout(), items)
		return nil
	})
}

func newShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item with its generated plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, configPath, func(a *app) error {
				d, err := a.client.Get(cmd.Context(), id)
				if err != nil {
					return friendly(err)
				}
				renderDetail(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

// itemActionCmd builds a command that runs one mutation against an item ID.
func itemActionCmd(use, short, done string, action func(ctx context.Context, a *app, id int) error) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, configPath, func(a *app) error {
				if err := action(cmd.Context(), a, id); err != nil {
					a.log.Warn(use+" failed", zap.Int("id", id), zap.Error(err))
					return friendly(err)
				}
				a.log.Info(use, zap.Int("id", id))
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d %s.\n", id, done)
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return itemActionCmd("delete", "Delete an item", "deleted",
		func(ctx context.Context, a *app, id int) error {
			return a.client.Delete(ctx, id)
		})
}

func newCompleteCmd() *cobra.Command {
	return itemActionCmd("complete", "Mark an item as completed", "marked completed",
		func(ctx context.Context, a *app, id int) error {
			return a.client.MarkCompleted(ctx, id)
		})
}

func newReviewCmd() *cobra.Command {
	return itemActionCmd("review", "Mark a consultation as reviewed", "marked reviewed",
		func(ctx context.Context, a *app, id int) error {
			return a.client.MarkReviewed(ctx, id)
		})
}

func newRegenerateCmd() *cobra.Command {
	var (
		configPath string
		text       string
	)

	cmd := &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Re-run analysis for an item",
		Long:  "Asks the backend to regenerate the plan for an item, optionally from corrected raw text.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, configPath, func(a *app) error {
				rawText := text
				if rawText == "" {
					d, err := a.client.Get(cmd.Context(), id)
					if err != nil {
						return friendly(err)
					}
					rawText = d.RawText
				}
				if err := a.client.Regenerate(cmd.Context(), id, rawText); err != nil {
					return friendly(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d queued for regeneration.\n", id)
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&text, "text", "", "replacement raw text (defaults to the stored text)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show item statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(a *app) error {
				s, err := a.client.Stats(cmd.Context())
				if err != nil {
					return friendly(err)
				}
				renderMessage(cmd.OutOrStdout(), notify.FormatStats(s))
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newBoardCmd() *cobra.Command {
	var (
		configPath   string
		showReviewed bool
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show items grouped by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(a *app) error {
				items, err := a.client.List(cmd.Context())
				if err != nil {
					return friendly(err)
				}
				renderBoard(cmd.OutOrStdout(), board.Buckets(items, showReviewed))
				return nil
			})
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&showReviewed, "reviewed", false, "list reviewed items instead of leaving the column empty")
	return cmd
}

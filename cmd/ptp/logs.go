package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/papertoplan/ptp/internal/config"
	"github.com/papertoplan/ptp/internal/logger"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var (
		configPath string
		level      string
		lines      int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View recent log entries",
		Long:  "Reads the JSON log file configured at log.file and prints the most recent entries, oldest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, configPath, level, lines)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&level, "level", "l", "", "only show entries at this level (debug, info, warn, error)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of recent entries to show")
	return cmd
}

func runLogs(cmd *cobra.Command, configPath, level string, lines int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	entries, err := logger.Tail(cfg.Log.File, strings.ToUpper(level), lines)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No log entries.")
		return nil
	}

	// Reverse for chronological display.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s %s %s%s\n", e.Timestamp, levelColor(e.Level).Sprintf("%-5s", e.Level), e.Message, formatFields(e.Fields))
	}
	return nil
}

func levelColor(level string) *color.Color {
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return color.New(color.FgRed)
	case "WARN":
		return color.New(color.FgYellow)
	case "DEBUG":
		return color.New(color.Faint)
	default:
		return color.New(color.Reset)
	}
}

// formatFields renders extra fields as sorted key=value pairs.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

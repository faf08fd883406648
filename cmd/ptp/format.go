package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/board"
	"github.com/papertoplan/ptp/internal/notify"
)

// statusColor picks the terminal colour for an item status.
func statusColor(status string) *color.Color {
	switch status {
	case board.StatusPending:
		return color.New(color.FgYellow)
	case board.StatusProcessing:
		return color.New(color.FgCyan)
	case board.StatusProcessed, board.StatusCompleted:
		return color.New(color.FgGreen)
	case board.StatusReviewed:
		return color.New(color.FgBlue)
	case board.StatusError:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.Reset)
	}
}

func colorStatus(status string) string {
	return statusColor(status).Sprint(status)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func feasibility(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *score)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// renderItems prints items as an aligned table.
func renderItems(w io.Writer, items []api.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tTIME\tFEASIBILITY")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			it.ID, colorStatus(it.Status), truncate(orDash(it.Title), 48),
			orDash(it.ImplementationTime), feasibility(it.FeasibilityScore))
	}
	tw.Flush()
}

// renderDetail prints one item with its generated content.
func renderDetail(w io.Writer, d *api.Detail) {
	fmt.Fprintf(w, "#%d %s\n", d.ID, orDash(d.Title))
	fmt.Fprintf(w, "Status:       %s\n", colorStatus(d.Status))
	if d.CreatedAt != "" {
		fmt.Fprintf(w, "Created:      %s\n", d.CreatedAt)
	}
	if d.ImplementationTime != "" {
		fmt.Fprintf(w, "Time:         %s\n", d.ImplementationTime)
	}
	if d.FeasibilityScore != nil {
		fmt.Fprintf(w, "Feasibility:  %d\n", *d.FeasibilityScore)
	}
	if d.DocumentType != "" {
		fmt.Fprintf(w, "Type:         %s (confidence %d)\n", d.DocumentType, d.ConfidenceScore)
	}
	if d.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", d.Summary)
	}
	renderList(w, "Technical considerations", d.TechnicalConsiderations)
	renderList(w, "Recommended stack", d.RecommendedStack)
	if d.RawText != "" {
		fmt.Fprintf(w, "\nRaw text:\n%s\n", d.RawText)
	}
}

func renderList(w io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, l := range lines {
		fmt.Fprintf(w, "  - %s\n", l)
	}
}

// renderBoard prints each column with its item count and titles.
func renderBoard(w io.Writer, cols []board.Column) {
	for i, col := range cols {
		if i > 0 {
			fmt.Fprintln(w)
		}
		heading := fmt.Sprintf("%s (%d)", col.Title, len(col.Items))
		fmt.Fprintln(w, statusColor(col.Status).Sprint(heading))
		fmt.Fprintln(w, strings.Repeat("-", len(heading)))
		if len(col.Items) == 0 {
			fmt.Fprintln(w, "  (empty)")
			continue
		}
		for _, it := range col.Items {
			fmt.Fprintf(w, "  #%d %s\n", it.ID, truncate(orDash(it.Title), 60))
		}
	}
}

// renderMessage prints a chat message as plain text.
func renderMessage(w io.Writer, msg notify.Message) {
	if msg.Title != "" {
		fmt.Fprintln(w, color.New(color.Bold).Sprint(msg.Title))
	}
	if msg.Body != "" {
		fmt.Fprintln(w, msg.Body)
	}
	if len(msg.Fields) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range msg.Fields {
		fmt.Fprintf(tw, "  %s:\t%s\n", f.Name, f.Value)
	}
	tw.Flush()
}

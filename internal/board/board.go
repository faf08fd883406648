// Package board groups items into status columns.
package board

import "github.com/papertoplan/ptp/internal/api"

// Item statuses reported by the backend.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusCompleted  = "completed"
	StatusReviewed   = "reviewed"
	StatusError      = "error"
)

// Column is one board lane.
type Column struct {
	Status string     `json:"status"`
	Title  string     `json:"title"`
	Items  []api.Item `json:"items"`
}

// columnOrder lists the lanes left to right.
var columnOrder = []struct{ status, title string }{
	{StatusPending, "Pending"},
	{StatusProcessing, "Processing"},
	{StatusProcessed, "Processed"},
	{StatusReviewed, "Reviewed"},
}

// ColumnFor returns the lane an item status belongs to. Errors and unknown
// statuses wait in pending; completed items count as processed.
func ColumnFor(status string) string {
	switch status {
	case StatusProcessing:
		return StatusProcessing
	case StatusProcessed, StatusCompleted:
		return StatusProcessed
	case StatusReviewed:
		return StatusReviewed
	default:
		return StatusPending
	}
}

// Buckets sorts items into the four lanes, keeping their relative order.
// Reviewed items are left out unless showReviewed is set; the reviewed
// column is always present so renderers see a fixed layout.
func Buckets(items []api.Item, showReviewed bool) []Column {
	cols := make([]Column, len(columnOrder))
	index := make(map[string]int, len(columnOrder))
	for i, c := range columnOrder {
		cols[i] = Column{Status: c.status, Title: c.title, Items: []api.Item{}}
		index[c.status] = i
	}
	for _, it := range items {
		lane := ColumnFor(it.Status)
		if lane == StatusReviewed && !showReviewed {
			continue
		}
		i := index[lane]
		cols[i].Items = append(cols[i].Items, it)
	}
	return cols
}

// Counts returns the number of items per lane.
func Counts(cols []Column) map[string]int {
	out := make(map[string]int, len(cols))
	for _, c := range cols {
		out[c.Status] = len(c.Items)
	}
	return out
}

// Equal reports whether two lists carry the same items in the same order.
// It is meant as a poller Equal func.
func Equal(a, b []api.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameItem(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameItem(a, b api.Item) bool {
	if a.FeasibilityScore == nil || b.FeasibilityScore == nil {
		if a.FeasibilityScore != b.FeasibilityScore {
			return false
		}
	} else if *a.FeasibilityScore != *b.FeasibilityScore {
		return false
	}
	a.FeasibilityScore, b.FeasibilityScore = nil, nil
	return a == b
}

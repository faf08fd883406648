package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/board"
	"go.uber.org/zap"
)

// StatusChange is a detected transition. Old is empty for a new item.
type StatusChange struct {
	ID    int
	Title string
	Old   string
	New   string
}

type itemState struct {
	status string
	title  string
}

// Tracker detects status changes between successive list snapshots. The
// first snapshot only establishes the baseline.
type Tracker struct {
	mu     sync.Mutex
	known  map[int]itemState
	seeded bool
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{known: make(map[int]itemState)}
}

// Observe records items and returns the changes since the previous call,
// in list order. Items that disappear are forgotten.
func (t *Tracker) Observe(items []api.Item) []StatusChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changes []StatusChange
	current := make(map[int]bool, len(items))
	for _, it := range items {
		current[it.ID] = true
		old, exists := t.known[it.ID]
		t.known[it.ID] = itemState{status: it.Status, title: it.Title}
		if !t.seeded {
			continue
		}
		if !exists || old.status != it.Status {
			changes = append(changes, StatusChange{
				ID:    it.ID,
				Title: it.Title,
				Old:   old.status,
				New:   it.Status,
			})
		}
	}
	for id := range t.known {
		if !current[id] {
			delete(t.known, id)
		}
	}
	t.seeded = true
	return changes
}

// FormatChange renders a change as a chat message.
func FormatChange(c StatusChange) Message {
	title := c.Title
	if title == "" {
		title = fmt.Sprintf("#%d", c.ID)
	}
	var text string
	if c.Old == "" {
		text = fmt.Sprintf("New item %s (%s)", title, c.New)
	} else {
		text = fmt.Sprintf("%s %s", title, statusVerb(c.New))
	}
	msg := Message{
		Text:  text,
		Title: text,
		Color: statusColor(c.New),
		Fields: []Field{
			{Name: "ID", Value: fmt.Sprintf("%d", c.ID), Short: true},
			{Name: "Status", Value: c.New, Short: true},
		},
	}
	if c.Old != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Was", Value: c.Old, Short: true})
	}
	return msg
}

func statusVerb(status string) string {
	switch status {
	case board.StatusProcessing:
		return "is being processed"
	case board.StatusProcessed:
		return "is ready"
	case board.StatusCompleted:
		return "was completed"
	case board.StatusReviewed:
		return "was reviewed"
	case board.StatusError:
		return "failed to process"
	default:
		return "is " + status
	}
}

func statusColor(status string) string {
	switch status {
	case board.StatusProcessed, board.StatusCompleted, board.StatusReviewed:
		return ColorSuccess
	case board.StatusError:
		return ColorError
	case board.StatusProcessing:
		return ColorWarning
	default:
		return ColorInfo
	}
}

// Announcer sends one message per detected change.
type Announcer struct {
	tracker *Tracker
	out     Adapter
	log     *zap.Logger
}

// NewAnnouncer creates an Announcer with a fresh Tracker.
func NewAnnouncer(out Adapter, log *zap.Logger) *Announcer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Announcer{tracker: NewTracker(), out: out, log: log}
}

// Update observes a snapshot and announces its changes. Send failures are
// logged; the changes are returned either way.
func (a *Announcer) Update(ctx context.Context, items []api.Item) []StatusChange {
	changes := a.tracker.Observe(items)
	for _, c := range changes {
		if err := a.out.Send(ctx, FormatChange(c)); err != nil {
			a.log.Warn("announce status change", zap.Int("id", c.ID), zap.Error(err))
		}
	}
	return changes
}

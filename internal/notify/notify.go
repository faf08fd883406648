// Package notify announces item status changes and periodic digests on chat
// platforms (Slack, Discord).
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Adapter delivers a message to one chat platform.
type Adapter interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a platform-neutral chat message. Text is the plain fallback.
type Message struct {
	Text  string
	Title string
	Body  string
	Color string
	// Fields are rendered as a key-value table where the platform allows.
	Fields []Field
}

// Field is one key-value pair of a Message.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Color hints used for sidebars and embeds.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Dispatcher fans a message out to every configured adapter.
type Dispatcher struct {
	adapters []Adapter
	log      *zap.Logger
}

// NewDispatcher creates a Dispatcher. log may be nil.
func NewDispatcher(log *zap.Logger, adapters ...Adapter) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{adapters: adapters, log: log}
}

// Len returns the number of adapters.
func (d *Dispatcher) Len() int {
	return len(d.adapters)
}

// Send delivers msg to every adapter. A failing adapter does not stop the
// others; all failures are joined into the returned error.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	var errs []error
	for i, a := range d.adapters {
		if err := a.Send(ctx, msg); err != nil {
			d.log.Warn("notify: send failed", zap.Int("adapter", i), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}

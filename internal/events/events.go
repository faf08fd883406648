// Package events is the in-process pub/sub that links uploads to list
// refreshes.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// TopicUploadCompleted is published after the backend accepts an upload.
const TopicUploadCompleted = "upload.completed"

// UploadCompleted is the payload of TopicUploadCompleted.
type UploadCompleted struct {
	Kind     string `json:"kind"`
	Filename string `json:"filename,omitempty"`
	ID       int    `json:"id,omitempty"`
}

// Refresher is anything that can be asked to re-fetch now.
type Refresher interface {
	Refresh()
}

// Bus wraps a watermill gochannel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    *zap.Logger
}

// NewBus creates an in-memory bus. Messages published with no subscriber
// are dropped.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, newZapAdapter(log))
	return &Bus{pubsub: ps, log: log}
}

// PublishUploadCompleted announces an accepted upload.
func (b *Bus) PublishUploadCompleted(ctx context.Context, ev UploadCompleted) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", TopicUploadCompleted, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicUploadCompleted, msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", TopicUploadCompleted, err)
	}
	return nil
}

// OnUploadCompleted calls fn for every upload.completed message until ctx is
// cancelled. Malformed payloads are logged and acked.
func (b *Bus) OnUploadCompleted(ctx context.Context, fn func(UploadCompleted)) error {
	messages, err := b.pubsub.Subscribe(ctx, TopicUploadCompleted)
	if err != nil {
		return fmt.Errorf("events: subscribe %s: %w", TopicUploadCompleted, err)
	}

	go func() {
		for msg := range messages {
			var ev UploadCompleted
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.log.Warn("dropping malformed event",
					zap.String("topic", TopicUploadCompleted),
					zap.String("uuid", msg.UUID),
					zap.Error(err))
				msg.Ack()
				continue
			}
			fn(ev)
			msg.Ack()
		}
	}()
	return nil
}

// SubscribeRefresh asks r to refresh once per completed upload.
func SubscribeRefresh(ctx context.Context, bus *Bus, r Refresher) error {
	return bus.OnUploadCompleted(ctx, func(UploadCompleted) {
		r.Refresh()
	})
}

// Close shuts the bus down and closes every subscription.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

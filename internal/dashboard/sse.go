package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/papertoplan/ptp/internal/api"
)

// Hub fans snapshots out to SSE subscribers. A slow subscriber only ever
// sees the latest snapshot; older undelivered ones are dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[chan []api.Item]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan []api.Item]struct{})}
}

// Publish sends items to every subscriber without blocking.
func (h *Hub) Publish(items []api.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- items:
		default:
			// Replace the stale pending snapshot.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- items:
			default:
			}
		}
	}
}

// Subscribe registers a subscriber. Call the returned func to unsubscribe.
func (h *Hub) Subscribe() (<-chan []api.Item, func()) {
	ch := make(chan []api.Item, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// handleSSE streams a connected event, the current snapshot, then one
// snapshot event per reconciliation plus periodic heartbeats.
func handleSSE(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		updates, unsubscribe := opts.Hub.Subscribe()
		defer unsubscribe()

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		writeSSE(c.Writer, "snapshot", buildItemsView(opts, opts.Items.Snapshot()))
		c.Writer.Flush()

		ctx := c.Request.Context()
		heartbeat := time.NewTicker(opts.Heartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case items := <-updates:
				writeSSE(c.Writer, "snapshot", buildItemsView(opts, items))
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}

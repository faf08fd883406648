package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/board"
	"github.com/papertoplan/ptp/internal/session"
	"go.uber.org/zap"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/api/items", handleItems(opts))
	router.GET("/api/session", handleSession(opts))
	router.GET("/api/events", handleSSE(opts))
}

// itemsView is the payload of /api/items and of snapshot events.
type itemsView struct {
	Resource  string         `json:"resource"`
	Items     []api.Item     `json:"items"`
	Columns   []board.Column `json:"columns"`
	UpdatedAt string         `json:"updated_at"`
}

func buildItemsView(opts StartOpts, items []api.Item) itemsView {
	if items == nil {
		items = []api.Item{}
	}
	return itemsView{
		Resource:  opts.Resource,
		Items:     items,
		Columns:   board.Buckets(items, opts.ShowReviewed),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func handleItems(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		items := opts.Items.Snapshot()
		if c.Query("reviewed") == "1" {
			o := opts
			o.ShowReviewed = true
			c.JSON(http.StatusOK, buildItemsView(o, items))
			return
		}
		c.JSON(http.StatusOK, buildItemsView(opts, items))
	}
}

// sessionView never carries the PIN.
type sessionView struct {
	Configured    bool   `json:"configured"`
	Authenticated bool   `json:"authenticated"`
	Screen        string `json:"screen"`
	BaseURL       string `json:"base_url,omitempty"`
	Username      string `json:"username,omitempty"`
}

func handleSession(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := opts.Session.Snapshot()
		if err != nil {
			opts.Logger.Warn("dashboard: read session", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		c.JSON(http.StatusOK, sessionView{
			Configured:    snap.IsConfigured(),
			Authenticated: snap.IsAuthenticated(),
			Screen:        string(session.InitialScreen(snap)),
			BaseURL:       snap.BaseURL,
			Username:      snap.Username,
		})
	}
}

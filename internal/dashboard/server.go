// Package dashboard serves the polled item list as JSON and as a
// server-sent event stream for a local browser view.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/session"
	"go.uber.org/zap"
)

// DefaultHeartbeat is the SSE keep-alive interval.
const DefaultHeartbeat = 15 * time.Second

// ItemSource yields the current snapshot. *poller.Poller[api.Item] satisfies it.
type ItemSource interface {
	Snapshot() []api.Item
}

// SessionSource yields the stored session. *session.Store satisfies it.
type SessionSource interface {
	Snapshot() (session.Session, error)
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Items        ItemSource
	Session      SessionSource
	Hub          *Hub // snapshot broadcasts for /api/events; optional
	Resource     string
	ShowReviewed bool
	Port         int
	Heartbeat    time.Duration
	Out          io.Writer
	Logger       *zap.Logger
}

func (o *StartOpts) validate() error {
	if o.Items == nil {
		return fmt.Errorf("dashboard: item source is required")
	}
	if o.Session == nil {
		return fmt.Errorf("dashboard: session source is required")
	}
	if o.Port <= 0 {
		o.Port = 8090
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = DefaultHeartbeat
	}
	if o.Hub == nil {
		o.Hub = NewHub()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

// NewRouter builds the gin engine without starting a listener.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", port)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

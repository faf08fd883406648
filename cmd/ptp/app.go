package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/config"
	"github.com/papertoplan/ptp/internal/db"
	"github.com/papertoplan/ptp/internal/logger"
	"github.com/papertoplan/ptp/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app bundles the pieces every command needs, built from one config file.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	closeLog func() error
	db       *gorm.DB
	store    *session.Store
	users    *session.UserCache
	client   *api.Client
}

// openApp loads config, then opens the logger, the state store and the
// backend client in that order.
func openApp(cmd *cobra.Command, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		JSON:    cfg.Log.JSON,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, closeLog: closeLog}
	if err := a.openState(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openState() error {
	gdb, err := db.OpenAndMigrate(func() (*gorm.DB, error) {
		return db.Open(a.cfg.Store, a.cfg.StatePath)
	})
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	a.db = gdb

	if a.store, err = session.NewStore(gdb); err != nil {
		return err
	}
	if a.users, err = session.NewUserCache(gdb, session.DefaultUserCacheTTL); err != nil {
		return err
	}
	a.client, err = api.New(a.store, api.Options{
		Resource: a.cfg.Resource,
		Timeout:  a.cfg.HTTP.Timeout,
		Logger:   a.log.Named("api"),
	})
	return err
}

// Close releases the store and flushes the logger.
func (a *app) Close() {
	if a.db != nil {
		if err := db.Close(a.db); err != nil {
			a.log.Warn("close state", zap.Error(err))
		}
	}
	if a.closeLog != nil {
		a.closeLog()
	}
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, configPath string, fn func(a *app) error) error {
	a, err := openApp(cmd, configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// friendly turns a client error into the one-line message users see.
func friendly(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", api.UserMessage(err))
}

// parseID parses a positional item ID.
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item ID %q", s)
	}
	return id, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. The
// shutdown notice goes to out.
func signalContext(cmd *cobra.Command, out io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(cmd.Context())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// lockedWriter serializes writes from the goroutines of long-running
// commands onto one output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", "ptp.yaml", "path to ptp config file")
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/board"
	"github.com/papertoplan/ptp/internal/config"
	"github.com/papertoplan/ptp/internal/dashboard"
	"github.com/papertoplan/ptp/internal/events"
	"github.com/papertoplan/ptp/internal/notify"
	"github.com/papertoplan/ptp/internal/notify/discord"
	"github.com/papertoplan/ptp/internal/notify/slack"
	"github.com/papertoplan/ptp/internal/poller"
	"github.com/papertoplan/ptp/internal/upload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type watchOpts struct {
	interval  time.Duration
	quiet     bool
	inbox     string
	dashboard bool
	port      int
}

func newWatchCmd() *cobra.Command {
	var (
		configPath string
		opts       watchOpts
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow item status changes",
		Long: "Polls the item list and announces status changes on the console and on any configured Slack or Discord channel. " +
			"With --inbox, files dropped into the directory are uploaded once they stop changing, then removed. " +
			"A digest is posted on the notify.digest schedule when one is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, configPath, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().DurationVarP(&opts.interval, "interval", "i", 0, "poll interval (defaults to poll.interval)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print changes to the console")
	cmd.Flags().StringVar(&opts.inbox, "inbox", "", "directory to upload new files from")
	cmd.Flags().BoolVar(&opts.dashboard, "dashboard", false, "also serve the web dashboard")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "dashboard port (defaults to dashboard.port)")
	return cmd
}

// consoleAdapter prints chat messages to a writer.
type consoleAdapter struct {
	w io.Writer
}

func (c consoleAdapter) Send(ctx context.Context, msg notify.Message) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s] ", time.Now().Format("15:04:05"))
	if msg.Title != "" && len(msg.Fields) > 0 {
		renderMessage(&buf, msg)
	} else {
		fmt.Fprintln(&buf, msg.Text)
	}
	_, err := c.w.Write(buf.Bytes())
	return err
}

// chatAdapters builds the Slack and Discord adapters enabled in cfg.
func chatAdapters(cfg config.NotifyConfig) ([]notify.Adapter, error) {
	var adapters []notify.Adapter
	if cfg.Slack.Enabled() {
		a, err := slack.New(slack.AdapterOpts{BotToken: cfg.Slack.Token, ChannelID: cfg.Slack.Channel})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Discord.Enabled() {
		a, err := discord.New(discord.AdapterOpts{BotToken: cfg.Discord.Token, ChannelID: cfg.Discord.Channel})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// newItemPoller builds the list poller shared by watch and dashboard.
func newItemPoller(a *app, interval time.Duration, onUpdate func([]api.Item), onError func(error)) (*poller.Poller[api.Item], error) {
	if interval <= 0 {
		interval = a.cfg.Poll.Interval
	}
	return poller.New(a.client.List, poller.Options[api.Item]{
		Interval: interval,
		Timeout:  a.cfg.HTTP.Timeout,
		OnUpdate: onUpdate,
		OnError:  onError,
		Equal:    board.Equal,
		Logger:   a.log.Named("poller"),
	})
}

func runWatch(cmd *cobra.Command, configPath string, opts watchOpts) error {
	return withApp(cmd, configPath, func(a *app) error {
		out := &lockedWriter{w: cmd.OutOrStdout()}
		ctx, cancel := signalContext(cmd, out)
		defer cancel()

		if ok, err := a.store.IsLoggedIn(); err != nil {
			return err
		} else if !ok {
			return friendly(api.ErrNotAuthenticated)
		}

		var adapters []notify.Adapter
		if !opts.quiet {
			adapters = append(adapters, consoleAdapter{w: out})
		}
		chat, err := chatAdapters(a.cfg.Notify)
		if err != nil {
			return err
		}
		adapters = append(adapters, chat...)
		dispatcher := notify.NewDispatcher(a.log.Named("notify"), adapters...)
		announcer := notify.NewAnnouncer(dispatcher, a.log.Named("notify"))
		hub := dashboard.NewHub()

		p, err := newItemPoller(a, opts.interval,
			func(items []api.Item) {
				announcer.Update(ctx, items)
				hub.Publish(items)
			},
			func(err error) {
				if !opts.quiet {
					fmt.Fprintf(out, "Warning: %s\n", friendly(err))
				}
			})
		if err != nil {
			return err
		}

		bus := events.NewBus(a.log.Named("events"))
		defer bus.Close()
		if err := events.SubscribeRefresh(ctx, bus, p); err != nil {
			return err
		}

		if err := p.Start(ctx); err != nil {
			return err
		}
		defer p.Stop()

		if expr := a.cfg.Notify.Digest; expr != "" && dispatcher.Len() > 0 {
			d, err := notify.NewDigest(expr, a.client, dispatcher, a.log.Named("digest"))
			if err != nil {
				return err
			}
			go d.Run(ctx)
		}

		if opts.inbox != "" {
			flow := upload.New(a.client, a.store, bus).WithLogger(a.log.Named("upload"))
			go newInbox(opts.inbox, flow, a.log.Named("inbox"), out).watch(ctx)
		}

		if opts.dashboard {
			port := opts.port
			if port <= 0 {
				port = a.cfg.Dashboard.Port
			}
			go func() {
				err := dashboard.Start(ctx, dashboard.StartOpts{
					Items:    p,
					Session:  a.store,
					Hub:      hub,
					Resource: a.cfg.Resource,
					Port:     port,
					Out:      out,
					Logger:   a.log.Named("dashboard"),
				})
				if err != nil {
					a.log.Error("dashboard stopped", zap.Error(err))
				}
			}()
		}

		fmt.Fprintf(out, "Watching %s every %s (Ctrl-C to stop)\n", a.cfg.Resource, pollInterval(a, opts.interval))
		<-ctx.Done()
		return nil
	})
}

func pollInterval(a *app, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return a.cfg.Poll.Interval
}

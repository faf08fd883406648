package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/papertoplan/ptp/internal/events"
	"github.com/papertoplan/ptp/internal/upload"
	"github.com/spf13/cobra"
)

// refreshWait bounds how long upload waits for its completion event
// before printing the refreshed list.
const refreshWait = 2 * time.Second

// refreshSignal turns upload.completed events into a channel wakeup.
type refreshSignal chan struct{}

func (r refreshSignal) Refresh() {
	select {
	case r <- struct{}{}:
	default:
	}
}

type uploadOpts struct {
	kind     string
	mimeType string
	temp     bool
	list     bool
}

func newUploadCmd() *cobra.Command {
	var (
		configPath string
		opts       uploadOpts
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload photos or audio recordings",
		Long:  "Uploads each file to the backend. The media type is sniffed from the content unless --mime is given; audio/* goes to the audio endpoint and everything else to the image endpoint.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, configPath, args, opts)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&opts.kind, "kind", "", "force the endpoint: image or audio")
	cmd.Flags().StringVar(&opts.mimeType, "mime", "", "media type to send instead of sniffing")
	cmd.Flags().BoolVar(&opts.temp, "temp", false, "delete each file after the attempt")
	cmd.Flags().BoolVar(&opts.list, "list", true, "print the refreshed list after uploading")
	return cmd
}

func runUpload(cmd *cobra.Command, configPath string, paths []string, opts uploadOpts) error {
	var kind upload.Kind
	switch opts.kind {
	case "":
	case string(upload.KindImage), string(upload.KindAudio):
		kind = upload.Kind(opts.kind)
	default:
		return fmt.Errorf("--kind must be image or audio, got %q", opts.kind)
	}

	return withApp(cmd, configPath, func(a *app) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		bus := events.NewBus(a.log.Named("events"))
		defer bus.Close()
		refreshed := make(refreshSignal, 1)
		if err := events.SubscribeRefresh(ctx, bus, refreshed); err != nil {
			return err
		}

		flow := upload.New(a.client, a.store, bus).WithLogger(a.log.Named("upload"))
		cb := upload.Callbacks{
			OnSuccess: func(r upload.Result) {
				fmt.Fprintf(out, "Uploaded %s (%s)\n", r.Filename, r.Kind)
			},
			OnError: func(msg string, err error) {
				fmt.Fprintf(out, "Error: %s\n", msg)
			},
		}

		failed := 0
		for _, p := range paths {
			job := upload.Job{Path: p, MimeType: opts.mimeType, Kind: kind, Temp: opts.temp}
			if _, err := flow.Upload(ctx, job, cb); err != nil {
				failed++
			}
		}

		if failed < len(paths) && opts.list {
			showRefreshed(cmd, a, refreshed)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(paths))
		}
		return nil
	})
}

// showRefreshed waits for the completion event, then prints the list.
func showRefreshed(cmd *cobra.Command, a *app, refreshed refreshSignal) {
	select {
	case <-refreshed:
	case <-time.After(refreshWait):
	case <-cmd.Context().Done():
		return
	}
	items, err := a.client.List(cmd.Context())
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning: could not refresh list: %s\n", friendly(err))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout())
	renderItems(cmd.OutOrStdout(), items)
}

func newTextCmd() *cobra.Command {
	var (
		configPath string
		list       bool
	)

	cmd := &cobra.Command{
		Use:   "text [text...]",
		Short: "Create an item from text",
		Long:  "Creates an item from the given words. With no arguments, or a single \"-\", the text is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runText(cmd, configPath, args, list)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().BoolVar(&list, "list", false, "print the refreshed list afterwards")
	return cmd
}

func runText(cmd *cobra.Command, configPath string, args []string, list bool) error {
	text := strings.Join(args, " ")
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}

	return withApp(cmd, configPath, func(a *app) error {
		ctx := cmd.Context()
		bus := events.NewBus(a.log.Named("events"))
		defer bus.Close()
		refreshed := make(refreshSignal, 1)
		if err := events.SubscribeRefresh(ctx, bus, refreshed); err != nil {
			return err
		}

		flow := upload.New(a.client, a.store, bus).WithLogger(a.log.Named("upload"))
		res, err := flow.UploadText(ctx, text, upload.Callbacks{})
		if err != nil {
			return fmt.Errorf("%s", upload.Message(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created item %d\n", res.ID)
		if list {
			showRefreshed(cmd, a, refreshed)
		}
		return nil
	})
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papertoplan/ptp/internal/upload"
	"go.uber.org/zap"
)

// inboxScanInterval is how often the inbox directory is checked.
const inboxScanInterval = 2 * time.Second

// fileState is what a scan remembers about a file.
type fileState struct {
	size    int64
	modTime time.Time
}

func (s fileState) same(o fileState) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

// inbox uploads files dropped into a directory. A file is picked up only
// once its size and modification time are unchanged across two scans, so
// captures still being copied in are left alone. Files are removed after
// each attempt whatever the outcome.
type inbox struct {
	dir  string
	flow *upload.Flow
	log  *zap.Logger
	out  io.Writer
	seen map[string]fileState
}

func newInbox(dir string, flow *upload.Flow, log *zap.Logger, out io.Writer) *inbox {
	return &inbox{dir: dir, flow: flow, log: log, out: out, seen: map[string]fileState{}}
}

// watch scans until ctx is cancelled.
func (in *inbox) watch(ctx context.Context) {
	ticker := time.NewTicker(inboxScanInterval)
	defer ticker.Stop()

	for {
		in.scan(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scan uploads the regular, non-hidden files that were stable since the
// previous scan and remembers the rest for the next one.
func (in *inbox) scan(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.log.Warn("read inbox", zap.String("dir", in.dir), zap.Error(err))
		return
	}

	pending := make(map[string]fileState, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		cur := fileState{size: info.Size(), modTime: info.ModTime()}
		if prev, ok := in.seen[e.Name()]; !ok || !prev.same(cur) {
			pending[e.Name()] = cur
			continue
		}
		in.upload(ctx, e.Name())
	}
	in.seen = pending
}

func (in *inbox) upload(ctx context.Context, name string) {
	job := upload.Job{Path: filepath.Join(in.dir, name), Temp: true}
	in.flow.Upload(ctx, job, upload.Callbacks{
		OnSuccess: func(r upload.Result) {
			fmt.Fprintf(in.out, "Uploaded %s (%s)\n", r.Filename, r.Kind)
		},
		OnError: func(msg string, err error) {
			fmt.Fprintf(in.out, "Upload of %s failed: %s\n", name, msg)
		},
	})
}

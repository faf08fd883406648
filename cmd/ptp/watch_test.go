package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/notify"
	"github.com/papertoplan/ptp/internal/upload"
	"go.uber.org/zap"
)

// sizeUploader records the byte count of every upload.
type sizeUploader struct {
	mu    sync.Mutex
	sizes []int
}

func (u *sizeUploader) record(filename string, r io.Reader) (*api.UploadResponse, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	u.sizes = append(u.sizes, len(b))
	u.mu.Unlock()
	return &api.UploadResponse{Status: "ok", Filename: filename}, nil
}

func (u *sizeUploader) UploadImage(ctx context.Context, filename string, r io.Reader, contentType string) (*api.UploadResponse, error) {
	return u.record(filename, r)
}

func (u *sizeUploader) UploadAudio(ctx context.Context, filename string, r io.Reader, contentType string) (*api.UploadResponse, error) {
	return u.record(filename, r)
}

func (u *sizeUploader) CreateText(ctx context.Context, text string) (*api.CreatedResponse, error) {
	return &api.CreatedResponse{ID: 1}, nil
}

func (u *sizeUploader) uploaded() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]int(nil), u.sizes...)
}

type loggedIn struct{}

func (loggedIn) IsConfigured() (bool, error) { return true, nil }
func (loggedIn) IsLoggedIn() (bool, error)   { return true, nil }

func newTestInbox(t *testing.T) (*inbox, *sizeUploader, *bytes.Buffer) {
	t.Helper()
	up := &sizeUploader{}
	out := new(bytes.Buffer)
	flow := upload.New(up, loggedIn{}, nil)
	return newInbox(t.TempDir(), flow, zap.NewNop(), out), up, out
}

func TestInbox_WaitsForFileToSettle(t *testing.T) {
	in, up, out := newTestInbox(t)
	ctx := context.Background()
	path := filepath.Join(in.dir, "scan.jpg")

	if err := os.WriteFile(path, make([]byte, 1000), 0o600); err != nil {
		t.Fatal(err)
	}
	in.scan(ctx)
	if got := up.uploaded(); len(got) != 0 {
		t.Fatalf("uploaded %v on first sight, want nothing", got)
	}

	// The copy finishes between scans.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(make([]byte, 9000)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	in.scan(ctx)
	if got := up.uploaded(); len(got) != 0 {
		t.Fatalf("uploaded %v while the file was growing, want nothing", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file removed before upload: %v", err)
	}

	in.scan(ctx)
	got := up.uploaded()
	if len(got) != 1 || got[0] != 10000 {
		t.Fatalf("uploaded sizes = %v, want [10000]", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("capture should be removed after upload, stat err = %v", err)
	}
	if !strings.Contains(out.String(), "Uploaded scan.jpg") {
		t.Errorf("output = %q", out.String())
	}

	in.scan(ctx)
	if n := len(up.uploaded()); n != 1 {
		t.Errorf("uploads after the file is gone = %d, want 1", n)
	}
}

func TestInbox_SkipsHiddenAndDirectories(t *testing.T) {
	in, up, _ := newTestInbox(t)
	ctx := context.Background()

	os.WriteFile(filepath.Join(in.dir, ".partial"), []byte("x"), 0o600)
	os.Mkdir(filepath.Join(in.dir, "sub"), 0o700)

	in.scan(ctx)
	in.scan(ctx)
	if got := up.uploaded(); len(got) != 0 {
		t.Errorf("uploaded %v, want nothing", got)
	}
	if _, err := os.Stat(filepath.Join(in.dir, ".partial")); err != nil {
		t.Errorf("hidden file should be left alone: %v", err)
	}
}

func TestInbox_MissingDir(t *testing.T) {
	up := &sizeUploader{}
	in := newInbox(filepath.Join(t.TempDir(), "nope"), upload.New(up, loggedIn{}, nil), zap.NewNop(), io.Discard)
	in.scan(context.Background())
	if len(up.uploaded()) != 0 {
		t.Error("missing inbox should upload nothing")
	}
}

func TestLockedWriter_ConcurrentWrites(t *testing.T) {
	buf := new(bytes.Buffer)
	w := &lockedWriter{w: buf}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()

	if n := strings.Count(buf.String(), "line\n"); n != 1000 {
		t.Errorf("lines = %d, want 1000", n)
	}
}

func TestConsoleAdapter_WritesWholeMessage(t *testing.T) {
	buf := new(bytes.Buffer)
	c := consoleAdapter{w: &lockedWriter{w: buf}}

	if err := c.Send(context.Background(), notify.Message{Text: "Item 4 processed"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	c.Send(context.Background(), notify.Message{
		Title:  "Daily digest",
		Fields: []notify.Field{{Name: "Completed", Value: "2"}},
	})

	out := buf.String()
	for _, want := range []string{"] Item 4 processed\n", "] Daily digest\n", "Completed:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// Package upload delivers captured artifacts to the backend and reports the
// outcome through callbacks.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/papertoplan/ptp/internal/api"
	"github.com/papertoplan/ptp/internal/events"
	"go.uber.org/zap"
)

// Kind selects the upload endpoint.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindText  Kind = "text"
)

// Job is one file upload. Temp marks a capture file owned by the flow,
// which is removed once the upload has a definitive outcome.
type Job struct {
	Path     string
	MimeType string // detected from content when empty
	Kind     Kind   // inferred from MimeType when empty
	Temp     bool
}

// Result describes an accepted upload.
type Result struct {
	Kind     Kind
	Filename string
	MimeType string
	ID       int // set for text uploads
	Message  string
}

// Callbacks receive the outcome. Exactly one of them fires per upload.
type Callbacks struct {
	OnSuccess func(Result)
	OnError   func(message string, err error)
}

// Uploader is the subset of *api.Client used by the flow.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, r io.Reader, contentType string) (*api.UploadResponse, error)
	UploadAudio(ctx context.Context, filename string, r io.Reader, contentType string) (*api.UploadResponse, error)
	CreateText(ctx context.Context, text string) (*api.CreatedResponse, error)
}

// Checker reports session preconditions. *session.Store satisfies it.
type Checker interface {
	IsConfigured() (bool, error)
	IsLoggedIn() (bool, error)
}

// Publisher announces completed uploads. *events.Bus satisfies it.
type Publisher interface {
	PublishUploadCompleted(ctx context.Context, ev events.UploadCompleted) error
}

// ErrEmptyText is returned for a blank text upload.
var ErrEmptyText = errors.New("upload: text is empty")

// Flow runs uploads. It never retries.
type Flow struct {
	client  Uploader
	session Checker
	bus     Publisher
	log     *zap.Logger
}

// New creates a Flow. bus may be nil.
func New(client Uploader, session Checker, bus Publisher) *Flow {
	return &Flow{client: client, session: session, bus: bus, log: zap.NewNop()}
}

// WithLogger sets the logger used for publish failures and outcomes.
func (f *Flow) WithLogger(log *zap.Logger) *Flow {
	if log != nil {
		f.log = log
	}
	return f
}

// Upload posts the file described by job. The error is also returned so
// one-shot callers can exit non-zero.
func (f *Flow) Upload(ctx context.Context, job Job, cb Callbacks) (*Result, error) {
	if job.Temp {
		defer f.release(job.Path)
	}

	if err := f.precheck(); err != nil {
		return nil, f.fail(cb, err)
	}

	mimeType, err := resolveMime(job)
	if err != nil {
		return nil, f.fail(cb, err)
	}
	kind := job.Kind
	if kind == "" {
		kind = kindFor(mimeType)
	}

	file, err := os.Open(job.Path)
	if err != nil {
		return nil, f.fail(cb, fmt.Errorf("upload: open %s: %w", job.Path, err))
	}
	defer file.Close()

	name := filepath.Base(job.Path)
	var resp *api.UploadResponse
	switch kind {
	case KindAudio:
		resp, err = f.client.UploadAudio(ctx, name, file, mimeType)
	case KindImage:
		resp, err = f.client.UploadImage(ctx, name, file, mimeType)
	default:
		err = fmt.Errorf("upload: unsupported kind %q", kind)
	}
	if err != nil {
		return nil, f.fail(cb, err)
	}

	res := Result{Kind: kind, Filename: name, MimeType: mimeType, Message: resp.Message}
	if resp.Filename != "" {
		res.Filename = resp.Filename
	}
	f.succeed(ctx, cb, res)
	return &res, nil
}

// UploadText submits raw text as a new item.
func (f *Flow) UploadText(ctx context.Context, text string, cb Callbacks) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, f.fail(cb, ErrEmptyText)
	}
	if err := f.precheck(); err != nil {
		return nil, f.fail(cb, err)
	}

	resp, err := f.client.CreateText(ctx, text)
	if err != nil {
		return nil, f.fail(cb, err)
	}
	res := Result{Kind: KindText, ID: resp.ID, MimeType: "application/json"}
	f.succeed(ctx, cb, res)
	return &res, nil
}

// precheck fails before any network call when the session is unusable.
func (f *Flow) precheck() error {
	configured, err := f.session.IsConfigured()
	if err != nil {
		return fmt.Errorf("upload: read session: %w", err)
	}
	if !configured {
		return api.ErrNotConfigured
	}
	loggedIn, err := f.session.IsLoggedIn()
	if err != nil {
		return fmt.Errorf("upload: read session: %w", err)
	}
	if !loggedIn {
		return api.ErrNotAuthenticated
	}
	return nil
}

func (f *Flow) succeed(ctx context.Context, cb Callbacks, res Result) {
	f.log.Info("upload accepted",
		zap.String("kind", string(res.Kind)),
		zap.String("filename", res.Filename),
		zap.Int("id", res.ID))
	if cb.OnSuccess != nil {
		cb.OnSuccess(res)
	}
	if f.bus == nil {
		return
	}
	ev := events.UploadCompleted{Kind: string(res.Kind), Filename: res.Filename, ID: res.ID}
	if err := f.bus.PublishUploadCompleted(ctx, ev); err != nil {
		f.log.Warn("publish upload.completed failed", zap.Error(err))
	}
}

func (f *Flow) fail(cb Callbacks, err error) error {
	msg := Message(err)
	f.log.Warn("upload failed", zap.String("notice", msg), zap.Error(err))
	if cb.OnError != nil {
		cb.OnError(msg, err)
	}
	return err
}

func (f *Flow) release(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.log.Warn("remove temp capture", zap.String("path", path), zap.Error(err))
	}
}

// Message renders an upload error for display.
func Message(err error) string {
	var netErr *api.NetworkError
	switch {
	case errors.Is(err, api.ErrNotConfigured), errors.Is(err, api.ErrNotAuthenticated), errors.As(err, &netErr):
		return api.UserMessage(err)
	case errors.Is(err, ErrEmptyText):
		return "nothing to upload: text is empty"
	default:
		return "upload failed: " + api.UserMessage(err)
	}
}

// resolveMime returns the job's mime type, sniffing the file when unset.
// Parameters such as charset are dropped.
func resolveMime(job Job) (string, error) {
	mt := job.MimeType
	if mt == "" {
		detected, err := mimetype.DetectFile(job.Path)
		if err != nil {
			return "", fmt.Errorf("upload: detect type of %s: %w", job.Path, err)
		}
		mt = detected.String()
	}
	mt, _, _ = strings.Cut(mt, ";")
	return strings.TrimSpace(mt), nil
}

func kindFor(mimeType string) Kind {
	if strings.HasPrefix(mimeType, "audio/") {
		return KindAudio
	}
	return KindImage
}

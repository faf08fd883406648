// Package api is the typed REST client for the Paper-to-Plan backend.
//
// Credentials are never captured when the client is built: every request
// asks the CredentialSource for the current session, so a login that
// happens after construction is honored on the next call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/papertoplan/ptp/internal/session"
	"go.uber.org/zap"
)

// Header names carrying the credentials on every authenticated call.
const (
	HeaderUser      = "x-auth-user"
	HeaderPin       = "x-auth-pin"
	HeaderRequestID = "X-Request-ID"
)

// DefaultTimeout bounds every request so a poll can never hang forever.
const DefaultTimeout = 20 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 16 << 20

// CredentialSource yields the current session. *session.Store satisfies it.
type CredentialSource interface {
	Snapshot() (session.Session, error)
}

// Options configures a Client.
type Options struct {
	Resource   string        // "notes" or "consultations"; defaults to notes
	Timeout    time.Duration // per-request timeout; defaults to DefaultTimeout
	HTTPClient *http.Client  // optional; Timeout is applied when it has none
	Logger     *zap.Logger
}

// Client attaches the current credentials to every outgoing request.
type Client struct {
	src      CredentialSource
	resource string
	http     *http.Client
	log      *zap.Logger
}

// New creates a Client reading credentials from src at send time.
func New(src CredentialSource, opts Options) (*Client, error) {
	if src == nil {
		return nil, fmt.Errorf("api: credential source is required")
	}
	resource := opts.Resource
	if resource == "" {
		resource = "notes"
	}
	if resource != "notes" && resource != "consultations" {
		return nil, fmt.Errorf("api: unknown resource %q", resource)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	} else if hc.Timeout == 0 {
		cp := *hc
		cp.Timeout = timeout
		hc = &cp
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{src: src, resource: resource, http: hc, log: log}, nil
}

// Resource returns the list resource this client targets.
func (c *Client) Resource() string {
	return c.resource
}

// Session returns the credentials the next request would carry.
func (c *Client) Session() (session.Session, error) {
	return c.src.Snapshot()
}

// usableSession reads the session and checks it can serve a request.
func (c *Client) usableSession(auth bool) (session.Session, error) {
	snap, err := c.src.Snapshot()
	if err != nil {
		return session.Session{}, fmt.Errorf("api: read session: %w", err)
	}
	if !snap.IsConfigured() {
		return session.Session{}, ErrNotConfigured
	}
	if auth && !snap.IsAuthenticated() {
		return session.Session{}, ErrNotAuthenticated
	}
	return snap, nil
}

// newRequest resolves the base URL and credentials at call time. It fails
// before any network I/O when the session is not usable.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, auth bool) (*http.Request, error) {
	snap, err := c.usableSession(auth)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, snap.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	if auth {
		req.Header.Set(HeaderUser, snap.Username)
		req.Header.Set(HeaderPin, snap.Pin)
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	op := req.Method + " " + req.URL.Path
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("op", op),
			zap.String("request_id", req.Header.Get(HeaderRequestID)),
			zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug("request done",
		zap.String("op", op),
		zap.String("request_id", req.Header.Get(HeaderRequestID)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(op, resp, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("api: %s: decode response: %w", op, err)
	}
	return nil
}

// getJSON performs an authenticated GET.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodGet, path, nil, out, true)
}

// sendJSON performs an authenticated request with an optional JSON body.
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	return c.send(ctx, method, path, in, out, true)
}

// send encodes in as the JSON body when non-nil and decodes the reply into out.
func (c *Client) send(ctx context.Context, method, path string, in, out any, auth bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: %s %s: encode request: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body, auth)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrNotConfigured is returned before any I/O when no base URL is set.
var ErrNotConfigured = errors.New("api: no backend configured")

// ErrNotAuthenticated is returned before any I/O when an authenticated call
// is made without a username and pin.
var ErrNotAuthenticated = errors.New("api: not authenticated")

// NetworkError wraps a transport-level failure: timeout, DNS, refused
// connection. No response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: %s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline or timeout.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// HTTPError is a non-2xx response. Message carries the server-provided
// detail when the body had one.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: %s: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s: %s", e.Op, e.Status)
}

// Unauthorized reports whether the server rejected the credentials.
func (e *HTTPError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// maxErrorMessage bounds how much of a non-JSON body ends up in a message.
const maxErrorMessage = 200

func newHTTPError(op string, resp *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    errorMessage(body),
	}
}

// errorMessage extracts "detail" (FastAPI) or "message" from a JSON body,
// falling back to the trimmed raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var detail string
		if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
			return detail
		}
		if len(payload.Detail) > 0 && string(payload.Detail) != "null" {
			return string(payload.Detail)
		}
		if payload.Message != "" {
			return payload.Message
		}
		return ""
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage] + "..."
	}
	return msg
}

// UserMessage converts an error into a notice suitable for showing to the
// person at the keyboard.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var netErr *NetworkError
	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "no backend configured: pair this device first"
	case errors.Is(err, ErrNotAuthenticated):
		return "not logged in"
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return "network failure: request timed out"
		}
		return fmt.Sprintf("network failure: %v", netErr.Err)
	case errors.As(err, &httpErr):
		if httpErr.Message != "" {
			return fmt.Sprintf("server error (%d): %s", httpErr.StatusCode, httpErr.Message)
		}
		return fmt.Sprintf("server error (%d)", httpErr.StatusCode)
	default:
		return err.Error()
	}
}

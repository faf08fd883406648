package api

import (
	"context"
	"net/http"
)

// Login checks username and pin against the backend. The candidate
// credentials are sent explicitly, not read from the session, since they are
// only persisted once the server accepts them.
func (c *Client) Login(ctx context.Context, username, pin string) (*LoginResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/login", nil, false)
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderUser, username)
	req.Header.Set(HeaderPin, pin)

	var out LoginResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status calls the unauthenticated health endpoint. It only needs a base URL.
func (c *Client) Status(ctx context.Context) (*ServiceStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/status", nil, false)
	if err != nil {
		return nil, err
	}
	var out ServiceStatus
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

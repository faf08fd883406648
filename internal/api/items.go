package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) itemPath(id int) string {
	return fmt.Sprintf("/api/%s/%d", c.resource, id)
}

// List fetches the summary list of the configured resource.
func (c *Client) List(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.getJSON(ctx, "/api/"+c.resource, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Get fetches the detail record for id.
func (c *Client) Get(ctx context.Context, id int) (*Detail, error) {
	var d Detail
	if err := c.getJSON(ctx, c.itemPath(id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateText submits raw text as a new item and returns the server's ack.
func (c *Client) CreateText(ctx context.Context, text string) (*CreatedResponse, error) {
	var out CreatedResponse
	in := map[string]string{"text": text}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/"+c.resource+"/text", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the item.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.sendJSON(ctx, http.MethodDelete, c.itemPath(id), nil, nil)
}

// Regenerate re-runs AI processing over replacement raw text.
func (c *Client) Regenerate(ctx context.Context, id int, rawText string) error {
	in := map[string]string{"raw_text": rawText}
	return c.sendJSON(ctx, http.MethodPost, c.itemPath(id)+"/regenerate", in, nil)
}

// MarkCompleted flags a note as completed.
func (c *Client) MarkCompleted(ctx context.Context, id int) error {
	return c.sendJSON(ctx, http.MethodPost, c.itemPath(id)+"/complete", nil, nil)
}

// MarkReviewed flags a consultation as reviewed. Callers re-fetch afterwards
// rather than patching their local copy.
func (c *Client) MarkReviewed(ctx context.Context, id int) error {
	return c.sendJSON(ctx, http.MethodPost, c.itemPath(id)+"/review", nil, nil)
}

// Stats fetches aggregate counts.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.getJSON(ctx, "/api/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Users lists backend users. Like the other /api/users calls it needs only
// a base URL, since the login screen uses it before anyone is logged in.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.send(ctx, http.MethodGet, "/api/users", nil, &users, false); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser registers a user with a pin.
func (c *Client) CreateUser(ctx context.Context, username, pin string) error {
	return c.send(ctx, http.MethodPost, "/api/users", User{Username: username, Pin: pin}, nil, false)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.send(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(username), nil, nil, false)
}

// UpdateBackendConfig changes the AI host and models used by the backend.
func (c *Client) UpdateBackendConfig(ctx context.Context, cfg BackendConfig) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/config", cfg, nil)
}

// TestConnection asks the backend to probe its AI host. The result is
// returned as loosely typed JSON.
func (c *Client) TestConnection(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.getJSON(ctx, "/api/config/test", &out); err != nil {
		return nil, err
	}
	return out, nil
}

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// FileField is the multipart field name the backend reads uploads from.
const FileField = "file"

// UploadImage posts an image as multipart field "file" to /api/upload.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader, contentType string) (*UploadResponse, error) {
	return c.upload(ctx, "/api/upload", filename, r, contentType)
}

// UploadAudio posts a recording as multipart field "file" to /api/upload_audio.
func (c *Client) UploadAudio(ctx context.Context, filename string, r io.Reader, contentType string) (*UploadResponse, error) {
	return c.upload(ctx, "/api/upload_audio", filename, r, contentType)
}

func (c *Client) upload(ctx context.Context, path, filename string, r io.Reader, contentType string) (*UploadResponse, error) {
	// Check the session before reading the file so a precondition failure
	// costs nothing.
	if _, err := c.usableSession(true); err != nil {
		return nil, err
	}

	body, formType, err := multipartBody(filename, r, contentType)
	if err != nil {
		return nil, fmt.Errorf("api: POST %s: %w", path, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, body, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", formType)

	var out UploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody builds a single-part form with an explicit part
// Content-Type, which multipart.Writer.CreateFormFile does not allow.
func multipartBody(filename string, r io.Reader, contentType string) (*bytes.Buffer, string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FileField, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/papertoplan/ptp/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_MultipartFileField(t *testing.T) {
	type got struct {
		path, filename, partType, content, user string
	}
	results := make(chan got, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile(FileField)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		results <- got{r.URL.Path, hdr.Filename, hdr.Header.Get("Content-Type"), string(b), r.Header.Get(HeaderUser)}
		w.Write([]byte(`{"status":"success","filename":"` + hdr.Filename + `","message":"Image uploaded and processing started."}`))
	}))
	defer srv.Close()

	c := newTestClient(t, &fakeSource{sess: session.Session{BaseURL: srv.URL, Username: "ana", Pin: "1234"}}, "notes")

	resp, err := c.UploadImage(context.Background(), "page.jpg", strings.NewReader("JPEGDATA"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, got{"/api/upload", "page.jpg", "image/jpeg", "JPEGDATA", "ana"}, <-results)

	_, err = c.UploadAudio(context.Background(), "memo.m4a", strings.NewReader("AUDIO"), "audio/mp4")
	require.NoError(t, err)
	assert.Equal(t, got{"/api/upload_audio", "memo.m4a", "audio/mp4", "AUDIO", "ana"}, <-results)
}

func TestUpload_ServerRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"disk full"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, &fakeSource{sess: session.Session{BaseURL: srv.URL, Username: "ana", Pin: "1234"}}, "notes")
	_, err := c.UploadImage(context.Background(), "page.jpg", strings.NewReader("x"), "image/jpeg")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "disk full", httpErr.Message)
}

func TestMultipartBody_DefaultsAndEscaping(t *testing.T) {
	body, formType, err := multipartBody(`we"ird.bin`, strings.NewReader("x"), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(formType, "multipart/form-data; boundary="))
	s := body.String()
	assert.Contains(t, s, `filename="we\"ird.bin"`)
	assert.Contains(t, s, "Content-Type: application/octet-stream")
}

package slack

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/papertoplan/ptp/internal/notify"
	slackapi "github.com/slack-go/slack"
)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu      sync.Mutex
	posted  []postedMessage
	errs    []error // returned in order, then success
	attempt int
}

type postedMessage struct {
	channelID string
	options   []slackapi.MsgOption
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempt++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", "", err
	}
	m.posted = append(m.posted, postedMessage{channelID: channelID, options: options})
	return channelID, "1234567890.123456", nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(AdapterOpts{ChannelID: "C1"}); err == nil || !strings.Contains(err.Error(), "bot token") {
		t.Errorf("expected bot token error, got %v", err)
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb-1"}); err == nil || !strings.Contains(err.Error(), "channel") {
		t.Errorf("expected channel error, got %v", err)
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb-1", ChannelID: "C1"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSend_PostsToChannel(t *testing.T) {
	mock := &mockSlackClient{}
	a, err := New(AdapterOpts{ChannelID: "C123", Client: mock})
	if err != nil {
		t.Fatal(err)
	}
	msg := notify.FormatChange(notify.StatusChange{ID: 4, Title: "CRM plan", Old: "processing", New: "processed"})
	if err := a.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(mock.posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(mock.posted))
	}
	if mock.posted[0].channelID != "C123" {
		t.Errorf("channel = %q, want C123", mock.posted[0].channelID)
	}
	if len(mock.posted[0].options) != 2 {
		t.Errorf("options = %d, want text + attachment", len(mock.posted[0].options))
	}
}

func TestSend_RetriesOnRateLimit(t *testing.T) {
	mock := &mockSlackClient{errs: []error{
		&slackapi.RateLimitedError{RetryAfter: time.Millisecond},
		&slackapi.RateLimitedError{RetryAfter: time.Millisecond},
	}}
	a, _ := New(AdapterOpts{ChannelID: "C1", Client: mock})
	if err := a.Send(context.Background(), notify.Message{Text: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if mock.attempt != 3 {
		t.Errorf("attempts = %d, want 3", mock.attempt)
	}
}

func TestSend_OtherErrorsNotRetried(t *testing.T) {
	mock := &mockSlackClient{errs: []error{errors.New("channel_not_found")}}
	a, _ := New(AdapterOpts{ChannelID: "C1", Client: mock})
	err := a.Send(context.Background(), notify.Message{Text: "hi"})
	if err == nil || !strings.Contains(err.Error(), "slack: post message") {
		t.Fatalf("err = %v, want wrapped post error", err)
	}
	if mock.attempt != 1 {
		t.Errorf("attempts = %d, want 1", mock.attempt)
	}
}

func TestRetryOnRateLimit_GivesUp(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	})
	var rle *slackapi.RateLimitedError
	if !errors.As(err, &rle) {
		t.Errorf("err = %v, want rate limit error", err)
	}
	if calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxRetries+1)
	}
}

func TestRetryOnRateLimit_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryOnRateLimit(ctx, func() error {
		return &slackapi.RateLimitedError{RetryAfter: time.Hour}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBuildMessageOptions_TextOnly(t *testing.T) {
	if opts := buildMessageOptions(notify.Message{Text: "hello"}); len(opts) != 1 {
		t.Errorf("expected 1 option, got %d", len(opts))
	}
}

func TestToAttachment(t *testing.T) {
	att := toAttachment(notify.Message{
		Text:   "fallback",
		Title:  "Digest",
		Body:   "3 items",
		Color:  notify.ColorInfo,
		Fields: []notify.Field{{Name: "Completed", Value: "2", Short: true}},
	})
	if att.Title != "Digest" || att.Text != "3 items" || att.Fallback != "fallback" || att.Color != notify.ColorInfo {
		t.Errorf("attachment = %+v", att)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "Completed" || !att.Fields[0].Short {
		t.Errorf("fields = %+v", att.Fields)
	}
}

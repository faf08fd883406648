package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingRefresher struct {
	n int32
}

func (c *countingRefresher) Refresh() { atomic.AddInt32(&c.n, 1) }

func (c *countingRefresher) count() int32 { return atomic.LoadInt32(&c.n) }

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestOnUploadCompleted_DeliversPayload(t *testing.T) {
	bus := NewBus(zap.NewNop())
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan UploadCompleted, 1)
	require.NoError(t, bus.OnUploadCompleted(ctx, func(ev UploadCompleted) { got <- ev }))

	require.NoError(t, bus.PublishUploadCompleted(ctx, UploadCompleted{Kind: "image", Filename: "page.jpg"}))

	select {
	case ev := <-got:
		assert.Equal(t, UploadCompleted{Kind: "image", Filename: "page.jpg"}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestSubscribeRefresh_OneRefreshPerUpload(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &countingRefresher{}
	require.NoError(t, SubscribeRefresh(ctx, bus, r))

	require.NoError(t, bus.PublishUploadCompleted(ctx, UploadCompleted{Kind: "audio", Filename: "memo.m4a"}))
	require.NoError(t, bus.PublishUploadCompleted(ctx, UploadCompleted{Kind: "text", ID: 4}))

	eventually(t, func() bool { return r.count() == 2 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), r.count())
}

func TestPublish_NoSubscriberIsNotAnError(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()
	assert.NoError(t, bus.PublishUploadCompleted(context.Background(), UploadCompleted{Kind: "image"}))
}

func TestPublish_AfterClose(t *testing.T) {
	bus := NewBus(nil)
	require.NoError(t, bus.Close())
	err := bus.PublishUploadCompleted(context.Background(), UploadCompleted{Kind: "image"})
	assert.Error(t, err)
}

func TestOnUploadCompleted_MalformedPayloadIsSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := NewBus(zap.New(core))
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &countingRefresher{}
	require.NoError(t, SubscribeRefresh(ctx, bus, r))

	require.NoError(t, bus.pubsub.Publish(TopicUploadCompleted, message.NewMessage(watermill.NewUUID(), []byte("{not json"))))
	require.NoError(t, bus.PublishUploadCompleted(ctx, UploadCompleted{Kind: "image"}))

	eventually(t, func() bool { return r.count() == 1 })
	eventually(t, func() bool { return logs.FilterMessage("dropping malformed event").Len() == 1 })
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := newZapAdapter(zap.New(core)).With(watermill.LogFields{"topic": "t"})

	a.Info("subscribed", nil)
	a.Error("failed", errors.New("boom"), watermill.LogFields{"n": 1})
	a.Trace("ignored", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, "t", entries[0].ContextMap()["topic"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

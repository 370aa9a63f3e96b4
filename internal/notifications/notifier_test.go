package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"docflow/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	ctx := context.Background()

	assert.NoError(t, n.PublishWorkflowEvent(ctx, WorkflowEvent{RequestID: 1}))
	assert.NoError(t, n.PublishChatMessage(ctx, "hi"))
	assert.NoError(t, n.PublishUser(ctx, 1, "hi"))
	assert.NoError(t, n.StartPatternSubscriber(ctx, func(string, string) {
		t.Fatal("no messages expected without redis")
	}))
}

func setupNotifier(t *testing.T) *Notifier {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewNotifier(rdb)
}

func TestNotifier_PatternSubscriberReceivesAllChannels(t *testing.T) {
	n := setupNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type received struct{ channel, payload string }
	got := make(chan received, 8)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		got <- received{channel, payload}
	}))

	// PSubscribe setup races with the first publish.
	time.Sleep(50 * time.Millisecond)

	event := WorkflowEvent{
		RequestID: 12,
		Title:     "Draft release notes",
		From:      models.StatusReview,
		To:        models.StatusApproval,
		ActorID:   3,
		At:        time.Now().UTC(),
	}
	require.NoError(t, n.PublishWorkflowEvent(ctx, event))
	require.NoError(t, n.PublishChatMessage(ctx, `{"body":"hi"}`))
	require.NoError(t, n.PublishUser(ctx, 7, "ping"))

	byChannel := map[string]string{}
	for i := 0; i < 3; i++ {
		select {
		case r := <-got:
			byChannel[r.channel] = r.payload
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}

	var decoded WorkflowEvent
	require.NoError(t, json.Unmarshal([]byte(byChannel[WorkflowChannel]), &decoded))
	assert.Equal(t, uint(12), decoded.RequestID)
	assert.Equal(t, models.StatusApproval, decoded.To)

	assert.JSONEq(t, `{"body":"hi"}`, byChannel[ChatChannel])
	assert.Equal(t, "ping", byChannel["notifications:user:7"])
}

func TestHub_StartWiringRoutesEvents(t *testing.T) {
	n := setupNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	alice, err := hub.Register(1, &websocket.Conn{})
	require.NoError(t, err)
	bob, err := hub.Register(2, &websocket.Conn{})
	require.NoError(t, err)

	require.NoError(t, hub.StartWiring(ctx, n))
	time.Sleep(50 * time.Millisecond)

	// Workflow events fan out to everyone.
	require.NoError(t, n.PublishWorkflowEvent(ctx, WorkflowEvent{RequestID: 5}))
	for _, c := range []*Client{alice, bob} {
		select {
		case msg := <-c.Send:
			assert.Contains(t, string(msg), `"request_id":5`)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for workflow event")
		}
	}

	// Targeted notifications reach only their user.
	require.NoError(t, n.PublishUser(ctx, 2, "for bob"))
	select {
	case msg := <-bob.Send:
		assert.Equal(t, "for bob", string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for targeted notification")
	}
	select {
	case msg := <-alice.Send:
		t.Fatalf("alice must not receive bob's notification, got %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

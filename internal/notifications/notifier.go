// Package notifications provides real-time event delivery over Redis pub/sub
// and websockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"docflow/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// WorkflowChannel carries request lifecycle events for all listeners.
	WorkflowChannel = "workflow:events"
	// ChatChannel carries team chat messages.
	ChatChannel = "chat:team"
	// userChannelPattern is the per-user targeted notification channel.
	userChannelPattern = "notifications:user:%d"
)

// WorkflowEvent is the payload published on every status transition.
type WorkflowEvent struct {
	RequestID uint                 `json:"request_id"`
	Title     string               `json:"title"`
	From      models.RequestStatus `json:"from"`
	To        models.RequestStatus `json:"to"`
	ActorID   uint                 `json:"actor_id"`
	At        time.Time            `json:"at"`
}

// Notifier provides helpers to publish events into Redis channels.
// All methods are no-ops when no Redis client is configured.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishWorkflowEvent publishes a status transition to the workflow channel.
func (n *Notifier) PublishWorkflowEvent(ctx context.Context, event WorkflowEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal workflow event: %w", err)
	}
	return n.rdb.Publish(ctx, WorkflowChannel, string(payload)).Err()
}

// PublishChatMessage publishes a team chat message to the chat channel.
func (n *Notifier) PublishChatMessage(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, ChatChannel, payload).Err()
}

// PublishUser sends a targeted notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	channel := fmt.Sprintf(userChannelPattern, userID)
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// StartPatternSubscriber subscribes to the workflow, chat, and per-user
// channels and calls onMessage for each incoming message. onMessage receives
// channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, WorkflowChannel, ChatChannel, "notifications:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/notifications"
	"docflow/internal/repository"
)

// ChatService implements the single team chat channel. Messages are
// persisted, fanned out over Redis pub/sub, and optionally mirrored to an
// external webhook.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	notifier *notifications.Notifier
	mirror   *notifications.WebhookMirror
}

// NewChatService creates a new ChatService.
func NewChatService(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	notifier *notifications.Notifier,
	mirror *notifications.WebhookMirror,
) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		notifier: notifier,
		mirror:   mirror,
	}
}

const maxChatMessageLen = 4000

// PostMessage stores and broadcasts a chat message.
func (s *ChatService) PostMessage(ctx context.Context, actor Actor, body string) (*models.ChatMessage, error) {
	if body == "" {
		return nil, models.NewValidationError("Message is required")
	}
	if len(body) > maxChatMessageLen {
		return nil, models.NewValidationError("Message too long (max 4000 characters)")
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		UserID: actor.UserID,
		Body:   body,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	msg.User = user

	if s.notifier != nil {
		if payload, marshalErr := json.Marshal(msg); marshalErr == nil {
			if pubErr := s.notifier.PublishChatMessage(ctx, string(payload)); pubErr != nil {
				middleware.SideChannelFailures.WithLabelValues("chat_publish").Inc()
				middleware.Logger.WarnContext(ctx, "failed to publish chat message",
					slog.String("error", pubErr.Error()))
			}
		}
	}

	// Mirror to the external webhook without blocking the sender.
	if s.mirror.Enabled() {
		s.mirror.PostAsync(user.Name, body)
	}

	return msg, nil
}

// History returns the most recent messages in chronological order.
func (s *ChatService) History(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	return s.chatRepo.ListRecent(ctx, limit)
}

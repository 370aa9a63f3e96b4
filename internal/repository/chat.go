package repository

import (
	"context"

	"docflow/internal/cache"
	"docflow/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines persistence operations for the team chat channel.
type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	ListRecent(ctx context.Context, limit int) ([]*models.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository returns a new ChatRepository implementation.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.ChatHistoryKey)
	return nil
}

// ListRecent returns the newest messages in chronological order.
func (r *chatRepository) ListRecent(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var messages []*models.ChatMessage
	if err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	// Reverse to chronological order for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

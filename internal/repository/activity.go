package repository

import (
	"context"

	"docflow/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository defines persistence operations for the append-only
// activity log. Entries are never updated or deleted.
type ActivityRepository interface {
	Append(ctx context.Context, activity *models.Activity) error
	ListByRequest(ctx context.Context, requestID uint) ([]*models.Activity, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Activity, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns a new ActivityRepository implementation.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(ctx context.Context, activity *models.Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListByRequest returns a request's activity entries newest first.
func (r *activityRepository) ListByRequest(ctx context.Context, requestID uint) ([]*models.Activity, error) {
	var activities []*models.Activity
	if err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Where("request_id = ?", requestID).
		Order("created_at DESC").
		Find(&activities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return activities, nil
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	var activities []*models.Activity
	if err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return activities, nil
}

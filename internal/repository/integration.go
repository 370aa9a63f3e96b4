package repository

import (
	"context"

	"docflow/internal/models"

	"gorm.io/gorm"
)

// IntegrationRepository defines persistence operations for inbound webhook logs.
type IntegrationRepository interface {
	CreateLog(ctx context.Context, entry *models.IntegrationLog) error
	ListLogs(ctx context.Context, limit, offset int) ([]*models.IntegrationLog, error)
}

type integrationRepository struct {
	db *gorm.DB
}

// NewIntegrationRepository returns a new IntegrationRepository implementation.
func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) CreateLog(ctx context.Context, entry *models.IntegrationLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *integrationRepository) ListLogs(ctx context.Context, limit, offset int) ([]*models.IntegrationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var logs []*models.IntegrationLog
	q := readDB(r.db).WithContext(ctx).Order("created_at DESC").Limit(limit)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return logs, nil
}

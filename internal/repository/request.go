package repository

import (
	"context"
	"errors"
	"time"

	"docflow/internal/cache"
	"docflow/internal/models"

	"gorm.io/gorm"
)

// RequestFilter narrows List results. Zero values mean "no filter".
type RequestFilter struct {
	Status  models.RequestStatus
	Type    models.RequestType
	OwnerID uint
	Query   string
	Limit   int
	Offset  int
}

// RequestRepository defines persistence operations for workflow requests.
type RequestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id uint) (*models.Request, error)
	GetByIDWithActivities(ctx context.Context, id uint) (*models.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]*models.Request, error)
	ListSince(ctx context.Context, since time.Time) ([]*models.Request, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, req *models.Request) error
	UpdateStatusCAS(ctx context.Context, req *models.Request, expectedVersion uint) error
	Delete(ctx context.Context, id uint) error
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository returns a new RequestRepository implementation.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *models.Request) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.RequestsListKey)
	cache.Invalidate(ctx, cache.MetricsSummaryKey)
	return nil
}

// requestCacheEntry wraps a cached request. RowVersion is excluded from the
// request's API JSON, so the envelope carries it explicitly; otherwise every
// cache hit would hand strict-mode transitions a zero version and force a
// spurious conflict.
type requestCacheEntry struct {
	Request    *models.Request `json:"request"`
	RowVersion uint            `json:"row_version"`
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (*models.Request, error) {
	var req models.Request
	entry := requestCacheEntry{Request: &req}
	key := cache.RequestKey(id)

	err := cache.Aside(ctx, key, &entry, cache.RequestTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).
			Preload("Owner").
			First(&req, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Request", id)
			}
			return models.NewInternalError(err)
		}
		entry.RowVersion = req.RowVersion
		return nil
	})

	if err != nil {
		return nil, err
	}
	req.RowVersion = entry.RowVersion
	return &req, nil
}

func (r *requestRepository) GetByIDWithActivities(ctx context.Context, id uint) (*models.Request, error) {
	var req models.Request
	if err := readDB(r.db).WithContext(ctx).
		Preload("Owner").
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Activities.User").
		First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]*models.Request, error) {
	var requests []*models.Request

	q := readDB(r.db).WithContext(ctx).Preload("Owner")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.OwnerID != 0 {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Order("updated_at DESC").Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

// ListSince loads every request created or updated after `since` with its
// activities in chronological order. Used by the metrics aggregator.
func (r *requestRepository) ListSince(ctx context.Context, since time.Time) ([]*models.Request, error) {
	var requests []*models.Request
	if err := readDB(r.db).WithContext(ctx).
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("created_at >= ? OR updated_at >= ?", since, since).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *requestRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Request{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *requestRepository) Update(ctx context.Context, req *models.Request) error {
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRequest(ctx, req.ID)
	return nil
}

// UpdateStatusCAS performs a conditional status update guarded by the row
// version. A stale version means another writer finished first and the caller
// gets a conflict instead of silently clobbering their transition.
func (r *requestRepository) UpdateStatusCAS(ctx context.Context, req *models.Request, expectedVersion uint) error {
	res := r.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ? AND row_version = ?", req.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":       req.Status,
			"published_at": req.PublishedAt,
			"row_version":  expectedVersion + 1,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("Request was modified concurrently")
	}
	req.RowVersion = expectedVersion + 1
	cache.InvalidateRequest(ctx, req.ID)
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Request{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Request", id)
	}
	cache.InvalidateRequest(ctx, id)
	return nil
}

package repository

import (
	"context"
	"errors"

	"docflow/internal/models"

	"gorm.io/gorm"
)

// KnowledgeRepository defines persistence operations for knowledge base items.
type KnowledgeRepository interface {
	Create(ctx context.Context, item *models.KnowledgeBaseItem) error
	GetByID(ctx context.Context, id uint) (*models.KnowledgeBaseItem, error)
	List(ctx context.Context, query string, limit, offset int) ([]*models.KnowledgeBaseItem, error)
	Update(ctx context.Context, item *models.KnowledgeBaseItem) error
	Delete(ctx context.Context, id uint) error
}

type knowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository returns a new KnowledgeRepository implementation.
func NewKnowledgeRepository(db *gorm.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

func (r *knowledgeRepository) Create(ctx context.Context, item *models.KnowledgeBaseItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *knowledgeRepository) GetByID(ctx context.Context, id uint) (*models.KnowledgeBaseItem, error) {
	var item models.KnowledgeBaseItem
	if err := readDB(r.db).WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("KnowledgeBaseItem", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &item, nil
}

func (r *knowledgeRepository) List(ctx context.Context, query string, limit, offset int) ([]*models.KnowledgeBaseItem, error) {
	var items []*models.KnowledgeBaseItem
	q := readDB(r.db).WithContext(ctx)
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("title ILIKE ? OR content ILIKE ?", like, like)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Order("updated_at DESC").Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *knowledgeRepository) Update(ctx context.Context, item *models.KnowledgeBaseItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *knowledgeRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.KnowledgeBaseItem{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("KnowledgeBaseItem", id)
	}
	return nil
}

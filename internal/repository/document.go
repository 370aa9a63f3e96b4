package repository

import (
	"context"
	"errors"

	"docflow/internal/cache"
	"docflow/internal/models"

	"gorm.io/gorm"
)

// DocumentRepository defines persistence operations for documents, their
// version snapshots and inline comments.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uint) (*models.Document, error)
	List(ctx context.Context, limit, offset int) ([]*models.Document, error)
	Save(ctx context.Context, doc *models.Document, snapshot bool) error
	Delete(ctx context.Context, id uint) error
	ListVersions(ctx context.Context, documentID uint) ([]*models.DocumentVersion, error)
	AddComment(ctx context.Context, comment *models.DocumentComment) error
	ListComments(ctx context.Context, documentID uint) ([]*models.DocumentComment, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository returns a new DocumentRepository implementation.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	key := cache.DocumentKey(id)

	err := cache.Aside(ctx, key, &doc, cache.DocumentTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).First(&doc, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Document", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, limit, offset int) ([]*models.Document, error) {
	var docs []*models.Document
	q := readDB(r.db).WithContext(ctx)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Order("updated_at DESC").Find(&docs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return docs, nil
}

// Save persists the document and, when snapshot is true, records an immutable
// version snapshot in the same transaction.
func (r *documentRepository) Save(ctx context.Context, doc *models.Document, snapshot bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(doc).Error; err != nil {
			return err
		}
		if snapshot {
			version := models.DocumentVersion{
				DocumentID: doc.ID,
				Title:      doc.Title,
				Content:    doc.Content,
				Version:    doc.Version,
			}
			if err := tx.Create(&version).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateDocument(ctx, doc.ID)
	return nil
}

// Delete removes the document together with its versions and comments.
func (r *documentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentVersion{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Document{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Document", id)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateDocument(ctx, id)
	return nil
}

func (r *documentRepository) ListVersions(ctx context.Context, documentID uint) ([]*models.DocumentVersion, error) {
	var versions []*models.DocumentVersion
	if err := readDB(r.db).WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&versions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return versions, nil
}

func (r *documentRepository) AddComment(ctx context.Context, comment *models.DocumentComment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *documentRepository) ListComments(ctx context.Context, documentID uint) ([]*models.DocumentComment, error) {
	var comments []*models.DocumentComment
	if err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

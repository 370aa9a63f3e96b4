package service

import (
	"context"
	"time"

	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/policy"
	"docflow/internal/repository"
)

// documentEditors may create and update documents; deletion is restricted
// further to admins and managers.
var documentEditors = []models.Role{models.RoleAdmin, models.RoleManager, models.RoleEditor}

// DocumentService implements collaborative documents with version snapshots.
type DocumentService struct {
	docRepo repository.DocumentRepository
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(docRepo repository.DocumentRepository) *DocumentService {
	return &DocumentService{docRepo: docRepo}
}

// CreateDocumentInput is the payload for a new document.
type CreateDocumentInput struct {
	Actor       Actor
	Title       string
	Content     string
	Version     string
	Sections    []string
	PublishedAt *time.Time
}

// UpdateDocumentInput replaces document fields. Draft saves skip the version
// snapshot. SetPublishedAt distinguishes clearing the publish date from
// leaving it untouched.
type UpdateDocumentInput struct {
	Actor          Actor
	DocumentID     uint
	Title          *string
	Content        *string
	Version        *string
	Sections       *[]string
	PublishedAt    *time.Time
	SetPublishedAt bool
	Draft          bool
}

// CreateDocument stores a new document and records its first version snapshot.
func (s *DocumentService) CreateDocument(ctx context.Context, in CreateDocumentInput) (*models.Document, error) {
	if !policy.Authorize(in.Actor.Role, in.Actor.Extra, documentEditors) {
		middleware.PermissionDenials.WithLabelValues("create_document").Inc()
		return nil, models.NewPermissionDeniedError("Insufficient role to create documents")
	}
	if in.Title == "" || in.Content == "" {
		return nil, models.NewValidationError("Title and content are required")
	}

	version := in.Version
	if version == "" {
		version = "1.0"
	}
	sections := in.Sections
	if sections == nil {
		sections = []string{}
	}

	doc := &models.Document{
		Title:       in.Title,
		Content:     in.Content,
		Version:     version,
		Sections:    sections,
		PublishedAt: in.PublishedAt,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}
	// First snapshot accompanies every creation.
	if err := s.docRepo.Save(ctx, doc, true); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument returns a single document.
func (s *DocumentService) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	return s.docRepo.GetByID(ctx, id)
}

// ListDocuments returns documents, most recently updated first.
func (s *DocumentService) ListDocuments(ctx context.Context, limit, offset int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.docRepo.List(ctx, limit, offset)
}

// UpdateDocument replaces document fields. Non-draft saves record a version
// snapshot.
func (s *DocumentService) UpdateDocument(ctx context.Context, in UpdateDocumentInput) (*models.Document, error) {
	if !policy.Authorize(in.Actor.Role, in.Actor.Extra, documentEditors) {
		middleware.PermissionDenials.WithLabelValues("update_document").Inc()
		return nil, models.NewPermissionDeniedError("Insufficient role to update documents")
	}

	doc, err := s.docRepo.GetByID(ctx, in.DocumentID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		doc.Title = *in.Title
	}
	if in.Content != nil {
		if *in.Content == "" {
			return nil, models.NewValidationError("Content is required")
		}
		doc.Content = *in.Content
	}
	if in.Version != nil {
		doc.Version = *in.Version
	}
	if in.Sections != nil {
		doc.Sections = *in.Sections
	}
	if in.SetPublishedAt {
		doc.PublishedAt = in.PublishedAt
	}

	if err := s.docRepo.Save(ctx, doc, !in.Draft); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document with its versions and comments. Admins
// and managers only.
func (s *DocumentService) DeleteDocument(ctx context.Context, actor Actor, id uint) error {
	if !policy.Authorize(actor.Role, actor.Extra, []models.Role{models.RoleAdmin, models.RoleManager}) {
		middleware.PermissionDenials.WithLabelValues("delete_document").Inc()
		return models.NewPermissionDeniedError("Only admins and managers may delete documents")
	}
	return s.docRepo.Delete(ctx, id)
}

// ListVersions returns a document's version snapshots, newest first.
func (s *DocumentService) ListVersions(ctx context.Context, documentID uint) ([]*models.DocumentVersion, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.docRepo.ListVersions(ctx, documentID)
}

// AddComment attaches an inline comment to a document.
func (s *DocumentService) AddComment(ctx context.Context, actor Actor, documentID uint, body string) (*models.DocumentComment, error) {
	if body == "" {
		return nil, models.NewValidationError("Comment body is required")
	}
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	comment := &models.DocumentComment{
		DocumentID: documentID,
		UserID:     actor.UserID,
		Body:       body,
	}
	if err := s.docRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns a document's comments in chronological order.
func (s *DocumentService) ListComments(ctx context.Context, documentID uint) ([]*models.DocumentComment, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.docRepo.ListComments(ctx, documentID)
}

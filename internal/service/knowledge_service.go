package service

import (
	"context"
	"strings"

	"docflow/internal/models"
	"docflow/internal/repository"
)

// KnowledgeService implements the knowledge base.
type KnowledgeService struct {
	kbRepo repository.KnowledgeRepository
}

// NewKnowledgeService creates a new KnowledgeService.
func NewKnowledgeService(kbRepo repository.KnowledgeRepository) *KnowledgeService {
	return &KnowledgeService{kbRepo: kbRepo}
}

// KnowledgeItemInput is the payload for creating or replacing an item.
type KnowledgeItemInput struct {
	Title   string
	Content string
	Tags    []string
}

func (in *KnowledgeItemInput) validate() error {
	if in.Title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if in.Content == "" {
		return models.NewValidationError("Content is required")
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// CreateItem stores a new knowledge base item.
func (s *KnowledgeService) CreateItem(ctx context.Context, in KnowledgeItemInput) (*models.KnowledgeBaseItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	item := &models.KnowledgeBaseItem{
		Title:   in.Title,
		Content: in.Content,
		Tags:    normalizeTags(in.Tags),
	}
	if err := s.kbRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns a single item.
func (s *KnowledgeService) GetItem(ctx context.Context, id uint) (*models.KnowledgeBaseItem, error) {
	return s.kbRepo.GetByID(ctx, id)
}

// ListItems returns items, optionally filtered by a search query and tag.
// The tag filter runs after the text match since tags are stored serialized.
func (s *KnowledgeService) ListItems(ctx context.Context, query, tag string, limit, offset int) ([]*models.KnowledgeBaseItem, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	items, err := s.kbRepo.List(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return items, nil
	}

	tag = strings.ToLower(strings.TrimSpace(tag))
	filtered := make([]*models.KnowledgeBaseItem, 0, len(items))
	for _, item := range items {
		for _, t := range item.Tags {
			if t == tag {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered, nil
}

// UpdateItem replaces an item's content.
func (s *KnowledgeService) UpdateItem(ctx context.Context, id uint, in KnowledgeItemInput) (*models.KnowledgeBaseItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	item, err := s.kbRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Title = in.Title
	item.Content = in.Content
	item.Tags = normalizeTags(in.Tags)
	if err := s.kbRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item.
func (s *KnowledgeService) DeleteItem(ctx context.Context, id uint) error {
	return s.kbRepo.Delete(ctx, id)
}

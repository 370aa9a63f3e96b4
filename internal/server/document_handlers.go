package server

import (
	"time"

	"docflow/internal/models"
	"docflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateDocumentPayload is the body for document creation.
type CreateDocumentPayload struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Version     string     `json:"version"`
	Sections    []string   `json:"sections"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// UpdateDocumentPayload carries partial document updates. SetPublishedAt
// distinguishes clearing the publish date from leaving it untouched.
type UpdateDocumentPayload struct {
	Title          *string    `json:"title"`
	Content        *string    `json:"content"`
	Version        *string    `json:"version"`
	Sections       *[]string  `json:"sections"`
	PublishedAt    *time.Time `json:"publishedAt"`
	SetPublishedAt bool       `json:"setPublishedAt"`
}

// DocumentCommentPayload is a reader comment on a document.
type DocumentCommentPayload struct {
	Body string `json:"body"`
}

// GetDocuments lists documents.
func (s *Server) GetDocuments(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	docs, err := s.documentService.ListDocuments(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"documents": docs, "count": len(docs)})
}

// GetDocument returns one document.
func (s *Server) GetDocument(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	doc, err := s.documentService.GetDocument(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(doc)
}

// CreateDocument creates a document and records its first version snapshot.
func (s *Server) CreateDocument(c *fiber.Ctx) error {
	var payload CreateDocumentPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	doc, err := s.documentService.CreateDocument(c.UserContext(), service.CreateDocumentInput{
		Actor:       s.actor(c),
		Title:       payload.Title,
		Content:     payload.Content,
		Version:     payload.Version,
		Sections:    payload.Sections,
		PublishedAt: payload.PublishedAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// UpdateDocument applies edits. A ?draft=1 save skips the version snapshot.
func (s *Server) UpdateDocument(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	var payload UpdateDocumentPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	doc, err := s.documentService.UpdateDocument(c.UserContext(), service.UpdateDocumentInput{
		Actor:          s.actor(c),
		DocumentID:     id,
		Title:          payload.Title,
		Content:        payload.Content,
		Version:        payload.Version,
		Sections:       payload.Sections,
		PublishedAt:    payload.PublishedAt,
		SetPublishedAt: payload.SetPublishedAt,
		Draft:          c.QueryBool("draft", false),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(doc)
}

// DeleteDocument removes a document with its versions and comments.
func (s *Server) DeleteDocument(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := s.documentService.DeleteDocument(c.UserContext(), s.actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// GetDocumentVersions returns a document's version history, newest first.
func (s *Server) GetDocumentVersions(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	versions, err := s.documentService.ListVersions(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"versions": versions})
}

// GetDocumentComments returns a document's comments in chronological order.
func (s *Server) GetDocumentComments(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	comments, err := s.documentService.ListComments(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// CreateDocumentComment adds a comment to a document.
func (s *Server) CreateDocumentComment(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	var payload DocumentCommentPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	comment, err := s.documentService.AddComment(c.UserContext(), s.actor(c), id, payload.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

package server

import (
	"strings"
	"time"

	"docflow/internal/models"
	"docflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateRequestPayload is the JSON body for request creation.
type CreateRequestPayload struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Audience    string     `json:"audience"`
	Type        string     `json:"type"`
	SlaDays     int        `json:"slaDays"`
	DueAt       *time.Time `json:"dueAt"`
	OwnerID     uint       `json:"ownerId"`
}

// PatchRequestPayload carries partial updates. Null dueAt clears a deadline,
// absent dueAt leaves it untouched; the two are distinguished by presence.
type PatchRequestPayload struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Audience    *string    `json:"audience"`
	Type        *string    `json:"type"`
	Status      *string    `json:"status"`
	OwnerID     *uint      `json:"ownerId"`
	SlaDays     *int       `json:"slaDays"`
	DueAt       *time.Time `json:"dueAt"`
	ClearDueAt  bool       `json:"clearDueAt"`
}

// SetStatusPayload moves a request through the delivery pipeline.
type SetStatusPayload struct {
	Status string `json:"status"`
}

// CommentPayload is a free-form activity comment. Clients may post either a
// bare text or a pre-tagged "comment:<text>" action.
type CommentPayload struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

// GetRequests lists workflow requests with optional filters.
func (s *Server) GetRequests(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	requests, err := s.requestService.ListRequests(c.UserContext(), service.ListRequestsInput{
		Status:  models.RequestStatus(c.Query("status")),
		Type:    models.RequestType(c.Query("type")),
		OwnerID: uint(c.QueryInt("ownerId", 0)),
		Query:   c.Query("q"),
		Limit:   p.Limit,
		Offset:  p.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"requests": requests, "count": len(requests)})
}

// CreateRequest creates a new workflow request in the NEW state.
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	var payload CreateRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req, err := s.requestService.CreateRequest(c.UserContext(), service.CreateRequestInput{
		Actor:       s.actor(c),
		Title:       payload.Title,
		Description: payload.Description,
		Audience:    payload.Audience,
		Type:        models.RequestType(payload.Type),
		SlaDays:     payload.SlaDays,
		DueAt:       payload.DueAt,
		OwnerID:     payload.OwnerID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// GetRequest returns one request with its owner and activity feed.
func (s *Server) GetRequest(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	req, err := s.requestService.GetRequestDetail(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// PatchRequest applies partial field updates, enforcing per-field role gates.
func (s *Server) PatchRequest(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var payload PatchRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.PatchRequestInput{
		Actor:       s.actor(c),
		RequestID:   id,
		Title:       payload.Title,
		Description: payload.Description,
		Audience:    payload.Audience,
		OwnerID:     payload.OwnerID,
		SlaDays:     payload.SlaDays,
		DueAt:       payload.DueAt,
		ClearDueAt:  payload.ClearDueAt,
	}
	if payload.Type != nil {
		t := models.RequestType(*payload.Type)
		in.Type = &t
	}
	if payload.Status != nil {
		st := models.RequestStatus(*payload.Status)
		in.Status = &st
	}

	req, err := s.requestService.PatchRequest(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// SetRequestStatus transitions a request to a new pipeline state.
func (s *Server) SetRequestStatus(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var payload SetStatusPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req, err := s.requestService.SetStatus(c.UserContext(), s.actor(c), id,
		models.RequestStatus(payload.Status))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(req)
}

// DeleteRequest removes a request and its activity trail.
func (s *Server) DeleteRequest(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	if err := s.requestService.DeleteRequest(c.UserContext(), s.actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// GetActivities returns a request's activity log, newest first.
func (s *Server) GetActivities(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}
	activities, err := s.requestService.ListActivities(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"activities": activities})
}

// CreateActivity appends a comment to a request's activity log.
func (s *Server) CreateActivity(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return nil
	}

	var payload CommentPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	text := payload.Text
	if text == "" {
		text = strings.TrimPrefix(payload.Action, models.ActionCommentPrefix)
	}

	activity, err := s.requestService.AddComment(c.UserContext(), s.actor(c), id, text)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(activity)
}

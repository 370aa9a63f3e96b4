package server

import (
	"docflow/internal/models"
	"docflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// WebhookPayload is the generic inbound integration event body.
type WebhookPayload struct {
	System      string                 `json:"system"`
	Status      string                 `json:"status"`
	RequestID   *uint                  `json:"requestId"`
	Payload     map[string]interface{} `json:"payload"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Audience    string                 `json:"audience"`
	Type        string                 `json:"type"`
	SlaDays     int                    `json:"slaDays"`
	OwnerID     *uint                  `json:"ownerId"`
	Team        string                 `json:"team"`
}

// TrackerWebhookPayload is the issue-tracker shaped event body.
type TrackerWebhookPayload struct {
	Key     string                 `json:"key"`
	Summary string                 `json:"summary"`
	Fields  map[string]interface{} `json:"fields"`
}

// checkWebhookSecret validates the shared secret when one is configured.
// The secret arrives either in the x-docflow-secret header or ?secret= query.
func (s *Server) checkWebhookSecret(c *fiber.Ctx) bool {
	secret := s.config.IntegrationsWebhookSecret
	if secret == "" {
		return true
	}
	provided := c.Get("x-docflow-secret")
	if provided == "" {
		provided = c.Query("secret")
	}
	return provided == secret
}

// GetIntegrationLogs lists recorded inbound integration events.
func (s *Server) GetIntegrationLogs(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	logs, err := s.integrationService.ListLogs(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"logs": logs, "count": len(logs)})
}

// HandleIntegrationWebhook records an external system event, creating a new
// workflow request when the event does not reference an existing one.
func (s *Server) HandleIntegrationWebhook(c *fiber.Ctx) error {
	if !s.checkWebhookSecret(c) {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid webhook secret"))
	}

	var payload WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.integrationService.HandleWebhook(c.UserContext(), service.WebhookInput{
		System:      payload.System,
		Status:      payload.Status,
		RequestID:   payload.RequestID,
		Payload:     payload.Payload,
		Title:       payload.Title,
		Description: payload.Description,
		Audience:    payload.Audience,
		Type:        models.RequestType(payload.Type),
		SlaDays:     payload.SlaDays,
		OwnerID:     payload.OwnerID,
		Team:        payload.Team,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleTrackerWebhook accepts issue-tracker events and maps them onto the
// generic webhook pipeline with system "Tracker" and status "created".
func (s *Server) HandleTrackerWebhook(c *fiber.Ctx) error {
	if !s.checkWebhookSecret(c) {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid webhook secret"))
	}

	var payload TrackerWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	title := payload.Summary
	if title != "" && payload.Key != "" {
		title = payload.Key + ": " + title
	}

	raw := payload.Fields
	if raw == nil {
		raw = map[string]interface{}{}
	}
	if payload.Key != "" {
		raw["key"] = payload.Key
	}
	if payload.Summary != "" {
		raw["summary"] = payload.Summary
	}

	result, err := s.integrationService.HandleWebhook(c.UserContext(), service.WebhookInput{
		System:  "Tracker",
		Status:  "created",
		Payload: raw,
		Title:   title,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// NotifyPayload is a direct mail notification request.
type NotifyPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendNotification sends a one-off email. When SMTP is not configured the
// request succeeds but reports the channel as skipped.
func (s *Server) SendNotification(c *fiber.Ctx) error {
	var payload NotifyPayload
	if err := c.BodyParser(&payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if payload.To == "" || payload.Subject == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Recipient and subject are required"))
	}

	if !s.mailer.Enabled() {
		return c.JSON(fiber.Map{"sent": false, "skipped": "smtp not configured"})
	}

	s.mailer.SendAsync(payload.To, payload.Subject, payload.Body)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"sent": true})
}

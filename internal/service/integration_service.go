package service

import (
	"context"
	"encoding/json"
	"fmt"

	"docflow/internal/models"
	"docflow/internal/repository"
)

// IntegrationService ingests webhook events from external systems and turns
// them into workflow requests plus an audit log entry.
type IntegrationService struct {
	integrationRepo repository.IntegrationRepository
	requestRepo     repository.RequestRepository
	userRepo        repository.UserRepository
}

// NewIntegrationService creates a new IntegrationService.
func NewIntegrationService(
	integrationRepo repository.IntegrationRepository,
	requestRepo repository.RequestRepository,
	userRepo repository.UserRepository,
) *IntegrationService {
	return &IntegrationService{
		integrationRepo: integrationRepo,
		requestRepo:     requestRepo,
		userRepo:        userRepo,
	}
}

// WebhookInput is an inbound integration event. Request fields are optional;
// when RequestID is unset a new request is created from them.
type WebhookInput struct {
	System      string
	Status      string
	RequestID   *uint
	Payload     map[string]interface{}
	Title       string
	Description string
	Audience    string
	Type        models.RequestType
	SlaDays     int
	OwnerID     *uint
	Team        string
}

// WebhookResult reports the stored log entry and, when the event spawned a
// request, its ID.
type WebhookResult struct {
	Log              *models.IntegrationLog `json:"log"`
	CreatedRequestID *uint                  `json:"created_request_id"`
}

// HandleWebhook records an integration event. Events without an existing
// request spawn one, resolving the owner through a fallback chain: the
// explicit owner, then any teammate, then any manager, then any user at all.
func (s *IntegrationService) HandleWebhook(ctx context.Context, in WebhookInput) (*WebhookResult, error) {
	if in.System == "" {
		return nil, models.NewValidationError("System is required")
	}

	resolvedID := in.RequestID
	var createdID *uint

	if resolvedID == nil {
		owner, err := s.resolveOwner(ctx, in.OwnerID, in.Team)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			return nil, models.NewValidationError("No users available to own the request")
		}

		title := in.Title
		if title == "" {
			title = stringFromPayload(in.Payload, "title")
		}
		if title == "" {
			title = fmt.Sprintf("Webhook: %s", in.System)
		}
		description := in.Description
		if description == "" {
			description = stringFromPayload(in.Payload, "description")
		}
		if description == "" {
			description = "Created automatically from an integration event"
		}
		audience := in.Audience
		if audience == "" {
			audience = stringFromPayload(in.Payload, "audience")
		}
		if audience == "" {
			audience = "Service users"
		}
		reqType := in.Type
		if reqType == "" {
			reqType = models.RequestType(stringFromPayload(in.Payload, "type"))
		}
		if !models.ValidRequestType(reqType) {
			reqType = models.TypeOther
		}
		slaDays := in.SlaDays
		if slaDays < 1 {
			slaDays = 7
		}

		req := &models.Request{
			Title:       title,
			Description: description,
			Audience:    audience,
			Type:        reqType,
			Status:      models.StatusNew,
			SlaDays:     slaDays,
			OwnerID:     owner.ID,
		}
		if err := s.requestRepo.Create(ctx, req); err != nil {
			return nil, err
		}
		resolvedID = &req.ID
		createdID = &req.ID
	}

	payload := "{}"
	if in.Payload != nil {
		if raw, err := json.Marshal(in.Payload); err == nil {
			payload = string(raw)
		}
	}
	status := in.Status
	if status == "" {
		status = "ok"
	}

	entry := &models.IntegrationLog{
		RequestID: resolvedID,
		System:    in.System,
		Status:    status,
		Payload:   payload,
	}
	if err := s.integrationRepo.CreateLog(ctx, entry); err != nil {
		return nil, err
	}

	return &WebhookResult{Log: entry, CreatedRequestID: createdID}, nil
}

// ListLogs returns recent integration log entries, newest first.
func (s *IntegrationService) ListLogs(ctx context.Context, limit, offset int) ([]*models.IntegrationLog, error) {
	return s.integrationRepo.ListLogs(ctx, limit, offset)
}

// resolveOwner walks the ownership fallback chain.
func (s *IntegrationService) resolveOwner(ctx context.Context, ownerID *uint, team string) (*models.User, error) {
	if ownerID != nil {
		owner, err := s.userRepo.GetByID(ctx, *ownerID)
		if err == nil && owner != nil {
			return owner, nil
		}
		if err != nil && !models.IsCode(err, models.CodeNotFound) {
			return nil, err
		}
	}
	if team != "" {
		owner, err := s.userRepo.FirstByTeam(ctx, team)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return owner, nil
		}
	}
	owner, err := s.userRepo.FirstByRole(ctx, models.RoleManager)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		return owner, nil
	}
	return s.userRepo.FirstAny(ctx)
}

func stringFromPayload(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

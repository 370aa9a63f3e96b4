// Package service implements business logic on top of the repositories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/notifications"
	"docflow/internal/policy"
	"docflow/internal/repository"
)

// Actor identifies the authenticated caller for permission checks.
type Actor struct {
	UserID uint
	Role   models.Role
	Extra  []models.Role
}

// RequestService implements the documentation request workflow.
type RequestService struct {
	requestRepo  repository.RequestRepository
	activityRepo repository.ActivityRepository
	userRepo     repository.UserRepository
	notifier     *notifications.Notifier
	mailer       *notifications.Mailer

	// strictConflicts switches concurrent transitions from last-write-wins
	// to conditional updates that surface a conflict.
	strictConflicts bool
	// enforceAdjacency restricts transitions to pipeline neighbors plus the
	// REVIEW -> IN_PROGRESS bounce.
	enforceAdjacency bool
}

// RequestServiceConfig carries the workflow policy knobs.
type RequestServiceConfig struct {
	StrictConflicts  bool
	EnforceAdjacency bool
}

// NewRequestService creates a new RequestService.
func NewRequestService(
	requestRepo repository.RequestRepository,
	activityRepo repository.ActivityRepository,
	userRepo repository.UserRepository,
	notifier *notifications.Notifier,
	mailer *notifications.Mailer,
	cfg RequestServiceConfig,
) *RequestService {
	return &RequestService{
		requestRepo:      requestRepo,
		activityRepo:     activityRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		mailer:           mailer,
		strictConflicts:  cfg.StrictConflicts,
		enforceAdjacency: cfg.EnforceAdjacency,
	}
}

// CreateRequestInput is the payload for a new intake request.
type CreateRequestInput struct {
	Actor       Actor
	Title       string
	Description string
	Audience    string
	Type        models.RequestType
	SlaDays     int
	DueAt       *time.Time
	OwnerID     uint
}

// PatchRequestInput updates request fields. Nil pointers leave the field
// untouched. A non-nil Status runs the full transition flow with its policy
// checks, activity entry, and events, exactly as SetStatus does.
type PatchRequestInput struct {
	Actor       Actor
	RequestID   uint
	Title       *string
	Description *string
	Audience    *string
	Type        *models.RequestType
	Status      *models.RequestStatus
	OwnerID     *uint
	SlaDays     *int
	DueAt       *time.Time
	ClearDueAt  bool
}

// touchesFields reports whether the patch changes anything besides status.
func (in PatchRequestInput) touchesFields() bool {
	return in.Title != nil || in.Description != nil || in.Audience != nil ||
		in.Type != nil || in.OwnerID != nil || in.SlaDays != nil ||
		in.DueAt != nil || in.ClearDueAt
}

// ListRequestsInput narrows ListRequests results.
type ListRequestsInput struct {
	Status  models.RequestStatus
	Type    models.RequestType
	OwnerID uint
	Query   string
	Limit   int
	Offset  int
}

const maxTitleLen = 300

// CreateRequest validates and stores a new request in status NEW.
func (s *RequestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.Request, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if in.Description == "" {
		return nil, models.NewValidationError("Description is required")
	}

	reqType := in.Type
	if reqType == "" {
		reqType = models.TypeOther
	}
	if !models.ValidRequestType(reqType) {
		return nil, models.NewValidationError("Invalid request type")
	}

	slaDays := in.SlaDays
	if slaDays == 0 {
		slaDays = 7
	}
	if slaDays < 1 {
		return nil, models.NewValidationError("slaDays must be at least 1")
	}

	ownerID := in.OwnerID
	if ownerID == 0 {
		ownerID = in.Actor.UserID
	}

	req := &models.Request{
		Title:       in.Title,
		Description: in.Description,
		Audience:    in.Audience,
		Type:        reqType,
		Status:      models.StatusNew,
		SlaDays:     slaDays,
		DueAt:       in.DueAt,
		OwnerID:     ownerID,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.appendActivity(ctx, req.ID, in.Actor.UserID, models.StatusAction(models.StatusNew))
	return req, nil
}

// GetRequest returns a single request.
func (s *RequestService) GetRequest(ctx context.Context, id uint) (*models.Request, error) {
	return s.requestRepo.GetByID(ctx, id)
}

// GetRequestDetail returns a request with its activity log, newest first.
func (s *RequestService) GetRequestDetail(ctx context.Context, id uint) (*models.Request, error) {
	return s.requestRepo.GetByIDWithActivities(ctx, id)
}

// ListRequests returns requests matching the filter, most recently updated first.
func (s *RequestService) ListRequests(ctx context.Context, in ListRequestsInput) ([]*models.Request, error) {
	if in.Status != "" && !models.ValidStatus(in.Status) {
		return nil, models.NewValidationError("Invalid status filter")
	}
	if in.Type != "" && !models.ValidRequestType(in.Type) {
		return nil, models.NewValidationError("Invalid type filter")
	}
	return s.requestRepo.List(ctx, repository.RequestFilter{
		Status:  in.Status,
		Type:    in.Type,
		OwnerID: in.OwnerID,
		Query:   in.Query,
		Limit:   in.Limit,
		Offset:  in.Offset,
	})
}

// CountRequests returns the total number of requests.
func (s *RequestService) CountRequests(ctx context.Context) (int64, error) {
	return s.requestRepo.Count(ctx)
}

// SetStatus moves a request to the given lifecycle state after checking the
// actor's role against the per-status write policy.
func (s *RequestService) SetStatus(ctx context.Context, actor Actor, requestID uint, status models.RequestStatus) (*models.Request, error) {
	if !models.ValidStatus(status) {
		return nil, models.NewValidationError("Invalid status")
	}

	if !policy.CanSetStatus(actor.Role, actor.Extra, status) {
		middleware.PermissionDenials.WithLabelValues("set_status").Inc()
		return nil, models.NewPermissionDeniedError(
			fmt.Sprintf("Role %s may not set status %s", actor.Role, status))
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Setting the current status again is a no-op: no activity entry, no
	// event, no version bump.
	if req.Status == status {
		return req, nil
	}

	if s.enforceAdjacency && !adjacentTransition(req.Status, status) {
		return nil, models.NewValidationError(
			fmt.Sprintf("Transition %s -> %s is not allowed", req.Status, status))
	}

	from := req.Status
	req.Status = status
	if status == models.StatusPublished && req.PublishedAt == nil {
		now := time.Now().UTC()
		req.PublishedAt = &now
	}

	if s.strictConflicts {
		err = s.requestRepo.UpdateStatusCAS(ctx, req, req.RowVersion)
	} else {
		err = s.requestRepo.Update(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	middleware.WorkflowTransitions.WithLabelValues(string(status)).Inc()
	s.appendActivity(ctx, req.ID, actor.UserID, models.StatusAction(status))
	s.emitTransition(ctx, req, from, status, actor)

	return req, nil
}

// adjacentTransition allows moving one step forward in the pipeline or
// bouncing a draft from REVIEW back to IN_PROGRESS.
func adjacentTransition(from, to models.RequestStatus) bool {
	if from == models.StatusReview && to == models.StatusInProgress {
		return true
	}
	for i, status := range models.RequestStatuses {
		if status != from {
			continue
		}
		return i+1 < len(models.RequestStatuses) && models.RequestStatuses[i+1] == to
	}
	return false
}

// PatchRequest updates mutable request fields and, when Status is set, moves
// the request through the pipeline in the same call. Roles outside the
// field-patch set may not change owner, SLA days, or the due-date override.
func (s *RequestService) PatchRequest(ctx context.Context, in PatchRequestInput) (*models.Request, error) {
	touchesRestricted := in.OwnerID != nil || in.SlaDays != nil || in.DueAt != nil || in.ClearDueAt
	if touchesRestricted && !policy.CanPatchFields(in.Actor.Role, in.Actor.Extra) {
		middleware.PermissionDenials.WithLabelValues("patch_fields").Inc()
		return nil, models.NewPermissionDeniedError(
			fmt.Sprintf("Role %s may not change owner, slaDays, or dueAt", in.Actor.Role))
	}

	// The transition runs first so a denied or invalid status aborts the
	// whole patch.
	if in.Status != nil {
		req, err := s.SetStatus(ctx, in.Actor, in.RequestID, *in.Status)
		if err != nil {
			return nil, err
		}
		if !in.touchesFields() {
			return req, nil
		}
	}

	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		if len(*in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 300 characters)")
		}
		req.Title = *in.Title
	}
	if in.Description != nil {
		if *in.Description == "" {
			return nil, models.NewValidationError("Description is required")
		}
		req.Description = *in.Description
	}
	if in.Audience != nil {
		req.Audience = *in.Audience
	}
	if in.Type != nil {
		if !models.ValidRequestType(*in.Type) {
			return nil, models.NewValidationError("Invalid request type")
		}
		req.Type = *in.Type
	}
	if in.OwnerID != nil {
		if _, err := s.userRepo.GetByID(ctx, *in.OwnerID); err != nil {
			return nil, err
		}
		req.OwnerID = *in.OwnerID
		req.Owner = nil
	}
	if in.SlaDays != nil {
		if *in.SlaDays < 1 {
			return nil, models.NewValidationError("slaDays must be at least 1")
		}
		req.SlaDays = *in.SlaDays
	}
	if in.ClearDueAt {
		req.DueAt = nil
	} else if in.DueAt != nil {
		req.DueAt = in.DueAt
	}

	if err := s.requestRepo.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteRequest removes a request. Only admins and managers may delete.
func (s *RequestService) DeleteRequest(ctx context.Context, actor Actor, id uint) error {
	if !policy.Authorize(actor.Role, actor.Extra, []models.Role{models.RoleAdmin, models.RoleManager}) {
		middleware.PermissionDenials.WithLabelValues("delete_request").Inc()
		return models.NewPermissionDeniedError("Only admins and managers may delete requests")
	}
	return s.requestRepo.Delete(ctx, id)
}

// AddComment appends a free-text activity entry to a request. The stored
// action is tagged "comment:<text>" so it can never collide with a transition
// record.
func (s *RequestService) AddComment(ctx context.Context, actor Actor, requestID uint, text string) (*models.Activity, error) {
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if len(text) > 300 {
		return nil, models.NewValidationError("Comment too long (max 300 characters)")
	}

	if _, err := s.requestRepo.GetByID(ctx, requestID); err != nil {
		return nil, err
	}

	activity := &models.Activity{
		RequestID: requestID,
		UserID:    actor.UserID,
		Action:    models.CommentAction(text),
	}
	if err := s.activityRepo.Append(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// ListActivities returns a request's activity log, newest first.
func (s *RequestService) ListActivities(ctx context.Context, requestID uint) ([]*models.Activity, error) {
	if _, err := s.requestRepo.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.activityRepo.ListByRequest(ctx, requestID)
}

// appendActivity records an audit entry. The transition has already been
// committed, so a failed append is logged and swallowed rather than undoing
// the work.
func (s *RequestService) appendActivity(ctx context.Context, requestID, userID uint, action string) {
	err := s.activityRepo.Append(ctx, &models.Activity{
		RequestID: requestID,
		UserID:    userID,
		Action:    action,
	})
	if err != nil {
		middleware.SideChannelFailures.WithLabelValues("activity_log").Inc()
		middleware.Logger.ErrorContext(ctx, "failed to append activity",
			slog.Uint64("request_id", uint64(requestID)),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// emitTransition publishes the workflow event and notifies the owner. Both
// are fire-and-forget.
func (s *RequestService) emitTransition(ctx context.Context, req *models.Request, from, to models.RequestStatus, actor Actor) {
	if s.notifier != nil {
		event := notifications.WorkflowEvent{
			RequestID: req.ID,
			Title:     req.Title,
			From:      from,
			To:        to,
			ActorID:   actor.UserID,
			At:        time.Now().UTC(),
		}
		if err := s.notifier.PublishWorkflowEvent(ctx, event); err != nil {
			middleware.SideChannelFailures.WithLabelValues("workflow_events").Inc()
			middleware.Logger.WarnContext(ctx, "failed to publish workflow event",
				slog.Uint64("request_id", uint64(req.ID)),
				slog.String("error", err.Error()),
			)
		}
	}

	// Mail the owner unless they made the change themselves.
	if s.mailer.Enabled() && req.OwnerID != actor.UserID {
		owner, err := s.userRepo.GetByID(ctx, req.OwnerID)
		if err != nil || owner == nil {
			return
		}
		subject := fmt.Sprintf("Request #%d moved to %s", req.ID, to)
		body := fmt.Sprintf("%q is now %s (was %s).", req.Title, to, from)
		s.mailer.SendAsync(owner.Email, subject, body)
	}
}

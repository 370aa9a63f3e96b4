package service

import (
	"context"
	"strings"

	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/policy"
	"docflow/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserService implements account management and credential checks.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUserInput is the payload for account creation.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
	Team     string
}

// UpdateUserInput changes account attributes. Role and team changes are
// admin-only; nil pointers leave fields untouched.
type UpdateUserInput struct {
	Actor      Actor
	UserID     uint
	Name       *string
	Team       *string
	Role       *models.Role
	ExtraRoles *[]models.Role
}

func validRole(r models.Role) bool {
	switch r {
	case models.RoleAdmin, models.RoleManager, models.RoleEditor,
		models.RoleLegal, models.RoleCrowd, models.RoleRequester:
		return true
	}
	return false
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if in.Name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, models.NewValidationError("A valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, models.NewValidationError("Password must be at least 8 characters")
	}

	role := in.Role
	if role == "" {
		role = models.RoleRequester
	}
	if !validRole(role) {
		return nil, models.NewValidationError("Invalid role")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     in.Name,
		Email:    email,
		Password: string(hash),
		Role:     role,
		Team:     in.Team,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials and returns the account on success.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	return user, nil
}

// GetUser returns a single account.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns accounts ordered by ID.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.userRepo.List(ctx, limit, offset)
}

// UpdateUser changes account attributes. Only admins may change roles or team
// assignment; users may rename themselves.
func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	isAdmin := policy.Authorize(in.Actor.Role, in.Actor.Extra, []models.Role{models.RoleAdmin})
	touchesPrivileged := in.Role != nil || in.ExtraRoles != nil || in.Team != nil

	if touchesPrivileged && !isAdmin {
		middleware.PermissionDenials.WithLabelValues("update_user").Inc()
		return nil, models.NewPermissionDeniedError("Only admins may change roles or team")
	}
	if !isAdmin && in.Actor.UserID != in.UserID {
		middleware.PermissionDenials.WithLabelValues("update_user").Inc()
		return nil, models.NewPermissionDeniedError("Cannot update another user's account")
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, models.NewValidationError("Name is required")
		}
		user.Name = *in.Name
	}
	if in.Team != nil {
		user.Team = *in.Team
	}
	if in.Role != nil {
		if !validRole(*in.Role) {
			return nil, models.NewValidationError("Invalid role")
		}
		user.Role = *in.Role
	}
	if in.ExtraRoles != nil {
		for _, r := range *in.ExtraRoles {
			if !validRole(r) {
				return nil, models.NewValidationError("Invalid extra role")
			}
		}
		user.ExtraRoles = *in.ExtraRoles
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, id uint) error {
	if !policy.Authorize(actor.Role, actor.Extra, []models.Role{models.RoleAdmin}) {
		middleware.PermissionDenials.WithLabelValues("delete_user").Inc()
		return models.NewPermissionDeniedError("Only admins may delete users")
	}
	if actor.UserID == id {
		return models.NewValidationError("Cannot delete your own account")
	}
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, id)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docflow/internal/config"
	"docflow/internal/models"
	"docflow/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) FirstByRole(ctx context.Context, role models.Role) (*models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FirstByTeam(ctx context.Context, team string) (*models.User, error) {
	args := m.Called(ctx, team)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FirstAny(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newAuthTestServer(t *testing.T, userRepo *MockUserRepository) *Server {
	t.Helper()
	return &Server{
		config:      &config.Config{JWTSecret: "test_secret"},
		userRepo:    userRepo,
		userService: service.NewUserService(userRepo),
	}
}

func withTestRedis(t *testing.T, s *Server) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s.redis = rdb
	return mr
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSignup(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s := newAuthTestServer(t, mockRepo)

	app := fiber.New()
	app.Post("/signup", s.Signup)

	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func()
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]string{
				"name":     "New Requester",
				"email":    "new@example.com",
				"password": "Password123!",
			},
			mockSetup: func() {
				mockRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, nil)
				mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.Role == models.RoleRequester
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.User).ID = 1
				}).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate Email",
			body: map[string]string{
				"name":     "Dup",
				"email":    "exists@example.com",
				"password": "Password123!",
			},
			mockSetup: func() {
				mockRepo.On("GetByEmail", mock.Anything, "exists@example.com").
					Return(&models.User{ID: 2}, nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Short Password",
			body: map[string]string{
				"name":     "Weak",
				"email":    "weak@example.com",
				"password": "short",
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/signup", tt.body))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var out AuthResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
				assert.NotEmpty(t, out.Token)
				assert.Equal(t, models.RoleRequester, out.User.Role)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.MinCost)
	require.NoError(t, err)
	account := &models.User{
		ID: 1, Name: "Ada", Email: "ada@example.com",
		Password: string(hash), Role: models.RoleEditor,
	}

	mockRepo := new(MockUserRepository)
	s := newAuthTestServer(t, mockRepo)

	app := fiber.New()
	app.Post("/login", s.Login)

	t.Run("Success", func(t *testing.T) {
		mockRepo.On("GetByEmail", mock.Anything, "ada@example.com").Return(account, nil)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/login", map[string]string{
			"email": "ada@example.com", "password": "Password123!",
		}))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out AuthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.NotEmpty(t, out.Token)
		assert.Equal(t, "ada@example.com", out.User.Email)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/login", map[string]string{
			"email": "ada@example.com", "password": "nope",
		}))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Unknown Email", func(t *testing.T) {
		mockRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/login", map[string]string{
			"email": "ghost@example.com", "password": "Password123!",
		}))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthRequired(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s := newAuthTestServer(t, mockRepo)

	app := fiber.New()
	app.Get("/api/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		actor := s.actor(c)
		return c.JSON(fiber.Map{"user_id": actor.UserID, "role": actor.Role})
	})

	token, err := s.generateToken(&models.User{
		ID: 9, Name: "Ada", Role: models.RoleEditor,
		ExtraRoles: []models.Role{models.RoleLegal},
	})
	require.NoError(t, err)

	t.Run("Missing Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Valid Bearer Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			UserID uint   `json:"user_id"`
			Role   string `json:"role"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, uint(9), out.UserID)
		assert.Equal(t, "EDITOR", out.Role)
	})

	t.Run("Query Token Accepted On Plain Routes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/protected?token="+token, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Wrong Secret Rejected", func(t *testing.T) {
		other := &Server{config: &config.Config{JWTSecret: "different_secret"}}
		badToken, err := other.generateToken(&models.User{ID: 1, Role: models.RoleAdmin})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer "+badToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRefreshTokenPicksUpRoleChanges(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s := newAuthTestServer(t, mockRepo)

	app := fiber.New()
	app.Post("/refresh", s.AuthRequired(), s.RefreshToken)

	// The old token carries EDITOR; the account has since been promoted.
	token, err := s.generateToken(&models.User{ID: 6, Role: models.RoleEditor})
	require.NoError(t, err)
	mockRepo.On("GetByID", mock.Anything, uint(6)).Return(&models.User{
		ID: 6, Name: "Ada", Role: models.RoleManager,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Token)
	assert.NotEqual(t, token, out.Token)
	assert.Equal(t, models.RoleManager, out.User.Role)
}

func TestLogoutRevokesToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s := newAuthTestServer(t, mockRepo)
	withTestRedis(t, s)

	app := fiber.New()
	app.Post("/logout", s.AuthRequired(), s.Logout)
	app.Get("/api/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	token, err := s.generateToken(&models.User{ID: 3, Role: models.RoleManager})
	require.NoError(t, err)

	// Token works before logout.
	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The blacklisted JTI now rejects the same token.
	req = httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSTicketFlow(t *testing.T) {
	mockRepo := new(MockUserRepository)
	s := newAuthTestServer(t, mockRepo)
	mr := withTestRedis(t, s)

	app := fiber.New()
	app.Post("/api/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	app.Get("/api/ws/echo", s.AuthRequired(), func(c *fiber.Ctx) error {
		actor := s.actor(c)
		return c.JSON(fiber.Map{"user_id": actor.UserID, "role": actor.Role})
	})

	token, err := s.generateToken(&models.User{ID: 5, Role: models.RoleEditor})
	require.NoError(t, err)

	// Mint a ticket with the JWT.
	req := httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Ticket)
	assert.Equal(t, 30, out.ExpiresIn)

	t.Run("Ticket Authenticates Once", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/ws/echo?ticket="+out.Ticket, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var echo struct {
			UserID uint   `json:"user_id"`
			Role   string `json:"role"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&echo))
		assert.Equal(t, uint(5), echo.UserID)
		assert.Equal(t, "EDITOR", echo.Role)

		// Single use: the second attempt must fail.
		req = httptest.NewRequest(http.MethodGet, "/api/ws/echo?ticket="+out.Ticket, nil)
		resp2, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp2.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	})

	t.Run("Expired Ticket Rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var fresh struct {
			Ticket string `json:"ticket"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&fresh))

		mr.FastForward(31 * time.Second)

		req = httptest.NewRequest(http.MethodGet, "/api/ws/echo?ticket="+fresh.Ticket, nil)
		resp2, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp2.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	})

	t.Run("Query JWT Rejected On WS Path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/ws/echo?token="+token, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"docflow/internal/cache"
	"docflow/internal/config"
	"docflow/internal/database"
	"docflow/internal/middleware"
	"docflow/internal/models"
	"docflow/internal/notifications"
	"docflow/internal/repository"
	"docflow/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	tokenIssuer   = "docflow-api"
	tokenAudience = "docflow-client"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo        repository.UserRepository
	requestRepo     repository.RequestRepository
	activityRepo    repository.ActivityRepository
	knowledgeRepo   repository.KnowledgeRepository
	documentRepo    repository.DocumentRepository
	chatRepo        repository.ChatRepository
	integrationRepo repository.IntegrationRepository

	notifier *notifications.Notifier
	hub      *notifications.Hub
	hubs     []wireableHub
	mailer   *notifications.Mailer
	mirror   *notifications.WebhookMirror

	requestService     *service.RequestService
	metricsService     *service.MetricsService
	userService        *service.UserService
	knowledgeService   *service.KnowledgeService
	documentService    *service.DocumentService
	chatService        *service.ChatService
	integrationService *service.IntegrationService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ConnectReadReplica(cfg); err != nil {
		return nil, err
	}

	// Initialize Redis
	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	knowledgeRepo := repository.NewKnowledgeRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	chatRepo := repository.NewChatRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)

	// Initialize Prometheus metrics
	prom := middleware.InitMetrics("docflow-api")

	server := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  prom,
		userRepo:        userRepo,
		requestRepo:     requestRepo,
		activityRepo:    activityRepo,
		knowledgeRepo:   knowledgeRepo,
		documentRepo:    documentRepo,
		chatRepo:        chatRepo,
		integrationRepo: integrationRepo,
		mailer:          notifications.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		mirror:          notifications.NewWebhookMirror(cfg.ChatWebhookURL),
	}

	// Initialize notifier and hub if Redis is available
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
		server.hubs = []wireableHub{server.hub}
	}

	server.requestService = service.NewRequestService(
		requestRepo, activityRepo, userRepo, server.notifier, server.mailer,
		service.RequestServiceConfig{
			StrictConflicts:  cfg.StrictConflicts(),
			EnforceAdjacency: cfg.WorkflowEnforceAdjacency,
		},
	)
	server.metricsService = service.NewMetricsService(requestRepo)
	server.userService = service.NewUserService(userRepo)
	server.knowledgeService = service.NewKnowledgeService(knowledgeRepo)
	server.documentService = service.NewDocumentService(documentRepo)
	server.chatService = service.NewChatService(chatRepo, userRepo, server.notifier, server.mirror)
	server.integrationService = service.NewIntegrationService(integrationRepo, requestRepo, userRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "DocFlow Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Post("/refresh", s.AuthRequired(), s.RefreshToken)

	// Navigation preview: which routes a role would see. Read-only lookup,
	// never an authorization input.
	api.Get("/policy/routes", s.GetRoutePreview)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// Workflow request routes
	requests := protected.Group("/requests")
	requests.Get("/", s.GetRequests)
	requests.Post("/", s.CreateRequest)
	requests.Get("/:id/activity", s.GetActivities)
	requests.Post("/:id/activity", s.CreateActivity)
	requests.Post("/:id/status", s.SetRequestStatus)
	requests.Get("/:id", s.GetRequest)
	requests.Patch("/:id", s.PatchRequest)
	requests.Delete("/:id", s.DeleteRequest)

	// Delivery metrics (dashboard)
	metrics := protected.Group("/metrics", s.RoleRequired(models.RoleAdmin, models.RoleManager))
	metrics.Get("/", s.GetMetricsSummary)
	metrics.Get("/summary", s.GetMetricsSummary)

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Get("/", s.GetAllUsers)
	users.Post("/", s.RoleRequired(models.RoleAdmin), s.CreateUser)
	users.Get("/:id", s.GetUser)
	users.Patch("/:id", s.UpdateUser)
	users.Delete("/:id", s.DeleteUser)

	// Knowledge base routes. Reads are open to all roles, writes to managers.
	kb := protected.Group("/kb")
	kb.Get("/", s.GetKnowledgeItems)
	kb.Post("/", s.RoleRequired(models.RoleManager), s.CreateKnowledgeItem)
	kb.Get("/:id", s.GetKnowledgeItem)
	kb.Put("/:id", s.RoleRequired(models.RoleManager), s.UpdateKnowledgeItem)
	kb.Patch("/:id", s.RoleRequired(models.RoleManager), s.UpdateKnowledgeItem)
	kb.Delete("/:id", s.RoleRequired(models.RoleManager), s.DeleteKnowledgeItem)

	// Document routes
	docs := protected.Group("/docs")
	docs.Get("/", s.GetDocuments)
	docs.Post("/", s.CreateDocument)
	docs.Get("/:id/versions", s.GetDocumentVersions)
	docs.Get("/:id/comments", s.GetDocumentComments)
	docs.Post("/:id/comments", s.CreateDocumentComment)
	docs.Get("/:id", s.GetDocument)
	docs.Patch("/:id", s.UpdateDocument)
	docs.Delete("/:id", s.DeleteDocument)

	// Team chat routes
	chat := protected.Group("/chat")
	chat.Get("/messages", s.GetChatHistory)
	chat.Post("/", middleware.RateLimit(
		s.redis, 15, time.Minute, "send_chat"), s.PostChatMessage)
	chat.Post("/messages", middleware.RateLimit(
		s.redis, 15, time.Minute, "send_chat"), s.PostChatMessage)

	// Mail notifications
	protected.Post("/notify", s.SendNotification)

	// Integration webhook routes
	integrations := protected.Group("/integrations", s.RoleRequired(models.RoleAdmin, models.RoleManager))
	integrations.Get("/", s.GetIntegrationLogs)
	integrations.Post("/", s.HandleIntegrationWebhook)
	integrations.Post("/tracker", s.HandleTrackerWebhook)

	// Server-sent event streams
	stream := protected.Group("/stream")
	stream.Get("/requests", s.StreamRequestCount)
	stream.Get("/metrics", s.StreamMetricsTicks)

	// WebSocket ticket issuance
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)

	// Websocket endpoint - protected by AuthRequired
	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/", s.WebsocketHandler())
	ws.Get("/chat", s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overallStatus,
		"version": "1.0.0",
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// RoleRequired returns middleware that rejects callers whose effective role
// set misses all of the given roles. Must be placed after AuthRequired.
func (s *Server) RoleRequired(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := s.actor(c)
		for _, have := range append([]models.Role{actor.Role}, actor.Extra...) {
			for _, want := range roles {
				if have == want {
					return c.Next()
				}
			}
		}
		middleware.PermissionDenials.WithLabelValues("route_guard").Inc()
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewPermissionDeniedError("Insufficient role"))
	}
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		isWSPath := strings.HasPrefix(path, "/api/ws")

		// 1. Try WebSocket ticket first (short-lived, single-use)
		ticket := c.Query("ticket")
		if ticket != "" && s.redis != nil {
			key := fmt.Sprintf("ws_ticket:%s", ticket)
			payload, err := s.redis.Get(c.Context(), key).Result()
			if err == nil {
				// Ticket payload form: <userID>:<role>
				if userID, role, ok := parseTicketPayload(payload); ok {
					// Delete ticket immediately (single-use)
					s.redis.Del(c.Context(), key)
					s.storeActor(c, userID, role, nil)
					return c.Next()
				}
			}
			// If ticket was provided but invalid/expired, fail on a WS path
			if isWSPath {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
		}

		// 2. Fall back to JWT (Bearer token or query param)
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Reject token in query param for WS routes (must use ticket)
		if tokenString == "" && !isWSPath {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		// Parse and validate token
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		// Extract claims
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		// Validate issuer and audience
		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != tokenAudience {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		// Extract user ID from subject claim
		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}

		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		// Check JTI for revocation
		if jti, exists := claims["jti"].(string); exists && jti != "" {
			if s.redis != nil {
				isBlacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
				if err == nil && isBlacklisted > 0 {
					return models.RespondWithError(c, fiber.StatusUnauthorized,
						models.NewUnauthorizedError("Token has been revoked"))
				}
			}
		}

		// The role claims are authoritative for this token's lifetime.
		role := models.RoleGuest
		if roleClaim, roleOk := claims["role"].(string); roleOk && roleClaim != "" {
			role = models.Role(roleClaim)
		}
		var extra []models.Role
		if rawExtra, extraOk := claims["extra_roles"].([]interface{}); extraOk {
			for _, v := range rawExtra {
				if str, strOk := v.(string); strOk {
					extra = append(extra, models.Role(str))
				}
			}
		}

		s.storeActor(c, uint(userID), role, extra)
		return c.Next()
	}
}

// storeActor places the authenticated identity into request locals and the
// user context used for logging.
func (s *Server) storeActor(c *fiber.Ctx, userID uint, role models.Role, extra []models.Role) {
	c.Locals("userID", userID)
	c.Locals("role", role)
	c.Locals("extraRoles", extra)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.RoleKey, string(role))
	c.SetUserContext(ctx)
}

func parseTicketPayload(payload string) (uint, models.Role, bool) {
	parts := strings.SplitN(payload, ":", 2)
	userID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, models.RoleGuest, false
	}
	role := models.RoleGuest
	if len(parts) == 2 && parts[1] != "" {
		role = models.Role(parts[1])
	}
	return uint(userID), role, true
}

// actor extracts the authenticated identity from request locals. Requests
// without a session resolve to GUEST, which satisfies no permission set.
func (s *Server) actor(c *fiber.Ctx) service.Actor {
	actor := service.Actor{Role: models.RoleGuest}
	if userID, ok := c.Locals("userID").(uint); ok {
		actor.UserID = userID
	}
	if role, ok := c.Locals("role").(models.Role); ok && role != "" {
		actor.Role = role
	}
	if extra, ok := c.Locals("extraRoles").([]models.Role); ok {
		actor.Extra = extra
	}
	return actor
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "DocFlow API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Wire all hubs to Redis subscriber if available
	if s.notifier != nil {
		for _, h := range s.hubs {
			h := h
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					log.Printf("failed to start %s wiring: %v", h.Name(), err)
				}
			}()
		}
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop all wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Shutdown the HTTP/WS server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close WebSocket connections gracefully
	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", h.Name(), err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

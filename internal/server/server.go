// Package server contains the HTTP and WebSocket handlers of the Inkwell API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/lifecycle"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	background     sync.WaitGroup

	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	categoryRepo repository.CategoryRepository
	stopWordRepo repository.StopWordRepository

	store       *cache.Store
	notifier    *notifications.Notifier
	hub         *notifications.Hub
	invalidator *cache.Invalidator
	resolver    *middleware.SessionResolver

	lifecycle       *lifecycle.Manager
	sweeper         *lifecycle.Sweeper
	authService     *service.AuthService
	postService     *service.PostService
	commentService  *service.CommentService
	userService     *service.UserService
	categoryService *service.CategoryService
	adminService    *service.AdminService
}

// NewServer connects to the configured database and Redis, applies the
// first-boot data and wires the server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedReference: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, revocation and rate limiting then degrade
// to pass-through and invalidation events go straight to the local hub.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, errors.New("server requires a database")
	}
	middleware.SetRateLimitBypass(cfg.Env)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		categoryRepo:   repository.NewCategoryRepository(db),
		stopWordRepo:   repository.NewStopWordRepository(db),
		store:          cache.NewStore(redisClient),
		hub:            notifications.NewHub(),
	}
	s.notifier = notifications.NewNotifier(redisClient, s.hub)
	s.invalidator = cache.NewInvalidator(s.store, s.notifier)

	issuer := session.NewIssuer(cfg.JWTSecret, cfg.SessionTTL())
	revocations := cache.NewRevocations(s.store)
	s.resolver = middleware.NewSessionResolver(issuer, s.userRepo, revocations)

	s.lifecycle = lifecycle.NewManager(s.userRepo, s.invalidator, cfg.RetentionPeriod())
	s.sweeper = lifecycle.NewSweeper(s.lifecycle, cfg.SweepInterval())

	s.authService = service.NewAuthService(s.userRepo, issuer, revocations)
	s.postService = service.NewPostService(s.postRepo, s.commentRepo, s.categoryRepo, s.stopWordRepo, s.store, s.invalidator)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.invalidator)
	s.userService = service.NewUserService(s.userRepo, s.postRepo, s.store, s.invalidator)
	s.categoryService = service.NewCategoryService(s.categoryRepo, s.store)
	s.adminService = service.NewAdminService(s.userRepo, s.postRepo, s.commentRepo, s.invalidator)

	return s, nil
}

// NewApp builds a fiber app with the server's middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Inkwell API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Session resolution runs before ContextMiddleware so request logs carry the user.
	if s.resolver != nil {
		app.Use(s.resolver.Handler())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", middleware.AdminRequired, monitor.New(monitor.Config{
		Title: "Inkwell Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	categories := api.Group("/categories")
	categories.Get("/", s.GetCategories)
	categories.Get("/:slug/posts", s.GetCategoryPosts)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchPosts)
	posts.Post("/", middleware.AuthRequired,
		middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	// Specific /:id/:resource routes before the generic /:id routes.
	posts.Post("/:id/like", middleware.AuthRequired, s.ToggleLike)
	posts.Post("/:id/comments", middleware.AuthRequired,
		middleware.RateLimit(s.redis, 5, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:id/comments/:commentId", middleware.AuthRequired, s.UpdateComment)
	posts.Delete("/:id/comments/:commentId", middleware.AuthRequired, s.DeleteComment)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", middleware.AuthRequired, s.UpdatePost)
	posts.Delete("/:id", middleware.AuthRequired, s.DeletePost)

	users := api.Group("/users")
	users.Get("/me", middleware.AuthRequired, s.GetMe)
	users.Put("/me", middleware.AuthRequired, s.UpdateMe)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id/activity", s.GetUserActivity)
	users.Get("/:id", s.GetUserProfile)
	users.Delete("/:id", middleware.AuthRequired, s.WithdrawUser)

	app.Get("/ws/invalidate", s.WebSocketUpgrade, s.InvalidationSocket())

	admin := app.Group("/admin", middleware.AdminPageGate)
	admin.Get("/users", s.AdminListUsers)
	admin.Post("/users/:id/withdraw", s.AdminWithdrawUser)
	admin.Post("/users/:id/restore", s.AdminRestoreUser)
	admin.Put("/users/:id/role", s.AdminSetRole)
	admin.Post("/sweep", s.AdminSweep)
	admin.Get("/posts", s.AdminListPosts)
	admin.Post("/posts/:id/restore", s.AdminRestorePost)
	admin.Post("/comments/:id/restore", s.AdminRestoreComment)
	admin.Get("/stats", s.AdminStats)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: a
// missing client reports "unavailable" without failing readiness, an
// unreachable one fails it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// StartBackground launches the invalidation subscriber and the
// anonymization sweeper. Both stop on Shutdown.
func (s *Server) StartBackground() {
	if s.shutdownFn == nil {
		s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	}
	ctx := s.shutdownCtx

	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		middleware.Logger.Error("failed to start invalidation wiring",
			slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.sweeper.Run(ctx)
	}()
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	s.StartBackground()

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}
	s.background.Wait()

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondError(c, err)
}

// Package server contains the HTTP handlers for the blog and recipe API.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"bloh/internal/bootstrap"
	"bloh/internal/cache"
	"bloh/internal/config"
	"bloh/internal/featureflags"
	"bloh/internal/mailer"
	"bloh/internal/media"
	"bloh/internal/middleware"
	"bloh/internal/models"
	"bloh/internal/notifications"
	"bloh/internal/repository"
	"bloh/internal/service"
	"bloh/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
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
	userRepo       repository.UserRepository
	notifier       *notifications.Notifier
	publisher      *notifications.PublicationNotifier
	featureFlags   *featureflags.Manager
	uploads        media.Validator

	authService       *service.AuthService
	postService       *service.PostService
	recipeService     *service.RecipeService
	commentService    *service.CommentService
	tagService        *service.TagService
	ingredientService *service.IngredientService
	userService       *service.UserService
	reportService     *service.ReportService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedReference: !cfg.IsProduction()})
	if err != nil {
		return nil, err
	}

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("media storage unavailable: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, store, mailer.New(cfg))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	store storage.Storage,
	mail mailer.Mailer,
) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("media storage is required")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	validator := media.Validator{MaxBytes: cfg.ImageMaxUploadBytes()}
	notifier := notifications.NewNotifier(redisClient)
	publisher := notifications.NewPublicationNotifier(userRepo, mail, notifier, flags, cfg.FrontendBaseURL)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("bloh-api"),
		userRepo:       userRepo,
		notifier:       notifier,
		publisher:      publisher,
		featureFlags:   flags,
		uploads:        validator,
	}

	s.authService = service.NewAuthService(userRepo, cfg.JWTSecret)
	s.postService = service.NewPostService(postRepo, tagRepo, store, validator, publisher,
		cache.NewViewDeduper(redisClient), cfg.ViewDedupTTL())
	s.recipeService = service.NewRecipeService(postRepo, repository.NewRecipeRepository(db), ingredientRepo, store, validator)
	s.commentService = service.NewCommentService(repository.NewCommentRepository(db), postRepo)
	s.tagService = service.NewTagService(tagRepo)
	s.ingredientService = service.NewIngredientService(ingredientRepo)
	s.userService = service.NewUserService(userRepo, store, validator)
	s.reportService = service.NewReportService(postRepo, flags)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
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
	api.Get("/metrics/dashboard", s.AuthRequired(), s.AdminRequired(), monitor.New(monitor.Config{
		Title: "Bloh API Metrics",
	}))

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/token", middleware.RateLimit(s.redis, 10, 5*time.Minute, "token"), s.IssueToken)

	// Posts: reads and views are open, everything else needs a user.
	posts := api.Group("/posts")
	posts.Get("/", s.OptionalAuth(), s.GetPosts)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Post("/:id/likes", s.AuthRequired(), s.ToggleLike)
	posts.Post("/:id/views", s.OptionalAuth(), s.RecordView)
	posts.Get("/:id/ingredients", s.OptionalAuth(), s.GetIngredients)
	posts.Post("/:id/ingredients", s.AuthRequired(), s.AddIngredients)
	posts.Patch("/:id/ingredients/sync", s.AuthRequired(), s.SyncIngredients)
	posts.Get("/:id/steps", s.OptionalAuth(), s.GetSteps)
	posts.Post("/:id/steps", s.AuthRequired(), s.AddSteps)
	posts.Patch("/:id/steps/sync", s.AuthRequired(), s.SyncSteps)
	posts.Get("/:id/comments", s.OptionalAuth(), s.GetComments)
	posts.Post("/:id/comments", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", s.OptionalAuth(), s.GetPost)
	posts.Patch("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	api.Patch("/comments/:id", s.AuthRequired(), s.UpdateComment)
	api.Delete("/comments/:id", s.AuthRequired(), s.DeleteComment)

	tags := api.Group("/tags")
	tags.Get("/", s.GetTags)
	tags.Get("/:id", s.GetTag)
	tags.Post("/", s.AuthRequired(), s.CreateTag)
	tags.Patch("/:id", s.AuthRequired(), s.UpdateTag)
	tags.Delete("/:id", s.AuthRequired(), s.DeleteTag)

	ingredients := api.Group("/ingredients")
	ingredients.Get("/", s.GetIngredientCatalog)
	ingredients.Post("/", s.AuthRequired(), s.CreateIngredient)
	ingredients.Patch("/:id", s.AuthRequired(), s.UpdateIngredient)
	ingredients.Delete("/:id", s.AuthRequired(), s.DeleteIngredient)

	// Define /me routes BEFORE the generic /:id routes
	users := api.Group("/users")
	users.Get("/me", s.AuthRequired(), s.GetMyProfile)
	users.Patch("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Post("/me/avatar", s.AuthRequired(), s.UploadAvatar)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Post("/:id/subscribe", s.AuthRequired(), s.Subscribe)
	users.Delete("/:id/subscribe", s.AuthRequired(), s.Unsubscribe)
	users.Get("/:id", s.OptionalAuth(), s.GetUserProfile)

	api.Get("/reports/posts", s.AuthRequired(), s.AdminRequired(), s.ExportPosts)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/posts", s.GetAdminPosts)
	admin.Patch("/posts/:id/status", s.SetPostStatus)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports unhealthy when either the database or Redis is unreachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
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
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds a Fiber app with the full middleware stack and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Bloh API",
		BodyLimit: int(s.config.ImageMaxUploadBytes())*12 + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier != nil && s.redis != nil {
		go func() {
			err := s.notifier.Subscribe(s.shutdownCtx, func(channel, payload string) {
				middleware.Logger.DebugContext(s.shutdownCtx, "notification delivered",
					"channel", channel, "bytes", len(payload))
			})
			if err != nil {
				log.Printf("failed to start notification listener: %v", err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Pending subscriber notices still read from the database.
	s.publisher.Wait()

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

package router

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/philonet/rooms/internal/api"
	"github.com/philonet/rooms/pkg/config"
	"github.com/philonet/rooms/pkg/di"
	"github.com/philonet/rooms/pkg/errors"
	"github.com/philonet/rooms/pkg/logger"
	"github.com/philonet/rooms/pkg/middleware"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(middleware.RequestIDMiddleware())

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Create rate limiter with default options
	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	// Start the live update hub
	go container.Hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Logger)
	commentsHandler := api.NewCommentsHandler(r.Container.CommentService, r.Logger)
	interactionsHandler := api.NewInteractionsHandler(r.Container.CommentService, r.Container.UserService, r.Logger)
	summaryHandler := api.NewSummaryHandler(r.Container.SummaryService)

	r.setupHealthRoutes()
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Engine.Group("/v1")

	// Auth routes (no auth required except /me)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	// Protected routes (require authentication)
	protectedRoutes := v1.Group("/")
	protectedRoutes.Use(jwtAuth)
	{
		roomRoutes := protectedRoutes.Group("/room")
		{
			roomRoutes.POST("/commentsnew", commentsHandler.ListComments)
			roomRoutes.POST("/subcommentsnew", commentsHandler.ListSubComments)
			roomRoutes.POST("/addcommentnew", commentsHandler.AddComment)
		}

		interactionRoutes := protectedRoutes.Group("/interactions")
		{
			interactionRoutes.POST("/togglereaction", interactionsHandler.ToggleReaction)
			interactionRoutes.GET("/taggable-users", interactionsHandler.TaggableUsers)
		}

		clientRoutes := protectedRoutes.Group("/client")
		{
			clientRoutes.POST("/summarymini", summaryHandler.SummaryMini)
		}

		// Live update stream
		protectedRoutes.GET("/ws", r.Container.Hub.Handler())
	}
}

// Enhance CORS middleware to explicitly allow WebSocket-specific headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func appVersion() string {
	return os.Getenv("APP_VERSION")
}

package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/philonet/rooms/internal/models"
	"github.com/philonet/rooms/pkg/config"
	"github.com/philonet/rooms/pkg/di"
	"github.com/philonet/rooms/pkg/health"
	"github.com/philonet/rooms/pkg/logger"
	"github.com/philonet/rooms/pkg/observability"
	"github.com/philonet/rooms/pkg/router"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logConfig.Level = level
	}
	logConfig.JSON = os.Getenv("LOG_FORMAT") != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting rooms server", "version", os.Getenv("APP_VERSION"))

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&models.User{}, &models.Article{}, &models.Comment{}, &models.Reaction{}); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Create indexes for better query performance
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_comments_article_parent ON comments(article_id, parent_comment_id)").Error; err != nil {
		log.LogError(err, "Failed to create comment index", "index", "idx_comments_article_parent")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_reactions_comment ON reactions(comment_id)").Error; err != nil {
		log.LogError(err, "Failed to create reaction index", "index", "idx_reactions_comment")
	}

	// Tracing and metrics
	shutdownTracing, err := observability.SetupTracing("rooms-server")
	if err != nil {
		log.Warn("Tracing disabled", "error", err.Error())
	}
	if _, err := observability.SetupPrometheusMetrics(); err != nil {
		log.Warn("Prometheus metrics exporter unavailable", "error", err.Error())
	}

	// Initialize dependency injection container
	diConfig := di.DefaultConfig()
	diConfig.LoggerConfig = logConfig
	diConfig.JWTSecret = os.Getenv("JWT_SECRET")
	if expiry := os.Getenv("JWT_EXPIRY"); expiry != "" {
		if val, err := time.ParseDuration(expiry); err == nil {
			diConfig.JWTExpiry = val
		}
	}

	container, err := di.New(db, diConfig)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	// Add OpenAPI validation if schema file is available
	if schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH"); schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	// Periodic component health checks
	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	checker.RegisterHubCheck(container.Hub.ActiveConnections)
	checker.Start()
	r.Engine.GET("/health/components", gin.WrapF(checker.HTTPHandler()))

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r.Engine,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal
	<-quit
	log.Info("Shutting down server...")

	// Create a deadline to wait for
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(ctx); err != nil {
			log.LogError(err, "Tracing shutdown failed")
		}
	}

	log.Info("Server exited gracefully")
}

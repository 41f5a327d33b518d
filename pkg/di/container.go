package di

import (
	"time"

	"gorm.io/gorm"

	"github.com/philonet/rooms/internal/service"
	"github.com/philonet/rooms/internal/ws"
	"github.com/philonet/rooms/pkg/jwt"
	"github.com/philonet/rooms/pkg/logger"
)

// Container holds all the dependencies for the application
type Container struct {
	DB             *gorm.DB
	Logger         *logger.Logger
	JWTService     *jwt.Service
	UserService    *service.UserService
	CommentService *service.CommentService
	SummaryService *service.SummaryService
	Hub            *ws.Hub
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig logger.Config
	JWTSecret    string
	JWTExpiry    time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LoggerConfig: logger.DefaultConfig(),
		JWTSecret:    "",
		JWTExpiry:    0, // Use default
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, config *Config) (*Container, error) {
	if config == nil {
		config = DefaultConfig()
	}

	log := logger.New(config.LoggerConfig)

	jwtService := jwt.NewService(config.JWTSecret, config.JWTExpiry)

	userService := service.NewUserService(db, jwtService)
	commentService := service.NewCommentService(db)
	summaryService := service.NewSummaryService()

	hub := ws.NewHub(log)
	commentService.SetNotifier(hub)

	return &Container{
		DB:             db,
		Logger:         log,
		JWTService:     jwtService,
		UserService:    userService,
		CommentService: commentService,
		SummaryService: summaryService,
		Hub:            hub,
	}, nil
}

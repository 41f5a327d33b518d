package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Client configuration for the rooms API client
	Client struct {
		BaseURL          string
		Timeout          time.Duration
		RateLimit        float64
		RateLimitBurst   int
		BreakerThreshold int
		BreakerReset     time.Duration
	}

	// Engine configuration for message reconciliation
	Engine struct {
		SentDelay        time.Duration
		DeliveredDelay   time.Duration
		RefreshDelay     time.Duration
		SweepInterval    time.Duration
		StuckThreshold   time.Duration
		AIReplyWindow    time.Duration
		AIActivityWindow time.Duration
		NoticeTTL        time.Duration
		ValidationTTL    time.Duration
	}

	// Mention resolution configuration
	Mention struct {
		Debounce time.Duration
		Limit    int
	}

	// Stream subscriber configuration
	Stream struct {
		URL           string
		ReconnectBase time.Duration
		ReconnectCap  time.Duration
		MaxAttempts   int
	}

	// Server configuration for the dev backend
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Path     string
		MaxConns int
		Timeout  time.Duration
	}

	// JWT configuration
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		TrustedProxies []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Redis configuration for the session store
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// Cache settings for loaded threads
	Cache struct {
		Enabled     bool
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Client config
		instance.Client.BaseURL = getEnvString("ROOMS_API_URL", "http://localhost:8081")
		instance.Client.Timeout = getEnvDuration("ROOMS_API_TIMEOUT", 15*time.Second)
		instance.Client.RateLimit = float64(getEnvInt("ROOMS_API_RATE_LIMIT", 10))
		instance.Client.RateLimitBurst = getEnvInt("ROOMS_API_RATE_BURST", 20)
		instance.Client.BreakerThreshold = getEnvInt("ROOMS_API_BREAKER_THRESHOLD", 5)
		instance.Client.BreakerReset = getEnvDuration("ROOMS_API_BREAKER_RESET", 30*time.Second)

		// Engine config
		instance.Engine.SentDelay = getEnvDuration("ENGINE_SENT_DELAY", 300*time.Millisecond)
		instance.Engine.DeliveredDelay = getEnvDuration("ENGINE_DELIVERED_DELAY", 600*time.Millisecond)
		instance.Engine.RefreshDelay = getEnvDuration("ENGINE_REFRESH_DELAY", 3*time.Second)
		instance.Engine.SweepInterval = getEnvDuration("ENGINE_SWEEP_INTERVAL", 5*time.Second)
		instance.Engine.StuckThreshold = getEnvDuration("ENGINE_STUCK_THRESHOLD", 10*time.Second)
		instance.Engine.AIReplyWindow = getEnvDuration("ENGINE_AI_REPLY_WINDOW", 120*time.Second)
		instance.Engine.AIActivityWindow = getEnvDuration("ENGINE_AI_ACTIVITY_WINDOW", 10*time.Second)
		instance.Engine.NoticeTTL = getEnvDuration("ENGINE_NOTICE_TTL", 3*time.Second)
		instance.Engine.ValidationTTL = getEnvDuration("ENGINE_VALIDATION_TTL", 5*time.Second)

		// Mention config
		instance.Mention.Debounce = getEnvDuration("MENTION_DEBOUNCE", 150*time.Millisecond)
		instance.Mention.Limit = getEnvInt("MENTION_LIMIT", 5)

		// Stream config
		instance.Stream.URL = getEnvString("ROOMS_STREAM_URL", "")
		instance.Stream.ReconnectBase = getEnvDuration("STREAM_RECONNECT_BASE", time.Second)
		instance.Stream.ReconnectCap = getEnvDuration("STREAM_RECONNECT_CAP", 30*time.Second)
		instance.Stream.MaxAttempts = getEnvInt("STREAM_MAX_ATTEMPTS", 5)

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Path = getEnvString("DB_PATH", "rooms.db")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// JWT config
		instance.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
		instance.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
		instance.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 10<<20) // 10MB

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Redis config
		instance.Redis.Addr = getEnvString("REDIS_ADDR", "")
		instance.Redis.Password = getEnvString("REDIS_PASSWORD", "")
		instance.Redis.DB = getEnvInt("REDIS_DB", 0)

		// Cache settings
		instance.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
		instance.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
		instance.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
		instance.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

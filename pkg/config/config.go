package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	JWT       JWTConfig
	Sentry    SentryConfig
	Storage   StorageConfig
	Providers ProvidersConfig
	Fraud     FraudConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int
	MinConns      int
	MigrationsDir string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration for evaluation lifecycle events
type NATSConfig struct {
	URL     string
	Enabled bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in hours
}

// SentryConfig holds Sentry error reporting configuration
type SentryConfig struct {
	DSN     string
	Enabled bool
}

// StorageConfig holds document storage (S3) configuration
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string // For S3-compatible storage (MinIO, etc.)
	AccessKey string
	SecretKey string
	BaseURL   string
}

// ProvidersConfig holds evidence provider endpoints and credentials
type ProvidersConfig struct {
	OCRBaseURL         string
	OCRTimeout         int // seconds
	DetectorBaseURL    string
	DetectorTimeout    int // seconds
	SentinelBaseURL    string
	SentinelClientID   string
	SentinelSecret     string
	NASABaseURL        string
	NASAAPIKey         string
	SatelliteTimeout   int // seconds, whole fetch chain including fallback
	SatelliteCacheTTL  int // minutes
	SatelliteImageSize int // pixels, square output requested from providers

	// Sentinel Hub circuit breaker tuning
	SentinelBreakerInterval  int // seconds
	SentinelBreakerTimeout   int // seconds, open-state cooldown
	SentinelBreakerFailures  int // consecutive failures before opening
	SentinelBreakerSuccesses int // half-open probes required to close
}

// FraudConfig holds scoring and risk assessment tuning
type FraudConfig struct {
	LoanPerHectareCeiling float64
	Workers               int
	QueueSize             int
	EvaluationTimeout     int // seconds, whole pipeline
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "agroverify"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 5),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Expiration: getEnvAsInt("JWT_EXPIRATION", 24),
		},
		Sentry: SentryConfig{
			DSN:     getEnv("SENTRY_DSN", ""),
			Enabled: getEnvAsBool("SENTRY_ENABLED", false),
		},
		Storage: StorageConfig{
			Bucket:    getEnv("STORAGE_BUCKET", "agroverify-documents"),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			BaseURL:   getEnv("STORAGE_BASE_URL", ""),
		},
		Providers: ProvidersConfig{
			OCRBaseURL:         getEnv("OCR_BASE_URL", "http://localhost:8090"),
			OCRTimeout:         getEnvAsInt("OCR_TIMEOUT", 30),
			DetectorBaseURL:    getEnv("DETECTOR_BASE_URL", "http://localhost:8091"),
			DetectorTimeout:    getEnvAsInt("DETECTOR_TIMEOUT", 30),
			SentinelBaseURL:    getEnv("SENTINEL_HUB_BASE_URL", "https://services.sentinel-hub.com/api/v1"),
			SentinelClientID:   getEnv("SENTINEL_HUB_CLIENT_ID", ""),
			SentinelSecret:     getEnv("SENTINEL_HUB_CLIENT_SECRET", ""),
			NASABaseURL:        getEnv("NASA_EARTH_BASE_URL", "https://api.nasa.gov/planetary/earth"),
			NASAAPIKey:         getEnv("NASA_API_KEY", "DEMO_KEY"),
			SatelliteTimeout:   getEnvAsInt("SATELLITE_TIMEOUT", 45),
			SatelliteCacheTTL:  getEnvAsInt("SATELLITE_CACHE_TTL", 360),
			SatelliteImageSize: getEnvAsInt("SATELLITE_IMAGE_SIZE", 1000),

			SentinelBreakerInterval:  getEnvAsInt("SENTINEL_BREAKER_INTERVAL", 60),
			SentinelBreakerTimeout:   getEnvAsInt("SENTINEL_BREAKER_TIMEOUT", 30),
			SentinelBreakerFailures:  getEnvAsInt("SENTINEL_BREAKER_FAILURES", 5),
			SentinelBreakerSuccesses: getEnvAsInt("SENTINEL_BREAKER_SUCCESSES", 2),
		},
		Fraud: FraudConfig{
			LoanPerHectareCeiling: getEnvAsFloat("LOAN_PER_HECTARE_CEILING", 100000),
			Workers:               getEnvAsInt("EVALUATION_WORKERS", 4),
			QueueSize:             getEnvAsInt("EVALUATION_QUEUE_SIZE", 64),
			EvaluationTimeout:     getEnvAsInt("EVALUATION_TIMEOUT", 120),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrateURL returns the database URL in the form golang-migrate expects
func (c *DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends understood by the API server
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	OpenAI      OpenAIConfig
	OTEL        OTELConfig
	Assessment  AssessmentConfig
	Report      ReportConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	RunMigrations bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	Temperature    float64
	RequestTimeout time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// AssessmentConfig holds conversation and session policy
type AssessmentConfig struct {
	StoreBackend           string
	CatalogPath            string
	MaxErrors              int
	InterpreterTimeout     time.Duration
	InterpreterRetries     int
	ClarificationThreshold float64
	SessionTTL             time.Duration
	LockTTL                time.Duration
	LLMMessages            bool
}

// ReportConfig holds clinician report settings
type ReportConfig struct {
	FontPath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnvAsInt("DB_PORT", 5432),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", ""),
			Database:      getEnv("DB_NAME", "functional_assessment"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			Temperature:    getEnvAsFloat("OPENAI_TEMPERATURE", 0.1),
			RequestTimeout: getEnvAsDuration("OPENAI_REQUEST_TIMEOUT", 20*time.Second),
			RateLimitRPM:   getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "functional-assessment"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Assessment: AssessmentConfig{
			StoreBackend:           getEnv("ASSESSMENT_STORE", StoreBackendPostgres),
			CatalogPath:            getEnv("ASSESSMENT_CATALOG_PATH", ""),
			MaxErrors:              getEnvAsInt("ASSESSMENT_MAX_ERRORS", 3),
			InterpreterTimeout:     getEnvAsDuration("ASSESSMENT_INTERPRETER_TIMEOUT", 15*time.Second),
			InterpreterRetries:     getEnvAsInt("ASSESSMENT_INTERPRETER_RETRIES", 2),
			ClarificationThreshold: getEnvAsFloat("ASSESSMENT_CLARIFICATION_THRESHOLD", 0),
			SessionTTL:             getEnvAsDuration("ASSESSMENT_SESSION_TTL", 24*time.Hour),
			LockTTL:                getEnvAsDuration("ASSESSMENT_LOCK_TTL", 60*time.Second),
			LLMMessages:            getEnvAsBool("ASSESSMENT_LLM_MESSAGES", false),
		},
		Report: ReportConfig{
			FontPath: getEnv("REPORT_FONT_PATH", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	switch c.Assessment.StoreBackend {
	case StoreBackendMemory, StoreBackendPostgres:
	default:
		return fmt.Errorf("unknown ASSESSMENT_STORE %q (expected %s or %s)",
			c.Assessment.StoreBackend, StoreBackendMemory, StoreBackendPostgres)
	}
	if c.Assessment.MaxErrors < 1 {
		return fmt.Errorf("ASSESSMENT_MAX_ERRORS must be at least 1, got %d", c.Assessment.MaxErrors)
	}
	if c.Assessment.InterpreterTimeout <= 0 {
		return fmt.Errorf("ASSESSMENT_INTERPRETER_TIMEOUT must be positive, got %s", c.Assessment.InterpreterTimeout)
	}
	if c.Assessment.ClarificationThreshold < 0 || c.Assessment.ClarificationThreshold > 1 {
		return fmt.Errorf("ASSESSMENT_CLARIFICATION_THRESHOLD must be within [0,1], got %v", c.Assessment.ClarificationThreshold)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

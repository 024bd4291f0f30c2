package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendGorm = "gorm"
	BackendRest = "rest"
)

// Config holds application configuration
type Config struct {
	Port string
	Mode string // dev, prod, test

	StoreBackend string // gorm or rest

	DBDriver   string // postgres, mysql, sqlite
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	JWTKey    string
	SaltRound int

	BackendURL    string // managed backend base URL, used by the rest store
	BackendAPIKey string

	RedisURL        string
	CatalogCacheTTL time.Duration

	RequestTimeout time.Duration

	SendgridAPIKey string
	EmailSender    string
	ReminderCron   string

	CatalogArchiveDir string

	SessionTTL       time.Duration
	SessionSweepCron string
}

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	cfg := &Config{
		Port: getEnv("PORT", "3000"),
		Mode: getEnv("APP_MODE", "dev"),

		StoreBackend: getEnv("STORE_BACKEND", BackendGorm),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "prolific.db"),
		DBPort:     getEnv("DB_PORT", "5432"),

		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		BackendURL:    getEnv("BACKEND_URL", ""),
		BackendAPIKey: getEnv("BACKEND_API_KEY", ""),

		RedisURL:        getEnv("REDIS_URL", ""),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),

		SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailSender:    getEnv("EMAIL_SENDER", "no-reply@prolific.app"),
		ReminderCron:   getEnv("REMINDER_CRON", "0 * * * *"), // hourly, matched against reminder_hour

		CatalogArchiveDir: getEnv("CATALOG_ARCHIVE_DIR", "./uploads/catalog"),

		SessionTTL:       getEnvDuration("SESSION_TTL", 2*time.Hour),
		SessionSweepCron: getEnv("SESSION_SWEEP_CRON", "@every 10m"),
	}

	// Validate critical configuration
	if cfg.StoreBackend == BackendGorm && cfg.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if cfg.StoreBackend == BackendRest && cfg.BackendURL == "" {
		log.Println("Warning: STORE_BACKEND=rest but BACKEND_URL is empty.")
	}

	return cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to duration: %v", key, err)
		return defaultValue
	}
	return d
}

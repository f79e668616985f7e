package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Scoring defaults follow the product spec and can be tuned per deployment.
type Config struct {
	// Server
	ServerPort  string
	Environment string

	// Logging
	LogLevel  string
	LogOutput string // file path, empty = console only

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO (default cover-art assets)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Scoring defaults
	RankDecayK       float64 // exponent for the base rank curve
	PresentDecayRate float64 // hourly decay while on site
	AbsentDecayRate  float64 // hourly decay after leaving
	GentleDecayAll   bool    // treat everyone as present regardless of geofence

	// Geofence defaults
	GeofenceRadiusM   float64
	LocationStaleness time.Duration
	SmallEventMax     int // expected-guest threshold below which an event defaults to small

	// Vibe gate
	GatePolicyPath string // JSON policy file, hot-reloaded

	// DJ dashboard
	RepeatWindow    time.Duration // repeat-suppression lookback
	PoolBroadcastN  int           // how many ranked tracks go out per push
	AggregateDelay  time.Duration // debounce window for re-aggregation
	DashboardTTL    time.Duration // redis TTL for cached dashboard state
	ArtworkVariants int           // number of default covers in the bucket
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as duration or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogOutput: getEnv("LOG_OUTPUT", ""),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for secrets
		DBName:     getEnv("DB_NAME", "qrate"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "qrate-artwork"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RankDecayK:       getEnvFloat("RANK_DECAY_K", 0.05),
		PresentDecayRate: getEnvFloat("PRESENT_DECAY_RATE", 0.90),
		AbsentDecayRate:  getEnvFloat("ABSENT_DECAY_RATE", 0.40),
		GentleDecayAll:   getEnvBool("GENTLE_DECAY_ALL", false),

		GeofenceRadiusM:   getEnvFloat("GEOFENCE_RADIUS_M", 100),
		LocationStaleness: getEnvDuration("LOCATION_STALENESS", 15*time.Minute),
		SmallEventMax:     getEnvInt("SMALL_EVENT_MAX", 20),

		GatePolicyPath: getEnv("GATE_POLICY_PATH", "vibegate.json"),

		RepeatWindow:    getEnvDuration("REPEAT_WINDOW", 180*time.Minute),
		PoolBroadcastN:  getEnvInt("POOL_BROADCAST_N", 50),
		AggregateDelay:  getEnvDuration("AGGREGATE_DELAY", 500*time.Millisecond),
		DashboardTTL:    getEnvDuration("DASHBOARD_TTL", 24*time.Hour),
		ArtworkVariants: getEnvInt("ARTWORK_VARIANTS", 12),
	}
}

package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	// DriverMemory keeps everything in process; data is gone on exit.
	DriverMemory = "memory"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Storage backend: mongo, postgres or memory
	StoreDriver string

	// Mongo configuration
	MongoURI      string
	MongoDatabase string

	// Postgres configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration
	RedisAddress string

	// JWT configuration
	JWTSecret          string
	JWTSecretGenerated bool
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	FrontendAddress string

	// workers used by the repair-ids migration
	RepairWorkers int
}

func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PostgresDSN builds the gorm/pgx connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v sslmode=disable",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
	)
}

// Load reads configuration from an optional .env file and the environment.
// Values already present in the environment win over the .env file.
func Load() (*Config, error) {
	loadDotEnv()

	jwtSecret := os.Getenv("JWT_SECRET")
	generated := false
	if jwtSecret == "" {
		secret, err := generateRandomSecret(32)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		jwtSecret = secret
		generated = true
	}

	accessTTL, err := getDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	workers, err := strconv.Atoi(getEnv("REPAIR_WORKERS", "4"))
	if err != nil || workers < 1 {
		return nil, fmt.Errorf("REPAIR_WORKERS must be a positive integer")
	}

	cfg := &Config{
		ServerPort:         getEnv("PORT", "8080"),
		Environment:        getEnv("ENV", "development"),
		StoreDriver:        getEnv("STORE_DRIVER", DriverMongo),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "diet_management"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "diet_management"),
		RedisAddress:       getEnv("REDIS_ADDRESS", "localhost:6379"),
		JWTSecret:          jwtSecret,
		JWTSecretGenerated: generated,
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		FrontendAddress:    getEnv("FRONTEND_ADDRESS", "https://production-frontend.com"),
		RepairWorkers:      workers,
	}

	switch cfg.StoreDriver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want %s, %s or %s)", cfg.StoreDriver, DriverMongo, DriverPostgres, DriverMemory)
	}

	return cfg, nil
}

// loadDotEnv loads the nearest .env file, looking up to two parent directories
func loadDotEnv() {
	for _, envPath := range []string{
		".env",
		filepath.Join("..", ".env"),
		filepath.Join("..", "..", ".env"),
	} {
		if _, err := os.Stat(envPath); err == nil {
			// godotenv.Load never overrides variables that are already set
			_ = godotenv.Load(envPath)
			return
		}
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// generateRandomSecret generates a hex secret from length random bytes
func generateRandomSecret(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

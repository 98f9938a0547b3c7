package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string
	DatabaseURL       string
	JWTSecret         string
	JWTTTL            time.Duration
	Environment       string
	RunMigrations     bool
	RunSeed           bool
	MigrationsDir     string
	SeedDefaultPass   string
	DirectorUsername  string
	DefaultAnnualDays int
}

func Load() Config {
	// Missing .env is fine; real deployments use environment variables.
	_ = godotenv.Load()

	return Config{
		Addr:              getEnv("APP_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTTTL:            getEnvDuration("JWT_TTL", 8*time.Hour),
		Environment:       getEnv("APP_ENV", "development"),
		RunMigrations:     getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:           getEnvBool("RUN_SEED", true),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", "migrations"),
		SeedDefaultPass:   getEnv("SEED_DEFAULT_PASSWORD", "1207"),
		DirectorUsername:  getEnv("DIRECTOR_USERNAME", "director"),
		DefaultAnnualDays: getEnvInt("DEFAULT_ANNUAL_DAYS", 21),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

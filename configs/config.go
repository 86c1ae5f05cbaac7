package configs

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	LogModeFile    = "file"
	LogModeConsole = "console"
)

type Config struct {
	Env     string
	AppPort int

	StoreDriver string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string
	DBNameTest  string
	DBSSLMode   string

	RedisEnabled bool
	RedisHost    string
	RedisPort    int
	RedisTTL     time.Duration

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	LogDir  string
	LogMode string

	RateLimitMax int
	CORSOrigins  string
}

func LoadConfig() Config {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		Env:     getEnv("GO_ENV", "development"),
		AppPort: getEnvInt("APP_PORT", 3004),

		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnvInt("DB_PORT", 5432),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      getEnv("DB_NAME", "todogether"),
		DBNameTest:  getEnv("DB_NAME_TEST", "todogether_test"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		RedisEnabled: getEnvBool("REDIS_ENABLED", false),
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnvInt("REDIS_PORT", 6379),
		RedisTTL:     getEnvDuration("REDIS_TTL", time.Hour),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 4380*time.Hour),

		LogDir:  getEnv("LOG_DIR", "logs"),
		LogMode: getEnv("LOG_MODE", LogModeFile),

		RateLimitMax: getEnvInt("RATE_LIMIT_MAX", 100),
		CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
	}
}

// Validate reports configuration that would make the server unsafe or unable to start.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" && c.Env != "development" && c.Env != "test" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.LogMode {
	case LogModeFile, LogModeConsole:
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_MODE %q", c.LogMode))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	return errors.Join(errs...)
}

// SigningKey returns the JWT secret, falling back to a fixed key outside production.
func (c Config) SigningKey() []byte {
	if c.JWTSecret == "" {
		return []byte("secret")
	}
	return []byte(c.JWTSecret)
}

func (c Config) PostgresDSN(dbName string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, dbName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"intervi-api/internal/model"
	"intervi-api/internal/password"
	"intervi-api/internal/token"
)

const (
	EnvProduction = "production"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	AppEnv                  string
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	BodyLimit               int64
	CORSOrigins             []string
	RateLimitRPM            int
	AuthRateLimitRPM        int
	LogLevel                string
	LogFormat               string
	StoreDriver             string
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	RedisURL                string
	JWTAccessSecret         string
	JWTRefreshSecret        string
	JWTAccessTTL            time.Duration
	JWTRefreshTTL           time.Duration
	AnalyticsCacheTTL       time.Duration
	RealtimeTicketTTL       time.Duration
	AdminEmails             []string
	BcryptCost              int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:                  strings.ToLower(getEnv("APP_ENV", "development")),
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		BodyLimit:               getInt64("BODY_LIMIT", 1<<20),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
		StoreDriver:             strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		RedisURL:                strings.TrimSpace(os.Getenv("REDIS_URL")),
		JWTAccessSecret:         strings.TrimSpace(os.Getenv("JWT_ACCESS_SECRET")),
		JWTRefreshSecret:        strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
		JWTAccessTTL:            getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:           getDuration("JWT_REFRESH_TTL", 168*time.Hour),
		AnalyticsCacheTTL:       getDuration("ANALYTICS_CACHE_TTL", 5*time.Minute),
		RealtimeTicketTTL:       getDuration("REALTIME_TICKET_TTL", 60*time.Second),
		AdminEmails:             splitCSV(os.Getenv("ADMIN_EMAILS")),
		BcryptCost:              getInt("BCRYPT_COST", password.DefaultCost),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c *Config) Validate() error {
	if len(c.JWTAccessSecret) < token.MinSecretLength {
		return fmt.Errorf("%w: JWT_ACCESS_SECRET must be at least %d bytes", model.ErrUnconfigured, token.MinSecretLength)
	}

	if len(c.JWTRefreshSecret) < token.MinSecretLength {
		return fmt.Errorf("%w: JWT_REFRESH_SECRET must be at least %d bytes", model.ErrUnconfigured, token.MinSecretLength)
	}

	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return fmt.Errorf("%w: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ", model.ErrUnconfigured)
	}

	if c.ServerPort == "" {
		return fmt.Errorf("%w: SERVER_PORT cannot be empty", model.ErrUnconfigured)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: REQUEST_TIMEOUT must be positive", model.ErrUnconfigured)
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("%w: JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive", model.ErrUnconfigured)
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: BCRYPT_COST must be between %d and %d", model.ErrUnconfigured, bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.RealtimeTicketTTL <= 0 {
		return fmt.Errorf("%w: REALTIME_TICKET_TTL must be positive", model.ErrUnconfigured)
	}

	if c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("%w: LOG_FORMAT must be pretty or json", model.ErrUnconfigured)
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", model.ErrUnconfigured)
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("%w: DB_MIN_CONNS and DB_MAX_CONNS are out of range", model.ErrUnconfigured)
		}
	case StoreDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("%w: the memory store is not allowed in production", model.ErrUnconfigured)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", model.ErrUnconfigured, c.StoreDriver)
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/database"
	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/utilities"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultTokenTTL = 7 * 24 * time.Hour
	minSecretLen    = 32
)

// Config contains runtime configuration values.
type Config struct {
	Environment           string
	HTTPAddr              string
	ShutdownTimeout       time.Duration
	JWTSecret             string
	JWTIssuer             string
	TokenTTL              time.Duration
	BcryptCost            int
	SnowflakeNode         int64
	ProfileCreateAttempts int
	Database              database.Config
	Log                   utilities.Config
}

// IsDevelopment reports whether diagnostic detail may be returned to callers.
func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Load reads configuration from .env (if present) and environment variables.
func Load() (Config, error) {
	// best-effort: no .env means real env or defaults
	_ = godotenv.Load()

	cfg := Config{
		Environment:           strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		HTTPAddr:              getEnv("HTTP_ADDR", "0.0.0.0:8431"),
		ShutdownTimeout:       getDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTIssuer:             getEnv("JWT_ISSUER", "gig-auth"),
		BcryptCost:            getInt("BCRYPT_COST", 12),
		SnowflakeNode:         int64(getInt("SNOWFLAKE_NODE", 1)),
		ProfileCreateAttempts: getInt("PROFILE_CREATE_ATTEMPTS", 2),
		Database:              database.ConfigFromEnv(),
		Log:                   utilities.ConfigFromEnv(),
	}

	ttl, err := ParseTTL(getEnv("JWT_EXPIRES_IN", "7d"))
	if err != nil {
		return Config{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	cfg.TokenTTL = ttl

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if !cfg.IsDevelopment() && len(cfg.JWTSecret) < minSecretLen {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least %d bytes outside development", minSecretLen)
	}
	if cfg.ProfileCreateAttempts < 1 {
		cfg.ProfileCreateAttempts = 1
	}
	return cfg, nil
}

// ParseTTL parses a token lifetime. It accepts Go durations ("36h", "90m") and a
// whole-day form ("7d"). An empty value yields the 7 day default.
func ParseTTL(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultTokenTTL, nil
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", v)
	}
	return d, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

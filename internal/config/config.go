package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Auth modes accepted by AUTH_MODE.
const (
	AuthModeJWT   = "jwt"
	AuthModeTrust = "trust"
)

type Config struct {
	HTTPAddr string

	DBURL      string
	SQLitePath string
	RedisURL   string

	AuthMode  string
	JWTSecret string

	AllowedOrigins []string

	LogLevel  string
	LogPretty bool

	MessageMaxBytes int
	WSMaxFrameBytes int64
	WSAuthTimeout   time.Duration

	RateLimitMessages int
	RateLimitWindow   time.Duration

	AsynqConcurrency int
	AsynqQueues      string
}

// Load reads the configuration from the environment. Missing or unparsable
// values fall back to defaults; call Validate before using the result.
func Load() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DBURL:             strings.TrimSpace(os.Getenv("DB_URL")),
		SQLitePath:        getEnv("SQLITE_PATH", "file:daoob.db"),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		AuthMode:          strings.ToLower(getEnv("AUTH_MODE", AuthModeJWT)),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AllowedOrigins:    splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnv("LOG_PRETTY", "false") == "true",
		MessageMaxBytes:   getEnvInt("MESSAGE_MAX_BYTES", 5*1024),
		WSMaxFrameBytes:   int64(getEnvInt("WS_MAX_FRAME_BYTES", 64*1024)),
		WSAuthTimeout:     getEnvDuration("WS_AUTH_TIMEOUT", 30*time.Second),
		RateLimitMessages: getEnvInt("RATE_LIMIT_MESSAGES", 30),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 10*time.Second),
		AsynqConcurrency:  getEnvInt("ASYNQ_CONCURRENCY", 10),
		AsynqQueues:       strings.TrimSpace(os.Getenv("ASYNQ_QUEUES")),
	}
}

// Validate reports settings that make the service unusable.
func (c Config) Validate() error {
	switch c.AuthMode {
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return errors.New("config: JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case AuthModeTrust:
	default:
		return errors.New("config: AUTH_MODE must be jwt or trust")
	}
	if c.DBURL == "" && c.SQLitePath == "" {
		return errors.New("config: either DB_URL or SQLITE_PATH must be set")
	}
	if c.MessageMaxBytes <= 0 {
		return errors.New("config: MESSAGE_MAX_BYTES must be positive")
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

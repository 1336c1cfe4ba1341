package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the reference backend's runtime configuration sourced from env vars.
type Config struct {
	Port               string
	DatabaseURL        string
	JWTSecret          string
	JWTIssuer          string
	JWTTTL             time.Duration
	CORSOrigins        []string
	LoginRatePerSecond float64
	LoginRateBurst     int
	SeedDemoData       bool
	LogLevel           string
	LogFormat          string
}

// Load reads backend configuration from the environment and performs minimal validation.
// An empty DATABASE_URL selects the in-memory store.
func Load() (Config, error) {
	cfg := Config{
		Port:               fallback(os.Getenv("PORT"), "5000"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:          fallback(os.Getenv("JWT_ISSUER"), "lending-backend"),
		JWTTTL:             minutes(os.Getenv("JWT_TTL_MINUTES"), 60),
		CORSOrigins:        parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LoginRatePerSecond: floatOr(os.Getenv("LOGIN_RATE_PER_SECOND"), 1),
		LoginRateBurst:     intOr(os.Getenv("LOGIN_RATE_BURST"), 5),
		SeedDemoData:       boolOr(os.Getenv("SEED_DEMO_DATA"), true),
		LogLevel:           fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:          fallback(os.Getenv("LOG_FORMAT"), "text"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Session store kinds.
const (
	SessionMemory = "memory"
	SessionFile   = "file"
	SessionRedis  = "redis"
)

// ConsoleConfig holds the console server's runtime configuration.
type ConsoleConfig struct {
	Port         string
	APIURL       string
	SessionStore string
	SessionFile  string
	RedisURL     string
	SessionTTL   time.Duration
	DemoMode     bool
	HTTPTimeout  time.Duration
	UsePatch     bool
	SecureCookie bool
	CORSOrigins  []string
	LogLevel     string
	LogFormat    string
}

// LoadConsole reads console configuration from the environment.
func LoadConsole() (ConsoleConfig, error) {
	cfg := ConsoleConfig{
		Port:         fallback(os.Getenv("CONSOLE_PORT"), "8080"),
		APIURL:       fallback(os.Getenv("CONSOLE_API_URL"), "http://localhost:5000/api"),
		SessionStore: strings.ToLower(fallback(os.Getenv("CONSOLE_SESSION_STORE"), SessionMemory)),
		SessionFile:  fallback(os.Getenv("CONSOLE_SESSION_FILE"), "console-session.json"),
		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		SessionTTL:   minutes(os.Getenv("CONSOLE_SESSION_TTL_MINUTES"), 24*60),
		DemoMode:     boolOr(os.Getenv("CONSOLE_DEMO_MODE"), false),
		HTTPTimeout:  time.Duration(intOr(os.Getenv("CONSOLE_HTTP_TIMEOUT_SECONDS"), 15)) * time.Second,
		UsePatch:     boolOr(os.Getenv("CONSOLE_USE_PATCH"), false),
		SecureCookie: boolOr(os.Getenv("CONSOLE_SECURE_COOKIE"), false),
		CORSOrigins:  parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LogLevel:     fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:    fallback(os.Getenv("LOG_FORMAT"), "text"),
	}

	switch cfg.SessionStore {
	case SessionMemory, SessionFile:
	case SessionRedis:
		if cfg.RedisURL == "" {
			return ConsoleConfig{}, errors.New("REDIS_URL is required when CONSOLE_SESSION_STORE=redis")
		}
	default:
		return ConsoleConfig{}, fmt.Errorf("unknown CONSOLE_SESSION_STORE %q", cfg.SessionStore)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the console server to bind to.
func (c ConsoleConfig) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func minutes(value string, def int) time.Duration {
	if m, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && m > 0 {
		return time.Duration(m) * time.Minute
	}
	return time.Duration(def) * time.Minute
}

func intOr(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func floatOr(value string, def float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil && f > 0 {
		return f
	}
	return def
}

func boolOr(value string, def bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
		return b
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

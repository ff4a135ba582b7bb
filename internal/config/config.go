package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvTypeError reports an environment variable that could not be converted.
type EnvTypeError struct {
	Name  string
	Value string
}

func (e *EnvTypeError) Error() string {
	return fmt.Sprintf("unable to convert environment variable %s=%q", e.Name, e.Value)
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds the settings shared by the server and the CLI.
type Config struct {
	PredictServiceURL string
	PredictTimeout    time.Duration

	Port         string
	Production   bool
	AllowOrigins []string
	APIToken     string

	HistoryDBPath        string
	HistoryRetention     time.Duration
	HistoryPruneInterval time.Duration

	CacheBackend string
	CacheTTL     time.Duration
	RedisAddr    string

	SessionTTL time.Duration
}

// LoadEnvFiles loads .env files that exist, without overriding variables
// already set.
func LoadEnvFiles(files ...string) []string {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	return loaded
}

// Load reads Config from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		PredictServiceURL: getEnvString("PREDICT_SERVICE_URL", "http://localhost:5000"),
		Port:              getEnvString("PORT", "8080"),
		Production:        os.Getenv("ENVIRONMENT") == "production",
		AllowOrigins:      splitList(getEnvString("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		APIToken:          os.Getenv("API_TOKEN"),
		HistoryDBPath:     getEnvString("HISTORY_DB_PATH", "./data/history.db"),
		CacheBackend:      strings.ToLower(getEnvString("CACHE_BACKEND", CacheNone)),
		RedisAddr:         getEnvString("REDIS_ADDR", "localhost:6379"),
	}
	if v, ok := os.LookupEnv("HISTORY_DB_PATH"); ok && v == "" {
		cfg.HistoryDBPath = ""
	}

	var err error
	if cfg.PredictTimeout, err = getEnvDuration("PREDICT_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.HistoryRetention, err = getEnvDuration("HISTORY_RETENTION", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HistoryPruneInterval, err = getEnvDuration("HISTORY_PRUNE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	switch cfg.CacheBackend {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return nil, &EnvTypeError{Name: "CACHE_BACKEND", Value: cfg.CacheBackend}
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, &EnvTypeError{Name: "PORT", Value: cfg.Port}
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if n, err := strconv.Atoi(value); err == nil && n == 0 {
		return 0, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, &EnvTypeError{Name: key, Value: value}
	}
	return parsed, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

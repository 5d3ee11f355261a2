package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service settings read from the environment.
type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	DatabaseURL string // empty selects the in-memory store

	RedisAddr      string // empty disables the replay cache
	ReplayCacheTTL time.Duration

	KafkaBrokers []string // empty disables event publishing
	KafkaTopic   string

	PostingMaxAttempts int
	PostingTimeout     time.Duration

	SeedCurrencies []string
}

// Load reads .env files (when present) and then the process environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := Config{
		AppEnv:      getenv("APP_ENV", "development"),
		LogLevel:    getenv("LOG_LEVEL", ""),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		MetricsAddr: getenv("METRICS_ADDR", ":9090"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		RedisAddr:   getenv("REDIS_ADDR", ""),
		KafkaTopic:  getenv("KAFKA_TOPIC", "transaction_completed"),
	}

	cfg.KafkaBrokers = splitList(getenv("KAFKA_BROKERS", ""))
	cfg.SeedCurrencies = splitList(strings.ToUpper(getenv("SEED_CURRENCIES", "EUR,USD")))

	var err error
	if cfg.ReplayCacheTTL, err = durationEnv("REPLAY_CACHE_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PostingTimeout, err = durationEnv("POSTING_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PostingMaxAttempts, err = intEnv("POSTING_MAX_ATTEMPTS", 3); err != nil {
		return Config{}, err
	}
	if cfg.PostingMaxAttempts < 1 {
		return Config{}, fmt.Errorf("POSTING_MAX_ATTEMPTS must be at least 1, got %d", cfg.PostingMaxAttempts)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getenv(key, "")
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := getenv(key, "")
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults
const (
	DefaultCodeLength   = 5
	DefaultChallengeTTL = 90 * time.Second
	DefaultPollTimeout  = 10 * time.Second
)

// Config holds the bot's configuration, read from the environment once
// at startup and treated as immutable.
type Config struct {
	// TelegramToken authenticates the bot against the Telegram API
	TelegramToken string

	// CodeLength of generated captcha codes
	CodeLength int

	// ChallengeTTL is how long an issued code stays valid
	ChallengeTTL time.Duration

	// AuthEnabled selects the captcha-gated wiring; when false the bot
	// echoes for everyone
	AuthEnabled bool

	// RedisAddr, when set, selects the Redis session store over the
	// in-memory one
	RedisAddr string

	// RedisPassword for the Redis session store
	RedisPassword string

	// PollTimeout for the Telegram long poller
	PollTimeout time.Duration
}

// Load reads the configuration from environment variables. The bot
// token is required; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("required environment variable TELEGRAM_TOKEN is not set")
	}

	var err error

	cfg.CodeLength, err = getEnvInt("CODE_LENGTH", DefaultCodeLength)
	if err != nil {
		return nil, err
	}
	if cfg.CodeLength < 1 {
		return nil, fmt.Errorf("CODE_LENGTH must be at least 1, got %d", cfg.CodeLength)
	}

	cfg.ChallengeTTL, err = getEnvDuration("CAPTCHA_TTL", DefaultChallengeTTL)
	if err != nil {
		return nil, err
	}

	cfg.AuthEnabled, err = getEnvBool("AUTH_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg.PollTimeout, err = getEnvDuration("POLL_TIMEOUT", DefaultPollTimeout)
	if err != nil {
		return nil, err
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	return cfg, nil
}

func getEnvInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}

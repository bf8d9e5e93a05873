package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultCTFTimeAPIURL = "https://ctftime.org/api/v1/events/"
	defaultCheckInterval = 10 * time.Minute
	defaultLockTTL       = 120 * time.Second
	defaultRetentionDays = -90
	defaultSearchDays    = 30
)

type Config struct {
	Token       string
	GuildID     string
	DatabaseURL string

	MigrationsPath string

	CTFTimeAPIURL string
	// SearchDays bounds the upcoming-events feed query (now .. now+SearchDays).
	SearchDays int
	// RetentionDays is the retention horizon offset in days, usually
	// negative: events finishing before now+RetentionDays fall out of
	// reconciliation and get archived.
	RetentionDays int

	CheckInterval time.Duration
	// LockTTL bounds every event lease. Long enough to cover a worst-case
	// Discord round trip, short enough that a crashed holder self-heals.
	LockTTL time.Duration

	Environment string
}

// Load reads configuration from the environment (and .env when present) and
// validates it.
func Load() (*Config, error) {
	// .env is optional; variables may come straight from the environment
	// (Docker, CI, etc.).
	_ = godotenv.Load()

	cfg := &Config{
		Token:          os.Getenv("TOKEN"),
		GuildID:        os.Getenv("GUILD_ID"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		CTFTimeAPIURL:  os.Getenv("CTFTIME_API_URL"),
		Environment:    os.Getenv("ENVIRONMENT"),
	}

	var err error
	if cfg.SearchDays, err = intEnv("CTFTIME_SEARCH_DAYS", defaultSearchDays); err != nil {
		return nil, err
	}
	if cfg.RetentionDays, err = intEnv("RETENTION_DAYS", defaultRetentionDays); err != nil {
		return nil, err
	}
	checkMinutes, err := intEnv("CHECK_INTERVAL_MINUTES", 0)
	if err != nil {
		return nil, err
	}
	cfg.CheckInterval = defaultCheckInterval
	if checkMinutes > 0 {
		cfg.CheckInterval = time.Duration(checkMinutes) * time.Minute
	}
	ttlSeconds, err := intEnv("LOCK_TTL_SECONDS", 0)
	if err != nil {
		return nil, err
	}
	cfg.LockTTL = defaultLockTTL
	if ttlSeconds > 0 {
		cfg.LockTTL = time.Duration(ttlSeconds) * time.Second
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// validate applies every rule on the loaded configuration.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("config: TOKEN is required and cannot be empty")
	}

	if strings.TrimSpace(c.GuildID) == "" {
		return fmt.Errorf("config: GUILD_ID is required and cannot be empty")
	}
	for _, r := range c.GuildID {
		if r < '0' || r > '9' {
			return fmt.Errorf("config: GUILD_ID must be a Discord guild ID (digits only)")
		}
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		// Useful local default when DATABASE_URL is not provided.
		c.DatabaseURL = "postgres://localhost:5432/ctfbot?sslmode=disable"
	}
	parsed, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return fmt.Errorf("config: DATABASE_URL invalid (%q): %w", c.DatabaseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("config: DATABASE_URL invalid (%q): missing scheme or host", c.DatabaseURL)
	}

	if strings.TrimSpace(c.MigrationsPath) == "" {
		c.MigrationsPath = "migrations"
	}

	if strings.TrimSpace(c.CTFTimeAPIURL) == "" {
		c.CTFTimeAPIURL = defaultCTFTimeAPIURL
	}
	if _, err := url.Parse(c.CTFTimeAPIURL); err != nil {
		return fmt.Errorf("config: CTFTIME_API_URL invalid (%q): %w", c.CTFTimeAPIURL, err)
	}

	if c.SearchDays <= 0 {
		return fmt.Errorf("config: CTFTIME_SEARCH_DAYS must be positive")
	}
	if c.RetentionDays >= 0 {
		return fmt.Errorf("config: RETENTION_DAYS must be negative (a look-back horizon)")
	}

	return nil
}

// RetentionHorizon returns the cutoff timestamp below which events are no
// longer reconciled.
func (c *Config) RetentionHorizon(now time.Time) time.Time {
	return now.AddDate(0, 0, c.RetentionDays)
}

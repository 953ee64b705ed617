// Package config provides configuration loading and validation for relnotes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Sentinel validation errors.
var (
	ErrInvalidRepository = errors.New("github repository must be owner/name")
	ErrInvalidTimeout    = errors.New("github timeout must be positive")
	ErrInvalidRetries    = errors.New("github max retries must not be negative")
	ErrInvalidBackoff    = errors.New("github retry backoff must be positive")
)

// repositoryRe matches "owner/name" with exactly one slash.
var repositoryRe = regexp.MustCompile(`^[^/\s]+/[^/\s]+$`)

// Config is the top-level configuration struct for relnotes.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	GitHub GitHubConfig `mapstructure:"github"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Log    LogConfig    `mapstructure:"log"`
}

// GitHubConfig holds issue-tracker client settings.
type GitHubConfig struct {
	// Repository is the "owner/name" home repository. Empty means detect it
	// from the git origin remote.
	Repository   string        `mapstructure:"repository"`
	APIURL       string        `mapstructure:"api_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Dir      string `mapstructure:"dir"`
	Ignore   bool   `mapstructure:"ignore"`
	Compress bool   `mapstructure:"compress"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Validate checks the configuration for values no run could succeed with.
func (c *Config) Validate() error {
	if c.GitHub.Repository != "" && !repositoryRe.MatchString(c.GitHub.Repository) {
		return fmt.Errorf("%w: %q", ErrInvalidRepository, c.GitHub.Repository)
	}

	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.GitHub.Timeout)
	}

	if c.GitHub.MaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRetries, c.GitHub.MaxRetries)
	}

	if c.GitHub.RetryBackoff <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidBackoff, c.GitHub.RetryBackoff)
	}

	return nil
}

// ParseLevel maps a configured log level to its slog value, case and
// whitespace insensitive. Unknown levels report false alongside the info
// default so the caller can warn and continue.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

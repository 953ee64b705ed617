// Package token loads, validates and saves the issue-tracker API token.
package token

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// EnvVar is the environment variable consulted before the token file.
const EnvVar = "RELNOTES_GITHUB_TOKEN"

// fileName is the token file name inside the cache directory.
const fileName = "token"

// Permissions for the cache directory and the token file.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// tokenRe matches well-formed tokens. A token is a single non-empty
// alphanumeric word.
var tokenRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ErrNoToken indicates no token was found in the environment or on disk.
var ErrNoToken = errors.New("no token found")

// ErrInvalidToken indicates the token is empty or contains invalid
// characters.
var ErrInvalidToken = errors.New("token is empty or contains invalid characters")

// Source resolves the token from the RELNOTES_GITHUB_TOKEN environment
// variable, falling back to the token file in the cache directory.
type Source struct {
	dir    string
	logger *slog.Logger
}

// NewSource creates a token source rooted at the given cache directory.
func NewSource(dir string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{dir: dir, logger: logger}
}

// Path returns the location of the token file.
func (s *Source) Path() string {
	return filepath.Join(s.dir, fileName)
}

// Load returns the validated token. The environment variable wins; an unset
// or empty variable falls back to the token file.
func (s *Source) Load() (string, error) {
	if tok := strings.TrimSpace(os.Getenv(EnvVar)); tok != "" {
		s.logger.Debug("using token from environment", "var", EnvVar)

		return validate(tok)
	}

	data, readErr := os.ReadFile(s.Path())
	if readErr != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrNoToken, s.Path(), readErr)
	}

	s.logger.Debug("using token from file", "path", s.Path())

	return validate(strings.TrimSpace(string(data)))
}

// Save validates the token and writes it to the token file, creating the
// cache directory when needed.
func (s *Source) Save(tok string) error {
	tok = strings.TrimSpace(tok)

	if _, err := validate(tok); err != nil {
		return err
	}

	if mkErr := os.MkdirAll(s.dir, dirPerm); mkErr != nil {
		return fmt.Errorf("creating %s: %w", s.dir, mkErr)
	}

	if writeErr := os.WriteFile(s.Path(), []byte(tok+"\n"), filePerm); writeErr != nil {
		return fmt.Errorf("writing token file: %w", writeErr)
	}

	s.logger.Debug("wrote token", "path", s.Path())

	return nil
}

func validate(tok string) (string, error) {
	if !tokenRe.MatchString(tok) {
		return "", ErrInvalidToken
	}

	return tok, nil
}

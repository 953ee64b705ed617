// Package gitlog reads commit history by shelling out to the git binary.
package gitlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrGitNotFound indicates no git executable is available in PATH.
var ErrGitNotFound = errors.New("git executable not found in PATH")

// ErrNoRemote indicates the origin remote is missing or not in a recognized
// GitHub form.
var ErrNoRemote = errors.New("origin remote not recognized")

// CommandError describes a git invocation that exited non-zero. The exit
// code is preserved so callers can terminate with the same status.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s exited with status %d: %s",
		strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Runner executes git against a local repository clone.
type Runner struct {
	repository string
	logger     *slog.Logger
}

// NewRunner returns a Runner bound to the repository working directory.
func NewRunner(repository string, logger *slog.Logger) *Runner {
	return &Runner{repository: repository, logger: logger}
}

// Log returns the graph-form one-line commit log for revRange, one output
// line per element. The graph drawing is preserved verbatim because the
// indentation carries the merge structure.
func (r *Runner) Log(ctx context.Context, revRange string) ([]string, error) {
	out, err := r.run(ctx, "log", "--graph", "--topo-order", "--oneline", "-s", revRange)
	if err != nil {
		return nil, err
	}

	return splitLines(out), nil
}

// RemoteRepository returns the "owner/name" form of the origin remote URL.
func (r *Runner) RemoteRepository(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}

	repository, ok := parseRemote(out)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoRemote, strings.TrimSpace(out))
	}

	return repository, nil
}

func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	if _, lookErr := exec.LookPath("git"); lookErr != nil {
		return "", fmt.Errorf("%w: %w", ErrGitNotFound, lookErr)
	}

	r.logger.Debug("running git", "args", args, "dir", r.repository)

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.repository
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return "", &CommandError{
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}

		return "", fmt.Errorf("running git: %w", runErr)
	}

	return stdout.String(), nil
}

// splitLines splits command output into lines, dropping the final newline
// but preserving all interior whitespace.
func splitLines(out string) []string {
	trimmed := strings.TrimRight(out, "\n")
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "\n")
}

// parseRemote extracts "owner/name" from an https, ssh, or scp-style GitHub
// remote URL.
func parseRemote(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".git")

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}

	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[i+1:]
	}

	// Host and path separate on ':' in scp-style URLs, '/' otherwise.
	i := strings.IndexAny(s, ":/")
	if i < 0 {
		return "", false
	}

	path := strings.Trim(s[i+1:], "/")

	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}

	return parts[0] + "/" + parts[1], true
}

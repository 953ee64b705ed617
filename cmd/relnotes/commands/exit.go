package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relnotes/internal/config"
	"github.com/Sumatoshi-tech/relnotes/internal/token"
	"github.com/Sumatoshi-tech/relnotes/pkg/cache"
	"github.com/Sumatoshi-tech/relnotes/pkg/changelog"
	"github.com/Sumatoshi-tech/relnotes/pkg/gitlog"
)

// Exit statuses reported by the relnotes process. The set is stable so
// callers can branch on the failure class.
const (
	ExitOK               = 0
	ExitGitUnavailable   = 1
	ExitInvalidArguments = 2
	ExitMissingToken     = 3
	ExitInvalidToken     = 4
	ExitNoReport         = 5
	ExitInterrupted      = 130
)

// ErrUsage marks command-line misuse so it maps to ExitInvalidArguments.
var ErrUsage = errors.New("invalid arguments")

// Status maps err to the process exit status. A git subprocess failure
// propagates the child's exit code and a cache directory creation failure
// propagates the OS errno; everything else maps on the error class.
func Status(err error) int {
	if err == nil {
		return ExitOK
	}

	var gitErr *gitlog.CommandError
	if errors.As(err, &gitErr) {
		return gitErr.ExitCode
	}

	var dirErr *cache.DirError
	if errors.As(err, &dirErr) {
		if errno := dirErr.Errno(); errno != 0 {
			return errno
		}

		return ExitNoReport
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, gitlog.ErrGitNotFound):
		return ExitGitUnavailable
	case errors.Is(err, ErrUsage),
		errors.Is(err, changelog.ErrSameRelease),
		errors.Is(err, changelog.ErrNoHomeRepository),
		errors.Is(err, gitlog.ErrNoRemote),
		errors.Is(err, config.ErrInvalidRepository),
		errors.Is(err, config.ErrInvalidTimeout),
		errors.Is(err, config.ErrInvalidRetries),
		errors.Is(err, config.ErrInvalidBackoff):
		return ExitInvalidArguments
	case errors.Is(err, token.ErrInvalidToken):
		return ExitInvalidToken
	case errors.Is(err, token.ErrNoToken):
		return ExitMissingToken
	default:
		return ExitNoReport
	}
}

// requireArgs validates an exact positional argument count, classifying a
// mismatch as command-line misuse.
func requireArgs(count int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return fmt.Errorf("%w: accepts %d arg(s), received %d", ErrUsage, count, len(args))
		}

		return nil
	}
}

// maxArgs validates an upper bound on positional arguments, classifying a
// mismatch as command-line misuse.
func maxArgs(count int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > count {
			return fmt.Errorf("%w: accepts at most %d arg(s), received %d", ErrUsage, count, len(args))
		}

		return nil
	}
}

package commands_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/relnotes/cmd/relnotes/commands"
	"github.com/Sumatoshi-tech/relnotes/internal/config"
	"github.com/Sumatoshi-tech/relnotes/internal/token"
	"github.com/Sumatoshi-tech/relnotes/pkg/cache"
	"github.com/Sumatoshi-tech/relnotes/pkg/changelog"
	"github.com/Sumatoshi-tech/relnotes/pkg/gitlog"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no error", err: nil, want: commands.ExitOK},
		{name: "git unavailable", err: fmt.Errorf("checking git: %w", gitlog.ErrGitNotFound), want: commands.ExitGitUnavailable},
		{name: "command misuse", err: fmt.Errorf("%w: accepts 2 arg(s), received 1", commands.ErrUsage), want: commands.ExitInvalidArguments},
		{name: "same release markers", err: changelog.ErrSameRelease, want: commands.ExitInvalidArguments},
		{name: "no home repository", err: fmt.Errorf("%w: %w", changelog.ErrNoHomeRepository, gitlog.ErrNoRemote), want: commands.ExitInvalidArguments},
		{name: "unrecognized remote", err: gitlog.ErrNoRemote, want: commands.ExitInvalidArguments},
		{name: "invalid repository setting", err: config.ErrInvalidRepository, want: commands.ExitInvalidArguments},
		{name: "invalid timeout setting", err: fmt.Errorf("validate config: %w", config.ErrInvalidTimeout), want: commands.ExitInvalidArguments},
		{name: "missing token", err: fmt.Errorf("%w: reading /tmp/token: gone", token.ErrNoToken), want: commands.ExitMissingToken},
		{name: "invalid token", err: token.ErrInvalidToken, want: commands.ExitInvalidToken},
		{name: "unclassified failure", err: errors.New("boom"), want: commands.ExitNoReport},
		{name: "interrupted", err: fmt.Errorf("reading commit log: %w", context.Canceled), want: commands.ExitInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, commands.Status(tt.err))
		})
	}
}

func TestStatus_GitExitCodePropagates(t *testing.T) {
	t.Parallel()

	gitErr := &gitlog.CommandError{
		Args:     []string{"log", "--graph", "v1.0..v1.9"},
		ExitCode: 128,
		Stderr:   "fatal: bad revision",
	}

	assert.Equal(t, 128, commands.Status(fmt.Errorf("reading commit log: %w", gitErr)))
}

func TestStatus_CacheDirErrnoPropagates(t *testing.T) {
	t.Parallel()

	dirErr := &cache.DirError{
		Path: "/proc/none",
		Err:  &os.PathError{Op: "mkdir", Path: "/proc/none", Err: syscall.EACCES},
	}

	assert.Equal(t, int(syscall.EACCES), commands.Status(dirErr))
}

func TestStatus_CacheDirWithoutErrno(t *testing.T) {
	t.Parallel()

	dirErr := &cache.DirError{Path: "/x", Err: errors.New("blocked")}

	assert.Equal(t, commands.ExitNoReport, commands.Status(dirErr))
}

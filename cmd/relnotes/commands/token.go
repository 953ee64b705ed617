package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Sumatoshi-tech/relnotes/internal/config"
	"github.com/Sumatoshi-tech/relnotes/internal/token"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the GitHub API token",
	}

	cmd.AddCommand(newTokenAddCommand())

	return cmd
}

func newTokenAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add [TOKEN]",
		Short: "Validate and store a GitHub API token",
		Long: `Store the GitHub API token used to resolve issue references.

The token is validated and written under the cache directory. Without an
argument the token is prompted for, which requires an interactive
terminal.`,
		Args: maxArgs(1),
		RunE: runTokenAdd,
	}
}

func runTokenAdd(cmd *cobra.Command, args []string) error {
	cfg, cfgErr := config.Load("")
	if cfgErr != nil {
		return cfgErr
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	src := token.NewSource(cfg.Cache.Dir, logger)

	var apiToken string

	if len(args) == 1 {
		apiToken = args[0]
	} else {
		prompted, promptErr := promptToken(cmd)
		if promptErr != nil {
			return promptErr
		}

		apiToken = prompted
	}

	if saveErr := src.Save(apiToken); saveErr != nil {
		return saveErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote new token to %s\n", src.Path())

	return nil
}

// promptToken reads the token without echo. Stdin must be a terminal;
// non-interactive callers pass the token as an argument instead.
func promptToken(cmd *cobra.Command) (string, error) {
	stdin, isFile := cmd.InOrStdin().(*os.File)
	if !isFile || !term.IsTerminal(int(stdin.Fd())) {
		return "", fmt.Errorf("%w: pass the token as an argument when stdin is not a terminal", token.ErrNoToken)
	}

	fmt.Fprint(cmd.OutOrStdout(), "GitHub API token: ")

	secret, readErr := term.ReadPassword(int(stdin.Fd()))

	fmt.Fprintln(cmd.OutOrStdout())

	if readErr != nil {
		return "", fmt.Errorf("reading token: %w", readErr)
	}

	return string(secret), nil
}

// Package main provides the entry point for the relnotes CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relnotes/cmd/relnotes/commands"
	"github.com/Sumatoshi-tech/relnotes/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relnotes",
		Short: "Relnotes - release changelog generator",
		Long: `Relnotes builds release changelogs from git history and GitHub metadata.

Commands:
  generate  Build the changelog document for a release range
  token     Manage the GitHub API token
  cache     Inspect and maintain the gathered-data cache`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Flag parse failures count as command-line misuse for the exit status.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", commands.ErrUsage, err)
	})

	// Add commands.
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())
	rootCmd.AddCommand(commands.NewCacheCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.Status(err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			info := version.Info()
			fmt.Fprintf(os.Stdout, "relnotes %s (commit: %s, built: %s)\n", info.Version, info.Commit, info.Date)
		},
	}
}

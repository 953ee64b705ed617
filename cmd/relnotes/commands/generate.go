// Package commands implements CLI command handlers for relnotes.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relnotes/internal/config"
	"github.com/Sumatoshi-tech/relnotes/internal/token"
	"github.com/Sumatoshi-tech/relnotes/pkg/cache"
	"github.com/Sumatoshi-tech/relnotes/pkg/changelog"
	"github.com/Sumatoshi-tech/relnotes/pkg/github"
	"github.com/Sumatoshi-tech/relnotes/pkg/gitlog"
)

// gitSource is the git collaborator as the generate command consumes it:
// the commit log plus origin-remote detection.
type gitSource interface {
	changelog.LogSource

	RemoteRepository(ctx context.Context) (string, error)
}

type gitProvider func(repoPath string, logger *slog.Logger) gitSource

type trackerProvider func(opts github.Options) changelog.IssueFetcher

// GenerateCommand holds configuration and dependencies for the generate
// command.
type GenerateCommand struct {
	configPath  string
	repoPath    string
	githubRepo  string
	cacheDir    string
	ignoreCache bool
	logLevel    string

	newGit     gitProvider
	newTracker trackerProvider
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return newGenerateCommandWithDeps(
		func(repoPath string, logger *slog.Logger) gitSource {
			return gitlog.NewRunner(repoPath, logger)
		},
		func(opts github.Options) changelog.IssueFetcher {
			return &issueTracker{client: github.NewClient(opts)}
		},
	)
}

func newGenerateCommandWithDeps(newGit gitProvider, newTracker trackerProvider) *cobra.Command {
	gc := &GenerateCommand{
		newGit:     newGit,
		newTracker: newTracker,
	}

	cmd := &cobra.Command{
		Use:   "generate <old-release> <new-release>",
		Short: "Build the changelog document for a release range",
		Long: `Build the changelog for everything merged between two release markers.

The commit log for old..new is scanned for issue and pull-request
references, each reference is resolved through the GitHub API, and the
rendered document is printed to stdout. Gathered data is cached per range
so a rerun reproduces the same document without touching the network.`,
		Args: requireArgs(2),
		RunE: gc.run,
	}

	cmd.Flags().StringVar(&gc.configPath, "config", "", "Config file (default: .relnotes.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&gc.repoPath, "repo", ".", "Local git repository to read the commit log from")
	cmd.Flags().StringVar(&gc.githubRepo, "github-repo", "", "GitHub repository as owner/name (default: detect from the origin remote)")
	cmd.Flags().StringVar(&gc.cacheDir, "cache-dir", "", "Cache directory overriding cache.dir")
	cmd.Flags().BoolVar(&gc.ignoreCache, "ignore-cache", false, "Regather data even when a cache entry exists")
	cmd.Flags().StringVar(&gc.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	return cmd
}

func (gc *GenerateCommand) run(cmd *cobra.Command, args []string) error {
	oldRelease, newRelease := args[0], args[1]
	if oldRelease == newRelease {
		return changelog.ErrSameRelease
	}

	cfg, cfgErr := config.Load(gc.configPath)
	if cfgErr != nil {
		return cfgErr
	}

	gc.applyOverrides(cmd, cfg)

	if validateErr := cfg.Validate(); validateErr != nil {
		return validateErr
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	ctx := cmd.Context()

	git := gc.newGit(gc.repoPath, logger)

	home := cfg.GitHub.Repository
	if home == "" {
		detected, remoteErr := git.RemoteRepository(ctx)
		if remoteErr != nil {
			return fmt.Errorf("%w: %w", changelog.ErrNoHomeRepository, remoteErr)
		}

		home = detected

		logger.Debug("detected home repository", "repository", home)
	}

	store := cache.NewStore[changelog.Entry](cfg.Cache.Dir, logger, storeCodecs(cfg.Cache.Compress)...)

	apiToken, tokenErr := gc.resolveToken(cfg, store, oldRelease+".."+newRelease, logger)
	if tokenErr != nil {
		return tokenErr
	}

	tracker := gc.newTracker(github.Options{
		BaseURL:    cfg.GitHub.APIURL,
		Token:      apiToken,
		Timeout:    cfg.GitHub.Timeout,
		MaxRetries: cfg.GitHub.MaxRetries,
		RetryBase:  cfg.GitHub.RetryBackoff,
		Logger:     logger,
	})

	gen, genErr := changelog.New(changelog.Options{
		OldRelease:     oldRelease,
		NewRelease:     newRelease,
		HomeRepository: home,
		IgnoreCache:    cfg.Cache.Ignore,
		Git:            git,
		Tracker:        tracker,
		Store:          store,
		Logger:         logger,
	})
	if genErr != nil {
		return genErr
	}

	doc, buildErr := gen.Build(ctx)
	if buildErr != nil {
		return buildErr
	}

	return writeDocument(cmd.OutOrStdout(), doc)
}

// applyOverrides copies changed command-line flags over the loaded
// configuration.
func (gc *GenerateCommand) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("github-repo") {
		cfg.GitHub.Repository = gc.githubRepo
	}

	if cmd.Flags().Changed("cache-dir") {
		cfg.Cache.Dir = config.ExpandHome(gc.cacheDir)
	}

	if cmd.Flags().Changed("ignore-cache") {
		cfg.Cache.Ignore = gc.ignoreCache
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = gc.logLevel
	}
}

// resolveToken loads the API token unless the cache already holds the range,
// so a fully cached run works without any token configured.
func (gc *GenerateCommand) resolveToken(cfg *config.Config, store *cache.Store[changelog.Entry], key string, logger *slog.Logger) (string, error) {
	if !cfg.Cache.Ignore {
		cached, readErr := store.Read(key)
		if readErr == nil && cached != nil {
			logger.Debug("cache entry present, skipping token load", "range", key)

			return "", nil
		}
	}

	src := token.NewSource(store.Dir(), logger)

	return src.Load()
}

// writeDocument prints the rendered document, ignoring a broken pipe from a
// pager that exited before reading everything.
func writeDocument(w io.Writer, doc string) error {
	_, err := fmt.Fprint(w, doc)
	if err != nil && !errors.Is(err, syscall.EPIPE) {
		return fmt.Errorf("writing document: %w", err)
	}

	return nil
}

// issueTracker adapts the GitHub client to the changelog fetch contract.
type issueTracker struct {
	client *github.Client
}

// Fetch retrieves one issue or pull request and maps it to the changelog
// metadata shape.
func (t *issueTracker) Fetch(ctx context.Context, repository, number string) (*changelog.Issue, error) {
	item, err := t.client.Issue(ctx, repository, number)
	if err != nil {
		return nil, err
	}

	kind := changelog.KindIssue
	if item.IsPullRequest() {
		kind = changelog.KindPullRequest
	}

	return &changelog.Issue{
		Kind:     kind,
		Title:    item.Title,
		Author:   item.User.Login,
		Body:     item.Body,
		ClosedAt: item.ClosedAt,
	}, nil
}

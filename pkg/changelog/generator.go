package changelog

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LogSource is the version-control collaborator. Log returns the graph
// commit log for a release range, one output line per element.
type LogSource interface {
	Log(ctx context.Context, revRange string) ([]string, error)
}

// EntryStore is the cache collaborator. Read returns nil without error when
// no entry exists for the key.
type EntryStore interface {
	Read(key string) (*Entry, error)
	Write(key string, entry *Entry) error
}

// Options configures a Generator.
type Options struct {
	// OldRelease and NewRelease are the release markers bounding the commit
	// range. They must differ.
	OldRelease string
	NewRelease string

	// HomeRepository is the "owner/name" repository that unqualified
	// references resolve against.
	HomeRepository string

	// IgnoreCache skips the cache read so the data is regathered. The
	// refreshed entry is still written back.
	IgnoreCache bool

	// Git, Tracker and Store are the external collaborators.
	Git     LogSource
	Tracker IssueFetcher
	Store   EntryStore

	// Logger receives progress and diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Generator builds the changelog document for one release range.
type Generator struct {
	opts      Options
	extractor *Extractor
	logger    *slog.Logger

	now func() time.Time
}

// New validates opts and returns a ready Generator.
func New(opts Options) (*Generator, error) {
	if opts.OldRelease == opts.NewRelease {
		return nil, ErrSameRelease
	}

	if opts.HomeRepository == "" {
		return nil, ErrNoHomeRepository
	}

	if opts.Git == nil || opts.Tracker == nil || opts.Store == nil {
		return nil, ErrMissingCollaborator
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Generator{
		opts:      opts,
		extractor: NewExtractor(opts.HomeRepository),
		logger:    opts.Logger,
		now:       time.Now,
	}, nil
}

// RevRange returns the "old..new" range string, also used as the cache key.
func (g *Generator) RevRange() string {
	return g.opts.OldRelease + ".." + g.opts.NewRelease
}

// Build produces the rendered changelog document for the range.
func (g *Generator) Build(ctx context.Context) (string, error) {
	entry, err := g.gather(ctx)
	if err != nil {
		return "", err
	}

	return assemble(entry, g.RevRange(), g.opts.HomeRepository, g.extractor, g.logger), nil
}

// gather returns the cache entry for the range, reading it from the store
// when possible and regathering from git and the tracker otherwise. A fresh
// entry is always written back, even when the cache read was skipped.
func (g *Generator) gather(ctx context.Context) (*Entry, error) {
	key := g.RevRange()

	if !g.opts.IgnoreCache {
		cached, readErr := g.opts.Store.Read(key)

		switch {
		case readErr != nil:
			g.logger.Warn("cache read failed", "range", key, "error", readErr)
		case cached != nil:
			g.logger.Debug("using cached data", "range", key)

			return cached, nil
		}
	}

	captured := g.now().UTC().Truncate(time.Second)

	lines, logErr := g.opts.Git.Log(ctx, key)
	if logErr != nil {
		return nil, fmt.Errorf("reading commit log: %w", logErr)
	}

	if lines == nil {
		// The stored snapshot stays a JSON array even for an empty range.
		lines = []string{}
	}

	var seeds IDSet

	for _, line := range lines {
		for _, id := range g.extractor.Keys(line) {
			seeds.Add(id)
		}
	}

	res := &resolver{
		fetcher:   g.opts.Tracker,
		extractor: g.extractor,
		home:      g.opts.HomeRepository,
		logger:    g.logger,
	}

	issues, revmap, resolveErr := res.resolve(ctx, seeds)
	if resolveErr != nil {
		return nil, resolveErr
	}

	entry := &Entry{
		Timestamp: captured,
		Snapshot:  lines,
		Issues:    issues,
		RevMap:    revmap,
	}

	if writeErr := g.opts.Store.Write(key, entry); writeErr != nil {
		return nil, fmt.Errorf("writing cache entry: %w", writeErr)
	}

	return entry, nil
}

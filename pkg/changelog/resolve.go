package changelog

import (
	"context"
	"log/slog"
	"strings"
)

// IssueFetcher is the issue-tracking collaborator. Fetch returns the
// metadata for one numeric id within a repository, or an error when the item
// cannot be retrieved.
type IssueFetcher interface {
	Fetch(ctx context.Context, repository, number string) (*Issue, error)
}

// resolver expands a seed set of identifier keys into the full graph of
// related issues, one tracker fetch per identifier.
type resolver struct {
	fetcher   IssueFetcher
	extractor *Extractor
	home      string
	logger    *slog.Logger
}

// resolve fetches metadata for every identifier reachable from seeds.
// It maintains an explicit frontier worklist: each round fetches the
// not-yet-attempted ids, scans pull-request titles and bodies for further
// references, and queues the ones never attempted before. Termination is
// structural because only previously-unseen ids enter the frontier.
//
// An individual fetch failure is logged and the id omitted from the result.
// Only cancellation of ctx aborts resolution.
func (r *resolver) resolve(ctx context.Context, seeds IDSet) (map[string]*Issue, map[string]IDSet, error) {
	issues := make(map[string]*Issue)
	revmap := make(map[string]IDSet)
	attempted := make(map[string]struct{})

	frontier := append(IDSet(nil), seeds...)

	r.logger.Debug("resolving issue references", "seeds", len(seeds))

	for len(frontier) > 0 {
		var next IDSet

		for _, key := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}

			if _, done := attempted[key]; done {
				continue
			}

			attempted[key] = struct{}{}

			repository, number := splitKey(key, r.home)

			issue, fetchErr := r.fetcher.Fetch(ctx, repository, number)
			if fetchErr != nil {
				if ctx.Err() != nil {
					return nil, nil, ctx.Err()
				}

				r.logger.Error("failed to fetch issue", "id", key, "error", fetchErr)

				continue
			}

			if issue.Kind == KindPullRequest {
				r.scanPullRequest(key, issue, revmap, attempted, &next)
			}

			issues[key] = issue
		}

		frontier = next
	}

	return issues, revmap, nil
}

// scanPullRequest extracts references from a pull request's title and body.
// Every discovered local id is recorded on the pull request's related set and
// in the reverse map; ids never attempted before are queued for the next
// frontier round. Foreign-qualified references and truncation artifacts are
// skipped.
func (r *resolver) scanPullRequest(prKey string, pr *Issue, revmap map[string]IDSet, attempted map[string]struct{}, next *IDSet) {
	lines := append([]string{pr.Title}, strings.Split(pr.Body, "\n")...)

	for _, line := range lines {
		for _, ref := range r.extractor.Scan(line) {
			if ref.Partial || ref.Repo != "" {
				continue
			}

			key := ref.Key()

			r.logger.Debug("found related reference", "id", key, "pull_request", prKey)
			pr.Related.Add(key)

			set := revmap[key]
			set.Add(prKey)
			revmap[key] = set

			if _, done := attempted[key]; !done {
				next.Add(key)
			}
		}
	}
}

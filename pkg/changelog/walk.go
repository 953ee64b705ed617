package changelog

import "log/slog"

// walkDepthLimit bounds the number of expansion rounds. The walked-set
// subtraction already guarantees termination on cyclic graphs; the ceiling is
// a safety bound against pathological reference chains.
const walkDepthLimit = 10

// walkRelated collects every identifier transitively related to the start
// keys through the resolved issues' related sets. The result lists all
// pull-request ids first, then all plain-issue ids, each bucket sorted: pull
// requests are the primary unit of change and lead every reference list.
func walkRelated(issues map[string]*Issue, start []string, logger *slog.Logger) []string {
	var walked IDSet

	frontier := start

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= walkDepthLimit {
			logger.Warn("issue walk stopped at depth limit", "limit", walkDepthLimit)

			break
		}

		var related IDSet

		for _, key := range frontier {
			issue, ok := issues[key]
			if !ok {
				continue
			}

			walked.Add(key)

			for _, rel := range issue.Related {
				related.Add(rel)
			}
		}

		var next IDSet

		for _, key := range related {
			if !walked.Has(key) {
				next.Add(key)
			}
		}

		frontier = next
	}

	pulls := make([]string, 0, len(walked))

	var plain []string

	for _, key := range walked {
		switch issues[key].Kind {
		case KindPullRequest:
			pulls = append(pulls, key)
		case KindIssue:
			plain = append(plain, key)
		}
	}

	return append(pulls, plain...)
}

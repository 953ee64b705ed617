// Package changelog derives a release changelog from a git commit-log range.
// It extracts issue and pull-request references from the log, resolves them
// recursively against an issue tracker, and renders a structured document
// with per-merge sections, contributor attribution, and a link table.
package changelog

import (
	"sort"
	"time"
)

// Kind classifies a resolved tracker item. The set is closed: every item is
// either a plain issue or a pull request, and all kind branching is a switch
// over these two values.
type Kind string

const (
	// KindIssue is a plain tracker issue.
	KindIssue Kind = "ISSUE"
	// KindPullRequest is an item carrying pull-request metadata.
	KindPullRequest Kind = "PR"
)

// IDSet is a collection of unique identifier keys kept in sorted order.
// Because the elements are always sorted, it marshals to a stable JSON array
// without any custom encoding.
type IDSet []string

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	i := sort.SearchStrings(s, id)

	return i < len(s) && s[i] == id
}

// Add inserts id, keeping the set sorted. It returns true when id was not
// already present.
func (s *IDSet) Add(id string) bool {
	i := sort.SearchStrings(*s, id)
	if i < len(*s) && (*s)[i] == id {
		return false
	}

	*s = append(*s, "")
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = id

	return true
}

// Issue is the resolved metadata for one identifier.
type Issue struct {
	// Kind distinguishes pull requests from plain issues.
	Kind Kind `json:"kind"`
	// Title is the item's title line.
	Title string `json:"title"`
	// Author is the tracker handle of the item's author.
	Author string `json:"author"`
	// Body is the free-form description text.
	Body string `json:"body,omitempty"`
	// ClosedAt is the closure timestamp, nil while the item is open.
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	// Related holds the identifier keys discovered in the item's title and
	// body during resolution.
	Related IDSet `json:"related,omitempty"`
}

// Entry is one cached resolution: everything needed to rebuild the document
// for a range without touching git or the tracker again.
type Entry struct {
	// Timestamp is the capture time, reused verbatim on cache hits so a
	// rerun reproduces the original document.
	Timestamp time.Time `json:"timestamp"`
	// Snapshot is the frozen commit-log output for the range.
	Snapshot []string `json:"snapshot"`
	// Issues maps identifier keys to their resolved metadata.
	Issues map[string]*Issue `json:"issues"`
	// RevMap maps an identifier key to the pull requests that referenced it.
	RevMap map[string]IDSet `json:"revmap"`
}

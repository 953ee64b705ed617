package changelog

import (
	"fmt"
	"regexp"
	"strings"
)

// Identifier is one reference matched in a line of text.
type Identifier struct {
	// Raw is the full matched text, e.g. "#12345", "owner/repo#7", "bp-50".
	Raw string
	// Number is the numeric portion of the match.
	Number string
	// Repo is the foreign repository qualifier, empty for local forms.
	Repo string
	// Partial marks a match immediately followed by an ellipsis character.
	// Such matches are truncation artifacts from shortened commit messages
	// and must never enter the identifier set.
	Partial bool
}

// Key returns the deduplication identity: the qualified form for foreign
// references, the bare numeric portion for local and backport forms.
func (id Identifier) Key() string {
	if id.Repo != "" {
		return id.Raw
	}

	return id.Number
}

// Linkable reports whether the match is a form that carries link markup in
// the rendered document. Backport markers reference a numeric id but are not
// rendered as links.
func (id Identifier) Linkable() bool {
	return !id.Partial && strings.Contains(id.Raw, "#")
}

// Extractor scans text lines for issue and pull-request references. It
// recognizes three forms: a bare local reference (#NNN), a foreign-repository
// reference (owner/repo#NNN, with the owner fixed to the home repository's
// owner to limit false positives), and a backport marker (bp-NNN).
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor builds an Extractor whose foreign-reference form is anchored
// to the owner part of homeRepository ("owner/name").
func NewExtractor(homeRepository string) *Extractor {
	owner := homeRepository
	if i := strings.IndexByte(owner, '/'); i >= 0 {
		owner = owner[:i]
	}

	pattern := fmt.Sprintf(`((?:%s/[a-zA-Z0-9-]+#|#|bp-)(\d+))(…)?`, regexp.QuoteMeta(owner))

	return &Extractor{re: regexp.MustCompile(pattern)}
}

// Scan returns every reference matched in line, in match order. Partial
// matches are included with the Partial flag set so callers can apply the
// truncation guard themselves.
func (e *Extractor) Scan(line string) []Identifier {
	matches := e.re.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}

	ids := make([]Identifier, 0, len(matches))

	for _, m := range matches {
		id := Identifier{
			Raw:     m[1],
			Number:  m[2],
			Partial: m[3] != "",
		}
		if i := strings.IndexByte(id.Raw, '#'); i > 0 {
			id.Repo = id.Raw[:i]
		}

		ids = append(ids, id)
	}

	return ids
}

// Keys returns the deduplicated identifier keys found in line, in first-match
// order, with partial matches excluded.
func (e *Extractor) Keys(line string) []string {
	var keys []string

	seen := make(map[string]struct{})

	for _, id := range e.Scan(line) {
		if id.Partial {
			continue
		}

		key := id.Key()
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	return keys
}

// splitKey resolves an identifier key to its query target: the foreign
// repository and numeric id for qualified keys, the home repository
// otherwise.
func splitKey(key, homeRepository string) (repository, number string) {
	if i := strings.IndexByte(key, '#'); i >= 0 {
		return key[:i], key[i+1:]
	}

	return homeRepository, key
}

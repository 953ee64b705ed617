package changelog

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// mergeMarker identifies merge commits in the log output.
const mergeMarker = "Merge pull request"

// reportTimeFormat is the timestamp layout used in the rendered document.
const reportTimeFormat = "2006-01-02 15:04:05 UTC"

// releaseNotesPlaceholder marks where hand-written prose is inserted later.
const releaseNotesPlaceholder = "INSERT RELEASE NOTES BODY HERE"

var (
	// graphPrefixRe matches the graph-drawing characters a log line starts
	// with, up to the first alphanumeric character.
	graphPrefixRe = regexp.MustCompile(`^([^a-zA-Z0-9]+)`)

	// pullRequestNumRe extracts the pull-request number a merge commit
	// subject embeds.
	pullRequestNumRe = regexp.MustCompile(`pull request #(\d+)`)

	// authorRe matches the author portion of a rendered entry once its id
	// has been rewritten into link markup.
	authorRe = regexp.MustCompile("(\\d+`_: \\()\\*([^*]+)\\*(\\))")
)

// reportLine is one built body line, tagged with the entry kind it renders
// when it renders one. Passthrough and annotation lines carry no kind.
type reportLine struct {
	text string
	kind Kind
}

// assembler renders the final document from a frozen snapshot and the
// resolved issue data.
type assembler struct {
	revRange  string
	home      string
	extractor *Extractor
	issues    map[string]*Issue
	revmap    map[string]IDSet
	logger    *slog.Logger

	merges    int
	issueRefs int
	pullRefs  int
}

// assemble builds the whole document for one cache entry.
func assemble(entry *Entry, revRange, home string, extractor *Extractor, logger *slog.Logger) string {
	a := &assembler{
		revRange:  revRange,
		home:      home,
		extractor: extractor,
		issues:    entry.Issues,
		revmap:    entry.RevMap,
		logger:    logger,
	}

	body := a.build(entry.Snapshot)
	links, contributors := a.linkify(body)

	return a.render(entry.Timestamp, body, links, contributors)
}

// build processes the snapshot oldest-first so every entry is emitted before
// the newer entries that may reference it. The rendered document reverses
// the result.
func (a *assembler) build(snapshot []string) []reportLine {
	var out []reportLine

	a.logger.Debug("building report", "lines", len(snapshot))

	for i := len(snapshot) - 1; i >= 0; i-- {
		line := snapshot[i]

		if strings.Contains(line, mergeMarker) {
			a.merges++
		}

		if a.merges == 0 {
			// The graph output cannot show the merge bracket for the oldest
			// commits in the range; indent them so they group under their
			// merge once it appears.
			line = "  " + line
		}

		line = normalizeGraphPrefix(line)

		switch {
		case strings.HasPrefix(line, "  * "):
			a.appendEntries(line, &out)
		case strings.Contains(line, "*"):
			out = append(out, reportLine{text: line[2:]}, reportLine{})
		}
	}

	return out
}

// normalizeGraphPrefix rewrites a line's graph-drawing prefix into a plain
// indentation-plus-bullet form: characters before the first asterisk become
// spaces, the asterisk keeps its column, and the whole line gains the
// two-space report indent. Lines with no such prefix pass through unchanged.
func normalizeGraphPrefix(line string) string {
	prefix := graphPrefixRe.FindString(line)
	if prefix == "" {
		return line
	}

	rest := line[len(prefix):]

	var normalized string

	star := strings.IndexByte(prefix, '*')
	if star >= 0 {
		normalized = strings.Repeat(" ", star) + "* "
	} else {
		normalized = strings.Repeat(" ", len(prefix))
	}

	return "  " + normalized + rest
}

// appendEntries emits the report section for one top-level bullet line: the
// echoed merge line when it names its own pull request, then one formatted
// entry per walked reference.
func (a *assembler) appendEntries(line string, out *[]reportLine) {
	content := line[4:]

	ownPR := ""

	if m := pullRequestNumRe.FindStringSubmatch(content); m != nil {
		ownPR = m[1]

		*out = append(*out, reportLine{text: line}, reportLine{})
	}

	refs := walkRelated(a.issues, a.extractor.Keys(line), a.logger)
	if ownPR != "" && !slices.Contains(refs, ownPR) {
		// Always credit the originating pull request, even when it had no
		// discovered relations.
		refs = append(refs, ownPR)
	}

	for _, ref := range refs {
		issue, ok := a.issues[ref]
		if !ok {
			a.logger.Debug("skipping unresolved reference", "id", ref)

			continue
		}

		indent := "  "
		if ref == ownPR || issue.Kind == KindIssue {
			indent = ""
		}

		if ref == ownPR && issue.ClosedAt != nil {
			*out = append(*out, reportLine{
				text: fmt.Sprintf("%s  @ *%s*", indent, issue.ClosedAt.UTC().Format(reportTimeFormat)),
			})
		}

		refsNote := ""

		if set := a.revmap[ref]; len(set) > 0 {
			tags := make([]string, len(set))
			for i, id := range set {
				tags[i] = "#" + id
			}

			refsNote = fmt.Sprintf(" (refs: %s)", strings.Join(tags, ", "))
		}

		switch issue.Kind {
		case KindIssue:
			a.issueRefs++
		case KindPullRequest:
			a.pullRefs++
		}

		*out = append(*out,
			reportLine{text: indent + "* " + a.formatIssue(ref, refsNote), kind: issue.Kind},
			reportLine{})
	}
}

// formatIssue renders one entry row: bold kind tag, id, author in italics,
// title, and the optional referenced-by note.
func (a *assembler) formatIssue(key, refsNote string) string {
	issue := a.issues[key]

	display := key
	if !strings.Contains(display, "#") {
		display = "#" + display
	}

	return fmt.Sprintf("**%s** %s: (*%s*) %s%s", issue.Kind, display, issue.Author, issue.Title, refsNote)
}

// linkify is the second pass over the built lines: every resolved in-text
// reference becomes a markup link with a recorded link target, and author
// attributions become links too, feeding the contributors set when the row
// renders a pull request.
func (a *assembler) linkify(lines []reportLine) (links, contributors IDSet) {
	for i := range lines {
		line := lines[i].text
		before := line

		seen := make(map[string]struct{})

		for _, ref := range a.extractor.Scan(lines[i].text) {
			if !ref.Linkable() {
				continue
			}

			issue, ok := a.issues[ref.Key()]
			if !ok {
				continue
			}

			if _, dup := seen[ref.Raw]; dup {
				continue
			}

			seen[ref.Raw] = struct{}{}

			line = strings.ReplaceAll(line, ref.Raw, linkTag(ref.Raw))

			section := "issues"
			if issue.Kind == KindPullRequest {
				section = "pull"
			}

			repository := ref.Repo
			if repository == "" {
				repository = a.home
			}

			links.Add(fmt.Sprintf(".. _`%s`: https://github.com/%s/%s/%s", ref.Raw, repository, section, ref.Number))
		}

		if line != before {
			line = strings.ReplaceAll(line, `\`, `\\`)
		}

		if m := authorRe.FindStringSubmatch(line); m != nil {
			author := m[2]

			if lines[i].kind == KindPullRequest {
				contributors.Add(author)
			}

			line = authorRe.ReplaceAllString(line, "${1}`${2}`_${3}")
			links.Add(fmt.Sprintf(".. _`%s`: https://github.com/%s", author, author))
		}

		lines[i].text = line
	}

	return links, contributors
}

// render assembles the final document: statistics header, release-notes
// placeholder, titled changelog heading with generation timestamp, the body
// in reverse build order, and the sorted link-target block.
func (a *assembler) render(generatedAt time.Time, body []reportLine, links, contributors IDSet) string {
	report := []string{"Statistics", "==========", ""}

	report = append(report,
		fmt.Sprintf("- Total Merges: **%d**", a.merges),
		fmt.Sprintf("- Total Issue References: **%d**", a.issueRefs),
		fmt.Sprintf("- Total PR References: **%d**", a.pullRefs),
		"")

	linked := make([]string, len(contributors))
	for i, c := range contributors {
		linked[i] = linkTag(c)
	}

	report = append(report,
		fmt.Sprintf("- Contributors: **%d** (%s)", len(contributors), strings.Join(linked, ", ")),
		"", "",
		releaseNotesPlaceholder,
		"", "")

	title := "Changelog for " + a.revRange
	report = append(report, title, strings.Repeat("=", utf8.RuneCountInString(title)), "")
	report = append(report, fmt.Sprintf("*Generated at: %s*", generatedAt.UTC().Format(reportTimeFormat)))

	// Commits landed right at tagging time have no merge to group under and
	// would render indented at the top of the body; strip that indentation.
	tail := 0
	for tail < len(body) && !strings.HasPrefix(body[len(body)-1-tail].text, "*") {
		tail++
	}

	for i := 0; i < tail; i++ {
		report = append(report, strings.TrimLeft(body[len(body)-1-i].text, " \t"))
	}

	for i := len(body) - 1 - tail; i >= 0; i-- {
		report = append(report, body[i].text)
	}

	if len(links) > 0 {
		report = append(report, "")
		report = append(report, links...)
	}

	report = append(report, "")

	return strings.Join(report, "\n")
}

// linkTag wraps text in markup link syntax.
func linkTag(text string) string {
	return "`" + text + "`_"
}

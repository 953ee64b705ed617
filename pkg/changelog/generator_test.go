package changelog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLogSource struct {
	lines []string
	err   error
	calls int
}

func (s *stubLogSource) Log(_ context.Context, _ string) ([]string, error) {
	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	return s.lines, nil
}

type stubStore struct {
	entries  map[string]*Entry
	readErr  error
	writeErr error
	writes   int
}

func newStubStore() *stubStore {
	return &stubStore{entries: make(map[string]*Entry)}
}

func (s *stubStore) Read(key string) (*Entry, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}

	return s.entries[key], nil
}

func (s *stubStore) Write(key string, entry *Entry) error {
	s.writes++

	if s.writeErr != nil {
		return s.writeErr
	}

	s.entries[key] = entry

	return nil
}

func testOptions(git *stubLogSource, store *stubStore) Options {
	return Options{
		OldRelease:     "v1.0",
		NewRelease:     "v1.1",
		HomeRepository: "acme/widgets",
		Git:            git,
		Tracker:        newStubFetcher(nil),
		Store:          store,
		Logger:         discardLogger,
	}
}

func TestNew_RejectsEqualReleases(t *testing.T) {
	t.Parallel()

	opts := testOptions(&stubLogSource{}, newStubStore())
	opts.NewRelease = opts.OldRelease

	_, err := New(opts)
	require.ErrorIs(t, err, ErrSameRelease)
}

func TestNew_RequiresHomeRepository(t *testing.T) {
	t.Parallel()

	opts := testOptions(&stubLogSource{}, newStubStore())
	opts.HomeRepository = ""

	_, err := New(opts)
	require.ErrorIs(t, err, ErrNoHomeRepository)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	opts := testOptions(&stubLogSource{}, newStubStore())
	opts.Store = nil

	_, err := New(opts)
	require.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestGenerator_RevRange(t *testing.T) {
	t.Parallel()

	gen, err := New(testOptions(&stubLogSource{}, newStubStore()))
	require.NoError(t, err)

	assert.Equal(t, "v1.0..v1.1", gen.RevRange())
}

func TestGenerator_Build_GathersAndCaches(t *testing.T) {
	t.Parallel()

	git := &stubLogSource{lines: []string{
		"* Merge pull request #100 from acme/widgets/fix",
		"* fix bug #50",
	}}
	store := newStubStore()

	opts := testOptions(git, store)
	opts.Tracker = newStubFetcher(map[string]*Issue{
		"acme/widgets#100": {Kind: KindPullRequest, Title: "Fix", Author: "alice", Body: "closes #50"},
		"acme/widgets#50":  {Kind: KindIssue, Title: "Bug", Author: "bob"},
	})

	gen, err := New(opts)
	require.NoError(t, err)

	captured := time.Date(2024, 5, 2, 12, 0, 0, 123456789, time.UTC)
	gen.now = func() time.Time { return captured }

	doc, err := gen.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, doc, "*Generated at: 2024-05-02 12:00:00 UTC*")
	assert.Contains(t, doc, "- Total Merges: **1**")

	require.Contains(t, store.entries, "v1.0..v1.1")

	entry := store.entries["v1.0..v1.1"]
	assert.Equal(t, git.lines, entry.Snapshot)
	assert.Equal(t, captured.Truncate(time.Second), entry.Timestamp)
	assert.Contains(t, entry.Issues, "100")
	assert.Contains(t, entry.Issues, "50")
	assert.Equal(t, IDSet{"100"}, entry.RevMap["50"])
}

func TestGenerator_Build_ReusesCachedEntry(t *testing.T) {
	t.Parallel()

	git := &stubLogSource{err: errors.New("must not be invoked")}
	store := newStubStore()
	store.entries["v1.0..v1.1"] = &Entry{
		Timestamp: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Snapshot:  []string{"* Merge pull request #100 from acme/widgets/fix"},
		Issues: map[string]*Issue{
			"100": {Kind: KindPullRequest, Title: "Fix", Author: "alice"},
		},
		RevMap: map[string]IDSet{},
	}

	gen, err := New(testOptions(git, store))
	require.NoError(t, err)

	doc, err := gen.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, doc, "*Generated at: 2023-01-01 00:00:00 UTC*")
	assert.Zero(t, git.calls)
	assert.Zero(t, store.writes)
}

func TestGenerator_Build_RepeatedRunsAreIdentical(t *testing.T) {
	t.Parallel()

	git := &stubLogSource{lines: []string{
		"* Merge pull request #100 from acme/widgets/fix",
	}}
	store := newStubStore()

	opts := testOptions(git, store)
	opts.Tracker = newStubFetcher(map[string]*Issue{
		"acme/widgets#100": {Kind: KindPullRequest, Title: "Fix", Author: "alice"},
	})

	gen, err := New(opts)
	require.NoError(t, err)

	first, err := gen.Build(context.Background())
	require.NoError(t, err)

	second, err := gen.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, git.calls)
	assert.Equal(t, 1, store.writes)
}

func TestGenerator_Build_IgnoreCacheRegathers(t *testing.T) {
	t.Parallel()

	git := &stubLogSource{lines: []string{"* Merge pull request #100 from acme/widgets/fix"}}
	store := newStubStore()
	store.entries["v1.0..v1.1"] = &Entry{
		Timestamp: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Snapshot:  []string{},
		Issues:    map[string]*Issue{},
		RevMap:    map[string]IDSet{},
	}

	opts := testOptions(git, store)
	opts.IgnoreCache = true
	opts.Tracker = newStubFetcher(map[string]*Issue{
		"acme/widgets#100": {Kind: KindPullRequest, Title: "Fix", Author: "alice"},
	})

	gen, err := New(opts)
	require.NoError(t, err)

	fresh := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return fresh }

	doc, err := gen.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, doc, "*Generated at: 2024-06-01 08:00:00 UTC*")
	assert.Equal(t, 1, git.calls)
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, fresh, store.entries["v1.0..v1.1"].Timestamp)
}

func TestGenerator_Build_CacheReadFailureRegathers(t *testing.T) {
	t.Parallel()

	git := &stubLogSource{lines: []string{"* tiny fix"}}
	store := newStubStore()
	store.readErr = errors.New("corrupt cache")

	gen, err := New(testOptions(git, store))
	require.NoError(t, err)

	_, err = gen.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, git.calls)
	assert.Equal(t, 1, store.writes)
}

func TestGenerator_Build_GitErrorPropagates(t *testing.T) {
	t.Parallel()

	gitErr := errors.New("exit status 128")
	git := &stubLogSource{err: gitErr}

	gen, err := New(testOptions(git, newStubStore()))
	require.NoError(t, err)

	_, err = gen.Build(context.Background())
	require.ErrorIs(t, err, gitErr)
}

func TestGenerator_Build_StoreWriteErrorPropagates(t *testing.T) {
	t.Parallel()

	git := &stubLogSource{lines: []string{"* tiny fix"}}
	store := newStubStore()
	store.writeErr = errors.New("cache dir unusable")

	gen, err := New(testOptions(git, store))
	require.NoError(t, err)

	_, err = gen.Build(context.Background())
	require.ErrorIs(t, err, store.writeErr)
}

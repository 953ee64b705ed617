package cache

import (
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestStore(t *testing.T, codecs ...Codec) *Store[testEntry] {
	t.Helper()

	return NewStore[testEntry](t.TempDir(), discardLogger, codecs...)
}

func TestStore_WriteRead_RoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	original := testEntry{Range: "v1.0..v1.1", Lines: []string{"* fix things #50"}}

	require.NoError(t, store.Write("v1.0..v1.1", &original))

	got, err := store.Read("v1.0..v1.1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, original, *got)
}

func TestStore_Read_MissingReturnsNil(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	got, err := store.Read("v9.9..v10.0")
	require.NoError(t, err)

	assert.Nil(t, got)
}

func TestStore_Read_ProbesEveryCodec(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	compressed := NewStore[testEntry](dir, discardLogger, NewLZ4Codec(NewJSONCodec()), NewJSONCodec())
	plain := NewStore[testEntry](dir, discardLogger, NewJSONCodec(), NewLZ4Codec(NewJSONCodec()))

	original := testEntry{Range: "v2.0..v2.1", Lines: []string{"* one"}}

	require.NoError(t, compressed.Write("v2.0..v2.1", &original))

	got, err := plain.Read("v2.0..v2.1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, original, *got)
}

func TestStore_Read_CorruptEntryErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore[testEntry](dir, discardLogger)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1.0..v1.1.json"), []byte("{broken"), 0o600))

	_, err := store.Read("v1.0..v1.1")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "decoding cache entry")
}

func TestStore_Write_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store := NewStore[testEntry](dir, discardLogger)

	require.NoError(t, store.Write("v1.0..v1.1", &testEntry{Range: "v1.0..v1.1"}))

	_, statErr := os.Stat(filepath.Join(dir, "v1.0..v1.1.json"))
	require.NoError(t, statErr)
}

func TestStore_Write_DirCreationFailure(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(parent, "blocker"), nil, 0o600))

	store := NewStore[testEntry](filepath.Join(parent, "blocker", "cache"), discardLogger)

	err := store.Write("v1.0..v1.1", &testEntry{})
	require.Error(t, err)

	var dirErr *DirError

	require.ErrorAs(t, err, &dirErr)
	assert.NotZero(t, dirErr.Errno())
}

func TestStore_Write_FileFailureAbsorbed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore[testEntry](dir, discardLogger)

	// A directory squatting on the entry path makes the final rename fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "v1.0..v1.1.json"), 0o750))

	assert.NoError(t, store.Write("v1.0..v1.1", &testEntry{}))

	_, statErr := os.Stat(filepath.Join(dir, "v1.0..v1.1.json.tmp"))
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestStore_Raw_ReturnsDecompressedBytes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, NewLZ4Codec(NewJSONCodec()))

	require.NoError(t, store.Write("v1.0..v1.1", &testEntry{Range: "v1.0..v1.1"}))

	raw, err := store.Raw("v1.0..v1.1")
	require.NoError(t, err)

	assert.True(t, json.Valid(raw))
	assert.Contains(t, string(raw), `"range"`)
}

func TestStore_Raw_MissingEntry(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Raw("v9.9..v10.0")
	require.ErrorIs(t, err, ErrNoEntry)
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plain := NewStore[testEntry](dir, discardLogger, NewJSONCodec(), NewLZ4Codec(NewJSONCodec()))
	compressed := NewStore[testEntry](dir, discardLogger, NewLZ4Codec(NewJSONCodec()), NewJSONCodec())

	require.NoError(t, plain.Write("v2.0..v2.1", &testEntry{Range: "v2.0..v2.1"}))
	require.NoError(t, compressed.Write("v1.0..v1.1", &testEntry{Range: "v1.0..v1.1"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token"), []byte("sekret\n"), 0o600))

	infos, err := plain.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "v1.0..v1.1", infos[0].Key)
	assert.True(t, infos[0].Compressed)
	assert.Equal(t, "v2.0..v2.1", infos[1].Key)
	assert.False(t, infos[1].Compressed)
	assert.Positive(t, infos[0].Size)
	assert.Positive(t, infos[1].Size)
}

func TestStore_List_MissingDir(t *testing.T) {
	t.Parallel()

	store := NewStore[testEntry](filepath.Join(t.TempDir(), "absent"), discardLogger)

	infos, err := store.List()
	require.NoError(t, err)

	assert.Empty(t, infos)
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	require.NoError(t, store.Write("v1.0..v1.1", &testEntry{}))
	require.NoError(t, store.Remove("v1.0..v1.1"))

	got, readErr := store.Read("v1.0..v1.1")
	require.NoError(t, readErr)
	assert.Nil(t, got)

	require.ErrorIs(t, store.Remove("v1.0..v1.1"), ErrNoEntry)
}

func TestStore_Clear_LeavesTokenAlone(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	require.NoError(t, store.Write("v1.0..v1.1", &testEntry{}))
	require.NoError(t, store.Write("v1.1..v1.2", &testEntry{}))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "token"), []byte("sekret\n"), 0o600))

	removed, err := store.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	infos, listErr := store.List()
	require.NoError(t, listErr)
	assert.Empty(t, infos)

	_, statErr := os.Stat(filepath.Join(store.Dir(), "token"))
	assert.NoError(t, statErr)
}

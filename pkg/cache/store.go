package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"
)

// Permissions for the store directory and entry files.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// ErrNoEntry indicates no file exists for the requested key.
var ErrNoEntry = errors.New("cache: no entry")

// DirError reports a failure to create the store directory.
type DirError struct {
	Path string
	Err  error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("cache: creating %s: %v", e.Path, e.Err)
}

func (e *DirError) Unwrap() error {
	return e.Err
}

// Errno surfaces the operating system errno behind the failure, or zero when
// none is available.
func (e *DirError) Errno() int {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return int(errno)
	}

	return 0
}

// Info describes one stored entry.
type Info struct {
	Key        string
	Path       string
	Size       int64
	ModTime    time.Time
	Compressed bool
}

// Store persists one value per key under a single directory. The first codec
// writes new entries; every codec is probed when reading, so entries written
// under a different compression setting stay readable. No file locking is
// performed, concurrent writers for the same key race.
type Store[T any] struct {
	dir    string
	codecs []Codec
	logger *slog.Logger
}

// NewStore creates a store rooted at dir. With no codecs given, plain JSON is
// used. The directory is created lazily on first write.
func NewStore[T any](dir string, logger *slog.Logger, codecs ...Codec) *Store[T] {
	if len(codecs) == 0 {
		codecs = []Codec{NewJSONCodec()}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store[T]{dir: dir, codecs: codecs, logger: logger}
}

// Dir returns the directory the store persists to.
func (s *Store[T]) Dir() string {
	return s.dir
}

// Read returns the entry stored for key, or nil without error when no file
// exists for it under any codec.
func (s *Store[T]) Read(key string) (*T, error) {
	for _, codec := range s.codecs {
		path := filepath.Join(s.dir, key+codec.Extension())

		file, openErr := os.Open(path)
		if errors.Is(openErr, fs.ErrNotExist) {
			continue
		}

		if openErr != nil {
			return nil, fmt.Errorf("opening cache entry: %w", openErr)
		}

		s.logger.Debug("reading cache entry", "path", path)

		var value T

		decodeErr := codec.Decode(file, &value)
		_ = file.Close()

		if decodeErr != nil {
			return nil, fmt.Errorf("decoding cache entry %s: %w", path, decodeErr)
		}

		return &value, nil
	}

	s.logger.Debug("no cache entry", "key", key)

	return nil, nil
}

// Raw returns the stored bytes for key after reversing any compression. A
// missing entry returns an error wrapping ErrNoEntry.
func (s *Store[T]) Raw(key string) ([]byte, error) {
	for _, codec := range s.codecs {
		path := filepath.Join(s.dir, key+codec.Extension())

		file, openErr := os.Open(path)
		if errors.Is(openErr, fs.ErrNotExist) {
			continue
		}

		if openErr != nil {
			return nil, fmt.Errorf("opening cache entry: %w", openErr)
		}

		var raw json.RawMessage

		decodeErr := codec.Decode(file, &raw)
		_ = file.Close()

		if decodeErr != nil {
			return nil, fmt.Errorf("decoding cache entry %s: %w", path, decodeErr)
		}

		return raw, nil
	}

	return nil, fmt.Errorf("%w for %q", ErrNoEntry, key)
}

// Write persists the entry for key, creating the store directory first. The
// entry file is replaced whole, written to a temp file and renamed into
// place. A directory creation failure is returned as *DirError; file-level
// failures are logged and absorbed.
func (s *Store[T]) Write(key string, entry *T) error {
	err := s.ensureDir()
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, key+s.codecs[0].Extension())

	var buf bytes.Buffer

	encodeErr := s.codecs[0].Encode(&buf, entry)
	if encodeErr != nil {
		s.logger.Error("encoding cache entry failed", "path", path, "error", encodeErr)

		return nil
	}

	s.logger.Debug("writing cache entry", "path", path)

	tmpPath := path + ".tmp"

	writeErr := os.WriteFile(tmpPath, buf.Bytes(), filePerm)
	if writeErr != nil {
		s.logger.Error("writing cache entry failed", "path", tmpPath, "error", writeErr)

		return nil
	}

	renameErr := os.Rename(tmpPath, path)
	if renameErr != nil {
		_ = os.Remove(tmpPath)
		s.logger.Error("replacing cache entry failed", "path", path, "error", renameErr)
	}

	return nil
}

// List returns every stored entry, sorted by key. A store directory that does
// not exist yet yields an empty list.
func (s *Store[T]) List() ([]Info, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache dir: %w", err)
	}

	var infos []Info

	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}

		key, compressed, ok := s.splitEntryName(dirEntry.Name())
		if !ok {
			continue
		}

		stat, statErr := dirEntry.Info()
		if statErr != nil {
			continue
		}

		infos = append(infos, Info{
			Key:        key,
			Path:       filepath.Join(s.dir, dirEntry.Name()),
			Size:       stat.Size(),
			ModTime:    stat.ModTime(),
			Compressed: compressed,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })

	return infos, nil
}

// Remove deletes the entry files for key under every codec. Removing a key
// with no entry returns an error wrapping ErrNoEntry.
func (s *Store[T]) Remove(key string) error {
	removed := false

	for _, codec := range s.codecs {
		path := filepath.Join(s.dir, key+codec.Extension())

		err := os.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return fmt.Errorf("removing cache entry: %w", err)
		}

		removed = true
	}

	if !removed {
		return fmt.Errorf("%w for %q", ErrNoEntry, key)
	}

	return nil
}

// Clear deletes every stored entry and reports how many were removed. Files
// that are not cache entries, like a saved token, are left alone.
func (s *Store[T]) Clear() (int, error) {
	infos, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, info := range infos {
		rmErr := os.Remove(info.Path)
		if rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing cache entry: %w", rmErr)
		}

		removed++
	}

	return removed, nil
}

func (s *Store[T]) ensureDir() error {
	err := os.MkdirAll(s.dir, dirPerm)
	if err != nil {
		return &DirError{Path: s.dir, Err: err}
	}

	return nil
}

// splitEntryName maps a file name back to its key, reporting whether the file
// is compressed and whether it is a cache entry at all.
func (s *Store[T]) splitEntryName(name string) (key string, compressed bool, ok bool) {
	for _, codec := range s.codecs {
		ext := codec.Extension()
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext), strings.HasSuffix(ext, lz4Extension), true
		}
	}

	return "", false, false
}

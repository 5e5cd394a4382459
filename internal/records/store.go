package records

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"log/slog"
	"os"
	"sync"
)

// Source supplies the current dataset. Store is the file-backed
// implementation; tests pass a fixed dataset.
type Source interface {
	Dataset() (Dataset, error)
}

// Store serves the dataset at a fixed path and re-parses it only when
// the file content changes. Every call reads the file and compares its
// SHA-256 with the one of the cached parse, so a rewrite is picked up
// even when size and modification time are unchanged.
//
// The zero value is not usable; construct with NewStore.
type Store struct {
	path string
	log  *slog.Logger

	mu     sync.Mutex
	cached Dataset
	sum    [sha256.Size]byte
}

var _ Source = (*Store)(nil)

// NewStore returns a Store for the CSV file at path. A nil logger falls
// back to slog.Default().
func NewStore(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log}
}

// Path returns the source file the store reads.
func (s *Store) Path() string { return s.path }

// Dataset returns the current dataset. On failure it returns Empty and a
// *LoadError, and the next call retries the load.
func (s *Store) Dataset() (Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.cached = Empty
		cause := err
		if errors.Is(err, os.ErrNotExist) {
			cause = errors.Join(ErrSourceMissing, err)
		}
		s.log.Error("dataset unavailable", slog.String("path", s.path), slog.String("error", err.Error()))
		return Empty, &LoadError{Path: s.path, Reason: err.Error(), Err: cause}
	}

	sum := sha256.Sum256(data)
	if s.cached.Loaded() && sum == s.sum {
		return s.cached, nil
	}

	ds, err := parseFrom(s.path, bytes.NewReader(data))
	if err != nil {
		s.cached = Empty
		s.log.Error("failed to load dataset", slog.String("path", s.path), slog.String("error", err.Error()))
		return Empty, err
	}

	s.cached = ds
	s.sum = sum
	s.log.Info("dataset loaded", slog.String("path", s.path), slog.Int("records", ds.Len()))
	return ds, nil
}

// Invalidate drops the cached parse so the next Dataset call reloads.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = Empty
	s.mu.Unlock()
}

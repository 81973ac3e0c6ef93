// Package plotstore assigns identifiers to rendered plots, persists their
// images through a storage.BlobStore and keeps an in-memory index of what
// has been stored.
//
// The index lives for the lifetime of the process. Blobs written by an earlier
// process stay in the backend but are no longer reachable by identifier.
package plotstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HatiCode/plotviz/pkg/storage"
)

// ErrNotFound is returned for identifiers that are not in the index.
var ErrNotFound = errors.New("not found")

// StorageError reports a failure of the blob backend.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("plot storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("plot storage %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Record describes one stored plot. Records are never mutated.
type Record struct {
	ID         string
	FilePath   string
	PointCount int
	CreatedAt  time.Time
}

// Metadata is what the caller knows about an image at save time.
type Metadata struct {
	PointCount int
}

// Store is safe for concurrent use.
type Store struct {
	blobs storage.BlobStore

	mu    sync.RWMutex
	index map[string]Record

	newID func() string
	now   func() time.Time
}

// New returns an empty Store backed by blobs.
func New(blobs storage.BlobStore) *Store {
	return &Store{
		blobs: blobs,
		index: make(map[string]Record),
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func blobKey(id string) string { return id + ".png" }

// Save writes png under a fresh identifier and indexes it. The record is only
// inserted after the blob write succeeded.
func (s *Store) Save(ctx context.Context, png []byte, meta Metadata) (Record, error) {
	id := s.newID()
	loc, err := s.blobs.Save(ctx, blobKey(id), png)
	if err != nil {
		return Record{}, &StorageError{Op: "save", ID: id, Err: err}
	}

	rec := Record{
		ID:         id,
		FilePath:   loc,
		PointCount: meta.PointCount,
		CreatedAt:  s.now(),
	}
	s.mu.Lock()
	s.index[id] = rec
	s.mu.Unlock()
	return rec, nil
}

// Get returns the indexed record for id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	rec, ok := s.index[id]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Load returns the image bytes stored for id. Unknown identifiers yield
// ErrNotFound; an indexed plot whose blob vanished yields a *StorageError.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	data, err := s.blobs.Load(ctx, blobKey(id))
	if err != nil {
		return nil, &StorageError{Op: "load", ID: id, Err: err}
	}
	return data, nil
}

// Exists reports whether the blob behind an indexed plot is still present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := s.Get(id); err != nil {
		return false, err
	}
	ok, err := s.blobs.Exists(ctx, blobKey(id))
	if err != nil {
		return false, &StorageError{Op: "exists", ID: id, Err: err}
	}
	return ok, nil
}

// Count returns the number of indexed plots.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Ping checks the blob backend.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.blobs.Ping(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

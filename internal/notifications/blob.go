package notifications

import (
	"context"
	"errors"
	"sync"
)

// The whole notification log is persisted wholesale as one serialized
// collection under a single fixed key; there are no partial or merge writes.
const logKey = "notifications"

var (
	// ErrNotFound means no log has been written under the key yet. Callers
	// treat it as an empty log, not a failure.
	ErrNotFound = errors.New("notification log not found")

	// ErrVersionConflict means another writer saved the log since it was
	// loaded. Callers re-read and re-apply their mutation.
	ErrVersionConflict = errors.New("notification log version conflict")
)

// BlobStore persists one opaque blob with an optimistic version stamp.
// Load returns the blob and its current version; Save succeeds only when the
// stored version still equals expected, returning the new version.
// A fresh store has version 0 and returns ErrNotFound from Load.
type BlobStore interface {
	Load(ctx context.Context) (data []byte, version int64, err error)
	Save(ctx context.Context, data []byte, expected int64) (int64, error)
}

// MemoryBlobStore is the in-process BlobStore used for single-node setups
// and tests.
type MemoryBlobStore struct {
	mu      sync.Mutex
	data    []byte
	version int64
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{}
}

func (s *MemoryBlobStore) Load(ctx context.Context) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == 0 {
		return nil, 0, ErrNotFound
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, s.version, nil
}

func (s *MemoryBlobStore) Save(ctx context.Context, data []byte, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != expected {
		return 0, ErrVersionConflict
	}
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.version++
	return s.version, nil
}

// Corrupt overwrites the stored blob without touching the version. Test hook
// for the malformed-log path.
func (s *MemoryBlobStore) Corrupt(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == 0 {
		s.version = 1
	}
	s.data = data
}

package attach

import (
	"context"
	"fmt"
	"sync"
)

// MemStore keeps blobs in memory and mints mem:// URLs. Used in tests and
// dev environments; FailNext lets tests exercise the partial-upload path.
type MemStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	n        int
	failNext error
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// FailNext makes the next Upload call return err instead of storing.
func (s *MemStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *MemStore) Upload(ctx context.Context, label string, blob []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return "", err
	}

	s.n++
	url := fmt.Sprintf("mem://attachments/%d/%s", s.n, label)
	b := make([]byte, len(blob))
	copy(b, blob)
	s.blobs[url] = b
	return url, nil
}

// Blob returns a stored blob by URL. Test-only helper.
func (s *MemStore) Blob(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[url]
	return b, ok
}

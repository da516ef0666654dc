package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// RequestStore is an in-memory Request Ledger for tests and dev environments.
type RequestStore struct {
	mu   sync.RWMutex
	data map[string]store.RequestRecord
	seq  int
}

func NewRequestStore() *RequestStore {
	return &RequestStore{data: make(map[string]store.RequestRecord)}
}

func (s *RequestStore) Create(_ context.Context, rec store.RequestRecord) (store.RequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec.RequestNo = fmt.Sprintf("MS-%04d", s.seq)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.data[rec.RequestID] = cloneRequest(rec)
	return cloneRequest(rec), nil
}

func (s *RequestStore) Get(_ context.Context, requestID string) (store.RequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[requestID]
	if !ok {
		return store.RequestRecord{}, store.ErrNotFound
	}
	return cloneRequest(rec), nil
}

func (s *RequestStore) SetAttachment(_ context.Context, requestID, label, url string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[requestID]
	if !ok {
		return store.ErrNotFound
	}
	if rec.Attachments == nil {
		rec.Attachments = make(map[string]string)
	}
	rec.Attachments[label] = url
	s.data[requestID] = rec
	return nil
}

func (s *RequestStore) Promote(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[requestID]
	if !ok {
		return store.ErrNotFound
	}
	switch rec.Status {
	case types.StatusPendingReview:
		return nil // idempotent
	case types.StatusUploading:
		rec.Status = types.StatusPendingReview
		s.data[requestID] = rec
		return nil
	default:
		return store.ErrInvalidTransition
	}
}

func (s *RequestStore) MarkDecided(_ context.Context, requestID string, d store.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[requestID]
	if !ok {
		return store.ErrNotFound
	}
	switch rec.Status {
	case types.StatusPendingReview:
		// fall through to apply
	case types.StatusUploading:
		return store.ErrInvalidTransition
	default:
		return store.ErrAlreadyDecided
	}

	decidedAt := d.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}
	rec.DecidedBy = d.DecidedBy
	rec.DecidedAt = &decidedAt
	if d.Outcome == types.OutcomeApprove {
		rec.Status = types.StatusApproved
		rec.Serial = d.Serial
	} else {
		rec.Status = types.StatusRejected
		rec.RejectionReason = d.Reason
	}
	s.data[requestID] = rec
	return nil
}

func (s *RequestStore) ListByStatus(_ context.Context, status types.RequestStatus) ([]store.RequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.RequestRecord
	for _, rec := range s.data {
		if rec.Status == status {
			out = append(out, cloneRequest(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *RequestStore) Delete(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[requestID]; !ok {
		return store.ErrNotFound
	}
	delete(s.data, requestID)
	return nil
}

// cloneRequest copies the record deeply enough that callers cannot alias the
// stored attachment map or vehicle struct.
func cloneRequest(rec store.RequestRecord) store.RequestRecord {
	if rec.Attachments != nil {
		m := make(map[string]string, len(rec.Attachments))
		for k, v := range rec.Attachments {
			m[k] = v
		}
		rec.Attachments = m
	}
	if rec.Vehicle != nil {
		v := *rec.Vehicle
		rec.Vehicle = &v
	}
	if rec.DecidedAt != nil {
		t := *rec.DecidedAt
		rec.DecidedAt = &t
	}
	return rec
}

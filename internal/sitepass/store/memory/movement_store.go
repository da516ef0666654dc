package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// MovementStore is an in-memory append-only Occupancy Ledger. The latest
// movement per identifier is kept as a materialized index; it is always
// re-derivable by replaying the log slice from empty state.
type MovementStore struct {
	mu     sync.RWMutex
	log    []store.MovementRecord
	latest map[movementKey]int // index into log
	nextID int64
}

type movementKey struct {
	category   types.Category
	identifier string
}

func NewMovementStore() *MovementStore {
	return &MovementStore{latest: make(map[movementKey]int)}
}

func (s *MovementStore) Append(_ context.Context, rec store.MovementRecord) (store.MovementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	onSite := false
	if i, ok := s.latest[movementKey{rec.Category, rec.Identifier}]; ok {
		onSite = s.log[i].Presence == types.PresenceOnSite
	}
	if rec.Kind == types.MovementCheckIn && onSite {
		return store.MovementRecord{}, store.ErrPresenceConflict
	}
	if rec.Kind == types.MovementCheckOut && !onSite {
		return store.MovementRecord{}, store.ErrPresenceConflict
	}

	s.nextID++
	rec.ID = s.nextID
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	s.log = append(s.log, rec)
	s.latest[movementKey{rec.Category, rec.Identifier}] = len(s.log) - 1
	return rec, nil
}

func (s *MovementStore) Latest(_ context.Context, category types.Category, identifier string) (store.MovementRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.latest[movementKey{category, identifier}]
	if !ok {
		return store.MovementRecord{}, false, nil
	}
	return s.log[i], true, nil
}

func (s *MovementStore) OnSite(_ context.Context) ([]store.MovementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.MovementRecord
	for _, i := range s.latest {
		if s.log[i].Presence == types.PresenceOnSite {
			out = append(out, s.log[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MovementStore) All(_ context.Context) ([]store.MovementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.MovementRecord, len(s.log))
	copy(out, s.log)
	return out, nil
}

// GateStore is an in-memory gate reference-data lookup.
type GateStore struct {
	mu    sync.RWMutex
	gates map[string]store.GateRecord
}

func NewGateStore(gates []store.GateRecord) *GateStore {
	g := make(map[string]store.GateRecord, len(gates))
	for _, rec := range gates {
		g[rec.GateID] = rec
	}
	return &GateStore{gates: g}
}

func (s *GateStore) Get(_ context.Context, gateID string) (store.GateRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.gates[gateID]
	return rec, ok, nil
}

func (s *GateStore) List(_ context.Context) ([]store.GateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.GateRecord, 0, len(s.gates))
	for _, rec := range s.gates {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GateID < out[j].GateID })
	return out, nil
}

func (s *GateStore) Put(_ context.Context, rec store.GateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[rec.GateID] = rec
	return nil
}

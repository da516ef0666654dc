package memory

import (
	"context"
	"sync"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/store"
)

// PersonnelAuthorizationStore is the in-memory personnel half of the
// Authorization Archive.
type PersonnelAuthorizationStore struct {
	mu        sync.RWMutex
	byID      map[string]store.PersonnelAuthorizationRecord
	byRequest map[string]string // request ID -> authorization ID
	bySerial  map[string]string // normalized serial -> authorization ID
}

func NewPersonnelAuthorizationStore() *PersonnelAuthorizationStore {
	return &PersonnelAuthorizationStore{
		byID:      make(map[string]store.PersonnelAuthorizationRecord),
		byRequest: make(map[string]string),
		bySerial:  make(map[string]string),
	}
}

func (s *PersonnelAuthorizationStore) Create(_ context.Context, rec store.PersonnelAuthorizationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byRequest[rec.RequestID]; ok {
		return nil // archival retry; entry already exists
	}
	s.byID[rec.AuthorizationID] = clonePersonnel(rec)
	s.byRequest[rec.RequestID] = rec.AuthorizationID
	s.bySerial[rec.SerialNormalized] = rec.AuthorizationID
	return nil
}

func (s *PersonnelAuthorizationStore) Get(_ context.Context, authorizationID string) (store.PersonnelAuthorizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[authorizationID]
	if !ok {
		return store.PersonnelAuthorizationRecord{}, store.ErrNotFound
	}
	return clonePersonnel(rec), nil
}

func (s *PersonnelAuthorizationStore) FindBySerial(_ context.Context, serialNormalized string) (store.PersonnelAuthorizationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySerial[serialNormalized]
	if !ok {
		return store.PersonnelAuthorizationRecord{}, false, nil
	}
	return clonePersonnel(s.byID[id]), true, nil
}

func (s *PersonnelAuthorizationStore) FindByRequest(_ context.Context, requestID string) (store.PersonnelAuthorizationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRequest[requestID]
	if !ok {
		return store.PersonnelAuthorizationRecord{}, false, nil
	}
	return clonePersonnel(s.byID[id]), true, nil
}

func (s *PersonnelAuthorizationStore) Revoke(_ context.Context, authorizationID, by, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[authorizationID]
	if !ok {
		return store.ErrNotFound
	}
	if rec.RevokedAt != nil {
		return store.ErrAlreadyRevoked
	}
	rec.RevokedAt = &at
	rec.RevokedBy = by
	rec.RevokeReason = reason
	s.byID[authorizationID] = rec
	return nil
}

// VehicleAuthorizationStore is the in-memory vehicle half of the
// Authorization Archive.
type VehicleAuthorizationStore struct {
	mu        sync.RWMutex
	byID      map[string]store.VehicleAuthorizationRecord
	byRequest map[string]string
	byPlate   map[string]string // normalized plate -> authorization ID
}

func NewVehicleAuthorizationStore() *VehicleAuthorizationStore {
	return &VehicleAuthorizationStore{
		byID:      make(map[string]store.VehicleAuthorizationRecord),
		byRequest: make(map[string]string),
		byPlate:   make(map[string]string),
	}
}

func (s *VehicleAuthorizationStore) Create(_ context.Context, rec store.VehicleAuthorizationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byRequest[rec.RequestID]; ok {
		return nil
	}
	s.byID[rec.AuthorizationID] = cloneVehicle(rec)
	s.byRequest[rec.RequestID] = rec.AuthorizationID
	s.byPlate[rec.PlateNormalized] = rec.AuthorizationID
	return nil
}

func (s *VehicleAuthorizationStore) Get(_ context.Context, authorizationID string) (store.VehicleAuthorizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[authorizationID]
	if !ok {
		return store.VehicleAuthorizationRecord{}, store.ErrNotFound
	}
	return cloneVehicle(rec), nil
}

func (s *VehicleAuthorizationStore) FindByPlate(_ context.Context, plateNormalized string) (store.VehicleAuthorizationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPlate[plateNormalized]
	if !ok {
		return store.VehicleAuthorizationRecord{}, false, nil
	}
	return cloneVehicle(s.byID[id]), true, nil
}

func (s *VehicleAuthorizationStore) FindByRequest(_ context.Context, requestID string) (store.VehicleAuthorizationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRequest[requestID]
	if !ok {
		return store.VehicleAuthorizationRecord{}, false, nil
	}
	return cloneVehicle(s.byID[id]), true, nil
}

func (s *VehicleAuthorizationStore) Revoke(_ context.Context, authorizationID, by, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[authorizationID]
	if !ok {
		return store.ErrNotFound
	}
	if rec.RevokedAt != nil {
		return store.ErrAlreadyRevoked
	}
	rec.RevokedAt = &at
	rec.RevokedBy = by
	rec.RevokeReason = reason
	s.byID[authorizationID] = rec
	return nil
}

func clonePersonnel(rec store.PersonnelAuthorizationRecord) store.PersonnelAuthorizationRecord {
	if rec.ExpiresAt != nil {
		t := *rec.ExpiresAt
		rec.ExpiresAt = &t
	}
	if rec.RevokedAt != nil {
		t := *rec.RevokedAt
		rec.RevokedAt = &t
	}
	return rec
}

func cloneVehicle(rec store.VehicleAuthorizationRecord) store.VehicleAuthorizationRecord {
	if rec.RevokedAt != nil {
		t := *rec.RevokedAt
		rec.RevokedAt = &t
	}
	return rec
}

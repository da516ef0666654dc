package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// MovementInput describes one gate action to record.
type MovementInput struct {
	GateID     string
	Category   types.Category
	Identifier string
	Kind       types.MovementKind
}

// OccupancyService appends verified movements to the Occupancy Ledger and
// derives who is currently on site. Occupancy is a read-time aggregate over
// the log, never a separately stored counter, so concurrent gate writes can
// never make it drift.
type OccupancyService struct {
	movements store.MovementStore
	gates     store.GateStore
	verifier  *VerificationService
	feed      *Feed
	logger    *log.Logger
}

func NewOccupancyService(
	movements store.MovementStore,
	gates store.GateStore,
	verifier *VerificationService,
	feed *Feed,
	logger *log.Logger,
) *OccupancyService {
	return &OccupancyService{
		movements: movements,
		gates:     gates,
		verifier:  verifier,
		feed:      feed,
		logger:    logger,
	}
}

// RecordMovement verifies the identifier and appends the movement. The store
// enforces the duplicate policy atomically with the append: a check-in for an
// identifier already on site fails with ErrAlreadyOnSite, and a check-out for
// one not on site fails with ErrNotOnSite. The second gate sees an explicit
// conflict instead of the first check-in being silently closed.
func (s *OccupancyService) RecordMovement(ctx context.Context, in MovementInput) (store.MovementRecord, error) {
	if in.Kind != types.MovementCheckIn && in.Kind != types.MovementCheckOut {
		return store.MovementRecord{}, fmt.Errorf("%w: unknown movement kind %q", ErrValidation, in.Kind)
	}

	_, ok, err := s.gates.Get(ctx, in.GateID)
	if err != nil {
		return store.MovementRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return store.MovementRecord{}, fmt.Errorf("%w: %s", ErrUnknownGate, in.GateID)
	}

	// The station UI verifies before offering the movement buttons; this
	// re-check keeps an unverified identifier out of the ledger even if a
	// client misbehaves.
	res, err := s.verifier.Verify(ctx, in.Category, in.Identifier)
	if err != nil {
		return store.MovementRecord{}, err
	}
	if !res.Matched {
		return store.MovementRecord{}, fmt.Errorf("%w: %s", ErrNotAuthorized, res.Reason)
	}

	presence := types.PresenceOnSite
	if in.Kind == types.MovementCheckOut {
		presence = types.PresenceDeparted
	}

	rec, err := s.movements.Append(ctx, store.MovementRecord{
		GateID:     in.GateID,
		Category:   in.Category,
		Identifier: res.Identifier,
		Kind:       in.Kind,
		Presence:   presence,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrPresenceConflict) {
			if in.Kind == types.MovementCheckIn {
				return store.MovementRecord{}, ErrAlreadyOnSite
			}
			return store.MovementRecord{}, ErrNotOnSite
		}
		return store.MovementRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Printf("gate %s: %s %s (%s) -> %s", rec.GateID, rec.Kind, rec.Identifier, rec.Category, rec.Presence)
	s.feed.Publish(Event{
		Topic:      TopicMovements,
		Kind:       string(rec.Kind),
		Identifier: rec.Identifier,
		GateID:     rec.GateID,
	})
	return rec, nil
}

// CurrentOccupancy is the count of identifiers whose latest movement has
// presence on_site.
func (s *OccupancyService) CurrentOccupancy(ctx context.Context) (int, error) {
	onSite, err := s.movements.OnSite(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return len(onSite), nil
}

// ListOnSite returns, for each identifier currently on site, its admitting
// movement record.
func (s *OccupancyService) ListOnSite(ctx context.Context) ([]store.MovementRecord, error) {
	onSite, err := s.movements.OnSite(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return onSite, nil
}

// ReplayOccupancy recomputes occupancy by replaying the full log from empty
// state in append order. It exists for audit: the result must always equal
// CurrentOccupancy.
func (s *OccupancyService) ReplayOccupancy(ctx context.Context) (int, error) {
	all, err := s.movements.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	type key struct {
		category   types.Category
		identifier string
	}
	latest := make(map[key]types.Presence)
	for _, rec := range all {
		latest[key{rec.Category, rec.Identifier}] = rec.Presence
	}

	count := 0
	for _, presence := range latest {
		if presence == types.PresenceOnSite {
			count++
		}
	}
	return count, nil
}

// ListGates exposes the gate reference data for station UIs.
func (s *OccupancyService) ListGates(ctx context.Context) ([]store.GateRecord, error) {
	gates, err := s.gates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return gates, nil
}

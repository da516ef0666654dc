package store

import (
	"context"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// MovementRecord is one append-only entry in the Occupancy Ledger. The
// identifier is stored in normalized form so occupancy aggregation never
// splits one person or vehicle across typing variants.
type MovementRecord struct {
	ID         int64
	GateID     string
	Category   types.Category
	Identifier string
	Kind       types.MovementKind
	Presence   types.Presence
	RecordedAt time.Time
}

type MovementStore interface {
	// Append persists a movement and returns it with its assigned ID. The
	// presence guard lives here, atomic with the write: a check-in for an
	// identifier already on site, or a check-out for one not on site,
	// fails with ErrPresenceConflict and appends nothing.
	Append(ctx context.Context, rec MovementRecord) (MovementRecord, error)

	// Latest returns the most recent movement for an identifier within a
	// category. A clean history is (zero, false, nil).
	Latest(ctx context.Context, category types.Category, identifier string) (MovementRecord, bool, error)

	// OnSite returns, for every identifier whose latest movement has
	// presence on_site, that latest movement.
	OnSite(ctx context.Context) ([]MovementRecord, error)

	// All returns the full log in timestamp order, for audit export and
	// occupancy replay.
	All(ctx context.Context) ([]MovementRecord, error)
}

// GateRecord is read-only reference data consulted when recording movements.
type GateRecord struct {
	GateID string
	NameEN string
	NameAR string
}

type GateStore interface {
	Get(ctx context.Context, gateID string) (GateRecord, bool, error)
	List(ctx context.Context) ([]GateRecord, error)

	// Put upserts a gate; used by seeding from the reference-data file.
	Put(ctx context.Context, rec GateRecord) error
}

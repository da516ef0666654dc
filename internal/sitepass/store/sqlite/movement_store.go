package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/industrialgate/sitepass/internal/db"
	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// MovementStore persists the append-only Occupancy Ledger. Occupancy is
// always derived with a latest-per-identifier query, never a stored counter.
type MovementStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewMovementStore(conn *sql.DB, writer *dbpkg.Worker) *MovementStore {
	return &MovementStore{conn: conn, writer: writer}
}

const movementColumns = `id, gate_id, category, identifier, kind, presence, recorded_at_ms`

func (s *MovementStore) Append(ctx context.Context, rec store.MovementRecord) (store.MovementRecord, error) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Guard and insert share the transaction so two racing gates can
		// never both pass the presence check.
		var prior types.Presence
		err := tx.QueryRowContext(ctx, `
SELECT presence FROM movement_logs
WHERE category = ? AND identifier = ?
ORDER BY id DESC
LIMIT 1;
`, rec.Category, rec.Identifier).Scan(&prior)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("Append presence check: %w", err)
		}
		onSite := err == nil && prior == types.PresenceOnSite
		if rec.Kind == types.MovementCheckIn && onSite {
			return store.ErrPresenceConflict
		}
		if rec.Kind == types.MovementCheckOut && !onSite {
			return store.ErrPresenceConflict
		}

		res, err := tx.ExecContext(ctx, `
INSERT INTO movement_logs(gate_id, category, identifier, kind, presence, recorded_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`, rec.GateID, rec.Category, rec.Identifier, rec.Kind, rec.Presence,
			rec.RecordedAt.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("Append movement: %w", err)
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Append movement id: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.MovementRecord{}, err
	}
	return rec, nil
}

func (s *MovementStore) Latest(ctx context.Context, category types.Category, identifier string) (store.MovementRecord, bool, error) {
	row := s.conn.QueryRowContext(ctx, `
SELECT `+movementColumns+`
FROM movement_logs
WHERE category = ? AND identifier = ?
ORDER BY id DESC
LIMIT 1;
`, category, identifier)

	rec, err := scanMovement(row)
	if err == sql.ErrNoRows {
		return store.MovementRecord{}, false, nil
	}
	if err != nil {
		return store.MovementRecord{}, false, fmt.Errorf("Latest: %w", err)
	}
	return rec, true, nil
}

func (s *MovementStore) OnSite(ctx context.Context) ([]store.MovementRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT m.id, m.gate_id, m.category, m.identifier, m.kind, m.presence, m.recorded_at_ms
FROM movement_logs m
JOIN (
  SELECT category, identifier, MAX(id) AS latest_id
  FROM movement_logs
  GROUP BY category, identifier
) t ON m.id = t.latest_id
WHERE m.presence = 'on_site'
ORDER BY m.id;
`)
	if err != nil {
		return nil, fmt.Errorf("OnSite query: %w", err)
	}
	defer rows.Close()

	return collectMovements(rows)
}

func (s *MovementStore) All(ctx context.Context) ([]store.MovementRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movement_logs ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("All query: %w", err)
	}
	defer rows.Close()

	return collectMovements(rows)
}

func collectMovements(rows *sql.Rows) ([]store.MovementRecord, error) {
	var out []store.MovementRecord
	for rows.Next() {
		rec, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanMovement(row rowScanner) (store.MovementRecord, error) {
	var (
		rec        store.MovementRecord
		recordedMs int64
	)
	err := row.Scan(&rec.ID, &rec.GateID, &rec.Category, &rec.Identifier,
		&rec.Kind, &rec.Presence, &recordedMs)
	if err != nil {
		return store.MovementRecord{}, err
	}
	rec.RecordedAt = time.UnixMilli(recordedMs).UTC()
	return rec, nil
}

// GateStore persists the gate reference data.
type GateStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewGateStore(conn *sql.DB, writer *dbpkg.Worker) *GateStore {
	return &GateStore{conn: conn, writer: writer}
}

func (s *GateStore) Get(ctx context.Context, gateID string) (store.GateRecord, bool, error) {
	var rec store.GateRecord
	err := s.conn.QueryRowContext(ctx,
		`SELECT gate_id, name_en, name_ar FROM gates WHERE gate_id = ?;`, gateID).
		Scan(&rec.GateID, &rec.NameEN, &rec.NameAR)
	if err == sql.ErrNoRows {
		return store.GateRecord{}, false, nil
	}
	if err != nil {
		return store.GateRecord{}, false, fmt.Errorf("Get gate: %w", err)
	}
	return rec, true, nil
}

func (s *GateStore) List(ctx context.Context) ([]store.GateRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT gate_id, name_en, name_ar FROM gates ORDER BY gate_id;`)
	if err != nil {
		return nil, fmt.Errorf("List gates: %w", err)
	}
	defer rows.Close()

	var out []store.GateRecord
	for rows.Next() {
		var rec store.GateRecord
		if err := rows.Scan(&rec.GateID, &rec.NameEN, &rec.NameAR); err != nil {
			return nil, fmt.Errorf("scan gate: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *GateStore) Put(ctx context.Context, rec store.GateRecord) error {
	now := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO gates(gate_id, name_en, name_ar, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(gate_id) DO UPDATE SET
  name_en = excluded.name_en,
  name_ar = excluded.name_ar,
  updated_at_ms = excluded.updated_at_ms;
`, rec.GateID, rec.NameEN, rec.NameAR, now, now); err != nil {
			return fmt.Errorf("Put gate %s: %w", rec.GateID, err)
		}
		return nil
	})
}

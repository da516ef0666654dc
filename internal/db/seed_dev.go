package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// Gates to pre-create when the reference-data file supplies none.
	Gates []SeedGate
}

type SeedGate struct {
	GateID string
	NameEN string
	NameAR string
}

// SeedDev inserts starter gate rows for a dev environment. Idempotent.
func SeedDev(ctx context.Context, conn *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	gates := opt.Gates
	if len(gates) == 0 {
		gates = []SeedGate{
			{GateID: "gate-north", NameEN: "North Gate", NameAR: "البوابة الشمالية"},
			{GateID: "gate-south", NameEN: "South Gate", NameAR: "البوابة الجنوبية"},
		}
	}

	for _, g := range gates {
		if _, err := conn.ExecContext(ctx, `
INSERT INTO gates(gate_id, name_en, name_ar, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(gate_id) DO UPDATE SET
  name_en = excluded.name_en,
  name_ar = excluded.name_ar,
  updated_at_ms = excluded.updated_at_ms;
`, g.GateID, g.NameEN, g.NameAR, now, now); err != nil {
			return fmt.Errorf("seed gate %s: %w", g.GateID, err)
		}
	}

	return nil
}

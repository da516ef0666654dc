package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/store"
	sqlitestore "github.com/industrialgate/sitepass/internal/sitepass/store/sqlite"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

func samplePersonnelAuth(id, serial string) store.PersonnelAuthorizationRecord {
	return store.PersonnelAuthorizationRecord{
		AuthorizationID:  "auth-" + id,
		RequestID:        "req-" + id,
		Serial:           serial,
		SerialNormalized: serial, // already canonical in these fixtures
		Applicant: types.Applicant{
			FullName:   "محمد عبدالله القحطاني",
			NationalID: "1093847261",
			Department: "Operations",
		},
		ApprovedBy: "reviewer-7",
		ApprovedAt: time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC),
	}
}

func sampleVehicleAuth(id, plateNormalized string) store.VehicleAuthorizationRecord {
	return store.VehicleAuthorizationRecord{
		AuthorizationID: "auth-" + id,
		RequestID:       "req-" + id,
		Plate:           "أ ا ا-1234",
		PlateNormalized: plateNormalized,
		Applicant: types.Applicant{
			FullName:   "سعد الحربي",
			NationalID: "1076662190",
		},
		Vehicle: types.VehicleInfo{
			Plate:         "أ ا ا-1234",
			LicenseNumber: "DL-88321",
			Model:         "Toyota Hilux",
			Color:         "White",
		},
		ApprovedBy: "reviewer-7",
		ApprovedAt: time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC),
	}
}

// ── Personnel archive ────────────────────────────────────────────────────────

func TestPersonnelAuthorizationStore_CreateAndFind(t *testing.T) {
	conn := openTestDB(t)
	ps := sqlitestore.NewPersonnelAuthorizationStore(conn, newTestWriter(t, conn))

	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := samplePersonnelAuth("1", "SN-5521")
	rec.ExpiresAt = &expiry

	if err := ps.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, found, err := ps.FindBySerial(context.Background(), "SN-5521")
	if err != nil {
		t.Fatalf("FindBySerial: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if got.AuthorizationID != "auth-1" || got.RequestID != "req-1" {
		t.Errorf("wrong record: %+v", got)
	}
	if got.Applicant.FullName != rec.Applicant.FullName {
		t.Errorf("full_name %q, want %q", got.Applicant.FullName, rec.Applicant.FullName)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expiry) {
		t.Errorf("expires_at %v, want %v", got.ExpiresAt, expiry)
	}
	if got.RevokedAt != nil {
		t.Error("fresh entry must not be revoked")
	}
}

func TestPersonnelAuthorizationStore_FindBySerial_NoMatch(t *testing.T) {
	conn := openTestDB(t)
	ps := sqlitestore.NewPersonnelAuthorizationStore(conn, newTestWriter(t, conn))

	_, found, err := ps.FindBySerial(context.Background(), "SN-0000")
	if err != nil {
		t.Fatalf("FindBySerial: %v", err)
	}
	if found {
		t.Error("expected no match")
	}
}

func TestPersonnelAuthorizationStore_Create_IdempotentPerRequest(t *testing.T) {
	conn := openTestDB(t)
	ps := sqlitestore.NewPersonnelAuthorizationStore(conn, newTestWriter(t, conn))

	rec := samplePersonnelAuth("1", "SN-5521")
	if err := ps.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// An archival retry carries a fresh authorization ID but the same
	// request ID; the original entry must win.
	retry := rec
	retry.AuthorizationID = "auth-1b"
	if err := ps.Create(context.Background(), retry); err != nil {
		t.Fatalf("retried Create: %v", err)
	}

	var count int
	err := conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM personnel_authorizations WHERE request_id = ?`, "req-1").Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 entry per request, got %d", count)
	}

	got, _, err := ps.FindBySerial(context.Background(), "SN-5521")
	if err != nil {
		t.Fatalf("FindBySerial: %v", err)
	}
	if got.AuthorizationID != "auth-1" {
		t.Errorf("original entry must survive the retry, got %q", got.AuthorizationID)
	}
}

func TestPersonnelAuthorizationStore_Revoke_OneShot(t *testing.T) {
	conn := openTestDB(t)
	ps := sqlitestore.NewPersonnelAuthorizationStore(conn, newTestWriter(t, conn))

	if err := ps.Create(context.Background(), samplePersonnelAuth("1", "SN-5521")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	if err := ps.Revoke(context.Background(), "auth-1", "security-1", "badge lost", at); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	got, err := ps.Get(context.Background(), "auth-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RevokedAt == nil || !got.RevokedAt.Equal(at) {
		t.Errorf("revoked_at %v, want %v", got.RevokedAt, at)
	}
	if got.RevokedBy != "security-1" || got.RevokeReason != "badge lost" {
		t.Errorf("revocation fields wrong: %+v", got)
	}

	err = ps.Revoke(context.Background(), "auth-1", "security-1", "again", at)
	if !errors.Is(err, store.ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}

	err = ps.Revoke(context.Background(), "auth-missing", "security-1", "x", at)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ── Vehicle archive ──────────────────────────────────────────────────────────

func TestVehicleAuthorizationStore_CreateAndFind(t *testing.T) {
	conn := openTestDB(t)
	vs := sqlitestore.NewVehicleAuthorizationStore(conn, newTestWriter(t, conn))

	if err := vs.Create(context.Background(), sampleVehicleAuth("1", "AAA1234")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, found, err := vs.FindByPlate(context.Background(), "AAA1234")
	if err != nil {
		t.Fatalf("FindByPlate: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if got.Plate != "أ ا ا-1234" {
		t.Errorf("archive keeps the original plate, got %q", got.Plate)
	}
	if got.Vehicle.Plate != got.Plate {
		t.Errorf("vehicle plate %q should mirror the serial %q", got.Vehicle.Plate, got.Plate)
	}
	if got.Vehicle.Model != "Toyota Hilux" || got.Vehicle.Color != "White" {
		t.Errorf("vehicle fields wrong: %+v", got.Vehicle)
	}
}

func TestVehicleAuthorizationStore_FindByPlate_NewestWins(t *testing.T) {
	conn := openTestDB(t)
	vs := sqlitestore.NewVehicleAuthorizationStore(conn, newTestWriter(t, conn))

	older := sampleVehicleAuth("1", "AAA1234")
	newer := sampleVehicleAuth("2", "AAA1234")
	newer.ApprovedAt = older.ApprovedAt.Add(time.Hour)

	if err := vs.Create(context.Background(), older); err != nil {
		t.Fatalf("Create older: %v", err)
	}
	if err := vs.Create(context.Background(), newer); err != nil {
		t.Fatalf("Create newer: %v", err)
	}

	got, found, err := vs.FindByPlate(context.Background(), "AAA1234")
	if err != nil || !found {
		t.Fatalf("FindByPlate (found=%v): %v", found, err)
	}
	if got.AuthorizationID != "auth-2" {
		t.Errorf("expected the most recent approval, got %q", got.AuthorizationID)
	}
}

func TestVehicleAuthorizationStore_Revoke(t *testing.T) {
	conn := openTestDB(t)
	vs := sqlitestore.NewVehicleAuthorizationStore(conn, newTestWriter(t, conn))

	if err := vs.Create(context.Background(), sampleVehicleAuth("1", "AAA1234")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	if err := vs.Revoke(context.Background(), "auth-1", "security-1", "stolen plates", at); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	got, _, err := vs.FindByPlate(context.Background(), "AAA1234")
	if err != nil {
		t.Fatalf("FindByPlate: %v", err)
	}
	if got.RevokedAt == nil {
		t.Error("expected revoked_at set")
	}
}

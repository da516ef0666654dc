package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/industrialgate/sitepass/internal/db"
	"github.com/industrialgate/sitepass/internal/sitepass/store"
)

// PersonnelAuthorizationStore persists the personnel half of the
// Authorization Archive. Entries are write-once; the request_id UNIQUE
// constraint makes Create idempotent so archival retries are safe.
type PersonnelAuthorizationStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewPersonnelAuthorizationStore(conn *sql.DB, writer *dbpkg.Worker) *PersonnelAuthorizationStore {
	return &PersonnelAuthorizationStore{conn: conn, writer: writer}
}

const personnelColumns = `
authorization_id, request_id, serial, serial_normalized,
full_name, national_id, mobile, department, job_title, grade,
date_of_birth, blood_group, nationality,
approved_by, approved_at_ms, expires_at_ms,
revoked_at_ms, revoked_by, revoke_reason`

func (s *PersonnelAuthorizationStore) Create(ctx context.Context, rec store.PersonnelAuthorizationRecord) error {
	var expiresMs any
	if rec.ExpiresAt != nil {
		expiresMs = rec.ExpiresAt.UTC().UnixMilli()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO personnel_authorizations(
  authorization_id, request_id, serial, serial_normalized,
  full_name, national_id, mobile, department, job_title, grade,
  date_of_birth, blood_group, nationality,
  approved_by, approved_at_ms, expires_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO NOTHING;
`,
			rec.AuthorizationID, rec.RequestID, rec.Serial, rec.SerialNormalized,
			rec.Applicant.FullName, rec.Applicant.NationalID, rec.Applicant.Mobile,
			rec.Applicant.Department, rec.Applicant.JobTitle, rec.Applicant.Grade,
			rec.Applicant.DateOfBirth, rec.Applicant.BloodGroup, rec.Applicant.Nationality,
			rec.ApprovedBy, rec.ApprovedAt.UTC().UnixMilli(), expiresMs,
		); err != nil {
			return fmt.Errorf("Create personnel authorization: %w", err)
		}
		return nil
	})
}

func (s *PersonnelAuthorizationStore) Get(ctx context.Context, authorizationID string) (store.PersonnelAuthorizationRecord, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+personnelColumns+` FROM personnel_authorizations WHERE authorization_id = ?;`,
		authorizationID)

	rec, err := scanPersonnel(row)
	if err == sql.ErrNoRows {
		return store.PersonnelAuthorizationRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.PersonnelAuthorizationRecord{}, fmt.Errorf("Get personnel authorization: %w", err)
	}
	return rec, nil
}

func (s *PersonnelAuthorizationStore) FindBySerial(ctx context.Context, serialNormalized string) (store.PersonnelAuthorizationRecord, bool, error) {
	row := s.conn.QueryRowContext(ctx, `
SELECT `+personnelColumns+`
FROM personnel_authorizations
WHERE serial_normalized = ?
ORDER BY approved_at_ms DESC
LIMIT 1;
`, serialNormalized)

	rec, err := scanPersonnel(row)
	if err == sql.ErrNoRows {
		return store.PersonnelAuthorizationRecord{}, false, nil
	}
	if err != nil {
		return store.PersonnelAuthorizationRecord{}, false, fmt.Errorf("FindBySerial: %w", err)
	}
	return rec, true, nil
}

func (s *PersonnelAuthorizationStore) FindByRequest(ctx context.Context, requestID string) (store.PersonnelAuthorizationRecord, bool, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+personnelColumns+` FROM personnel_authorizations WHERE request_id = ?;`,
		requestID)

	rec, err := scanPersonnel(row)
	if err == sql.ErrNoRows {
		return store.PersonnelAuthorizationRecord{}, false, nil
	}
	if err != nil {
		return store.PersonnelAuthorizationRecord{}, false, fmt.Errorf("FindByRequest: %w", err)
	}
	return rec, true, nil
}

func (s *PersonnelAuthorizationStore) Revoke(ctx context.Context, authorizationID, by, reason string, at time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return revoke(ctx, tx, "personnel_authorizations", authorizationID, by, reason, at)
	})
}

// VehicleAuthorizationStore persists the vehicle half of the Authorization
// Archive; the plate string is the serial identifier.
type VehicleAuthorizationStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewVehicleAuthorizationStore(conn *sql.DB, writer *dbpkg.Worker) *VehicleAuthorizationStore {
	return &VehicleAuthorizationStore{conn: conn, writer: writer}
}

const vehicleColumns = `
authorization_id, request_id, plate, plate_normalized,
full_name, national_id, mobile, department, job_title, grade,
date_of_birth, blood_group, nationality,
license_number, vehicle_model, vehicle_color,
approved_by, approved_at_ms,
revoked_at_ms, revoked_by, revoke_reason`

func (s *VehicleAuthorizationStore) Create(ctx context.Context, rec store.VehicleAuthorizationRecord) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO vehicle_authorizations(
  authorization_id, request_id, plate, plate_normalized,
  full_name, national_id, mobile, department, job_title, grade,
  date_of_birth, blood_group, nationality,
  license_number, vehicle_model, vehicle_color,
  approved_by, approved_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO NOTHING;
`,
			rec.AuthorizationID, rec.RequestID, rec.Plate, rec.PlateNormalized,
			rec.Applicant.FullName, rec.Applicant.NationalID, rec.Applicant.Mobile,
			rec.Applicant.Department, rec.Applicant.JobTitle, rec.Applicant.Grade,
			rec.Applicant.DateOfBirth, rec.Applicant.BloodGroup, rec.Applicant.Nationality,
			rec.Vehicle.LicenseNumber, rec.Vehicle.Model, rec.Vehicle.Color,
			rec.ApprovedBy, rec.ApprovedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("Create vehicle authorization: %w", err)
		}
		return nil
	})
}

func (s *VehicleAuthorizationStore) Get(ctx context.Context, authorizationID string) (store.VehicleAuthorizationRecord, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicle_authorizations WHERE authorization_id = ?;`,
		authorizationID)

	rec, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return store.VehicleAuthorizationRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.VehicleAuthorizationRecord{}, fmt.Errorf("Get vehicle authorization: %w", err)
	}
	return rec, nil
}

func (s *VehicleAuthorizationStore) FindByPlate(ctx context.Context, plateNormalized string) (store.VehicleAuthorizationRecord, bool, error) {
	row := s.conn.QueryRowContext(ctx, `
SELECT `+vehicleColumns+`
FROM vehicle_authorizations
WHERE plate_normalized = ?
ORDER BY approved_at_ms DESC
LIMIT 1;
`, plateNormalized)

	rec, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return store.VehicleAuthorizationRecord{}, false, nil
	}
	if err != nil {
		return store.VehicleAuthorizationRecord{}, false, fmt.Errorf("FindByPlate: %w", err)
	}
	return rec, true, nil
}

func (s *VehicleAuthorizationStore) FindByRequest(ctx context.Context, requestID string) (store.VehicleAuthorizationRecord, bool, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicle_authorizations WHERE request_id = ?;`,
		requestID)

	rec, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return store.VehicleAuthorizationRecord{}, false, nil
	}
	if err != nil {
		return store.VehicleAuthorizationRecord{}, false, fmt.Errorf("FindByRequest: %w", err)
	}
	return rec, true, nil
}

func (s *VehicleAuthorizationStore) Revoke(ctx context.Context, authorizationID, by, reason string, at time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return revoke(ctx, tx, "vehicle_authorizations", authorizationID, by, reason, at)
	})
}

// revoke stamps the revocation columns once. Both archive tables share the
// same column names for this.
func revoke(ctx context.Context, tx *sql.Tx, table, authorizationID, by, reason string, at time.Time) error {
	var revokedMs sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT revoked_at_ms FROM `+table+` WHERE authorization_id = ?;`,
		authorizationID).Scan(&revokedMs)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("Revoke lookup: %w", err)
	}
	if revokedMs.Valid {
		return store.ErrAlreadyRevoked
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE `+table+`
SET revoked_at_ms = ?, revoked_by = ?, revoke_reason = ?
WHERE authorization_id = ?;
`, at.UTC().UnixMilli(), by, reason, authorizationID); err != nil {
		return fmt.Errorf("Revoke update: %w", err)
	}
	return nil
}

func scanPersonnel(row rowScanner) (store.PersonnelAuthorizationRecord, error) {
	var (
		rec                    store.PersonnelAuthorizationRecord
		approvedMs             int64
		expiresMs, revokedMs   sql.NullInt64
		revokedBy, revokeWhy   sql.NullString
	)

	err := row.Scan(
		&rec.AuthorizationID, &rec.RequestID, &rec.Serial, &rec.SerialNormalized,
		&rec.Applicant.FullName, &rec.Applicant.NationalID, &rec.Applicant.Mobile,
		&rec.Applicant.Department, &rec.Applicant.JobTitle, &rec.Applicant.Grade,
		&rec.Applicant.DateOfBirth, &rec.Applicant.BloodGroup, &rec.Applicant.Nationality,
		&rec.ApprovedBy, &approvedMs, &expiresMs,
		&revokedMs, &revokedBy, &revokeWhy,
	)
	if err != nil {
		return store.PersonnelAuthorizationRecord{}, err
	}

	rec.ApprovedAt = time.UnixMilli(approvedMs).UTC()
	if expiresMs.Valid {
		t := time.UnixMilli(expiresMs.Int64).UTC()
		rec.ExpiresAt = &t
	}
	if revokedMs.Valid {
		t := time.UnixMilli(revokedMs.Int64).UTC()
		rec.RevokedAt = &t
	}
	rec.RevokedBy = revokedBy.String
	rec.RevokeReason = revokeWhy.String
	return rec, nil
}

func scanVehicle(row rowScanner) (store.VehicleAuthorizationRecord, error) {
	var (
		rec                  store.VehicleAuthorizationRecord
		approvedMs           int64
		revokedMs            sql.NullInt64
		revokedBy, revokeWhy sql.NullString
	)

	err := row.Scan(
		&rec.AuthorizationID, &rec.RequestID, &rec.Plate, &rec.PlateNormalized,
		&rec.Applicant.FullName, &rec.Applicant.NationalID, &rec.Applicant.Mobile,
		&rec.Applicant.Department, &rec.Applicant.JobTitle, &rec.Applicant.Grade,
		&rec.Applicant.DateOfBirth, &rec.Applicant.BloodGroup, &rec.Applicant.Nationality,
		&rec.Vehicle.LicenseNumber, &rec.Vehicle.Model, &rec.Vehicle.Color,
		&rec.ApprovedBy, &approvedMs,
		&revokedMs, &revokedBy, &revokeWhy,
	)
	if err != nil {
		return store.VehicleAuthorizationRecord{}, err
	}

	rec.Vehicle.Plate = rec.Plate
	rec.ApprovedAt = time.UnixMilli(approvedMs).UTC()
	if revokedMs.Valid {
		t := time.UnixMilli(revokedMs.Int64).UTC()
		rec.RevokedAt = &t
	}
	rec.RevokedBy = revokedBy.String
	rec.RevokeReason = revokeWhy.String
	return rec, nil
}

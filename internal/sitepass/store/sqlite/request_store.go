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

type RequestStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewRequestStore(conn *sql.DB, writer *dbpkg.Worker) *RequestStore {
	return &RequestStore{conn: conn, writer: writer}
}

const requestColumns = `
request_id, request_no, category, status,
full_name, national_id, mobile, department, job_title, grade,
date_of_birth, blood_group, nationality,
plate, license_number, vehicle_model, vehicle_color,
serial, rejection_reason, decided_by, prior_request_id,
created_at_ms, decided_at_ms`

func (s *RequestStore) Create(ctx context.Context, rec store.RequestRecord) (store.RequestRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO request_seq DEFAULT VALUES;`)
		if err != nil {
			return fmt.Errorf("Create next request_no: %w", err)
		}
		n, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Create request_no id: %w", err)
		}
		rec.RequestNo = fmt.Sprintf("MS-%04d", n)

		var plate, license, model, color any
		if rec.Vehicle != nil {
			plate, license, model, color = rec.Vehicle.Plate, rec.Vehicle.LicenseNumber, rec.Vehicle.Model, rec.Vehicle.Color
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO service_requests(`+requestColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.RequestID, rec.RequestNo, rec.Category, rec.Status,
			rec.Applicant.FullName, rec.Applicant.NationalID, rec.Applicant.Mobile,
			rec.Applicant.Department, rec.Applicant.JobTitle, rec.Applicant.Grade,
			rec.Applicant.DateOfBirth, rec.Applicant.BloodGroup, rec.Applicant.Nationality,
			plate, license, model, color,
			nullIfEmpty(rec.Serial), nullIfEmpty(rec.RejectionReason), nullIfEmpty(rec.DecidedBy),
			nullIfEmpty(rec.PriorRequestID),
			rec.CreatedAt.UTC().UnixMilli(), nil,
		); err != nil {
			return fmt.Errorf("Create insert request: %w", err)
		}

		for label, url := range rec.Attachments {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO request_attachments(request_id, label, url) VALUES (?, ?, ?);
`, rec.RequestID, label, url); err != nil {
				return fmt.Errorf("Create insert attachment %s: %w", label, err)
			}
		}
		return nil
	})
	if err != nil {
		return store.RequestRecord{}, err
	}
	return rec, nil
}

func (s *RequestStore) Get(ctx context.Context, requestID string) (store.RequestRecord, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE request_id = ?;`, requestID)

	rec, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return store.RequestRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.RequestRecord{}, fmt.Errorf("Get request: %w", err)
	}

	if rec.Attachments, err = s.loadAttachments(ctx, requestID); err != nil {
		return store.RequestRecord{}, err
	}
	return rec, nil
}

func (s *RequestStore) SetAttachment(ctx context.Context, requestID, label, url string, at time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM service_requests WHERE request_id = ?;`, requestID).Scan(&exists)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("SetAttachment lookup: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO request_attachments(request_id, label, url, uploaded_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(request_id, label) DO UPDATE SET
  url = excluded.url,
  uploaded_at_ms = excluded.uploaded_at_ms;
`, requestID, label, url, at.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("SetAttachment upsert: %w", err)
		}
		return nil
	})
}

func (s *RequestStore) Promote(ctx context.Context, requestID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		status, err := requestStatus(ctx, tx, requestID)
		if err != nil {
			return err
		}
		switch status {
		case types.StatusPendingReview:
			return nil
		case types.StatusUploading:
			// fall through
		default:
			return store.ErrInvalidTransition
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE service_requests SET status = ? WHERE request_id = ?;
`, types.StatusPendingReview, requestID); err != nil {
			return fmt.Errorf("Promote update: %w", err)
		}
		return nil
	})
}

func (s *RequestStore) MarkDecided(ctx context.Context, requestID string, d store.Decision) error {
	decidedAt := d.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		status, err := requestStatus(ctx, tx, requestID)
		if err != nil {
			return err
		}
		switch status {
		case types.StatusPendingReview:
			// fall through
		case types.StatusUploading:
			return store.ErrInvalidTransition
		default:
			return store.ErrAlreadyDecided
		}

		newStatus := types.StatusRejected
		if d.Outcome == types.OutcomeApprove {
			newStatus = types.StatusApproved
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE service_requests
SET status = ?,
    serial = ?,
    rejection_reason = ?,
    decided_by = ?,
    decided_at_ms = ?
WHERE request_id = ?;
`, newStatus, nullIfEmpty(d.Serial), nullIfEmpty(d.Reason), d.DecidedBy,
			decidedAt.UTC().UnixMilli(), requestID); err != nil {
			return fmt.Errorf("MarkDecided update: %w", err)
		}
		return nil
	})
}

func (s *RequestStore) ListByStatus(ctx context.Context, status types.RequestStatus) ([]store.RequestRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE status = ? ORDER BY created_at_ms;`, status)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus query: %w", err)
	}
	defer rows.Close()

	var out []store.RequestRecord
	for rows.Next() {
		rec, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByStatus scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByStatus rows: %w", err)
	}

	for i := range out {
		if out[i].Attachments, err = s.loadAttachments(ctx, out[i].RequestID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *RequestStore) Delete(ctx context.Context, requestID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM service_requests WHERE request_id = ?;`, requestID)
		if err != nil {
			return fmt.Errorf("Delete: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *RequestStore) loadAttachments(ctx context.Context, requestID string) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT label, url FROM request_attachments WHERE request_id = ?;`, requestID)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var label, url string
		if err := rows.Scan(&label, &url); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out[label] = url
	}
	return out, rows.Err()
}

func requestStatus(ctx context.Context, tx *sql.Tx, requestID string) (types.RequestStatus, error) {
	var status types.RequestStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM service_requests WHERE request_id = ?;`, requestID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("request status: %w", err)
	}
	return status, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (store.RequestRecord, error) {
	var (
		rec                         store.RequestRecord
		plate, license, model       sql.NullString
		color                       sql.NullString
		serial, reason, decidedBy   sql.NullString
		prior                       sql.NullString
		createdMs                   int64
		decidedMs                   sql.NullInt64
	)

	err := row.Scan(
		&rec.RequestID, &rec.RequestNo, &rec.Category, &rec.Status,
		&rec.Applicant.FullName, &rec.Applicant.NationalID, &rec.Applicant.Mobile,
		&rec.Applicant.Department, &rec.Applicant.JobTitle, &rec.Applicant.Grade,
		&rec.Applicant.DateOfBirth, &rec.Applicant.BloodGroup, &rec.Applicant.Nationality,
		&plate, &license, &model, &color,
		&serial, &reason, &decidedBy, &prior,
		&createdMs, &decidedMs,
	)
	if err != nil {
		return store.RequestRecord{}, err
	}

	if rec.Category == types.CategoryVehicle {
		rec.Vehicle = &types.VehicleInfo{
			Plate:         plate.String,
			LicenseNumber: license.String,
			Model:         model.String,
			Color:         color.String,
		}
	}
	rec.Serial = serial.String
	rec.RejectionReason = reason.String
	rec.DecidedBy = decidedBy.String
	rec.PriorRequestID = prior.String
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	if decidedMs.Valid {
		t := time.UnixMilli(decidedMs.Int64).UTC()
		rec.DecidedAt = &t
	}
	return rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

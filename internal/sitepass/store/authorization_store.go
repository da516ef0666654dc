package store

import (
	"context"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// PersonnelAuthorizationRecord is an immutable archive entry created once at
// approval time. SerialNormalized holds the canonical form the Verification
// Engine compares against.
type PersonnelAuthorizationRecord struct {
	AuthorizationID  string
	RequestID        string
	Serial           string
	SerialNormalized string
	Applicant        types.Applicant
	ApprovedBy       string
	ApprovedAt       time.Time
	ExpiresAt        *time.Time
	RevokedAt        *time.Time
	RevokedBy        string
	RevokeReason     string
}

// VehicleAuthorizationRecord mirrors PersonnelAuthorizationRecord for the
// vehicle collection; the plate string doubles as the serial identifier.
type VehicleAuthorizationRecord struct {
	AuthorizationID string
	RequestID       string
	Plate           string
	PlateNormalized string
	Applicant       types.Applicant
	Vehicle         types.VehicleInfo
	ApprovedBy      string
	ApprovedAt      time.Time
	RevokedAt       *time.Time
	RevokedBy       string
	RevokeReason    string
}

type PersonnelAuthorizationStore interface {
	// Create writes the archive entry. It is idempotent per RequestID so
	// the archival transaction can be retried safely.
	Create(ctx context.Context, rec PersonnelAuthorizationRecord) error

	Get(ctx context.Context, authorizationID string) (PersonnelAuthorizationRecord, error)

	// FindBySerial looks up by the normalized serial. A miss is (zero,
	// false, nil) — only store failures produce an error.
	FindBySerial(ctx context.Context, serialNormalized string) (PersonnelAuthorizationRecord, bool, error)

	// FindByRequest returns the entry archived for a request, if any. Used
	// by the archival transaction to detect a retry after a partial
	// failure.
	FindByRequest(ctx context.Context, requestID string) (PersonnelAuthorizationRecord, bool, error)

	// Revoke is the sole post-creation mutation; a second call returns
	// ErrAlreadyRevoked.
	Revoke(ctx context.Context, authorizationID, by, reason string, at time.Time) error
}

type VehicleAuthorizationStore interface {
	Create(ctx context.Context, rec VehicleAuthorizationRecord) error
	Get(ctx context.Context, authorizationID string) (VehicleAuthorizationRecord, error)
	FindByPlate(ctx context.Context, plateNormalized string) (VehicleAuthorizationRecord, bool, error)
	FindByRequest(ctx context.Context, requestID string) (VehicleAuthorizationRecord, bool, error)
	Revoke(ctx context.Context, authorizationID, by, reason string, at time.Time) error
}

package store

import (
	"context"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// RequestRecord is a ServiceRequest as held by the Request Ledger. The
// Attachments map is keyed by label; a required label maps to "" until its
// upload completes.
type RequestRecord struct {
	RequestID       string // storage key (UUID)
	RequestNo       string // human-readable, e.g. MS-0042, assigned by Create
	Category        types.Category
	Status          types.RequestStatus
	Applicant       types.Applicant
	Vehicle         *types.VehicleInfo
	Attachments     map[string]string
	Serial          string
	RejectionReason string
	DecidedBy       string
	PriorRequestID  string
	CreatedAt       time.Time
	DecidedAt       *time.Time
}

// Decision is the one-shot reviewer outcome applied by MarkDecided.
type Decision struct {
	Outcome   types.DecisionOutcome
	DecidedBy string
	Reason    string
	Serial    string
	DecidedAt time.Time
}

type RequestStore interface {
	// Create persists a new request and assigns its RequestNo.
	Create(ctx context.Context, rec RequestRecord) (RequestRecord, error)

	Get(ctx context.Context, requestID string) (RequestRecord, error)

	// SetAttachment records the durable URL for an attachment label.
	SetAttachment(ctx context.Context, requestID, label, url string, at time.Time) error

	// Promote moves Uploading -> PendingReview. Calling it on a request
	// already in PendingReview is a no-op; any other status returns
	// ErrInvalidTransition.
	Promote(ctx context.Context, requestID string) error

	// MarkDecided applies a decision to a PendingReview request. Any other
	// status returns ErrAlreadyDecided (or ErrInvalidTransition for
	// requests still Uploading).
	MarkDecided(ctx context.Context, requestID string, d Decision) error

	ListByStatus(ctx context.Context, status types.RequestStatus) ([]RequestRecord, error)

	// Delete removes a request outright (operator purge). Archive entries
	// derived from it are unaffected.
	Delete(ctx context.Context, requestID string) error
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/industrialgate/sitepass/internal/sitepass/attach"
	"github.com/industrialgate/sitepass/internal/sitepass/normalize"
	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// RequiredAttachments returns the attachment labels that must carry a URL
// before a request of the given category can leave Uploading.
func RequiredAttachments(category types.Category) []string {
	switch category {
	case types.CategoryPersonnel:
		return []string{"personalPhoto", "nationalIdCard"}
	case types.CategoryVehicle:
		return []string{"vehicleRegistration", "driverLicense"}
	default:
		return nil
	}
}

// RequestService owns the Request Ledger state machine and the archival
// transaction that feeds the Authorization Archive.
type RequestService struct {
	requests    store.RequestStore
	personnel   store.PersonnelAuthorizationStore
	vehicles    store.VehicleAuthorizationStore
	attachments attach.Store
	feed        *Feed
	logger      *log.Logger
	validate    *validator.Validate

	// uploadTimeout bounds each Attachment Store call so a hung upload is
	// treated as failed, not stuck.
	uploadTimeout time.Duration
}

func NewRequestService(
	requests store.RequestStore,
	personnel store.PersonnelAuthorizationStore,
	vehicles store.VehicleAuthorizationStore,
	attachments attach.Store,
	feed *Feed,
	logger *log.Logger,
) *RequestService {
	return &RequestService{
		requests:      requests,
		personnel:     personnel,
		vehicles:      vehicles,
		attachments:   attachments,
		feed:          feed,
		logger:        logger,
		validate:      validator.New(),
		uploadTimeout: 15 * time.Second,
	}
}

// SetUploadTimeout overrides the per-upload deadline. Zero is ignored.
func (s *RequestService) SetUploadTimeout(d time.Duration) {
	if d > 0 {
		s.uploadTimeout = d
	}
}

// Submit validates the submission and creates the request in Uploading (or
// directly in PendingReview if the category requires no attachments).
func (s *RequestService) Submit(ctx context.Context, req types.SubmitRequest) (store.RequestRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return store.RequestRecord{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.Category == types.CategoryVehicle && req.Vehicle == nil {
		return store.RequestRecord{}, fmt.Errorf("%w: vehicle fields are required for a vehicle request", ErrValidation)
	}
	if req.Category == types.CategoryPersonnel {
		// A stray vehicle block on a personnel request is a client bug.
		req.Vehicle = nil
	}

	if req.PriorRequestID != "" {
		prior, err := s.requests.Get(ctx, req.PriorRequestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.RequestRecord{}, fmt.Errorf("%w: prior %s", ErrRequestNotFound, req.PriorRequestID)
			}
			return store.RequestRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if prior.Status != types.StatusRejected {
			return store.RequestRecord{}, ErrPriorNotRejected
		}
	}

	required := RequiredAttachments(req.Category)
	attachments := make(map[string]string, len(required))
	for _, label := range required {
		attachments[label] = ""
	}

	status := types.StatusUploading
	if len(required) == 0 {
		status = types.StatusPendingReview
	}

	rec := store.RequestRecord{
		RequestID:      uuid.NewString(),
		Category:       req.Category,
		Status:         status,
		Applicant:      req.Applicant,
		Vehicle:        req.Vehicle,
		Attachments:    attachments,
		PriorRequestID: req.PriorRequestID,
		CreatedAt:      time.Now().UTC(),
	}

	created, err := s.requests.Create(ctx, rec)
	if err != nil {
		return store.RequestRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Printf("request %s (%s) submitted, status=%s", created.RequestNo, created.RequestID, created.Status)
	s.feed.Publish(Event{Topic: TopicRequests, Kind: "submitted", RequestID: created.RequestID})
	return created, nil
}

// Resubmit creates a fresh request linked to a previously rejected one. The
// original is untouched; the link exists for audit traceability.
func (s *RequestService) Resubmit(ctx context.Context, priorRequestID string, req types.SubmitRequest) (store.RequestRecord, error) {
	req.PriorRequestID = priorRequestID
	return s.Submit(ctx, req)
}

// AttachFile uploads a blob for one required label. An upload failure leaves
// the slot empty and the request in Uploading; the caller may retry the same
// label. Once every required label is filled the request is promoted to
// PendingReview.
func (s *RequestService) AttachFile(ctx context.Context, requestID, label string, blob []byte) (store.RequestRecord, error) {
	rec, err := s.getRequest(ctx, requestID)
	if err != nil {
		return store.RequestRecord{}, err
	}
	if rec.Status != types.StatusUploading {
		return rec, ErrNotUploading
	}
	if _, ok := rec.Attachments[label]; !ok {
		return rec, fmt.Errorf("%w: label %q is not required for a %s request", ErrValidation, label, rec.Category)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	url, err := s.attachments.Upload(uploadCtx, label, blob)
	if err != nil {
		s.logger.Printf("request %s: upload of %q failed: %v", rec.RequestNo, label, err)
		return rec, fmt.Errorf("%w: %s: %v", ErrAttachmentFailed, label, err)
	}

	if err := s.requests.SetAttachment(ctx, requestID, label, url, time.Now().UTC()); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err = s.getRequest(ctx, requestID)
	if err != nil {
		return store.RequestRecord{}, err
	}

	if attachmentsComplete(rec) {
		if err := s.requests.Promote(ctx, requestID); err != nil {
			return rec, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		rec.Status = types.StatusPendingReview
		s.logger.Printf("request %s: all attachments uploaded, now pending review", rec.RequestNo)
		s.feed.Publish(Event{Topic: TopicRequests, Kind: "pending_review", RequestID: rec.RequestID})
	}
	return rec, nil
}

// FinalizeSubmission moves Uploading -> PendingReview once every required
// label is filled. Idempotent for requests already in PendingReview.
func (s *RequestService) FinalizeSubmission(ctx context.Context, requestID string) (store.RequestRecord, error) {
	rec, err := s.getRequest(ctx, requestID)
	if err != nil {
		return store.RequestRecord{}, err
	}

	switch rec.Status {
	case types.StatusPendingReview:
		return rec, nil
	case types.StatusUploading:
		// fall through
	default:
		return rec, ErrAlreadyDecided
	}

	if !attachmentsComplete(rec) {
		return rec, ErrAttachmentsIncomplete
	}
	if err := s.requests.Promote(ctx, requestID); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	rec.Status = types.StatusPendingReview
	s.feed.Publish(Event{Topic: TopicRequests, Kind: "pending_review", RequestID: rec.RequestID})
	return rec, nil
}

// Decide applies a one-shot reviewer decision. Approval runs the archival
// transaction: the archive entry is written first, and only then is the
// request marked Approved — an approved-but-unarchived request must never
// exist, because gates verify against the archive alone.
func (s *RequestService) Decide(ctx context.Context, requestID string, d types.DecisionRequest) (store.RequestRecord, error) {
	if err := s.validate.Struct(d); err != nil {
		return store.RequestRecord{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	rec, err := s.getRequest(ctx, requestID)
	if err != nil {
		return store.RequestRecord{}, err
	}

	decidedAt := time.Now().UTC()

	switch d.Outcome {
	case types.OutcomeReject:
		if d.Reason == "" {
			return rec, fmt.Errorf("%w: a rejection requires a reason", ErrValidation)
		}
		err := s.requests.MarkDecided(ctx, requestID, store.Decision{
			Outcome:   types.OutcomeReject,
			DecidedBy: d.DecidedBy,
			Reason:    d.Reason,
			DecidedAt: decidedAt,
		})
		if err != nil {
			return rec, s.decisionError(err)
		}
		s.logger.Printf("request %s rejected by %s", rec.RequestNo, d.DecidedBy)
		s.feed.Publish(Event{Topic: TopicRequests, Kind: "rejected", RequestID: requestID})
		return s.getRequest(ctx, requestID)

	case types.OutcomeApprove:
		return s.approve(ctx, rec, d, decidedAt)

	default:
		return rec, fmt.Errorf("%w: unknown outcome %q", ErrValidation, d.Outcome)
	}
}

func (s *RequestService) approve(ctx context.Context, rec store.RequestRecord, d types.DecisionRequest, decidedAt time.Time) (store.RequestRecord, error) {
	// Approving anything not pending is rejected up front so no archive
	// entry is written for an already-decided request.
	if rec.Status != types.StatusPendingReview {
		return rec, ErrAlreadyDecided
	}

	var serial string

	switch rec.Category {
	case types.CategoryPersonnel:
		if d.Serial == "" {
			return rec, fmt.Errorf("%w: an approval requires a serial number", ErrValidation)
		}
		serial = d.Serial

		expiresAt, err := parseExpiry(d.ExpiresAt)
		if err != nil {
			return rec, fmt.Errorf("%w: %v", ErrValidation, err)
		}

		// A retry after a partial failure (archived, status flip failed)
		// must not diverge from the entry already on record. The archived
		// serial is authoritative; a different one is a reviewer error.
		existing, found, err := s.personnel.FindByRequest(ctx, rec.RequestID)
		if err != nil {
			return rec, fmt.Errorf("%w: %v", ErrArchivalFailed, err)
		}
		if found {
			if normalize.Identifier(serial) != existing.SerialNormalized {
				return rec, fmt.Errorf("%w: request %s is already archived under serial %q", ErrValidation, rec.RequestID, existing.Serial)
			}
			serial = existing.Serial
		} else {
			entry := store.PersonnelAuthorizationRecord{
				AuthorizationID:  uuid.NewString(),
				RequestID:        rec.RequestID,
				Serial:           serial,
				SerialNormalized: normalize.Identifier(serial),
				Applicant:        rec.Applicant,
				ApprovedBy:       d.DecidedBy,
				ApprovedAt:       decidedAt,
				ExpiresAt:        expiresAt,
			}
			if err := s.personnel.Create(ctx, entry); err != nil {
				s.logger.Printf("request %s: personnel archival failed: %v", rec.RequestNo, err)
				return rec, fmt.Errorf("%w: %v", ErrArchivalFailed, err)
			}
		}

	case types.CategoryVehicle:
		if rec.Vehicle == nil {
			return rec, fmt.Errorf("%w: vehicle request %s has no vehicle fields", ErrValidation, rec.RequestID)
		}
		// The plate on the request is the serial identifier; a reviewer
		// echo that disagrees with it is a data-entry error.
		serial = rec.Vehicle.Plate
		if d.Serial != "" && normalize.Plate(d.Serial) != normalize.Plate(serial) {
			return rec, fmt.Errorf("%w: serial %q does not match the requested plate %q", ErrValidation, d.Serial, serial)
		}

		existing, found, err := s.vehicles.FindByRequest(ctx, rec.RequestID)
		if err != nil {
			return rec, fmt.Errorf("%w: %v", ErrArchivalFailed, err)
		}
		if found {
			serial = existing.Plate
		} else {
			entry := store.VehicleAuthorizationRecord{
				AuthorizationID: uuid.NewString(),
				RequestID:       rec.RequestID,
				Plate:           serial,
				PlateNormalized: normalize.Plate(serial),
				Applicant:       rec.Applicant,
				Vehicle:         *rec.Vehicle,
				ApprovedBy:      d.DecidedBy,
				ApprovedAt:      decidedAt,
			}
			if err := s.vehicles.Create(ctx, entry); err != nil {
				s.logger.Printf("request %s: vehicle archival failed: %v", rec.RequestNo, err)
				return rec, fmt.Errorf("%w: %v", ErrArchivalFailed, err)
			}
		}

	default:
		return rec, fmt.Errorf("%w: unknown category %q", ErrValidation, rec.Category)
	}

	// Archive write succeeded; flip the request. If this fails the request
	// stays PendingReview and a retried Decide is safe — the archive Create
	// is idempotent per request ID.
	err := s.requests.MarkDecided(ctx, rec.RequestID, store.Decision{
		Outcome:   types.OutcomeApprove,
		DecidedBy: d.DecidedBy,
		Serial:    serial,
		DecidedAt: decidedAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyDecided) {
			return rec, ErrAlreadyDecided
		}
		s.logger.Printf("request %s: archived but status flip failed (retryable): %v", rec.RequestNo, err)
		return rec, fmt.Errorf("%w: %v", ErrArchivalFailed, err)
	}

	s.logger.Printf("request %s approved by %s, serial=%s", rec.RequestNo, d.DecidedBy, serial)
	s.feed.Publish(Event{Topic: TopicRequests, Kind: "approved", RequestID: rec.RequestID})
	return s.getRequest(ctx, rec.RequestID)
}

func (s *RequestService) Get(ctx context.Context, requestID string) (store.RequestRecord, error) {
	return s.getRequest(ctx, requestID)
}

func (s *RequestService) ListByStatus(ctx context.Context, status types.RequestStatus) ([]store.RequestRecord, error) {
	recs, err := s.requests.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return recs, nil
}

// Purge deletes a request outright (operator action). Archive entries derived
// from it are deliberately unaffected.
func (s *RequestService) Purge(ctx context.Context, requestID string) error {
	if err := s.requests.Delete(ctx, requestID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RequestService) getRequest(ctx context.Context, requestID string) (store.RequestRecord, error) {
	rec, err := s.requests.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.RequestRecord{}, ErrRequestNotFound
		}
		return store.RequestRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return rec, nil
}

func (s *RequestService) decisionError(err error) error {
	switch {
	case errors.Is(err, store.ErrAlreadyDecided), errors.Is(err, store.ErrInvalidTransition):
		// Decisions apply only to PendingReview requests (one-shot).
		return ErrAlreadyDecided
	case errors.Is(err, store.ErrNotFound):
		return ErrRequestNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func attachmentsComplete(rec store.RequestRecord) bool {
	for _, url := range rec.Attachments {
		if url == "" {
			return false
		}
	}
	return true
}

func parseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u := t.UTC()
		return &u, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		u := t.UTC()
		return &u, nil
	}
	return nil, fmt.Errorf("unparseable expiry date %q", s)
}

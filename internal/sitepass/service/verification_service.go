package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/normalize"
	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

// minIdentifierLen short-circuits empty or fragmentary input to a negative
// result before any archive query, so partial input can never behave like a
// wildcard.
const minIdentifierLen = 3

// VerifyResult is either a match against the Authorization Archive or a
// negative with a reason. Negatives are business-as-usual, not errors.
type VerifyResult struct {
	Matched    bool
	Reason     string // "no_match", "expired" or "revoked" when not matched
	Identifier string // normalized form that was looked up
	Personnel  *store.PersonnelAuthorizationRecord
	Vehicle    *store.VehicleAuthorizationRecord
}

// VerificationService matches presented identifiers against the Authorization
// Archive. It never touches the Request Ledger: a rejected or still-pending
// applicant is indistinguishable from one who never applied.
type VerificationService struct {
	personnel store.PersonnelAuthorizationStore
	vehicles  store.VehicleAuthorizationStore
	logger    *log.Logger
}

func NewVerificationService(
	personnel store.PersonnelAuthorizationStore,
	vehicles store.VehicleAuthorizationStore,
	logger *log.Logger,
) *VerificationService {
	return &VerificationService{personnel: personnel, vehicles: vehicles, logger: logger}
}

// Verify normalizes the raw identifier and looks it up in the archive
// collection for the declared category only. Store failures surface as
// ErrStoreUnavailable so gates can fail closed.
func (s *VerificationService) Verify(ctx context.Context, category types.Category, raw string) (VerifyResult, error) {
	var id string
	switch category {
	case types.CategoryPersonnel:
		id = normalize.Identifier(raw)
	case types.CategoryVehicle:
		id = normalize.Plate(raw)
	default:
		return VerifyResult{}, fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}

	if len([]rune(id)) < minIdentifierLen {
		return VerifyResult{}, ErrInvalidIdentifier
	}

	now := time.Now().UTC()

	switch category {
	case types.CategoryPersonnel:
		rec, found, err := s.personnel.FindBySerial(ctx, id)
		if err != nil {
			s.logger.Printf("verify personnel %q: store error: %v", id, err)
			return VerifyResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if !found {
			return VerifyResult{Reason: "no_match", Identifier: id}, nil
		}
		if rec.RevokedAt != nil {
			return VerifyResult{Reason: "revoked", Identifier: id}, nil
		}
		if rec.ExpiresAt != nil && rec.ExpiresAt.Before(now) {
			return VerifyResult{Reason: "expired", Identifier: id}, nil
		}
		return VerifyResult{Matched: true, Identifier: id, Personnel: &rec}, nil

	default: // vehicle
		rec, found, err := s.vehicles.FindByPlate(ctx, id)
		if err != nil {
			s.logger.Printf("verify vehicle %q: store error: %v", id, err)
			return VerifyResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if !found {
			return VerifyResult{Reason: "no_match", Identifier: id}, nil
		}
		if rec.RevokedAt != nil {
			return VerifyResult{Reason: "revoked", Identifier: id}, nil
		}
		return VerifyResult{Matched: true, Identifier: id, Vehicle: &rec}, nil
	}
}

// Revoke deactivates an archive entry. It is the only mutation the archive
// supports after creation and is itself one-shot.
func (s *VerificationService) Revoke(ctx context.Context, category types.Category, authorizationID, by, reason string) error {
	if by == "" || reason == "" {
		return fmt.Errorf("%w: revocation requires an actor and a reason", ErrValidation)
	}

	now := time.Now().UTC()

	var err error
	switch category {
	case types.CategoryPersonnel:
		err = s.personnel.Revoke(ctx, authorizationID, by, reason, now)
	case types.CategoryVehicle:
		err = s.vehicles.Revoke(ctx, authorizationID, by, reason, now)
	default:
		return fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}

	switch {
	case err == nil:
		s.logger.Printf("authorization %s (%s) revoked by %s", authorizationID, category, by)
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrAuthorizationNotFound
	case errors.Is(err, store.ErrAlreadyRevoked):
		return ErrAlreadyRevoked
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

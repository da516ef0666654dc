package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/normalize"
	"github.com/industrialgate/sitepass/internal/sitepass/service"
	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/store/memory"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

type verifyFixture struct {
	svc       *service.VerificationService
	personnel *memory.PersonnelAuthorizationStore
	vehicles  *memory.VehicleAuthorizationStore
}

func newVerifyFixture() *verifyFixture {
	fx := &verifyFixture{
		personnel: memory.NewPersonnelAuthorizationStore(),
		vehicles:  memory.NewVehicleAuthorizationStore(),
	}
	fx.svc = service.NewVerificationService(fx.personnel, fx.vehicles, log.New(io.Discard, "", 0))
	return fx
}

func seedPersonnel(t *testing.T, fx *verifyFixture, serial string, expiresAt *time.Time) store.PersonnelAuthorizationRecord {
	t.Helper()

	rec := store.PersonnelAuthorizationRecord{
		AuthorizationID:  "auth-" + serial,
		RequestID:        "req-" + serial,
		Serial:           serial,
		SerialNormalized: normalize.Identifier(serial),
		Applicant:        types.Applicant{FullName: "محمد عبدالله القحطاني", NationalID: "1093847261", Department: "Operations"},
		ApprovedBy:       "reviewer-7",
		ApprovedAt:       time.Now().UTC(),
		ExpiresAt:        expiresAt,
	}
	if err := fx.personnel.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed personnel: %v", err)
	}
	return rec
}

func seedVehicle(t *testing.T, fx *verifyFixture, plate string) store.VehicleAuthorizationRecord {
	t.Helper()

	rec := store.VehicleAuthorizationRecord{
		AuthorizationID: "auth-" + normalize.Plate(plate),
		RequestID:       "req-" + normalize.Plate(plate),
		Plate:           plate,
		PlateNormalized: normalize.Plate(plate),
		Applicant:       types.Applicant{FullName: "سعد الحربي", NationalID: "1076662190"},
		Vehicle:         types.VehicleInfo{Plate: plate, LicenseNumber: "DL-88321", Model: "Toyota Hilux", Color: "White"},
		ApprovedBy:      "reviewer-7",
		ApprovedAt:      time.Now().UTC(),
	}
	if err := fx.vehicles.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return rec
}

// ── Matching ─────────────────────────────────────────────────────────────────

func TestVerify_Personnel_MessyInputStillMatches(t *testing.T) {
	fx := newVerifyFixture()
	seedPersonnel(t, fx, "SN-5521", nil)

	res, err := fx.svc.Verify(context.Background(), types.CategoryPersonnel, "  sn-5521 ")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected a match, got reason=%q", res.Reason)
	}
	if res.Personnel == nil || res.Personnel.Serial != "SN-5521" {
		t.Errorf("expected the SN-5521 record, got %+v", res.Personnel)
	}
}

func TestVerify_Vehicle_ArabicAndLatinPlatesConverge(t *testing.T) {
	fx := newVerifyFixture()
	seedVehicle(t, fx, "أ ا ا-1234")

	// A gate guard typing the Latin transliteration finds the Arabic plate.
	res, err := fx.svc.Verify(context.Background(), types.CategoryVehicle, " AAA-1234")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected a match, got reason=%q", res.Reason)
	}
	if res.Identifier != "AAA1234" {
		t.Errorf("expected normalized identifier AAA1234, got %q", res.Identifier)
	}
	if res.Vehicle == nil || res.Vehicle.Plate != "أ ا ا-1234" {
		t.Errorf("expected the archived plate back, got %+v", res.Vehicle)
	}
}

func TestVerify_CategoryScoping(t *testing.T) {
	fx := newVerifyFixture()
	seedPersonnel(t, fx, "AAA1234", nil)

	// The same identifier looked up as a vehicle must not hit the
	// personnel collection.
	res, err := fx.svc.Verify(context.Background(), types.CategoryVehicle, "AAA1234")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Matched {
		t.Error("personnel serial must not match in the vehicle category")
	}
	if res.Reason != "no_match" {
		t.Errorf("expected reason=no_match, got %q", res.Reason)
	}
}

func TestVerify_NoMatch_IsNotAnError(t *testing.T) {
	fx := newVerifyFixture()

	res, err := fx.svc.Verify(context.Background(), types.CategoryPersonnel, "SN-0000")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Matched {
		t.Error("expected no match")
	}
	if res.Reason != "no_match" {
		t.Errorf("expected reason=no_match, got %q", res.Reason)
	}
}

// ── Expiry and revocation ────────────────────────────────────────────────────

func TestVerify_ExpiredPersonnel_Negative(t *testing.T) {
	fx := newVerifyFixture()
	past := time.Now().UTC().Add(-time.Hour)
	seedPersonnel(t, fx, "SN-5521", &past)

	res, err := fx.svc.Verify(context.Background(), types.CategoryPersonnel, "SN-5521")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Matched {
		t.Error("expired authorization must not match")
	}
	if res.Reason != "expired" {
		t.Errorf("expected reason=expired, got %q", res.Reason)
	}
}

func TestVerify_FutureExpiry_StillMatches(t *testing.T) {
	fx := newVerifyFixture()
	future := time.Now().UTC().Add(24 * time.Hour)
	seedPersonnel(t, fx, "SN-5521", &future)

	res, err := fx.svc.Verify(context.Background(), types.CategoryPersonnel, "SN-5521")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Matched {
		t.Errorf("expected a match before expiry, got reason=%q", res.Reason)
	}
}

func TestVerify_RevokedPersonnel_Negative(t *testing.T) {
	fx := newVerifyFixture()
	rec := seedPersonnel(t, fx, "SN-5521", nil)

	if err := fx.svc.Revoke(context.Background(), types.CategoryPersonnel, rec.AuthorizationID, "security-1", "badge reported lost"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	res, err := fx.svc.Verify(context.Background(), types.CategoryPersonnel, "SN-5521")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Matched {
		t.Error("revoked authorization must not match")
	}
	if res.Reason != "revoked" {
		t.Errorf("expected reason=revoked, got %q", res.Reason)
	}
}

// ── Input guards and failure modes ───────────────────────────────────────────

func TestVerify_ShortIdentifier_RejectedBeforeLookup(t *testing.T) {
	fx := newVerifyFixture()

	for _, raw := range []string{"", "  ", "ab", " a1 "} {
		_, err := fx.svc.Verify(context.Background(), types.CategoryPersonnel, raw)
		if !errors.Is(err, service.ErrInvalidIdentifier) {
			t.Errorf("Verify(%q): expected ErrInvalidIdentifier, got %v", raw, err)
		}
	}
}

func TestVerify_UnknownCategory_Rejected(t *testing.T) {
	fx := newVerifyFixture()

	_, err := fx.svc.Verify(context.Background(), types.Category("visitor"), "SN-5521")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// brokenPersonnelStore simulates an archive that cannot be read.
type brokenPersonnelStore struct {
	*memory.PersonnelAuthorizationStore
}

func (s *brokenPersonnelStore) FindBySerial(context.Context, string) (store.PersonnelAuthorizationRecord, bool, error) {
	return store.PersonnelAuthorizationRecord{}, false, errors.New("database is locked")
}

func TestVerify_StoreFailure_FailsClosed(t *testing.T) {
	broken := &brokenPersonnelStore{memory.NewPersonnelAuthorizationStore()}
	svc := service.NewVerificationService(broken, memory.NewVehicleAuthorizationStore(), log.New(io.Discard, "", 0))

	_, err := svc.Verify(context.Background(), types.CategoryPersonnel, "SN-5521")
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

// ── Revocation ───────────────────────────────────────────────────────────────

func TestRevoke_OneShot(t *testing.T) {
	fx := newVerifyFixture()
	rec := seedPersonnel(t, fx, "SN-5521", nil)

	if err := fx.svc.Revoke(context.Background(), types.CategoryPersonnel, rec.AuthorizationID, "security-1", "lost badge"); err != nil {
		t.Fatalf("first Revoke: %v", err)
	}

	err := fx.svc.Revoke(context.Background(), types.CategoryPersonnel, rec.AuthorizationID, "security-1", "again")
	if !errors.Is(err, service.ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}
}

func TestRevoke_UnknownAuthorization(t *testing.T) {
	fx := newVerifyFixture()

	err := fx.svc.Revoke(context.Background(), types.CategoryPersonnel, "auth-missing", "security-1", "cleanup")
	if !errors.Is(err, service.ErrAuthorizationNotFound) {
		t.Fatalf("expected ErrAuthorizationNotFound, got %v", err)
	}
}

func TestRevoke_RequiresActorAndReason(t *testing.T) {
	fx := newVerifyFixture()
	rec := seedPersonnel(t, fx, "SN-5521", nil)

	err := fx.svc.Revoke(context.Background(), types.CategoryPersonnel, rec.AuthorizationID, "", "")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

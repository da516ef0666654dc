package httpapi

import (
	"time"

	"github.com/industrialgate/sitepass/internal/sitepass/store"
	"github.com/industrialgate/sitepass/internal/sitepass/types"
)

func requestResponse(rec store.RequestRecord) types.RequestResponse {
	resp := types.RequestResponse{
		OK:              true,
		RequestID:       rec.RequestID,
		RequestNo:       rec.RequestNo,
		Category:        rec.Category,
		Status:          rec.Status,
		Applicant:       rec.Applicant,
		Vehicle:         rec.Vehicle,
		Attachments:     rec.Attachments,
		Serial:          rec.Serial,
		RejectionReason: rec.RejectionReason,
		PriorRequestID:  rec.PriorRequestID,
		CreatedAt:       rec.CreatedAt.Format(time.RFC3339Nano),
		ServerTime:      time.Now().UTC().Format(time.RFC3339Nano),
	}
	if rec.DecidedAt != nil {
		resp.DecidedAt = rec.DecidedAt.Format(time.RFC3339Nano)
	}
	return resp
}

func personnelView(rec store.PersonnelAuthorizationRecord) *types.AuthorizationView {
	v := &types.AuthorizationView{
		AuthorizationID: rec.AuthorizationID,
		Category:        types.CategoryPersonnel,
		Serial:          rec.Serial,
		FullName:        rec.Applicant.FullName,
		NationalID:      rec.Applicant.NationalID,
		Department:      rec.Applicant.Department,
		ApprovedBy:      rec.ApprovedBy,
		ApprovedAt:      rec.ApprovedAt.Format(time.RFC3339Nano),
		Revoked:         rec.RevokedAt != nil,
	}
	if rec.ExpiresAt != nil {
		v.ExpiresAt = rec.ExpiresAt.Format(time.RFC3339Nano)
	}
	return v
}

func vehicleView(rec store.VehicleAuthorizationRecord) *types.AuthorizationView {
	vehicle := rec.Vehicle
	return &types.AuthorizationView{
		AuthorizationID: rec.AuthorizationID,
		Category:        types.CategoryVehicle,
		Serial:          rec.Plate,
		FullName:        rec.Applicant.FullName,
		NationalID:      rec.Applicant.NationalID,
		Department:      rec.Applicant.Department,
		Vehicle:         &vehicle,
		ApprovedBy:      rec.ApprovedBy,
		ApprovedAt:      rec.ApprovedAt.Format(time.RFC3339Nano),
		Revoked:         rec.RevokedAt != nil,
	}
}

func movementResponse(rec store.MovementRecord) types.MovementResponse {
	return types.MovementResponse{
		OK:         true,
		GateID:     rec.GateID,
		Identifier: rec.Identifier,
		Kind:       rec.Kind,
		Presence:   rec.Presence,
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func onSiteEntries(recs []store.MovementRecord) []types.OnSiteEntry {
	out := make([]types.OnSiteEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, types.OnSiteEntry{
			Category:   rec.Category,
			Identifier: rec.Identifier,
			GateID:     rec.GateID,
			Since:      rec.RecordedAt.Format(time.RFC3339Nano),
		})
	}
	return out
}

func gateViews(recs []store.GateRecord) []types.GateView {
	out := make([]types.GateView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, types.GateView{GateID: rec.GateID, NameEN: rec.NameEN, NameAR: rec.NameAR})
	}
	return out
}

package types

type VerifyRequest struct {
	Category   Category `json:"category"`
	Identifier string   `json:"identifier"`
}

// VerifyResponse reports a field verification outcome. A miss is a valid
// negative result, not an error: OK stays true and Matched is false.
type VerifyResponse struct {
	OK         bool               `json:"ok"`
	Matched    bool               `json:"matched"`
	Reason     string             `json:"reason,omitempty"`
	Record     *AuthorizationView `json:"record,omitempty"`
	ServerTime string             `json:"server_time"`
}

// AuthorizationView is the gate-facing projection of an archive entry.
type AuthorizationView struct {
	AuthorizationID string       `json:"authorization_id"`
	Category        Category     `json:"category"`
	Serial          string       `json:"serial"`
	FullName        string       `json:"full_name"`
	NationalID      string       `json:"national_id"`
	Department      string       `json:"department"`
	Vehicle         *VehicleInfo `json:"vehicle,omitempty"`
	ApprovedBy      string       `json:"approved_by"`
	ApprovedAt      string       `json:"approved_at"`
	ExpiresAt       string       `json:"expires_at,omitempty"`
	Revoked         bool         `json:"revoked,omitempty"`
}

type RevokeRequest struct {
	RevokedBy string `json:"revoked_by" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

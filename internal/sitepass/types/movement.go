package types

type MovementKind string

const (
	MovementCheckIn  MovementKind = "check_in"
	MovementCheckOut MovementKind = "check_out"
)

type Presence string

const (
	PresenceOnSite   Presence = "on_site"
	PresenceDeparted Presence = "departed"
)

type MovementRequest struct {
	GateID     string       `json:"gate_id"`
	Category   Category     `json:"category"`
	Identifier string       `json:"identifier"`
	Kind       MovementKind `json:"kind"`
}

type MovementResponse struct {
	OK         bool         `json:"ok"`
	GateID     string       `json:"gate_id"`
	Identifier string       `json:"identifier"` // normalized form actually logged
	Kind       MovementKind `json:"kind"`
	Presence   Presence     `json:"presence"`
	ServerTime string       `json:"server_time"`
}

type OccupancyResponse struct {
	OK         bool   `json:"ok"`
	Count      int    `json:"count"`
	ServerTime string `json:"server_time"`
}

type OnSiteEntry struct {
	Category   Category `json:"category"`
	Identifier string   `json:"identifier"`
	GateID     string   `json:"gate_id"` // gate of the admitting check-in
	Since      string   `json:"since"`
}

type OnSiteResponse struct {
	OK         bool          `json:"ok"`
	Entries    []OnSiteEntry `json:"entries"`
	ServerTime string        `json:"server_time"`
}

type GateView struct {
	GateID string `json:"gate_id"`
	NameEN string `json:"name_en"`
	NameAR string `json:"name_ar"`
}

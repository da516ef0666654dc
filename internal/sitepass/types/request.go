package types

type Category string

const (
	CategoryPersonnel Category = "personnel"
	CategoryVehicle   Category = "vehicle"
)

type RequestStatus string

const (
	StatusUploading     RequestStatus = "uploading"
	StatusPendingReview RequestStatus = "pending_review"
	StatusApproved      RequestStatus = "approved"
	StatusRejected      RequestStatus = "rejected"
)

// Applicant carries the profile fields common to both request categories.
type Applicant struct {
	FullName    string `json:"full_name" validate:"required"`
	NationalID  string `json:"national_id" validate:"required"`
	Mobile      string `json:"mobile" validate:"required"`
	Department  string `json:"department" validate:"required"`
	JobTitle    string `json:"job_title" validate:"required"`
	Grade       string `json:"grade,omitempty"`
	DateOfBirth string `json:"date_of_birth" validate:"required"`
	BloodGroup  string `json:"blood_group,omitempty"`
	Nationality string `json:"nationality" validate:"required"`
}

// VehicleInfo is present only when the category is vehicle.
type VehicleInfo struct {
	Plate         string `json:"plate" validate:"required"`
	LicenseNumber string `json:"license_number" validate:"required"`
	Model         string `json:"model" validate:"required"`
	Color         string `json:"color" validate:"required"`
}

type SubmitRequest struct {
	Category       Category     `json:"category" validate:"required,oneof=personnel vehicle"`
	Applicant      Applicant    `json:"applicant"`
	Vehicle        *VehicleInfo `json:"vehicle,omitempty"`
	PriorRequestID string       `json:"prior_request_id,omitempty"`
}

type DecisionOutcome string

const (
	OutcomeApprove DecisionOutcome = "approve"
	OutcomeReject  DecisionOutcome = "reject"
)

type DecisionRequest struct {
	Outcome   DecisionOutcome `json:"outcome" validate:"required,oneof=approve reject"`
	DecidedBy string          `json:"decided_by" validate:"required"`
	Reason    string          `json:"reason,omitempty"`
	Serial    string          `json:"serial,omitempty"`
	ExpiresAt string          `json:"expires_at,omitempty"` // RFC3339, personnel only
}

type RequestResponse struct {
	OK              bool              `json:"ok"`
	RequestID       string            `json:"request_id"`
	RequestNo       string            `json:"request_no"`
	Category        Category          `json:"category"`
	Status          RequestStatus     `json:"status"`
	Applicant       Applicant         `json:"applicant"`
	Vehicle         *VehicleInfo      `json:"vehicle,omitempty"`
	Attachments     map[string]string `json:"attachments"`
	Serial          string            `json:"serial,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	PriorRequestID  string            `json:"prior_request_id,omitempty"`
	CreatedAt       string            `json:"created_at"`
	DecidedAt       string            `json:"decided_at,omitempty"`
	ServerTime      string            `json:"server_time"`
}

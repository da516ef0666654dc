package service

import "errors"

var (
	// ErrValidation: a required field is missing or malformed; nothing was
	// persisted.
	ErrValidation = errors.New("missing or invalid required field")

	// ErrAttachmentFailed: the Attachment Store upload failed; the slot
	// stays empty and the request remains Uploading. Retryable.
	ErrAttachmentFailed = errors.New("attachment upload failed")

	// ErrAttachmentsIncomplete: finalize was attempted before every
	// required label had a URL.
	ErrAttachmentsIncomplete = errors.New("required attachments incomplete")

	// ErrNotUploading: an upload was attempted on a request past the
	// Uploading stage.
	ErrNotUploading = errors.New("request is not accepting uploads")

	// ErrAlreadyDecided: decisions are one-shot; the request was not in
	// PendingReview. No state change.
	ErrAlreadyDecided = errors.New("request already decided")

	// ErrArchivalFailed: the approval could not be durably archived; the
	// request remains PendingReview and the reviewer must retry.
	ErrArchivalFailed = errors.New("authorization could not be archived")

	// ErrInvalidIdentifier: the presented identifier is empty or too short
	// to look up safely.
	ErrInvalidIdentifier = errors.New("identifier is empty or too short")

	// ErrStoreUnavailable: a genuine lookup failure, distinct from a
	// verification miss. Gate stations treat this as fail-closed.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotAuthorized: a movement was attempted for an identifier that
	// does not verify positively.
	ErrNotAuthorized = errors.New("identifier is not authorized")

	ErrRequestNotFound       = errors.New("request not found")
	ErrAuthorizationNotFound = errors.New("authorization not found")
	ErrAlreadyRevoked        = errors.New("authorization already revoked")
	ErrPriorNotRejected      = errors.New("prior request is not rejected")
	ErrUnknownGate           = errors.New("unknown gate")
	ErrAlreadyOnSite         = errors.New("identifier is already on site")
	ErrNotOnSite             = errors.New("identifier is not on site")
)

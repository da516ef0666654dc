package store

import "errors"

// Sentinel errors shared by all store implementations. Services translate
// these into their own taxonomy before they reach a station.
var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyDecided    = errors.New("request already decided")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyRevoked    = errors.New("authorization already revoked")

	// ErrPresenceConflict rejects a movement that repeats the identifier's
	// current presence: a check-in while on site or a check-out while not.
	ErrPresenceConflict = errors.New("movement conflicts with current presence")
)

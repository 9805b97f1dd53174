package entity

import "time"

// Attempt is one append-only audit row in the passcode trail.
//
// IdentifierHash is the HMAC-SHA256 pseudonym of the identifier; the raw
// identifier is never persisted.
type Attempt struct {
	ID             int64
	IdentifierHash string
	Event          AttemptEvent
	OccurredAt     time.Time
}

// AttemptFilter narrows attempt listings and exports.
type AttemptFilter struct {
	IdentifierHash string
	Event          AttemptEvent
	DateFrom       time.Time
	DateTo         time.Time
	Size           int32
	Page           int32
}

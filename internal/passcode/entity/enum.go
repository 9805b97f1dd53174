package entity

// AttemptEvent classifies an audit row in the passcode attempt trail.
type AttemptEvent int16

const (
	// AttemptEventUnknown is mean event is not known / not set.
	AttemptEventUnknown AttemptEvent = 0

	// AttemptEventIssued mean a passcode was generated and cached.
	AttemptEventIssued AttemptEvent = 1

	// AttemptEventVerified mean a candidate code matched and was consumed.
	AttemptEventVerified AttemptEvent = 2

	// AttemptEventDenied mean a candidate code was rejected (missing, expired, or mismatched).
	AttemptEventDenied AttemptEvent = 3

	// AttemptEventRevoked mean an operator removed a live passcode.
	AttemptEventRevoked AttemptEvent = 4
)

func (e AttemptEvent) String() string {
	switch e {
	case AttemptEventIssued:
		return "issued"
	case AttemptEventVerified:
		return "verified"
	case AttemptEventDenied:
		return "denied"
	case AttemptEventRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// AttemptEventFromString parses an event name; unrecognized names map to unknown.
func AttemptEventFromString(s string) AttemptEvent {
	switch s {
	case "issued":
		return AttemptEventIssued
	case "verified":
		return AttemptEventVerified
	case "denied":
		return AttemptEventDenied
	case "revoked":
		return AttemptEventRevoked
	default:
		return AttemptEventUnknown
	}
}

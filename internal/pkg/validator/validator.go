package validator

// Validator validates request and domain structs using struct tags.
type Validator interface {
	// Validate returns nil when data passes validation, or an error that may
	// carry per-field messages.
	Validate(data any) error
}

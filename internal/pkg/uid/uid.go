// Package uid provides ID generators behind small interfaces so callers can
// swap implementations (and fake them in tests).
package uid

// NumberID generates int64 identifiers, typically for database rows.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers, typically for correlation or tokens.
type StringID interface {
	Generate() string
}

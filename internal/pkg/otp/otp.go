package otp

import (
	"encoding/base32"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// DefaultDigits is the passcode length used when none is configured.
const DefaultDigits uint = 4

// OTP defines the contract for passcode derivation.
type OTP interface {
	// Generate derives the passcode bound to an identifier.
	Generate(identifier string) (string, error)
	// Validate checks whether a code matches the derivation for an identifier.
	Validate(identifier, code string) bool
}

// HOTP implements OTP using the HMAC-based One-Time Password algorithm
// evaluated at a fixed counter.
//
// The shared secret is derived from the identifier itself (plus an optional
// pepper), so the code for a given identifier is deterministic: secrecy comes
// from the cache TTL and single-use consumption, not from the derivation.
type HOTP struct {
	digits  otp.Digits
	counter uint64
	pepper  string
}

// NewHOTP constructs an HOTP deriver.
//
// If digits is 0 it falls back to DefaultDigits. An empty pepper reproduces
// the identifier-only derivation; a non-empty pepper makes codes unguessable
// without knowledge of the deployment secret.
func NewHOTP(digits uint, counter uint64, pepper string) *HOTP {
	if digits == 0 {
		digits = DefaultDigits
	}

	return &HOTP{
		digits:  otp.Digits(digits),
		counter: counter,
		pepper:  pepper,
	}
}

// Generate derives the passcode bound to an identifier.
func (o *HOTP) Generate(identifier string) (string, error) {
	return hotp.GenerateCodeCustom(o.secret(identifier), o.counter, hotp.ValidateOpts{
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// Validate checks whether a code matches the derivation for an identifier.
func (o *HOTP) Validate(identifier, code string) bool {
	rv, err := hotp.ValidateCustom(code, o.counter, o.secret(identifier), hotp.ValidateOpts{
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	})

	return rv && err == nil
}

func (o *HOTP) secret(identifier string) string {
	return base32.StdEncoding.EncodeToString([]byte(identifier + o.pepper))
}

// Package otp derives short numeric one-time passcodes.
//
// Codes are derived with HOTP at a fixed counter from seed material built out
// of the identifier, which makes derivation total and deterministic over any
// identifier string. Lifetime and single-use semantics are enforced by the
// cache layer, not here.
package otp

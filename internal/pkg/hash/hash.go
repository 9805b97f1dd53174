// Package hash defines a minimal hashing contract.
//
// The service uses keyed hashing to pseudonymize identifiers before they are
// written to durable storage; the raw identifier only ever lives in the
// transient cache.
package hash

// Hash computes and verifies hashes of plaintext strings.
type Hash interface {
	// Hash returns the hash of the input string.
	Hash(str string) ([]byte, error)
	// Verify checks whether the plaintext string matches the given hash.
	Verify(hashed, str string) bool
}

// Package sha256x wraps the standard library's SHA-256 implementation for
// password validation (spec.md §4.1).
//
// No example repo in the retrieval pack pulls in a third-party SHA-256
// implementation (mebo uses xxHash64 for its own non-cryptographic metric
// ID hashing, which is a different concern — see internal/hash), and the
// standard library's crypto/sha256 is constant-time-audited and the
// idiomatic choice for this exact primitive, so it is used directly rather
// than introducing an unneeded dependency. This file exists so callers
// depend on a MED-local name instead of reaching into crypto/sha256
// throughout the codebase, and so the single required operation (hash of
// exactly 16 bytes) is documented at its one call site.
package sha256x

import "crypto/sha256"

// Sum256 returns the SHA-256 digest of data.
func Sum256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

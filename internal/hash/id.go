// Package hash provides the xxHash64 key used for O(1) channel-name
// lookups (session.Session.Channel), the same hash-based identification
// arloliu-mebo uses for its metric IDs.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

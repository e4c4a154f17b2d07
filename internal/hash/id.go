package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of an archive path name. The index uses it as the
// key of the name-lookup map; collisions are handled by the caller.
func ID(name string) uint64 {
	return xxhash.Sum64String(name)
}

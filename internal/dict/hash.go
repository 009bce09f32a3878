package dict

import "hash/fnv"

// HashString is the default string hash used throughout the keyspace,
// grounded on the same FNV-1a choice the teacher's Shard.OwnsKey makes
// for consistent-hash routing (internal/shard/shard.go in the original
// torua source).
func HashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

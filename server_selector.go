package memcache

import (
	"hash/crc32"

	jump "github.com/dgryski/go-jump"
	"github.com/zeebo/xxh3"
)

// HashFunc maps a key to the 64-bit hash used for routing.
type HashFunc func(key string) uint64

// BucketFunc picks a bucket in [0, buckets) for a key hash.
// buckets is the sum of the server weights. Results outside the range
// wrap around.
type BucketFunc func(hash uint64, buckets int) int

// DefaultHash hashes keys with xxh3.
func DefaultHash(key string) uint64 {
	return xxh3.HashString(key)
}

// CRC32Hash is the key hash of the python-memcached family:
// ((crc32(key) >> 16) & 0x7fff), or 1 when that is zero.
// Use it with ModuloBucket to share a key distribution with those clients.
func CRC32Hash(key string) uint64 {
	h := (crc32.ChecksumIEEE([]byte(key)) >> 16) & 0x7fff
	if h == 0 {
		return 1
	}
	return uint64(h)
}

// ModuloBucket picks hash % buckets.
func ModuloBucket(hash uint64, buckets int) int {
	if buckets <= 0 {
		return 0
	}
	return int(hash % uint64(buckets))
}

// JumpBucket uses Jump consistent hashing, which moves fewer keys when
// buckets are added at the end of the server list.
func JumpBucket(hash uint64, buckets int) int {
	if buckets <= 0 {
		return 0
	}
	return int(jump.Hash(hash, buckets))
}

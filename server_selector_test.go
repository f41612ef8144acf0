package memcache

import (
	"fmt"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zeebo/xxh3"
)

func TestDefaultHash(t *testing.T) {
	assert.Equal(t, xxh3.HashString("foo"), DefaultHash("foo"))
	assert.NotEqual(t, DefaultHash("foo"), DefaultHash("bar"))
}

func TestCRC32Hash(t *testing.T) {
	for _, key := range []string{"foo", "bar", "test-int", ""} {
		expected := uint64((crc32.ChecksumIEEE([]byte(key)) >> 16) & 0x7fff)
		if expected == 0 {
			expected = 1
		}
		assert.Equal(t, expected, CRC32Hash(key), "key %q", key)
		assert.Less(t, CRC32Hash(key), uint64(0x8000))
	}
}

func TestModuloBucket(t *testing.T) {
	assert.Equal(t, 0, ModuloBucket(9, 3))
	assert.Equal(t, 2, ModuloBucket(11, 3))
	assert.Equal(t, 0, ModuloBucket(11, 1))
	assert.Equal(t, 0, ModuloBucket(11, 0))
}

func TestJumpBucket(t *testing.T) {
	assert.Equal(t, 0, JumpBucket(42, 1))
	assert.Equal(t, 0, JumpBucket(42, 0))

	// growing the bucket count only moves keys to the new bucket
	moved := 0
	for i := range 1000 {
		h := DefaultHash(fmt.Sprintf("key-%d", i))
		before := JumpBucket(h, 4)
		after := JumpBucket(h, 5)
		assert.Less(t, before, 4)
		if before != after {
			assert.Equal(t, 4, after)
			moved++
		}
	}
	assert.Greater(t, moved, 100)
	assert.Less(t, moved, 300)
}

// staticBucket always selects the same bucket.
func staticBucket(index int) BucketFunc {
	return func(hash uint64, buckets int) int {
		return index % buckets
	}
}

// Package bucketer assigns identifiers to traffic slots using seeded MurmurHash3.
//
// The hash is the x86_32 variant over the UTF-8 bytes of the identifier,
// reinterpreted as a signed 32-bit integer. The assignment must stay
// bit-exact with every other SDK sharing the same workspace.
package bucketer

import (
	"github.com/spaolacci/murmur3"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// Hash returns the signed MurmurHash3 x86_32 of data with the given seed.
func Hash(data string, seed int32) int32 {
	// Two's-complement reinterpretation: values with the sign bit set become
	// -((u ^ 0xFFFFFFFF) + 1).
	return int32(murmur3.Sum32WithSeed([]byte(data), uint32(seed)))
}

// SlotNumber maps identifier into [0, slotSize).
// The absolute value is taken in 64 bits so math.MinInt32 does not overflow.
func SlotNumber(identifier string, seed int32, slotSize int) int {
	h := int64(Hash(identifier, seed))
	if h < 0 {
		h = -h
	}
	return int(h % int64(slotSize))
}

// Bucketing returns the slot of bucket that identifier falls into, or nil
// when the slot number is not covered by any slot.
//
// Thread-Safety: pure function over an immutable bucket.
func Bucketing(bucket *model.Bucket, identifier string) *model.Slot {
	if bucket == nil || bucket.SlotSize <= 0 {
		return nil
	}
	return bucket.SlotFor(SlotNumber(identifier, bucket.Seed, bucket.SlotSize))
}

package bucketer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

// Published MurmurHash3 x86_32 vectors (unsigned form).
var murmurVectors = []struct {
	data string
	seed uint32
	want uint32
}{
	{"", 0x00000000, 0x00000000},
	{"", 0x00000001, 0x514E28B7},
	{"", 0xFFFFFFFF, 0x81F16F39},
	{"\x00\x00\x00\x00", 0x00000000, 0x2362F9DE},
	{"\xff\xff\xff\xff", 0x00000000, 0x76293B50},
	{"!Ce\x87", 0x00000000, 0xF55B516B},
	{"!Ce\x87", 0x5082EDEE, 0x2362F9DE},
	{"!Ce", 0x00000000, 0x7E4A8634},
	{"!C", 0x00000000, 0xA0F7B07A},
	{"!", 0x00000000, 0x72661CF4},
	{"aaaa", 0x9747B28C, 0x5A97808A},
	{"aaa", 0x9747B28C, 0x283E0130},
	{"aa", 0x9747B28C, 0x5D211726},
	{"a", 0x9747B28C, 0x7FA09EA6},
	{"abcd", 0x9747B28C, 0xF0478627},
	{"abc", 0x9747B28C, 0xC84A62DD},
	{"ab", 0x9747B28C, 0x74875592},
	{"Hello, world!", 0x9747B28C, 0x24884CBA},
	{"The quick brown fox jumps over the lazy dog", 0x9747B28C, 0x2FA826CD},
}

// signed applies the documented reinterpretation rule independently of Go's conversion.
func signed(u uint32) int64 {
	if u&0x80000000 != 0 {
		return -(int64(u^0xFFFFFFFF) + 1)
	}
	return int64(u)
}

func TestHash_Vectors(t *testing.T) {
	t.Parallel()

	for _, tt := range murmurVectors {
		t.Run(fmt.Sprintf("%q/%08x", tt.data, tt.seed), func(t *testing.T) {
			t.Parallel()

			// Arrange
			seed := int32(tt.seed)

			// Act
			got := Hash(tt.data, seed)

			// Assert
			assert.Equal(t, signed(tt.want), int64(got))
		})
	}
}

func TestSlotNumber(t *testing.T) {
	t.Parallel()

	t.Run("Should be deterministic and within range", func(t *testing.T) {
		t.Parallel()

		for i := 0; i < 1000; i++ {
			id := fmt.Sprintf("user-%d", i)
			n := SlotNumber(id, 42, 10000)

			require.GreaterOrEqual(t, n, 0)
			require.Less(t, n, 10000)
			require.Equal(t, n, SlotNumber(id, 42, 10000))
		}
	})

	t.Run("Should match abs(hash) mod size", func(t *testing.T) {
		t.Parallel()

		for _, tt := range murmurVectors {
			h := signed(tt.want)
			if h < 0 {
				h = -h
			}
			assert.Equal(t, int(h%10000), SlotNumber(tt.data, int32(tt.seed), 10000))
		}
	})
}

func TestBucketing(t *testing.T) {
	t.Parallel()

	t.Run("Should map every user to the single full-range slot", func(t *testing.T) {
		t.Parallel()

		// Arrange
		bucket := &model.Bucket{
			ID:       1,
			Seed:     1,
			SlotSize: 10000,
			Slots:    []model.Slot{{StartInclusive: 0, EndExclusive: 10000, VariationID: 1}},
		}

		for i := 0; i < 500; i++ {
			// Act
			slot := Bucketing(bucket, fmt.Sprintf("u%d", i))

			// Assert
			require.NotNil(t, slot)
			assert.Equal(t, int64(1), slot.VariationID)
		}
	})

	t.Run("Should return nil when the slot number is uncovered", func(t *testing.T) {
		t.Parallel()

		bucket := &model.Bucket{Seed: 7, SlotSize: 100}

		assert.Nil(t, Bucketing(bucket, "anyone"))
	})

	t.Run("Should assign to exactly one of several disjoint slots", func(t *testing.T) {
		t.Parallel()

		// Arrange
		bucket := &model.Bucket{
			Seed:     99,
			SlotSize: 100,
			Slots: []model.Slot{
				{StartInclusive: 0, EndExclusive: 50, VariationID: 1},
				{StartInclusive: 50, EndExclusive: 100, VariationID: 2},
			},
		}
		counts := map[int64]int{}

		// Act
		for i := 0; i < 2000; i++ {
			id := fmt.Sprintf("user-%d", i)
			slot := Bucketing(bucket, id)
			require.NotNil(t, slot)

			n := SlotNumber(id, bucket.Seed, bucket.SlotSize)
			owners := 0
			for _, s := range bucket.Slots {
				if s.Contains(n) {
					owners++
				}
			}
			require.Equal(t, 1, owners)
			counts[slot.VariationID]++
		}

		// Assert: a rough 50/50 split
		assert.InDelta(t, 1000, counts[1], 150)
		assert.InDelta(t, 1000, counts[2], 150)
	})

	t.Run("Should tolerate a nil or empty bucket", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, Bucketing(nil, "u"))
		assert.Nil(t, Bucketing(&model.Bucket{SlotSize: 0}, "u"))
	})
}

// Package prng provides the seeded, reproducible pseudo-randomness used for
// attendee phrasing and outcome sampling. Nothing here touches math/rand: the
// same seed must produce the same conversation on every platform.
package prng

import (
	"math"
	"unicode/utf16"
)

const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
	lcgModulus    = 1 << 32
)

// Hash is a djb2-style multiplicative hash over the UTF-16 code units of seed.
// Arithmetic wraps at 32 bits and the result is the absolute value.
func Hash(seed string) uint32 {
	h := int32(5381)
	for _, c := range utf16.Encode([]rune(seed)) {
		h = (h * 33) ^ int32(c)
	}
	if h < 0 {
		// -MinInt32 overflows int32 but fits in uint32.
		return uint32(-int64(h))
	}
	return uint32(h)
}

// Random is a linear congruential step mapped to [0,1).
func Random(seed uint64) float64 {
	next := (lcgMultiplier*(seed%lcgModulus) + lcgIncrement) % lcgModulus
	return float64(next) / lcgModulus
}

// Index maps a draw in [0,1) onto [0,n).
func Index(r float64, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(math.Floor(r * float64(n)))
	if i >= n {
		i = n - 1
	}
	return i
}

// Pick deterministically selects one of variants for the given seed and context key.
// Identical arguments always yield the identical choice. ok is false when
// variants is empty.
func Pick[T any](seed, contextKey string, variants []T) (choice T, ok bool) {
	switch len(variants) {
	case 0:
		return choice, false
	case 1:
		return variants[0], true
	}
	r := Random(uint64(Hash(seed + ":" + contextKey)))
	return variants[Index(r, len(variants))], true
}

// Draw returns the offset-th independent draw derived from a base seed value.
func Draw(base uint32, offset int) float64 {
	return Random(uint64(base) + uint64(offset))
}

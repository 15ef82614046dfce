package crc32x

import (
	"hash/crc32"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculate_MatchesStdlib(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	require.Equal(t, crc32.ChecksumIEEE(data), Calculate(data))
	require.True(t, Validate(data, Calculate(data)))
	require.False(t, Validate(data, Calculate(data)+1))
}

// TestCombine_Law verifies spec.md §8 property 1: for any partitioning of a
// byte sequence S = A || B, combine(crc(A), crc(B), |B|) == crc(S).
func TestCombine_Law(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		total := rng.Intn(4096)
		s := make([]byte, total)
		_, _ = rng.Read(s)

		split := 0
		if total > 0 {
			split = rng.Intn(total + 1)
		}
		a, b := s[:split], s[split:]

		got := Combine(Calculate(a), Calculate(b), int64(len(b)))
		want := Calculate(s)
		require.Equal(t, want, got, "split=%d total=%d", split, total)
	}
}

func TestCombine_EmptyB(t *testing.T) {
	a := []byte("hello")
	require.Equal(t, Calculate(a), Combine(Calculate(a), Calculate(nil), 0))
}

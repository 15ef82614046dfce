package red

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTables(t *testing.T) {
	counts := []uint16{10, 20, 30}
	cum, minRange := BuildTables(counts)

	require.Equal(t, []uint32{0, 10, 30, 60}, cum)
	require.Equal(t, uint32((totalCounts+9)/10), minRange[0])
	require.Equal(t, uint32((totalCounts+29)/30), minRange[2])
}

func TestBuildTables_ZeroCountGetsMaxRange(t *testing.T) {
	_, minRange := BuildTables([]uint16{0, 5})
	require.Equal(t, uint32(totalCounts), minRange[0])
}

func TestRangeDecoder_LiteralSignExtension(t *testing.T) {
	// The first rangeBits/8 bytes prime the decoder's goal window; the
	// literal follows them.
	dec := NewRangeDecoder([]byte{0, 0, 0, 0, 0, 0, 0xFF, 0xFF})

	v, err := dec.Literal(2)
	require.NoError(t, err)
	require.Equal(t, int64(-1), v)
}

func TestRangeDecoder_LiteralPositiveValue(t *testing.T) {
	dec := NewRangeDecoder([]byte{0, 0, 0, 0, 0, 0, 0x01, 0x00})

	v, err := dec.Literal(2)
	require.NoError(t, err)
	require.Equal(t, int64(0x0100), v)
}

func TestRangeDecoder_RejectsOutOfRangeWidth(t *testing.T) {
	dec := NewRangeDecoder(nil)
	_, err := dec.Literal(9)
	require.Error(t, err)
}

func TestParseModel_RejectsTruncatedRegion(t *testing.T) {
	_, err := parseModel([]byte{0x00})
	require.Error(t, err)
}

func TestParseModel_ReadsInitialValuesAndSymbolMap(t *testing.T) {
	data := make([]byte, 0, 32)
	data = append(data, 0x00, 0x01) // flags, derivLevel=1
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, 2) // n_keysample_bytes
	data = append(data, lenBuf...)
	kBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(kBuf, 2) // K
	data = append(data, kBuf...)

	// initial_deriv_values[0] = 5.0f
	data = append(data, 0x00, 0x00, 0xA0, 0x40)
	// counts[2]
	data = append(data, 0x01, 0x00, 0x02, 0x00)
	// symbol_map[2]
	data = append(data, 0x10, 0x20)
	// keysample stream (2 bytes)
	data = append(data, 0xAA, 0xBB)

	m, err := parseModel(data)
	require.NoError(t, err)
	require.Equal(t, 1, m.derivLevel)
	require.InDelta(t, 5.0, m.initial[0], 0.0001)
	require.Equal(t, []uint16{1, 2}, m.counts)
	require.Equal(t, []byte{0x10, 0x20}, m.symbolMap)
	require.Equal(t, []byte{0xAA, 0xBB}, m.stream)
}

func TestRoundInt64(t *testing.T) {
	require.Equal(t, int64(3), roundInt64(2.6))
	require.Equal(t, int64(-3), roundInt64(-2.6))
}

// rangeEncoder is the mirror image of RangeDecoder's (low, range, goal)
// arithmetic, kept test-only: RED is a decode-only codec (MED sessions are
// read, never written, by this library), so there is no production
// encoder to round-trip against. This lets DecodeSymbol's iterative
// cumulative-count search be checked against a real entropy-coded stream
// instead of only unit-level field assertions.
type rangeEncoder struct {
	low, rng uint64
	out      []byte
}

func newRangeEncoder() *rangeEncoder {
	return &rangeEncoder{rng: rangeMax}
}

func (e *rangeEncoder) encodeSymbol(sym int, cumCount []uint32) {
	newLow := e.low + ((e.rng * uint64(cumCount[sym])) >> 16)
	newHigh := e.low + ((e.rng * uint64(cumCount[sym+1])) >> 16)
	e.low, e.rng = newLow, newHigh-newLow
	e.normalize()
}

func (e *rangeEncoder) normalize() {
	for {
		if (e.low^(e.low+e.rng))>>(rangeBits-8) == 0 {
			// top byte settled, emit it below
		} else if e.rng < rangeLow {
			e.rng = (-e.low) & (rangeLow - 1)
			if e.rng == 0 {
				e.rng = rangeLow
			}
		} else {
			return
		}

		e.out = append(e.out, byte(e.low>>(rangeBits-8)))
		e.low = (e.low << 8) & rangeMask
		e.rng = (e.rng << 8) & rangeMask
	}
}

// flush emits enough trailing bytes of low to let a decoder's goal window
// resolve the last symbols without further input.
func (e *rangeEncoder) flush() []byte {
	for i := 0; i < rangeBits/8; i++ {
		e.out = append(e.out, byte(e.low>>(rangeBits-8)))
		e.low = (e.low << 8) & rangeMask
	}
	return e.out
}

func TestRangeDecoder_DecodeSymbol_RoundTripsAgainstEncoder(t *testing.T) {
	counts := []uint16{16384, 16384, 16384, 16384} // sums to totalCounts
	cumCount, minRange := BuildTables(counts)

	symbols := []int{0, 1, 2, 3, 0, 2, 1, 3, 3, 0}

	enc := newRangeEncoder()
	for _, s := range symbols {
		enc.encodeSymbol(s, cumCount)
	}
	stream := enc.flush()

	dec := NewRangeDecoder(stream)
	for i, want := range symbols {
		got, err := dec.DecodeSymbol(cumCount, minRange)
		require.NoError(t, err, "symbol %d", i)
		require.Equal(t, want, got, "symbol %d", i)
	}
}

func TestRangeDecoder_DecodeSymbol_RejectsMismatchedTableLengths(t *testing.T) {
	dec := NewRangeDecoder(nil)
	_, err := dec.DecodeSymbol([]uint32{0, 10}, []uint32{1, 2})
	require.Error(t, err)
}

package mbe

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildModelRegion(derivLevel int, initial []float32, minimumValue int32, bitsPerSample int, packed []byte) []byte {
	data := []byte{0x00, byte(derivLevel)}

	for _, f := range initial {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		data = append(data, buf...)
	}

	minBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(minBuf, uint32(minimumValue))
	data = append(data, minBuf...)
	data = append(data, byte(bitsPerSample))
	data = append(data, packed...)

	return data
}

func TestDecode_RejectsTruncatedRegion(t *testing.T) {
	_, err := Decode([]byte{0x00}, 4)
	require.Error(t, err)
}

func TestDecode_RejectsInvalidBitsPerSample(t *testing.T) {
	region := buildModelRegion(0, nil, 0, 200, nil)
	_, err := Decode(region, 1)
	require.Error(t, err)
}

func TestDecode_UnpacksFixedWidthSamples(t *testing.T) {
	// Three 4-bit samples packed MSB-first: 0b0001, 0b0010, 0b0011 -> 0x12, 0x30
	packed := []byte{0x12, 0x30}
	region := buildModelRegion(0, nil, 100, 4, packed)

	out, err := Decode(region, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{101, 102, 103}, out)
}

func TestDecode_AppliesDerivativeIntegration(t *testing.T) {
	// derivLevel=1, initial value 10; one packed sample of value 5
	// (minimumValue=0, bitsPerSample=8) representing a first-difference
	// delta that must be integrated against the initial value.
	packed := []byte{0x05}
	region := buildModelRegion(1, []float32{10}, 0, 8, packed)

	out, err := Decode(region, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 15}, out)
}

func TestBitReader_ReadsAcrossByteBoundary(t *testing.T) {
	br := newBitReader([]byte{0xFF, 0x00})
	v, err := br.read(12)
	require.NoError(t, err)
	require.Equal(t, uint64(0xFF0), v)
}

func TestBitReader_ErrorsPastEnd(t *testing.T) {
	br := newBitReader([]byte{0xFF})
	_, err := br.read(16)
	require.Error(t, err)
}

func TestRoundInt64(t *testing.T) {
	require.Equal(t, int64(3), roundInt64(2.6))
	require.Equal(t, int64(-3), roundInt64(-2.6))
}

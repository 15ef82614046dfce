// Package mbe implements the MBE (Minimum Bit Encoding) CMP inner codec
// (spec.md §4.5.3): every sample is stored as a fixed-width unsigned
// bit field offset from a block-wide minimum value.
package mbe

import (
	"encoding/binary"
	"math"

	"github.com/MEDFormat/MEDC-sub000/errs"
)

// Decode reads an MBE model region and returns numberOfSamples decoded
// values, with the model region's own derivative integration (if any)
// already applied.
//
// Model region layout: flags(u8), derivative_level(u8),
// initial_deriv_values[derivative_level] (f32 each), minimum_value(i32),
// bits_per_sample(u8), followed by the bit-packed sample stream.
func Decode(modelRegion []byte, numberOfSamples uint32) ([]int64, error) {
	if len(modelRegion) < 2 {
		return nil, errs.Wrap("mbe.Decode", errs.ErrCorruptBlock)
	}

	derivLevel := int(modelRegion[1])
	off := 2

	initial := make([]int64, derivLevel)
	for i := 0; i < derivLevel; i++ {
		if off+4 > len(modelRegion) {
			return nil, errs.Wrap("mbe.Decode", errs.ErrCorruptBlock)
		}
		f := math.Float32frombits(binary.LittleEndian.Uint32(modelRegion[off : off+4]))
		initial[i] = roundInt64(float64(f))
		off += 4
	}

	if off+5 > len(modelRegion) {
		return nil, errs.Wrap("mbe.Decode", errs.ErrCorruptBlock)
	}

	minimumValue := int32(binary.LittleEndian.Uint32(modelRegion[off : off+4]))
	off += 4
	bitsPerSample := int(modelRegion[off])
	off++

	if bitsPerSample < 0 || bitsPerSample > 64 {
		return nil, errs.Wrap("mbe.Decode", errs.ErrUnsupportedEncoding)
	}

	nSamps := int(numberOfSamples) - derivLevel
	if nSamps < 0 {
		nSamps = 0
	}

	br := newBitReader(modelRegion[off:])
	samples := make([]int64, int(numberOfSamples))

	for i := 0; i < derivLevel && i < len(samples); i++ {
		samples[i] = initial[i]
	}

	for i := 0; i < nSamps; i++ {
		v, err := br.read(bitsPerSample)
		if err != nil {
			return nil, errs.Wrap("mbe.Decode", err)
		}
		samples[derivLevel+i] = int64(v) + int64(minimumValue)
	}

	// Integrate the derivative levels recorded in this model region,
	// left to right, same accumulator approach cmp.IntegrateDerivative
	// uses for the block-wide parameter-region case.
	for pass := 0; pass < derivLevel; pass++ {
		acc := samples[pass]
		for i := pass + 1; i < len(samples); i++ {
			acc += samples[i]
			samples[i] = acc
		}
	}

	return samples, nil
}

func roundInt64(f float64) int64 {
	if f >= 0 {
		return int64(f + 0.5)
	}

	return int64(f - 0.5)
}

// bitReader reads successive unsigned fields of arbitrary width
// (spec.md §4.5.3: "must handle fields spanning 64-bit words"),
// MSB-first within each byte.
type bitReader struct {
	data   []byte
	bitPos int
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) read(bits int) (uint64, error) {
	if bits == 0 {
		return 0, nil
	}

	var v uint64
	for i := 0; i < bits; i++ {
		byteIdx := r.bitPos / 8
		if byteIdx >= len(r.data) {
			return 0, errs.ErrCorruptBlock
		}

		bitIdx := 7 - (r.bitPos % 8)
		bit := (r.data[byteIdx] >> uint(bitIdx)) & 1

		v = (v << 1) | uint64(bit)
		r.bitPos++
	}

	return v, nil
}

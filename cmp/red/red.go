// Package red implements the RED (Range-Encoded Differences) CMP inner
// codec (spec.md §4.5.1): a byte-alphabet range coder with a literal
// "keysample" escape for values outside the modeled distribution.
package red

import (
	"encoding/binary"
	"math"

	"github.com/MEDFormat/MEDC-sub000/errs"
)

// totalCounts is the frequency-table normalization target: counts[]
// values are scaled so their sum is exactly totalCounts, matching the
// ">>16" scaling spec.md's high/low formula performs.
const totalCounts = 1 << 16

// Flags bits within the RED model region's flags byte.
const (
	flagNoZeroCounts         = 1 << 0
	flagPositiveDerivOnly    = 1 << 1
	overflowByteCountShift   = 2
	overflowByteCountMask    = 0x7
)

// Keysample escape symbols: the top alphabet value is reserved to
// introduce a literal sample, with a narrower alphabet (and narrower
// escape value) when the block is positive-derivatives-only.
const (
	keysampleFlag         = 0xFF
	posDerivKeysampleFlag = 0x7F
)

// Decode reads a RED model region and returns numberOfSamples decoded
// values, with the model region's own derivative integration (if any)
// already applied.
//
// Model region layout: flags(u8), derivative_level(u8),
// n_keysample_bytes(u32), n_statistics_bins(u16),
// initial_deriv_values[derivative_level] (f32 each), counts[K] (u16
// each), symbol_map[K] (u8 each), then the n_keysample_bytes compressed
// stream.
func Decode(modelRegion []byte, numberOfSamples uint32) ([]int64, error) {
	model, err := parseModel(modelRegion)
	if err != nil {
		return nil, err
	}

	cumCount, minRange := BuildTables(model.counts)

	dec := NewRangeDecoder(model.stream)

	escape := keysampleFlag
	if model.positiveDerivOnly {
		escape = posDerivKeysampleFlag
	}

	nSamps := int(numberOfSamples) - model.derivLevel
	if nSamps < 0 {
		nSamps = 0
	}

	samples := make([]int64, int(numberOfSamples))
	for i := 0; i < model.derivLevel && i < len(samples); i++ {
		samples[i] = roundInt64(model.initial[i])
	}

	for i := 0; i < nSamps; i++ {
		symIdx, err := dec.DecodeSymbol(cumCount, minRange)
		if err != nil {
			return nil, errs.Wrap("red.Decode", err)
		}

		sym := model.symbolMap[symIdx]

		var value int64
		if int(sym) == escape {
			lit, err := dec.Literal(model.overflowBytes)
			if err != nil {
				return nil, errs.Wrap("red.Decode", err)
			}
			value = lit
		} else {
			value = int64(sym)
			if value >= 0x80 && !model.positiveDerivOnly {
				value -= 0x100 // symbol_map entries represent signed byte deltas
			}
		}

		samples[model.derivLevel+i] = value
	}

	for pass := 0; pass < model.derivLevel; pass++ {
		acc := samples[pass]
		for i := pass + 1; i < len(samples); i++ {
			acc += samples[i]
			samples[i] = acc
		}
	}

	return samples, nil
}

type parsedModel struct {
	derivLevel        int
	overflowBytes     int
	positiveDerivOnly bool
	initial           []float64
	counts            []uint16
	symbolMap         []byte
	stream            []byte
}

func parseModel(data []byte) (parsedModel, error) {
	if len(data) < 8 {
		return parsedModel{}, errs.Wrap("red.parseModel", errs.ErrCorruptBlock)
	}

	flags := data[0]
	derivLevel := int(data[1])
	nKeysampleBytes := int(binary.LittleEndian.Uint32(data[2:6]))
	k := int(binary.LittleEndian.Uint16(data[6:8]))

	off := 8

	initial := make([]float64, derivLevel)
	for i := 0; i < derivLevel; i++ {
		if off+4 > len(data) {
			return parsedModel{}, errs.Wrap("red.parseModel", errs.ErrCorruptBlock)
		}
		initial[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4])))
		off += 4
	}

	counts := make([]uint16, k)
	for i := 0; i < k; i++ {
		if off+2 > len(data) {
			return parsedModel{}, errs.Wrap("red.parseModel", errs.ErrCorruptBlock)
		}
		counts[i] = binary.LittleEndian.Uint16(data[off : off+2])
		off += 2
	}

	if off+k > len(data) {
		return parsedModel{}, errs.Wrap("red.parseModel", errs.ErrCorruptBlock)
	}
	symbolMap := append([]byte(nil), data[off:off+k]...)
	off += k

	if off+nKeysampleBytes > len(data) {
		return parsedModel{}, errs.Wrap("red.parseModel", errs.ErrCorruptBlock)
	}
	stream := data[off : off+nKeysampleBytes]

	overflow := int((flags>>overflowByteCountShift)&overflowByteCountMask) + 2

	return parsedModel{
		derivLevel:        derivLevel,
		overflowBytes:     overflow,
		positiveDerivOnly: flags&flagPositiveDerivOnly != 0,
		initial:           initial,
		counts:            counts,
		symbolMap:         symbolMap,
		stream:            stream,
	}, nil
}

func roundInt64(f float64) int64 {
	if f >= 0 {
		return int64(f + 0.5)
	}

	return int64(f - 0.5)
}

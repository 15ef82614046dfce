// Package pred implements the PRED (Predicted Range-Encoded Differences)
// CMP inner codec (spec.md §4.5.2): RED generalized to three parallel
// frequency models — NIL, POS, and NEG — selected by the category of the
// previously decoded sample.
package pred

import (
	"encoding/binary"
	"math"

	"github.com/MEDFormat/MEDC-sub000/cmp/red"
	"github.com/MEDFormat/MEDC-sub000/errs"
)

// category classifies a decoded delta so the next sample's model can be
// chosen contextually.
type category int

const (
	categoryNil category = iota
	categoryPos
	categoryNeg
)

func categorize(v int64) category {
	switch {
	case v > 0:
		return categoryPos
	case v < 0:
		return categoryNeg
	default:
		return categoryNil
	}
}

const (
	keysampleFlag         = 0xFF
	posDerivKeysampleFlag = 0x7F
	flagPositiveDerivOnly = 1 << 1
	overflowShift         = 2
	overflowMask          = 0x7
)

// subModel is one of the three parallel (NIL/POS/NEG) frequency models.
type subModel struct {
	counts    []uint16
	symbolMap []byte
	stream    []byte
}

// Decode reads a PRED model region and returns numberOfSamples decoded
// values, with the model region's own derivative integration (if any)
// already applied.
//
// Model region layout: flags(u8), derivative_level(u8),
// initial_deriv_values[derivative_level] (f32 each), then for each of
// the three categories in order NIL, POS, NEG:
// n_keysample_bytes(u32), n_statistics_bins(u16), counts[K] (u16 each),
// symbol_map[K] (u8 each) — followed by the three categories'
// keysample streams, concatenated in the same order.
func Decode(modelRegion []byte, numberOfSamples uint32) ([]int64, error) {
	if len(modelRegion) < 2 {
		return nil, errs.Wrap("pred.Decode", errs.ErrCorruptBlock)
	}

	flags := modelRegion[0]
	derivLevel := int(modelRegion[1])
	off := 2

	initial := make([]float64, derivLevel)
	for i := 0; i < derivLevel; i++ {
		if off+4 > len(modelRegion) {
			return nil, errs.Wrap("pred.Decode", errs.ErrCorruptBlock)
		}
		initial[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(modelRegion[off : off+4])))
		off += 4
	}

	models := make([]subModel, 3)
	streamLens := make([]int, 3)
	for c := 0; c < 3; c++ {
		if off+6 > len(modelRegion) {
			return nil, errs.Wrap("pred.Decode", errs.ErrCorruptBlock)
		}
		streamLens[c] = int(binary.LittleEndian.Uint32(modelRegion[off : off+4]))
		off += 4
		k := int(binary.LittleEndian.Uint16(modelRegion[off : off+2]))
		off += 2

		counts := make([]uint16, k)
		for i := 0; i < k; i++ {
			if off+2 > len(modelRegion) {
				return nil, errs.Wrap("pred.Decode", errs.ErrCorruptBlock)
			}
			counts[i] = binary.LittleEndian.Uint16(modelRegion[off : off+2])
			off += 2
		}

		if off+k > len(modelRegion) {
			return nil, errs.Wrap("pred.Decode", errs.ErrCorruptBlock)
		}
		symbolMap := append([]byte(nil), modelRegion[off:off+k]...)
		off += k

		models[c] = subModel{counts: counts, symbolMap: symbolMap}
	}

	for c := 0; c < 3; c++ {
		if off+streamLens[c] > len(modelRegion) {
			return nil, errs.Wrap("pred.Decode", errs.ErrCorruptBlock)
		}
		models[c].stream = modelRegion[off : off+streamLens[c]]
		off += streamLens[c]
	}

	decoders := make([]*red.RangeDecoder, 3)
	cumCounts := make([][]uint32, 3)
	minRanges := make([][]uint32, 3)
	for c := 0; c < 3; c++ {
		decoders[c] = red.NewRangeDecoder(models[c].stream)
		cumCounts[c], minRanges[c] = red.BuildTables(models[c].counts)
	}

	positiveDerivOnly := flags&flagPositiveDerivOnly != 0
	escape := keysampleFlag
	if positiveDerivOnly {
		escape = posDerivKeysampleFlag
	}
	overflowBytes := int((flags>>overflowShift)&overflowMask) + 2

	nSamps := int(numberOfSamples) - derivLevel
	if nSamps < 0 {
		nSamps = 0
	}

	samples := make([]int64, int(numberOfSamples))
	for i := 0; i < derivLevel && i < len(samples); i++ {
		samples[i] = roundInt64(initial[i])
	}

	cat := categoryNil
	for i := 0; i < nSamps; i++ {
		dec := decoders[cat]

		symIdx, err := dec.DecodeSymbol(cumCounts[cat], minRanges[cat])
		if err != nil {
			return nil, errs.Wrap("pred.Decode", err)
		}

		sym := models[cat].symbolMap[symIdx]

		var value int64
		if int(sym) == escape {
			lit, err := dec.Literal(overflowBytes)
			if err != nil {
				return nil, errs.Wrap("pred.Decode", err)
			}
			value = lit
		} else {
			value = int64(sym)
			if value >= 0x80 && !positiveDerivOnly {
				value -= 0x100
			}
		}

		samples[derivLevel+i] = value
		cat = categorize(value)
	}

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

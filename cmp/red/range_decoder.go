package red

import "github.com/MEDFormat/MEDC-sub000/errs"

// rangeBits is the decoder's working precision; totalCounts must be
// small enough relative to 1<<rangeBits that normalization never stalls.
const rangeBits = 48

const (
	rangeMax  = (uint64(1) << rangeBits) - 1
	rangeLow  = uint64(1) << (rangeBits - 8)
	rangeMask = rangeMax
)

// RangeDecoder decodes a carryless range-coded byte stream against a
// cumulative-frequency table normalized to totalCounts (spec.md §4.5.1).
// It is exported so the PRED codec, which runs three of these models in
// parallel, can reuse it without duplicating the bit-level machinery.
//
// State is the (low, range, goal) triple spec.md §4.5.1 names directly:
// low/range bound the current coding interval, goal is the window drawn
// MSB-first from the compressed stream that DecodeSymbol narrows against.
type RangeDecoder struct {
	data []byte
	pos  int
	low  uint64
	rng  uint64
	goal uint64
}

// NewRangeDecoder primes the decoder by reading rangeBits/8 bytes of
// initial state from the front of data.
func NewRangeDecoder(data []byte) *RangeDecoder {
	d := &RangeDecoder{data: data, rng: rangeMax}
	for i := 0; i < rangeBits/8; i++ {
		d.goal = (d.goal << 8) | uint64(d.nextByte())
	}
	return d
}

func (d *RangeDecoder) nextByte() byte {
	if d.pos >= len(d.data) {
		return 0
	}
	b := d.data[d.pos]
	d.pos++
	return b
}

// normalize rescales (low, range, goal) whenever the high byte of low and
// of the interval's high bound (low+range) coincide — that byte is fixed
// for the rest of this symbol's decode and contributes no more
// information, so it is shifted out and replaced by a fresh byte drawn
// into goal (spec.md §4.5.1). The range-underflow fallback (range fails
// to converge without the top bytes coinciding) is the standard
// carryless-range-coder clamp: pull range down to the next rangeLow
// boundary below low so the coincidence check is guaranteed to fire on
// a following iteration instead of spinning forever.
func (d *RangeDecoder) normalize() {
	for {
		if (d.low^(d.low+d.rng))>>(rangeBits-8) == 0 {
			// top byte settled, fall through to shift it out
		} else if d.rng < rangeLow {
			d.rng = (-d.low) & (rangeLow - 1)
			if d.rng == 0 {
				d.rng = rangeLow
			}
		} else {
			return
		}

		d.low = (d.low << 8) & rangeMask
		d.rng = (d.rng << 8) & rangeMask
		d.goal = ((d.goal << 8) | uint64(d.nextByte())) & rangeMask
	}
}

// DecodeSymbol implements spec.md §4.5.1's iterative cumulative-count
// search: starting from j=0, while the working range is still large
// enough to resolve symbol j (range >= minimum_range[j]), compute that
// symbol's high boundary and compare it against goal. The first j whose
// boundary exceeds goal is the decoded symbol; low/range narrow to that
// symbol's slice of the interval and the state renormalizes for the next
// decode.
func (d *RangeDecoder) DecodeSymbol(cumCount []uint32, minRange []uint32) (int, error) {
	if len(cumCount) == 0 || len(minRange) != len(cumCount)-1 {
		return 0, errs.ErrCorruptBlock
	}

	for j := 0; j < len(minRange) && d.rng >= uint64(minRange[j]); j++ {
		high := d.low + ((d.rng * uint64(cumCount[j+1])) >> 16)
		if high > d.goal {
			d.low += (d.rng * uint64(cumCount[j])) >> 16
			d.rng = high - d.low
			d.normalize()
			return j, nil
		}
	}

	return 0, errs.ErrCorruptBlock
}

// Literal reads an n-byte two's-complement big-endian escape value
// directly from the underlying stream, bypassing the model (spec.md
// §4.5.1's "keysample" escape for out-of-distribution samples).
func (d *RangeDecoder) Literal(n int) (int64, error) {
	if n <= 0 || n > 8 {
		return 0, errs.ErrUnsupportedEncoding
	}

	var v uint64
	for i := 0; i < n; i++ {
		v = (v << 8) | uint64(d.nextByte())
	}

	shift := uint(64 - 8*n)
	return int64(v<<shift) >> shift, nil
}

// BuildTables computes cumulative_count[0..K] and minimum_range[0..K-1]
// from a model's raw frequency counts.
func BuildTables(counts []uint16) (cumCount []uint32, minRange []uint32) {
	cumCount = make([]uint32, len(counts)+1)
	minRange = make([]uint32, len(counts))

	for i, c := range counts {
		cumCount[i+1] = cumCount[i] + uint32(c)
		if c == 0 {
			minRange[i] = totalCounts
		} else {
			minRange[i] = (totalCounts + uint32(c) - 1) / uint32(c)
		}
	}

	return cumCount, minRange
}

// Package cmp implements the CMP compressed-block time-series codec
// (spec.md §4.5): the fixed block header, the variable region layout
// (records, parameters, protected, discretionary, model), and the
// inverse transforms applied after the chosen inner codec decodes a
// block's raw samples.
//
// The four inner codecs (RED, PRED, MBE, VDS) live in cmp/red, cmp/pred,
// cmp/mbe, cmp/vds; this package selects among them via block_flags'
// algorithm bits and owns everything that is common framing rather than
// codec-specific.
package cmp

import (
	"math"

	"github.com/MEDFormat/MEDC-sub000/aes128"
	"github.com/MEDFormat/MEDC-sub000/cmp/mbe"
	"github.com/MEDFormat/MEDC-sub000/cmp/pred"
	"github.com/MEDFormat/MEDC-sub000/cmp/red"
	"github.com/MEDFormat/MEDC-sub000/cmp/vds"
	"github.com/MEDFormat/MEDC-sub000/compress"
	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/endian"
	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
)

// FixedHeaderSize is the byte length of the block fixed header. The
// spec's field list (spec.md §3) does not pin down byte offsets the way
// it does for the Universal Header; this layout is an engineering
// decision (documented in DESIGN.md) that keeps block_CRC first so the
// split-CRC scheme can validate the header without decrypting anything
// past it.
const FixedHeaderSize = 68

// Flag bits within block_flags.
const (
	flagEncryptionL1 uint32 = 1 << 0
	flagEncryptionL2 uint32 = 1 << 1
	flagDiscontinuity uint32 = 1 << 2
	// algorithm occupies bits 3-5 (three bits, values 1-4 per
	// format.AlgorithmType).
	algorithmShift = 3
	algorithmMask  = 0x7
)

// Parameter flag bits within parameter_flags (spec.md §4.5: "derivative
// initial values, gradient, intercept, amplitude_scale, frequency_scale").
const (
	ParamDerivativeInitialValues uint32 = 1 << 0
	ParamGradient                uint32 = 1 << 1
	ParamIntercept                uint32 = 1 << 2
	ParamAmplitudeScale           uint32 = 1 << 3
	ParamFrequencyScale           uint32 = 1 << 4

	// ParamDiscretionaryCompressed marks the discretionary region as
	// holding a compress.CompressionType tag byte followed by a
	// codec-compressed payload, rather than an opaque producer-defined
	// blob (SPEC_FULL.md §4.8). Additive: a block with this bit clear
	// behaves exactly as spec.md describes the discretionary region.
	ParamDiscretionaryCompressed uint32 = 1 << 5
)

// FixedHeader is the CMP compressed block's fixed-size prefix.
type FixedHeader struct {
	BlockCRC                 uint32
	BlockStartUID            uint64
	BlockFlags               uint32
	StartTime                int64
	AcquisitionChannelNumber int32
	TotalBlockBytes          uint32
	NumberOfSamples          uint32
	NumberOfRecords          uint32
	RecordRegionBytes        uint32
	ParameterFlags           uint32
	ParameterRegionBytes     uint32
	ProtectedRegionBytes     uint32
	DiscretionaryRegionBytes uint32
	ModelRegionBytes         uint32
	TotalHeaderBytes         uint32
}

// EncryptionLevel reports the block's encryption level from block_flags.
// L1 and L2 are mutually exclusive (spec.md §3).
func (h FixedHeader) EncryptionLevel() format.EncryptionLevel {
	switch {
	case h.BlockFlags&flagEncryptionL1 != 0:
		return format.EncryptionLevel1
	case h.BlockFlags&flagEncryptionL2 != 0:
		return format.EncryptionLevel2
	default:
		return format.EncryptionNone
	}
}

// Discontinuity reports whether this block starts a new contiguon.
func (h FixedHeader) Discontinuity() bool {
	return h.BlockFlags&flagDiscontinuity != 0
}

// Algorithm reports the selected inner codec.
func (h FixedHeader) Algorithm() format.AlgorithmType {
	return format.AlgorithmType((h.BlockFlags >> algorithmShift) & algorithmMask)
}

func parseFixedHeader(data []byte) (FixedHeader, error) {
	if len(data) < FixedHeaderSize {
		return FixedHeader{}, errs.Wrap("cmp.parseFixedHeader", errs.ErrCorruptBlock)
	}

	e := endian.GetLittleEndianEngine()

	var h FixedHeader
	h.BlockCRC = e.Uint32(data[0:4])
	h.BlockStartUID = e.Uint64(data[4:12])
	h.BlockFlags = e.Uint32(data[12:16])
	h.StartTime = int64(e.Uint64(data[16:24]))
	h.AcquisitionChannelNumber = int32(e.Uint32(data[24:28]))
	h.TotalBlockBytes = e.Uint32(data[28:32])
	h.NumberOfSamples = e.Uint32(data[32:36])
	h.NumberOfRecords = e.Uint32(data[36:40])
	h.RecordRegionBytes = e.Uint32(data[40:44])
	h.ParameterFlags = e.Uint32(data[44:48])
	h.ParameterRegionBytes = e.Uint32(data[48:52])
	h.ProtectedRegionBytes = e.Uint32(data[52:56])
	h.DiscretionaryRegionBytes = e.Uint32(data[56:60])
	h.ModelRegionBytes = e.Uint32(data[60:64])
	h.TotalHeaderBytes = e.Uint32(data[64:68])

	return h, nil
}

// Parameters holds the optional per-block scalar parameters gated by
// parameter_flags (spec.md §3/§4.5).
type Parameters struct {
	DerivativeInitialValues []float64
	Gradient                float64
	Intercept               float64
	AmplitudeScale          float64
	FrequencyScale          float64
}

// Block is a fully-parsed, not-yet-decoded CMP compressed block: the
// fixed header plus the variable region split into its five named
// sub-regions (spec.md §4.5 "Parse variable region").
type Block struct {
	Header FixedHeader

	RecordsRegion       []byte
	Parameters          Parameters
	ProtectedRegion     []byte
	DiscretionaryRegion []byte
	ModelRegion         []byte
}

// Parse reads a block's fixed header and variable region from data,
// which must begin at the block's first byte and contain at least
// TotalBlockBytes bytes. It does not decrypt or decode samples.
func Parse(data []byte) (*Block, error) {
	h, err := parseFixedHeader(data)
	if err != nil {
		return nil, err
	}

	if uint32(len(data)) < h.TotalBlockBytes {
		return nil, errs.Wrap("cmp.Parse", errs.ErrCorruptBlock)
	}

	off := int(h.TotalHeaderBytes)
	if off < FixedHeaderSize {
		off = FixedHeaderSize
	}

	b := &Block{Header: h}

	b.RecordsRegion, off = slice(data, off, int(h.RecordRegionBytes))

	var paramBytes []byte
	paramBytes, off = slice(data, off, int(h.ParameterRegionBytes))
	b.Parameters = parseParameters(h.ParameterFlags, paramBytes)

	b.ProtectedRegion, off = slice(data, off, int(h.ProtectedRegionBytes))
	b.DiscretionaryRegion, off = slice(data, off, int(h.DiscretionaryRegionBytes))
	b.ModelRegion, _ = slice(data, off, int(h.ModelRegionBytes))

	return b, nil
}

// DiscretionaryPayload returns the block's discretionary-region payload,
// decompressing it first when ParamDiscretionaryCompressed is set
// (SPEC_FULL.md §4.8). Readers that don't call this still skip the region
// correctly via DiscretionaryRegionBytes; this is purely an opt-in
// decode. A block with the bit clear returns DiscretionaryRegion verbatim.
func (b *Block) DiscretionaryPayload() ([]byte, error) {
	if b.Header.ParameterFlags&ParamDiscretionaryCompressed == 0 {
		return b.DiscretionaryRegion, nil
	}
	if len(b.DiscretionaryRegion) < 1 {
		return nil, errs.Wrap("cmp.DiscretionaryPayload", errs.ErrCorruptBlock)
	}

	typ := format.CompressionType(b.DiscretionaryRegion[0])
	codec, err := compress.GetCodec(typ)
	if err != nil {
		return nil, errs.Wrap("cmp.DiscretionaryPayload", errs.ErrUnsupportedEncoding)
	}

	out, err := codec.Decompress(b.DiscretionaryRegion[1:])
	if err != nil {
		return nil, errs.Wrap("cmp.DiscretionaryPayload", errs.ErrCorruptBlock)
	}

	return out, nil
}

func slice(data []byte, off, n int) ([]byte, int) {
	if n <= 0 || off+n > len(data) {
		return nil, off
	}

	return data[off : off+n], off + n
}

// parseParameters decodes the parameter region's u32/f32 values in the
// fixed bit order parameter_flags defines (spec.md §4.5).
func parseParameters(flags uint32, data []byte) Parameters {
	var p Parameters
	e := endian.GetLittleEndianEngine()
	off := 0

	readF32 := func() float64 {
		if off+4 > len(data) {
			return 0
		}
		v := float64(math.Float32frombits(e.Uint32(data[off : off+4])))
		off += 4
		return v
	}

	if flags&ParamDerivativeInitialValues != 0 {
		// Number of initial values is implied by derivative_level, carried
		// in the model region; callers fill this in via
		// Parameters.DerivativeInitialValues after Decode determines the
		// level. Parse defers to the caller rather than guessing a count
		// here.
	}
	if flags&ParamGradient != 0 {
		p.Gradient = readF32()
	}
	if flags&ParamIntercept != 0 {
		p.Intercept = readF32()
	}
	if flags&ParamAmplitudeScale != 0 {
		p.AmplitudeScale = readF32()
	}
	if flags&ParamFrequencyScale != 0 {
		p.FrequencyScale = readF32()
	}

	return p
}

// Decrypt decrypts the block's encryptable region in place (spec.md
// §4.5 phase 1). Encryption starts at FixedHeaderSize; the encryptable
// span is capped at the smaller of TotalBlockBytes-FixedHeaderSize and
// the header-covering bytes, rounded down to a whole number of AES
// blocks, except for MBE blocks which encrypt the full remainder.
func Decrypt(data []byte, h FixedHeader, rk *aes128.RoundKeys) error {
	level := h.EncryptionLevel()
	if level == format.EncryptionNone {
		return nil
	}
	if rk == nil {
		return errs.Wrap("cmp.Decrypt", errs.ErrSectionEncrypted)
	}

	start := FixedHeaderSize
	span := int(h.TotalBlockBytes) - start
	if h.Algorithm() != format.AlgorithmMBE {
		headerCovering := int(h.TotalHeaderBytes) - start
		if headerCovering >= 0 && headerCovering < span {
			span = headerCovering
		}
	}
	span -= span % aes128.BlockSize

	if span <= 0 || start+span > len(data) {
		return nil
	}

	return aes128.Decrypt(rk, data[start:start+span])
}

// ValidateCRC recomputes the block's CRC over every byte after the
// block_CRC field through total_block_bytes (the split-CRC scheme:
// validation works even when the rest of the block is still encrypted)
// and reports whether it matches h.BlockCRC under mode. A structural
// error (data shorter than the block claims) always fails hard; a CRC
// mismatch is reported via the bool return rather than an error so
// callers can warn-and-continue per spec.md §4.1/§7 instead of failing
// the whole block.
func ValidateCRC(data []byte, h FixedHeader, mode crc32x.Mode) (bool, error) {
	if uint32(len(data)) < h.TotalBlockBytes {
		return false, errs.Wrap("cmp.ValidateCRC", errs.ErrCorruptBlock)
	}

	if mode == crc32x.ModeOff {
		return true, nil
	}

	got := crc32x.Calculate(data[4:h.TotalBlockBytes])
	return mode.Check(got, h.BlockCRC), nil
}

// Decode dispatches to the block's selected inner codec and applies the
// post-decode inverse transforms (spec.md §4.5: unscale amplitude,
// retrend, derivative integration; frequency unscaling has no step here).
// For VDS the transforms apply to the interpolated trace.
func Decode(b *Block) ([]int64, error) {
	switch b.Header.Algorithm() {
	case format.AlgorithmRED:
		samples, err := red.Decode(b.ModelRegion, b.Header.NumberOfSamples)
		if err != nil {
			return nil, errs.Wrap("cmp.Decode", err)
		}
		return finish(b, samples), nil

	case format.AlgorithmPRED:
		samples, err := pred.Decode(b.ModelRegion, b.Header.NumberOfSamples)
		if err != nil {
			return nil, errs.Wrap("cmp.Decode", err)
		}
		return finish(b, samples), nil

	case format.AlgorithmMBE:
		samples, err := mbe.Decode(b.ModelRegion, b.Header.NumberOfSamples)
		if err != nil {
			return nil, errs.Wrap("cmp.Decode", err)
		}
		return finish(b, samples), nil

	case format.AlgorithmVDS:
		samples, err := vds.Decode(b.ModelRegion, b.Header.NumberOfSamples, decodeSubBlock)
		if err != nil {
			return nil, errs.Wrap("cmp.Decode", err)
		}
		// VDS interpolates its control vertices; amplitude unscaling,
		// retrend and derivative integration apply on top of it.
		return finish(b, samples), nil

	default:
		return nil, errs.Wrap("cmp.Decode", errs.ErrUnsupportedEncoding)
	}
}

// decodeSubBlock lets cmp/vds recurse into RED/PRED/MBE without an
// import cycle: vds.Decode calls back into this package rather than
// importing red/pred/mbe itself.
func decodeSubBlock(alg format.AlgorithmType, modelRegion []byte, numberOfSamples uint32) ([]int64, error) {
	switch alg {
	case format.AlgorithmRED:
		return red.Decode(modelRegion, numberOfSamples)
	case format.AlgorithmPRED:
		return pred.Decode(modelRegion, numberOfSamples)
	case format.AlgorithmMBE:
		return mbe.Decode(modelRegion, numberOfSamples)
	default:
		return nil, errs.Wrap("cmp.decodeSubBlock", errs.ErrUnsupportedEncoding)
	}
}

func finish(b *Block, samples []int64) []int64 {
	return retrendAndIntegrate(b, unscaleAmplitude(samples, b.Parameters))
}

// unscaleAmplitude applies out[i] = round(in[i] * amplitude_scale) when
// the parameter is present (spec.md §4.5).
func unscaleAmplitude(samples []int64, p Parameters) []int64 {
	if p.AmplitudeScale == 0 {
		return samples
	}

	out := make([]int64, len(samples))
	for i, s := range samples {
		out[i] = roundInt64(float64(s) * p.AmplitudeScale)
	}

	return out
}

// retrendAndIntegrate applies the linear retrend and derivative
// integration inverse transforms, in that order (spec.md §4.5).
func retrendAndIntegrate(b *Block, samples []int64) []int64 {
	out := Retrend(samples, b.Parameters.Gradient, b.Parameters.Intercept)
	return IntegrateDerivative(out, b.Parameters.DerivativeInitialValues)
}

// Retrend applies out[i] = round(in[i] + gradient*(i+1) + intercept)
// left-to-right (spec.md §4.5).
func Retrend(samples []int64, gradient, intercept float64) []int64 {
	if gradient == 0 && intercept == 0 {
		return samples
	}

	out := make([]int64, len(samples))
	for i, s := range samples {
		out[i] = roundInt64(float64(s) + gradient*float64(i+1) + intercept)
	}

	return out
}

// IntegrateDerivative integrates an L-th forward difference stream back
// into samples, where L = len(initialValues) (spec.md §4.5). It returns
// a new slice and leaves the input unchanged.
func IntegrateDerivative(samples []int64, initialValues []float64) []int64 {
	l := len(initialValues)
	if l == 0 {
		return samples
	}

	out := make([]int64, len(samples))
	copy(out, samples)

	for pass := 0; pass < l; pass++ {
		acc := roundInt64(initialValues[pass])
		for i := range out {
			acc += out[i]
			out[i] = acc
		}
	}

	return out
}

func roundInt64(f float64) int64 {
	if f >= 0 {
		return int64(f + 0.5)
	}

	return int64(f - 0.5)
}

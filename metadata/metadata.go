// Package metadata implements the three MED metadata sections (spec.md
// §3 "Metadata (section 1 / section 2 / section 3)"): section 1 is
// always plaintext and carries password hints plus the encryption level
// of sections 2/3 and the channel's data; section 2 is type-specific
// (time-series or video); section 3 carries timezone/subject fields.
//
// A metadata file is the Universal Header (parsed separately by
// uheader) followed by these three fixed-size sections back to back.
package metadata

import (
	"bytes"
	"math"

	"github.com/MEDFormat/MEDC-sub000/aes128"
	"github.com/MEDFormat/MEDC-sub000/endian"
	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
)

// Section byte lengths. spec.md does not pin exact offsets for metadata
// sections the way it does for the Universal Header; these sizes are an
// engineering decision (documented in DESIGN.md) sized generously enough
// to hold every named field with room for discretionary padding, mirroring
// how the Universal Header itself reserves trailing padding bytes.
const (
	Section1Bytes = 256
	Section2Bytes = 512
	Section3Bytes = 512
)

const (
	section1HintOffset          = 0
	section1HintLen             = 128
	section1Section2LevelOffset = 128
	section1Section3LevelOffset = 129
	section1DataLevelOffset     = 130
	section1RecordDataCompOffset = 131
)

// Section1 is always plaintext: password hints plus the encryption
// levels that gate sections 2, 3, and the channel's data/records.
type Section1 struct {
	PasswordHint         string
	Section2Level        format.EncryptionLevel
	Section3Level        format.EncryptionLevel
	DataLevel            format.EncryptionLevel
	RecordDataCompression format.CompressionType
}

// ParseSection1 reads a plaintext section 1 from data.
func ParseSection1(data []byte) (Section1, error) {
	if len(data) < Section1Bytes {
		return Section1{}, errs.Wrap("metadata.ParseSection1", errs.ErrCorruptBlock)
	}

	return Section1{
		PasswordHint:          readCString(data[section1HintOffset : section1HintOffset+section1HintLen]),
		Section2Level:         format.EncryptionLevel(int8(data[section1Section2LevelOffset])),
		Section3Level:         format.EncryptionLevel(int8(data[section1Section3LevelOffset])),
		DataLevel:             format.EncryptionLevel(int8(data[section1DataLevelOffset])),
		RecordDataCompression: format.CompressionType(data[section1RecordDataCompOffset]),
	}, nil
}

// Section2TimeSeries is the time-series variant of section 2.
type Section2TimeSeries struct {
	SamplingFrequency      float64
	LowFilterSetting       float64
	HighFilterSetting      float64
	NotchFilterSetting     float64
	UnitsConversionFactor  float64
	AbsoluteStartSampleNumber int64
	NumberOfSamples        int64
	NumberOfBlocks         int64
	MaximumBlockBytes      int64
	MaximumBlockSamples    int64
}

// Section2Video is the video variant of section 2.
type Section2Video struct {
	FrameRate           float64
	FrameWidth          int32
	FrameHeight         int32
	NumberOfClips       int64
	MaximumClipBytes    int64
}

const (
	s2TSSamplingFrequencyOffset = 0
	s2TSLowFilterOffset         = 8
	s2TSHighFilterOffset        = 16
	s2TSNotchFilterOffset       = 24
	s2TSUnitsConversionOffset   = 32
	s2TSAbsStartSampleOffset    = 40
	s2TSNumberOfSamplesOffset   = 48
	s2TSNumberOfBlocksOffset    = 56
	s2TSMaxBlockBytesOffset     = 64
	s2TSMaxBlockSamplesOffset   = 72
)

// ParseSection2TimeSeries reads a time-series section 2 from data, which
// must already be decrypted if Section1.Section2Level requires it.
func ParseSection2TimeSeries(data []byte) (Section2TimeSeries, error) {
	if len(data) < Section2Bytes {
		return Section2TimeSeries{}, errs.Wrap("metadata.ParseSection2TimeSeries", errs.ErrCorruptBlock)
	}

	e := endian.GetLittleEndianEngine()

	return Section2TimeSeries{
		SamplingFrequency:        readF64(e, data, s2TSSamplingFrequencyOffset),
		LowFilterSetting:         readF64(e, data, s2TSLowFilterOffset),
		HighFilterSetting:        readF64(e, data, s2TSHighFilterOffset),
		NotchFilterSetting:       readF64(e, data, s2TSNotchFilterOffset),
		UnitsConversionFactor:    readF64(e, data, s2TSUnitsConversionOffset),
		AbsoluteStartSampleNumber: int64(e.Uint64(data[s2TSAbsStartSampleOffset : s2TSAbsStartSampleOffset+8])),
		NumberOfSamples:          int64(e.Uint64(data[s2TSNumberOfSamplesOffset : s2TSNumberOfSamplesOffset+8])),
		NumberOfBlocks:           int64(e.Uint64(data[s2TSNumberOfBlocksOffset : s2TSNumberOfBlocksOffset+8])),
		MaximumBlockBytes:        int64(e.Uint64(data[s2TSMaxBlockBytesOffset : s2TSMaxBlockBytesOffset+8])),
		MaximumBlockSamples:      int64(e.Uint64(data[s2TSMaxBlockSamplesOffset : s2TSMaxBlockSamplesOffset+8])),
	}, nil
}

const (
	s2VidFrameRateOffset        = 0
	s2VidFrameWidthOffset       = 8
	s2VidFrameHeightOffset      = 12
	s2VidNumberOfClipsOffset    = 16
	s2VidMaxClipBytesOffset     = 24
)

// ParseSection2Video reads a video section 2 from data.
func ParseSection2Video(data []byte) (Section2Video, error) {
	if len(data) < Section2Bytes {
		return Section2Video{}, errs.Wrap("metadata.ParseSection2Video", errs.ErrCorruptBlock)
	}

	e := endian.GetLittleEndianEngine()

	return Section2Video{
		FrameRate:        readF64(e, data, s2VidFrameRateOffset),
		FrameWidth:       int32(e.Uint32(data[s2VidFrameWidthOffset : s2VidFrameWidthOffset+4])),
		FrameHeight:      int32(e.Uint32(data[s2VidFrameHeightOffset : s2VidFrameHeightOffset+4])),
		NumberOfClips:    int64(e.Uint64(data[s2VidNumberOfClipsOffset : s2VidNumberOfClipsOffset+8])),
		MaximumClipBytes: int64(e.Uint64(data[s2VidMaxClipBytesOffset : s2VidMaxClipBytesOffset+8])),
	}, nil
}

// Section3 carries recording-time offset, DST/timezone data, subject
// name, and geotag — fields that are meaningful for the whole session
// regardless of channel type.
type Section3 struct {
	RecordingTimeOffset int64
	DaylightTimeCode    int32
	TimezoneDescription string
	SubjectName         string
	SubjectID           string
	GeoTag              string
}

const (
	s3RecordingOffsetOffset = 0
	s3DSTCodeOffset         = 8
	s3TimezoneOffset        = 16
	s3TimezoneLen           = 64
	s3SubjectNameOffset     = 80
	s3SubjectNameLen        = 64
	s3SubjectIDOffset       = 144
	s3SubjectIDLen          = 64
	s3GeoTagOffset          = 208
	s3GeoTagLen             = 128
)

// ParseSection3 reads section 3 from data, which must already be
// decrypted if Section1.Section3Level requires it.
func ParseSection3(data []byte) (Section3, error) {
	if len(data) < Section3Bytes {
		return Section3{}, errs.Wrap("metadata.ParseSection3", errs.ErrCorruptBlock)
	}

	e := endian.GetLittleEndianEngine()

	return Section3{
		RecordingTimeOffset: int64(e.Uint64(data[s3RecordingOffsetOffset : s3RecordingOffsetOffset+8])),
		DaylightTimeCode:    int32(e.Uint32(data[s3DSTCodeOffset : s3DSTCodeOffset+4])),
		TimezoneDescription: readCString(data[s3TimezoneOffset : s3TimezoneOffset+s3TimezoneLen]),
		SubjectName:         readCString(data[s3SubjectNameOffset : s3SubjectNameOffset+s3SubjectNameLen]),
		SubjectID:           readCString(data[s3SubjectIDOffset : s3SubjectIDOffset+s3SubjectIDLen]),
		GeoTag:              readCString(data[s3GeoTagOffset : s3GeoTagOffset+s3GeoTagLen]),
	}, nil
}

// DecryptSection decrypts an in-place section region when level requires
// it (spec.md §4.1: sections 2 and 3 can be wrapped at L1 or L2).
// "Natively encrypted, currently decrypted in memory" (negative levels in
// spec.md's source representation) is modeled here as the caller simply
// not calling DecryptSection again — this package has no mutable "is
// this already decrypted" flag of its own, since Parse is only ever
// called once per read.
func DecryptSection(data []byte, level format.EncryptionLevel, keys *struct {
	L1 *aes128.RoundKeys
	L2 *aes128.RoundKeys
}) error {
	var rk *aes128.RoundKeys
	switch level {
	case format.EncryptionNone:
		return nil
	case format.EncryptionLevel1:
		if keys != nil {
			rk = keys.L1
		}
	case format.EncryptionLevel2:
		if keys != nil {
			rk = keys.L2
		}
	default:
		return errs.Wrap("metadata.DecryptSection", errs.ErrUnsupportedEncoding)
	}

	if rk == nil {
		return errs.Wrap("metadata.DecryptSection", errs.ErrSectionEncrypted)
	}

	span := len(data) - len(data)%aes128.BlockSize
	return aes128.Decrypt(rk, data[:span])
}

func readF64(e endian.EndianEngine, data []byte, off int) float64 {
	return math.Float64frombits(e.Uint64(data[off : off+8]))
}

func readCString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return string(data[:i])
	}

	return string(data)
}

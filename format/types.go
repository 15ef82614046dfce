// Package format defines the small closed enumerations shared across the MED
// library: on-disk file type codes, CMP algorithm selectors, encryption
// access levels, and the optional record-data/discretionary-region
// compression family.
package format

// FileTypeCode is the 4-byte ASCII tag every MED file path's extension
// resolves to (spec.md §6 "File-type dispatch").
type FileTypeCode uint32

const (
	// TypeSession identifies a session directory (.medd).
	TypeSession FileTypeCode = 0x6464656d // "medd" little-endian
	// TypeTimeSeriesChannel identifies a time-series channel directory (.ticd).
	TypeTimeSeriesChannel FileTypeCode = 0x64636974 // "ticd"
	// TypeVideoChannel identifies a video channel directory (.vicd).
	TypeVideoChannel FileTypeCode = 0x64636976 // "vicd"
	// TypeTimeSeriesSegment identifies a time-series segment directory (.tisd).
	TypeTimeSeriesSegment FileTypeCode = 0x64736974 // "tisd"
	// TypeVideoSegment identifies a video segment directory (.visd).
	TypeVideoSegment FileTypeCode = 0x64736976 // "visd"
	// TypeTimeSeriesMetadata identifies a time-series metadata file (.tmet).
	TypeTimeSeriesMetadata FileTypeCode = 0x74656d74 // "tmet"
	// TypeVideoMetadata identifies a video metadata file (.vmet).
	TypeVideoMetadata FileTypeCode = 0x74656d76 // "vmet"
	// TypeTimeSeriesData identifies a compressed time-series data file (.tdat).
	TypeTimeSeriesData FileTypeCode = 0x74616474 // "tdat"
	// TypeTimeSeriesIndex identifies a time-series index file (.tidx).
	TypeTimeSeriesIndex FileTypeCode = 0x78646974 // "tidx"
	// TypeVideoIndex identifies a video index file (.vidx).
	TypeVideoIndex FileTypeCode = 0x78646976 // "vidx"
	// TypeRecordData identifies a record data file (.rdat).
	TypeRecordData FileTypeCode = 0x74616472 // "rdat"
	// TypeRecordIndex identifies a record index file (.ridx).
	TypeRecordIndex FileTypeCode = 0x78646972 // "ridx"
)

var typeCodeExtensions = map[FileTypeCode]string{
	TypeSession:            ".medd",
	TypeTimeSeriesChannel:  ".ticd",
	TypeVideoChannel:       ".vicd",
	TypeTimeSeriesSegment:  ".tisd",
	TypeVideoSegment:       ".visd",
	TypeTimeSeriesMetadata: ".tmet",
	TypeVideoMetadata:      ".vmet",
	TypeTimeSeriesData:     ".tdat",
	TypeTimeSeriesIndex:    ".tidx",
	TypeVideoIndex:         ".vidx",
	TypeRecordData:         ".rdat",
	TypeRecordIndex:        ".ridx",
}

// Extension returns the canonical file extension for a type code, or ""
// if the code is not recognized.
func (t FileTypeCode) Extension() string {
	return typeCodeExtensions[t]
}

func (t FileTypeCode) String() string {
	if ext, ok := typeCodeExtensions[t]; ok {
		return ext[1:]
	}

	return "unknown"
}

// ExtensionToTypeCode maps a file extension (including the leading dot) to
// its type code. Matching is case-sensitive; spec.md §9 notes the source's
// lowercase-only matching as an explicit choice we preserve rather than
// silently broaden.
func ExtensionToTypeCode(ext string) (FileTypeCode, bool) {
	for code, e := range typeCodeExtensions {
		if e == ext {
			return code, true
		}
	}

	return 0, false
}

// AlgorithmType selects the CMP inner codec used to decode a block's
// samples (spec.md §4.5).
type AlgorithmType uint8

const (
	AlgorithmRED  AlgorithmType = 1 // Range-Encoded Differences
	AlgorithmPRED AlgorithmType = 2 // Predictive RED (category-conditioned)
	AlgorithmMBE  AlgorithmType = 3 // Minimum Bit Encoding
	AlgorithmVDS  AlgorithmType = 4 // Vectorized Data Stream (lossy, Akima reconstruction)
)

func (a AlgorithmType) String() string {
	switch a {
	case AlgorithmRED:
		return "RED"
	case AlgorithmPRED:
		return "PRED"
	case AlgorithmMBE:
		return "MBE"
	case AlgorithmVDS:
		return "VDS"
	default:
		return "Unknown"
	}
}

// EncryptionLevel is the password access tier that wraps metadata sections
// 2/3, record entries, and compressed blocks (spec.md §4.1).
type EncryptionLevel int8

const (
	// EncryptionNone means the section/block is not encrypted.
	EncryptionNone EncryptionLevel = 0
	// EncryptionLevel1 is the base access level.
	EncryptionLevel1 EncryptionLevel = 1
	// EncryptionLevel2 is the elevated access level.
	EncryptionLevel2 EncryptionLevel = 2
	// EncryptionLevel3Recovery is the recovery-only level; it never encrypts
	// data directly, it only recovers L1/L2 terminal bytes (spec.md §4.1).
	EncryptionLevel3Recovery EncryptionLevel = 3
)

// NativelyEncrypted reports whether a negative encryption level encodes
// "natively encrypted, currently decrypted in memory" (spec.md §3).
func NativelyEncrypted(level int8) bool {
	return level < 0
}

// CompressionType is the optional whole-stream / discretionary-region
// compression family used by the record-data stream and CMP discretionary
// region (SPEC_FULL.md §4.8-4.9). It is independent of the CMP
// AlgorithmType, which governs sample entropy coding, not byte-level
// container compression.
type CompressionType uint8

const (
	CompressionNone   CompressionType = 0x1
	CompressionZstd   CompressionType = 0x2
	CompressionS2     CompressionType = 0x3
	CompressionLZ4    CompressionType = 0x4
	CompressionBrotli CompressionType = 0x5
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionBrotli:
		return "Brotli"
	default:
		return "Unknown"
	}
}

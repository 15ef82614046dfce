// Package records implements MED record indices and record data streams
// (spec.md §3 "Index entries", §4.2): a record-data file is a
// concatenation of variable-length records, each prefixed by a small
// fixed header carrying its own CRC and optional encryption; a
// record-index file locates them via the same 24-byte index-entry
// layout tsindex already models for time-series/video blocks.
//
// Record *bodies* (the Note/Seiz/Sgmt catalogs) are out of scope here
// (spec.md §1) — this package only frames and integrity-checks the
// opaque body bytes; interpreting them is a caller concern.
package records

import (
	"github.com/MEDFormat/MEDC-sub000/aes128"
	"github.com/MEDFormat/MEDC-sub000/compress"
	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/endian"
	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/MEDFormat/MEDC-sub000/medlog"
)

// HeaderBytes is the fixed record header size preceding each record's
// opaque body. Like cmp's FixedHeaderSize, spec.md does not pin exact
// record-header offsets; this layout is an engineering decision
// (documented in DESIGN.md) keeping RecordCRC first for the same
// split-CRC reason cmp's block header does.
const HeaderBytes = 20

const (
	recordCRCOffset        = 0
	totalRecordBytesOffset = 4
	recordTypeOffset       = 8
	flagsOffset            = 12
)

const (
	flagEncryptionL1 uint32 = 1 << 0
	flagEncryptionL2 uint32 = 1 << 1
)

// Header is one record's fixed prefix.
type Header struct {
	RecordCRC       uint32
	TotalRecordBytes uint32
	RecordType      format.FileTypeCode
	Flags           uint32
}

// EncryptionLevel reports the record's encryption level from Flags.
func (h Header) EncryptionLevel() format.EncryptionLevel {
	switch {
	case h.Flags&flagEncryptionL1 != 0:
		return format.EncryptionLevel1
	case h.Flags&flagEncryptionL2 != 0:
		return format.EncryptionLevel2
	default:
		return format.EncryptionNone
	}
}

// Record is one parsed record: its header plus the still-possibly-
// encrypted body bytes.
type Record struct {
	Header   Header
	Body     []byte
	CRCValid bool
}

// ParseStream splits a (possibly whole-stream-decompressed) record data
// buffer into individual Records. A per-record CRC mismatch does not
// abort the stream: per spec.md §4.1/§7 it is logged as a warning and
// that Record's CRCValid is set false, leaving the rest of the stream to
// parse normally. Structural corruption (a header that does not fit, or
// claims a length the buffer doesn't have) still fails the whole parse,
// since there is no way to find the next record's boundary past it.
func ParseStream(data []byte, crcMode crc32x.Mode) ([]Record, error) {
	var out []Record
	off := 0

	for off < len(data) {
		if off+HeaderBytes > len(data) {
			return nil, errs.Wrap("records.ParseStream", errs.ErrCorruptBlock)
		}

		h, err := parseHeader(data[off:])
		if err != nil {
			return nil, err
		}

		if h.TotalRecordBytes < HeaderBytes || off+int(h.TotalRecordBytes) > len(data) {
			return nil, errs.Wrap("records.ParseStream", errs.ErrCorruptBlock)
		}

		recordBytes := data[off : off+int(h.TotalRecordBytes)]
		valid := validateCRC(recordBytes, h.RecordCRC, crcMode)
		if !valid {
			medlog.WarnCRCMismatch("records", "", crc32x.Calculate(recordBytes[4:]), h.RecordCRC)
		}

		out = append(out, Record{Header: h, Body: recordBytes[HeaderBytes:], CRCValid: valid})
		off += int(h.TotalRecordBytes)
	}

	return out, nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderBytes {
		return Header{}, errs.Wrap("records.parseHeader", errs.ErrCorruptBlock)
	}

	e := endian.GetLittleEndianEngine()

	return Header{
		RecordCRC:        e.Uint32(data[recordCRCOffset : recordCRCOffset+4]),
		TotalRecordBytes: e.Uint32(data[totalRecordBytesOffset : totalRecordBytesOffset+4]),
		RecordType:       format.FileTypeCode(e.Uint32(data[recordTypeOffset : recordTypeOffset+4])),
		Flags:            e.Uint32(data[flagsOffset : flagsOffset+4]),
	}, nil
}

// validateCRC checks a record's CRC over every byte after the CRC field
// (the same split-CRC convention cmp blocks and the Universal Header
// use), matching spec.md's "per-record CRCs".
func validateCRC(recordBytes []byte, want uint32, mode crc32x.Mode) bool {
	if mode == crc32x.ModeOff {
		return true
	}

	return mode.Check(crc32x.Calculate(recordBytes[4:]), want)
}

// DecryptBody decrypts a record's body in place when its header
// requires it (spec.md §4.1: "can wrap record entries").
func DecryptBody(r *Record, keys *struct {
	L1 *aes128.RoundKeys
	L2 *aes128.RoundKeys
}) error {
	level := r.Header.EncryptionLevel()
	if level == format.EncryptionNone {
		return nil
	}

	var rk *aes128.RoundKeys
	if keys != nil {
		if level == format.EncryptionLevel1 {
			rk = keys.L1
		} else {
			rk = keys.L2
		}
	}
	if rk == nil {
		return errs.Wrap("records.DecryptBody", errs.ErrSectionEncrypted)
	}

	span := len(r.Body) - len(r.Body)%aes128.BlockSize
	return aes128.Decrypt(rk, r.Body[:span])
}

// ReadRecordData decompresses the whole record-data stream when
// compressionType is not CompressionNone (spec.md §4.9's additive
// whole-stream compression wrapper), then parses it into Records.
// Defaults (CompressionNone) leave data untouched, so existing
// uncompressed files remain readable.
func ReadRecordData(data []byte, compressionType format.CompressionType, crcMode crc32x.Mode) ([]Record, error) {
	if compressionType != format.CompressionNone {
		codec, err := compress.CreateCodec(compressionType, "")
		if err != nil {
			return nil, errs.Wrap("records.ReadRecordData", err)
		}

		decompressed, err := codec.Decompress(data)
		if err != nil {
			return nil, errs.Wrap("records.ReadRecordData", err)
		}

		data = decompressed
	}

	return ParseStream(data, crcMode)
}

// Package uheader implements MED's 1024-byte Universal Header (spec.md §6):
// the fixed-size block that begins every MED file and carries its type
// code, CRCs, timing, naming, UID, and password-validation fields.
package uheader

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/google/uuid"

	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/endian"
	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/MEDFormat/MEDC-sub000/medlog"
	"github.com/MEDFormat/MEDC-sub000/password"
	"github.com/MEDFormat/MEDC-sub000/sentinel"
)

// Size is the fixed byte length of a Universal Header.
const Size = 1024

// Byte offsets of the fixed-layout fields (spec.md §6). Everything from
// discretionaryOffset to Size is caller-defined padding.
const (
	headerCRCOffset       = 0
	bodyCRCOffset         = 4
	segmentEndTimeOffset  = 8
	numberOfEntriesOffset = 16
	maxEntrySizeOffset    = 24
	segmentNumberOffset   = 28
	typeStringOffset      = 32
	typeStringLen         = 4
	versionMajorOffset    = 37
	versionMinorOffset    = 38
	byteOrderCodeOffset   = 39
	sessionStartOffset    = 40
	segmentStartOffset    = 48
	sessionNameOffset     = 56
	sessionNameLen        = 64
	channelNameOffset     = 120
	channelNameLen        = 64
	subjectIDOffset       = 184
	subjectIDLen          = 64
	sessionUIDOffset      = 248
	channelUIDOffset      = 256
	segmentUIDOffset      = 264
	fileUIDOffset         = 272
	provenanceUIDOffset   = 280
	validationL1Offset    = 288
	validationL2Offset    = 304
	validationL3Offset    = 320
	discretionaryOffset   = 336

	// littleEndianByteOrderCode is the only value MED permits in the
	// byte-order-code field; MED files are always little-endian on disk.
	littleEndianByteOrderCode = 1
)

// Header is a parsed Universal Header.
type Header struct {
	HeaderCRC        uint32
	BodyCRC          uint32
	SegmentEndTime   int64
	NumberOfEntries  int64
	MaximumEntrySize uint32
	SegmentNumber    int32

	TypeCode format.FileTypeCode

	VersionMajor byte
	VersionMinor byte

	SessionStartTime int64
	SegmentStartTime int64

	SessionName         string
	ChannelName         string
	AnonymizedSubjectID string

	SessionUID    uint64
	ChannelUID    uint64
	SegmentUID    uint64
	FileUID       uint64
	ProvenanceUID uint64

	PasswordValidation password.ValidationFields

	// Discretionary holds the remaining caller-defined bytes, verbatim,
	// from discretionaryOffset through the end of the header.
	Discretionary [Size - discretionaryOffset]byte

	// CRCValid is false when the header's own CRC failed to validate under
	// the requested crc32x.Mode. Parse still returns the rest of the header
	// in that case (spec.md §4.1/§7: warn, continue) rather than failing
	// the whole read.
	CRCValid bool
}

// New returns a Header populated with MED's sentinel "no entry" values,
// ready for a writer to fill in.
func New(typeCode format.FileTypeCode) Header {
	return Header{
		SegmentEndTime:   sentinel.UUTCNoEntry,
		NumberOfEntries:  sentinel.SampleNumberNoEntry,
		SegmentNumber:    sentinel.SegmentNumberNoEntry,
		TypeCode:         typeCode,
		VersionMajor:     1,
		VersionMinor:     0,
		SessionStartTime: sentinel.UUTCNoEntry,
		SegmentStartTime: sentinel.UUTCNoEntry,
	}
}

// NewUID generates a fresh 64-bit UID for a header field that has no
// on-disk provenance of its own — the low 8 bytes of a random (v4) UUID.
// MED's UID fields are 64 bits, so this is a truncation rather than a
// full UUID; collisions are the same order of unlikelihood as any other
// 64-bit random tag and are not checked for.
func NewUID() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[8:16])
}

// Parse decodes a 1024-byte Universal Header. A header-CRC mismatch does
// not fail the parse: per spec.md §4.1/§7 it is logged as a warning and
// h.CRCValid is set false, leaving the caller to decide whether degraded
// data is acceptable. mode == crc32x.ModeOff skips the check (and the log)
// entirely. The byte-order code, unlike the CRC, is load-bearing for every
// other field's interpretation and remains a hard failure. Parse does not
// check the header against any expected type code; callers that need a
// specific type use RequireTypeCode after a successful Parse.
func Parse(data []byte, mode crc32x.Mode) (Header, error) {
	if len(data) != Size {
		return Header{}, errs.Wrap("uheader.Parse", errs.ErrInvalidHeaderSize)
	}

	engine := endian.GetLittleEndianEngine()

	var h Header
	h.HeaderCRC = engine.Uint32(data[headerCRCOffset : headerCRCOffset+4])
	h.BodyCRC = engine.Uint32(data[bodyCRCOffset : bodyCRCOffset+4])

	if mode == crc32x.ModeOff {
		h.CRCValid = true
	} else {
		got := crc32x.Calculate(data[bodyCRCOffset:])
		h.CRCValid = mode.Check(got, h.HeaderCRC)
		if !h.CRCValid {
			medlog.WarnCRCMismatch("uheader", "", got, h.HeaderCRC)
		}
	}

	h.SegmentEndTime = readInt64(engine, data[segmentEndTimeOffset:])
	h.NumberOfEntries = readInt64(engine, data[numberOfEntriesOffset:])
	h.MaximumEntrySize = engine.Uint32(data[maxEntrySizeOffset : maxEntrySizeOffset+4])
	h.SegmentNumber = int32(engine.Uint32(data[segmentNumberOffset : segmentNumberOffset+4]))

	h.TypeCode = format.FileTypeCode(engine.Uint32(data[typeStringOffset : typeStringOffset+typeStringLen]))

	h.VersionMajor = data[versionMajorOffset]
	h.VersionMinor = data[versionMinorOffset]

	if data[byteOrderCodeOffset] != littleEndianByteOrderCode {
		return Header{}, errs.Wrap("uheader.Parse", errs.ErrNotMed)
	}

	h.SessionStartTime = readInt64(engine, data[sessionStartOffset:])
	h.SegmentStartTime = readInt64(engine, data[segmentStartOffset:])

	h.SessionName = readCString(data[sessionNameOffset : sessionNameOffset+sessionNameLen])
	h.ChannelName = readCString(data[channelNameOffset : channelNameOffset+channelNameLen])
	h.AnonymizedSubjectID = readCString(data[subjectIDOffset : subjectIDOffset+subjectIDLen])

	h.SessionUID = engine.Uint64(data[sessionUIDOffset : sessionUIDOffset+8])
	h.ChannelUID = engine.Uint64(data[channelUIDOffset : channelUIDOffset+8])
	h.SegmentUID = engine.Uint64(data[segmentUIDOffset : segmentUIDOffset+8])
	h.FileUID = engine.Uint64(data[fileUIDOffset : fileUIDOffset+8])
	h.ProvenanceUID = engine.Uint64(data[provenanceUIDOffset : provenanceUIDOffset+8])

	copy(h.PasswordValidation.L1[:], data[validationL1Offset:validationL1Offset+16])
	copy(h.PasswordValidation.L2[:], data[validationL2Offset:validationL2Offset+16])
	copy(h.PasswordValidation.L3[:], data[validationL3Offset:validationL3Offset+16])

	copy(h.Discretionary[:], data[discretionaryOffset:Size])

	return h, nil
}

// Bytes serializes the header to its fixed 1024-byte on-disk form,
// computing and filling in HeaderCRC as it does so. BodyCRC must already
// be set by the caller (it covers data outside the header).
func (h *Header) Bytes() []byte {
	b := make([]byte, Size)
	engine := endian.GetLittleEndianEngine()

	engine.PutUint32(b[bodyCRCOffset:bodyCRCOffset+4], h.BodyCRC)

	writeInt64(engine, b[segmentEndTimeOffset:], h.SegmentEndTime)
	writeInt64(engine, b[numberOfEntriesOffset:], h.NumberOfEntries)
	engine.PutUint32(b[maxEntrySizeOffset:maxEntrySizeOffset+4], h.MaximumEntrySize)
	engine.PutUint32(b[segmentNumberOffset:segmentNumberOffset+4], uint32(h.SegmentNumber))

	engine.PutUint32(b[typeStringOffset:typeStringOffset+typeStringLen], uint32(h.TypeCode))
	b[typeStringOffset+typeStringLen] = 0 // NUL terminator at byte 36

	b[versionMajorOffset] = h.VersionMajor
	b[versionMinorOffset] = h.VersionMinor
	b[byteOrderCodeOffset] = littleEndianByteOrderCode

	writeInt64(engine, b[sessionStartOffset:], h.SessionStartTime)
	writeInt64(engine, b[segmentStartOffset:], h.SegmentStartTime)

	writeCString(b[sessionNameOffset:sessionNameOffset+sessionNameLen], h.SessionName)
	writeCString(b[channelNameOffset:channelNameOffset+channelNameLen], h.ChannelName)
	writeCString(b[subjectIDOffset:subjectIDOffset+subjectIDLen], h.AnonymizedSubjectID)

	engine.PutUint64(b[sessionUIDOffset:sessionUIDOffset+8], h.SessionUID)
	engine.PutUint64(b[channelUIDOffset:channelUIDOffset+8], h.ChannelUID)
	engine.PutUint64(b[segmentUIDOffset:segmentUIDOffset+8], h.SegmentUID)
	engine.PutUint64(b[fileUIDOffset:fileUIDOffset+8], h.FileUID)
	engine.PutUint64(b[provenanceUIDOffset:provenanceUIDOffset+8], h.ProvenanceUID)

	copy(b[validationL1Offset:validationL1Offset+16], h.PasswordValidation.L1[:])
	copy(b[validationL2Offset:validationL2Offset+16], h.PasswordValidation.L2[:])
	copy(b[validationL3Offset:validationL3Offset+16], h.PasswordValidation.L3[:])

	copy(b[discretionaryOffset:Size], h.Discretionary[:])

	h.HeaderCRC = crc32x.Calculate(b[bodyCRCOffset:])
	engine.PutUint32(b[headerCRCOffset:headerCRCOffset+4], h.HeaderCRC)

	return b
}

// RequireTypeCode returns errs.ErrTypeCodeMismatch, wrapped, if the
// header's type code is not one of want.
func (h Header) RequireTypeCode(want ...format.FileTypeCode) error {
	for _, w := range want {
		if h.TypeCode == w {
			return nil
		}
	}

	return errs.Wrap("uheader.RequireTypeCode", errs.ErrTypeCodeMismatch)
}

func readInt64(engine endian.EndianEngine, b []byte) int64 {
	u := engine.Uint64(b[:8])
	return *(*int64)(unsafe.Pointer(&u))
}

func writeInt64(engine endian.EndianEngine, b []byte, v int64) {
	engine.PutUint64(b[:8], *(*uint64)(unsafe.Pointer(&v)))
}

func readCString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}

	return string(b)
}

func writeCString(b []byte, s string) {
	for i := range b {
		b[i] = 0
	}

	n := copy(b, s)
	if n < len(b) {
		b[n] = 0
	}
}

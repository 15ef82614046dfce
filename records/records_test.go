package records

import (
	"encoding/binary"
	"testing"

	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/stretchr/testify/require"
)

func buildRecord(body []byte, flags uint32) []byte {
	total := HeaderBytes + len(body)
	data := make([]byte, total)

	binary.LittleEndian.PutUint32(data[totalRecordBytesOffset:totalRecordBytesOffset+4], uint32(total))
	binary.LittleEndian.PutUint32(data[recordTypeOffset:recordTypeOffset+4], uint32(format.TypeRecordData))
	binary.LittleEndian.PutUint32(data[flagsOffset:flagsOffset+4], flags)
	copy(data[HeaderBytes:], body)

	sum := crc32x.Calculate(data[4:])
	binary.LittleEndian.PutUint32(data[recordCRCOffset:recordCRCOffset+4], sum)

	return data
}

func TestParseStream_SingleRecord(t *testing.T) {
	data := buildRecord([]byte("hello"), 0)

	recs, err := ParseStream(data, crc32x.ModeValidate)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, []byte("hello"), recs[0].Body)
	require.True(t, recs[0].CRCValid)
}

func TestParseStream_MultipleRecords(t *testing.T) {
	data := append(buildRecord([]byte("a"), 0), buildRecord([]byte("bb"), 0)...)

	recs, err := ParseStream(data, crc32x.ModeValidate)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, []byte("a"), recs[0].Body)
	require.Equal(t, []byte("bb"), recs[1].Body)
}

func TestParseStream_DetectsCorruption(t *testing.T) {
	data := buildRecord([]byte("hello"), 0)
	data[HeaderBytes] ^= 0xFF

	recs, err := ParseStream(data, crc32x.ModeValidate)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.False(t, recs[0].CRCValid)
}

func TestParseStream_ModeOffSkipsCheck(t *testing.T) {
	data := buildRecord([]byte("hello"), 0)
	data[HeaderBytes] ^= 0xFF

	recs, err := ParseStream(data, crc32x.ModeOff)
	require.NoError(t, err)
	require.True(t, recs[0].CRCValid)
}

func TestHeader_EncryptionLevel(t *testing.T) {
	h := Header{Flags: flagEncryptionL1}
	require.Equal(t, format.EncryptionLevel1, h.EncryptionLevel())

	h = Header{Flags: flagEncryptionL2}
	require.Equal(t, format.EncryptionLevel2, h.EncryptionLevel())

	h = Header{}
	require.Equal(t, format.EncryptionNone, h.EncryptionLevel())
}

func TestDecryptBody_NoOpWhenUnencrypted(t *testing.T) {
	r := Record{Body: []byte("plain")}
	require.NoError(t, DecryptBody(&r, nil))
}

func TestDecryptBody_RequiresKeysWhenEncrypted(t *testing.T) {
	r := Record{Header: Header{Flags: flagEncryptionL1}, Body: make([]byte, 16)}
	require.Error(t, DecryptBody(&r, nil))
}

func TestReadRecordData_DefaultsToUncompressed(t *testing.T) {
	data := buildRecord([]byte("hello"), 0)

	recs, err := ReadRecordData(data, format.CompressionNone, crc32x.ModeValidate)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

package metadata

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/stretchr/testify/require"
)

func TestParseSection1(t *testing.T) {
	data := make([]byte, Section1Bytes)
	copy(data, "try the usual one\x00")
	data[section1Section2LevelOffset] = byte(format.EncryptionLevel1)
	data[section1Section3LevelOffset] = byte(format.EncryptionLevel2)
	data[section1DataLevelOffset] = byte(format.EncryptionNone)
	data[section1RecordDataCompOffset] = byte(format.CompressionLZ4)

	s1, err := ParseSection1(data)
	require.NoError(t, err)
	require.Equal(t, "try the usual one", s1.PasswordHint)
	require.Equal(t, format.EncryptionLevel1, s1.Section2Level)
	require.Equal(t, format.EncryptionLevel2, s1.Section3Level)
	require.Equal(t, format.CompressionLZ4, s1.RecordDataCompression)
}

func TestParseSection1_RejectsTruncated(t *testing.T) {
	_, err := ParseSection1(make([]byte, 10))
	require.Error(t, err)
}

func putF64(data []byte, off int, v float64) {
	binary.LittleEndian.PutUint64(data[off:off+8], math.Float64bits(v))
}

func TestParseSection2TimeSeries(t *testing.T) {
	data := make([]byte, Section2Bytes)
	putF64(data, s2TSSamplingFrequencyOffset, 1000.0)
	binary.LittleEndian.PutUint64(data[s2TSNumberOfSamplesOffset:s2TSNumberOfSamplesOffset+8], 5_000_000)

	s2, err := ParseSection2TimeSeries(data)
	require.NoError(t, err)
	require.InDelta(t, 1000.0, s2.SamplingFrequency, 0.0001)
	require.Equal(t, int64(5_000_000), s2.NumberOfSamples)
}

func TestParseSection2Video(t *testing.T) {
	data := make([]byte, Section2Bytes)
	putF64(data, s2VidFrameRateOffset, 29.97)
	binary.LittleEndian.PutUint32(data[s2VidFrameWidthOffset:s2VidFrameWidthOffset+4], 1920)

	s2, err := ParseSection2Video(data)
	require.NoError(t, err)
	require.InDelta(t, 29.97, s2.FrameRate, 0.001)
	require.Equal(t, int32(1920), s2.FrameWidth)
}

func TestParseSection3(t *testing.T) {
	data := make([]byte, Section3Bytes)
	binary.LittleEndian.PutUint64(data[s3RecordingOffsetOffset:s3RecordingOffsetOffset+8], uint64(123456))
	copy(data[s3SubjectNameOffset:], "Jane Doe\x00")
	copy(data[s3TimezoneOffset:], "America/Los_Angeles\x00")

	s3, err := ParseSection3(data)
	require.NoError(t, err)
	require.Equal(t, int64(123456), s3.RecordingTimeOffset)
	require.Equal(t, "Jane Doe", s3.SubjectName)
	require.Equal(t, "America/Los_Angeles", s3.TimezoneDescription)
}

func TestDecryptSection_NoOpWhenUnencrypted(t *testing.T) {
	data := make([]byte, 32)
	require.NoError(t, DecryptSection(data, format.EncryptionNone, nil))
}

func TestDecryptSection_RequiresKeysWhenEncrypted(t *testing.T) {
	data := make([]byte, 32)
	err := DecryptSection(data, format.EncryptionLevel1, nil)
	require.Error(t, err)
}

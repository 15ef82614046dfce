package med

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/MEDFormat/MEDC-sub000/config"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/MEDFormat/MEDC-sub000/metadata"
	"github.com/MEDFormat/MEDC-sub000/sentinel"
	"github.com/MEDFormat/MEDC-sub000/uheader"
	"github.com/stretchr/testify/require"
)

// buildSingleChannelSession lays out a minimal one-channel, one-segment,
// one-sample session directory, mirroring session package's own fixture
// builder but kept self-contained here since that one is unexported.
func buildSingleChannelSession(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	sessionDir := filepath.Join(root, "mysession.medd")
	segDir := filepath.Join(sessionDir, "eeg1.ticd", "00000.tisd")
	require.NoError(t, os.MkdirAll(segDir, 0o755))

	h := uheader.New(format.TypeTimeSeriesMetadata)
	h.SessionName = "mysession"
	h.ChannelName = "eeg1"
	h.SegmentStartTime = 0
	h.SegmentEndTime = 1_000_000
	metaBody := make([]byte, metadata.Section1Bytes+metadata.Section2Bytes+metadata.Section3Bytes)
	binary.LittleEndian.PutUint64(metaBody[metadata.Section1Bytes+48:metadata.Section1Bytes+56], 1) // number_of_samples
	binary.LittleEndian.PutUint64(metaBody[metadata.Section1Bytes+56:metadata.Section1Bytes+64], 1) // number_of_blocks
	meta := append(append([]byte{}, h.Bytes()...), metaBody...)
	require.NoError(t, os.WriteFile(filepath.Join(segDir, "00000.tmet"), meta, 0o644))

	// Two all-zero 24-byte index entries (tsindex.FindIndex needs
	// len(entries) >= 2) and a data file with no CMP block: this fixture
	// only exercises Open's discovery/mapping, not ReadSegment.
	idxHeader := uheader.New(format.TypeTimeSeriesIndex)
	entries := make([]byte, 48)
	idx := append(append([]byte{}, idxHeader.Bytes()...), entries...)
	require.NoError(t, os.WriteFile(filepath.Join(segDir, "00000.tidx"), idx, 0o644))

	datHeader := uheader.New(format.TypeTimeSeriesData)
	dat := append(append([]byte{}, datHeader.Bytes()...), make([]byte, 8)...)
	require.NoError(t, os.WriteFile(filepath.Join(segDir, "00000.tdat"), dat, 0o644))

	return sessionDir
}

func TestOpen_DefaultsOpenTimeSeriesChannel(t *testing.T) {
	sessionDir := buildSingleChannelSession(t)

	sess, err := Open(sessionDir)
	require.NoError(t, err)
	require.Len(t, sess.Channels, 1)
	require.NotNil(t, sess.Channel("eeg1"))
	require.True(t, sess.Channel("eeg1").Active)
}

func TestOpen_WithoutTimeSeriesChannelsFailsWithNoActiveChannel(t *testing.T) {
	sessionDir := buildSingleChannelSession(t)

	_, err := Open(sessionDir, WithoutTimeSeriesChannels())
	require.Error(t, err) // no active channels at all: Open reports ErrNoMetadata
}

func TestBuildOptions_ComposesFlags(t *testing.T) {
	opts, err := buildOptions([]Option{
		WithVideoChannels(),
		WithoutEphemeralData(),
		WithIndexJumpPadding(9),
		WithSgmtThresholdFraction(0.5),
		WithOpenFileLimitBump(100),
	})
	require.NoError(t, err)

	require.True(t, opts.Flags.Has(config.IncludeTimeSeriesChannels)) // untouched default
	require.True(t, opts.Flags.Has(config.IncludeVideoChannels))
	require.False(t, opts.Flags.Has(config.GenerateEphemeralData))
	require.Equal(t, 9, opts.IndexJumpPadding)
	require.Equal(t, 0.5, opts.SgmtThresholdFraction)
	require.Equal(t, 100, opts.OpenFileLimitBump)
}

func TestBuildOptions_RejectsInvalidSgmtThresholdFraction(t *testing.T) {
	_, err := buildOptions([]Option{WithSgmtThresholdFraction(1.5)})
	require.Error(t, err)
}

func TestBuildOptions_RejectsNegativeIndexJumpPadding(t *testing.T) {
	_, err := buildOptions([]Option{WithIndexJumpPadding(-1)})
	require.Error(t, err)
}

func TestNewContext_AppliesOptions(t *testing.T) {
	ctx, err := NewContext(WithMapAllSegments())
	require.NoError(t, err)
	require.True(t, ctx.Options.Flags.Has(config.MapAllSegments))
	require.NotNil(t, ctx.Metrics)
}

func TestFullExtent_MatchesTimesliceNew(t *testing.T) {
	slice := FullExtent()
	require.Equal(t, sentinel.BeginningOfTime, slice.StartTime)
	require.Equal(t, sentinel.EndOfTime, slice.EndTime)
	require.Equal(t, sentinel.SegmentNumberNoEntry, slice.StartSegment)
}

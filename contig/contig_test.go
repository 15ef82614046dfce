package contig

import (
	"testing"

	"github.com/MEDFormat/MEDC-sub000/tsindex"
	"github.com/stretchr/testify/require"
)

func entry(offset, startTime, startSamp int64, seg int32) Entry {
	return Entry{
		Entry:         tsindex.Entry{FileOffset: offset, StartTime: startTime, StartSampleOrFrame: startSamp},
		SegmentNumber: seg,
	}
}

func TestBuild_SingleContiguousRun(t *testing.T) {
	entries := []Entry{
		entry(100, 0, 0, 1),
		entry(200, 1000, 1000, 1),
		entry(300, 2000, 2000, 1), // terminal
	}

	out := Build(entries, 0, 2, false)
	require.Len(t, out, 1)
	require.Equal(t, int64(0), out[0].StartTime)
	require.Equal(t, int64(2000), out[0].EndTime)
}

func TestBuild_DiscontinuitySplitsRuns(t *testing.T) {
	entries := []Entry{
		entry(100, 0, 0, 1),
		entry(-200, 1000, 1000, 1), // discontinuity
		entry(300, 2000, 2000, 1), // terminal
	}

	out := Build(entries, 0, 2, false)
	require.Len(t, out, 2)
	require.Equal(t, int64(0), out[0].StartTime)
	require.Equal(t, int64(1000), out[0].EndTime)
	require.Equal(t, int64(1000), out[1].StartTime)
	require.Equal(t, int64(2000), out[1].EndTime)
}

func TestBuild_MissingEntryForcesDiscontinuity(t *testing.T) {
	entries := []Entry{
		entry(100, 0, 0, 1),
		{Entry: tsindex.Entry{StartTime: 1000, StartSampleOrFrame: 1000}, SegmentNumber: 2, Missing: true},
		entry(300, 2000, 2000, 2), // terminal
	}

	out := Build(entries, 0, 2, false)
	require.Len(t, out, 2)
}

func TestBuild_VariableFrequencyUnsetsSampleFields(t *testing.T) {
	entries := []Entry{
		entry(100, 0, 0, 1),
		entry(300, 2000, 2000, 1), // terminal
	}

	out := Build(entries, 0, 1, true)
	require.Len(t, out, 1)
	require.Equal(t, int64(-1), out[0].StartSampleOrFrame)
	require.Equal(t, int64(-1), out[0].EndSampleOrFrame)
}

func TestTrim_ClampsFirstAndLast(t *testing.T) {
	contigua := []Contiguon{
		{StartTime: 0, EndTime: 1000},
		{StartTime: 1000, EndTime: 2000},
	}

	out := Trim(contigua, 500, 1500)
	require.Equal(t, int64(500), out[0].StartTime)
	require.Equal(t, int64(1500), out[len(out)-1].EndTime)
}

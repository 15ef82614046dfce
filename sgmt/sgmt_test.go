package sgmt

import (
	"testing"

	"github.com/MEDFormat/MEDC-sub000/sentinel"
	"github.com/MEDFormat/MEDC-sub000/timeslice"
	"github.com/stretchr/testify/require"
)

func sampleArray() []Sgmt {
	return []Sgmt{
		{StartTime: 0, EndTime: 999, SegmentNumber: 1},
		{StartTime: 1000, EndTime: 1999, SegmentNumber: 2},
		{StartTime: 2000, EndTime: 2999, SegmentNumber: 3},
	}
}

func TestResolveRange_WithinBounds(t *testing.T) {
	s := timeslice.New()
	s.StartTime = 1200
	s.EndTime = 2500

	startSeg, endSeg, empty := ResolveRange(sampleArray(), s)
	require.False(t, empty)
	require.Equal(t, int32(2), startSeg)
	require.Equal(t, int32(3), endSeg)
}

func TestResolveRange_StartBeforeFirstSnapsToFirst(t *testing.T) {
	s := timeslice.New()
	s.StartTime = -500
	s.EndTime = 500

	startSeg, endSeg, empty := ResolveRange(sampleArray(), s)
	require.False(t, empty)
	require.Equal(t, int32(1), startSeg)
	require.Equal(t, int32(1), endSeg)
}

func TestResolveRange_StartPastLastIsEmpty(t *testing.T) {
	s := timeslice.New()
	s.StartTime = 5000
	s.EndTime = 6000

	_, _, empty := ResolveRange(sampleArray(), s)
	require.True(t, empty)
}

func TestResolveRange_EndPastLastSnapsToLast(t *testing.T) {
	s := timeslice.New()
	s.StartTime = 0
	s.EndTime = 9999

	startSeg, endSeg, empty := ResolveRange(sampleArray(), s)
	require.False(t, empty)
	require.Equal(t, int32(1), startSeg)
	require.Equal(t, int32(3), endSeg)
}

func TestResolveRange_EmptyArray(t *testing.T) {
	_, _, empty := ResolveRange(nil, timeslice.New())
	require.True(t, empty)
}

func TestSelectSearchMode_PrefersTime(t *testing.T) {
	s := timeslice.TimeSlice{
		StartTime:   100,
		EndTime:     sentinel.UUTCNoEntry,
		StartSample: 5,
		EndSample:   10,
	}

	require.Equal(t, SearchByTime, SelectSearchMode(s))
}

func TestSelectSearchMode_FallsBackToSample(t *testing.T) {
	s := timeslice.TimeSlice{
		StartTime:   sentinel.UUTCNoEntry,
		EndTime:     sentinel.UUTCNoEntry,
		StartSample: 5,
		EndSample:   10,
	}

	require.Equal(t, SearchBySample, SelectSearchMode(s))
}

package session

import (
	"testing"

	"github.com/MEDFormat/MEDC-sub000/config"
	"github.com/MEDFormat/MEDC-sub000/medctx"
	"github.com/MEDFormat/MEDC-sub000/timeslice"
	"github.com/stretchr/testify/require"
)

func TestContiguousRuns_SingleSegmentIsOneRun(t *testing.T) {
	sessionDir, _ := buildSingleSegmentSession(t)

	ctx := medctx.New(config.Defaults())
	sess, err := Open(ctx, sessionDir, timeslice.New(), "")
	require.NoError(t, err)

	ch := sess.Channel("eeg1")
	runs, err := ch.ContiguousRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, int32(0), runs[0].StartSegment)
}

func TestContiguousRuns_LoneMissingSegmentReturnsNil(t *testing.T) {
	ch := &Channel{
		Segments: []*Segment{nil},
	}

	runs, err := ch.ContiguousRuns()
	require.NoError(t, err)
	require.Nil(t, runs) // a single Missing marker alone has < 2 entries, nothing to build
}

func TestContiguousRuns_NoSegmentsReturnsNil(t *testing.T) {
	ch := &Channel{Slice: timeslice.New()}
	runs, err := ch.ContiguousRuns()
	require.NoError(t, err)
	require.Nil(t, runs)
}

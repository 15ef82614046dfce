// Package sgmt builds and searches the array of per-segment summary
// records (spec.md §4.3 "Sgmt array build" and "Range search") used to
// resolve a TimeSlice into a [start_segment, end_segment] range without
// opening every segment's metadata.
package sgmt

import (
	"sort"

	"github.com/MEDFormat/MEDC-sub000/sentinel"
	"github.com/MEDFormat/MEDC-sub000/timeslice"
)

// Sgmt is one segment's resolution summary: enough to binary-search a
// session or channel's segment range by time or by sample/frame number
// without reading every segment's metadata file.
type Sgmt struct {
	StartTime int64
	EndTime   int64

	StartSampleOrFrame int64
	EndSampleOrFrame   int64

	SamplingFrequency float64

	UID           uint64
	SegmentNumber int32
}

// SearchMode selects which of a Sgmt's two coordinate spaces
// ResolveRange searches in.
type SearchMode uint8

const (
	SearchByTime SearchMode = iota
	SearchBySample
)

// SelectSearchMode implements get_search_mode: time takes priority over
// sample/frame numbering whenever the slice specifies either time bound.
func SelectSearchMode(slice timeslice.TimeSlice) SearchMode {
	if slice.StartTime != sentinel.UUTCNoEntry || slice.EndTime != sentinel.UUTCNoEntry {
		return SearchByTime
	}

	return SearchBySample
}

// SortByStart sorts sgmts ascending by the coordinate ResolveRange will
// binary search in. Sgmt array builders must call this once before the
// array is used for resolution.
func SortByStart(sgmts []Sgmt, mode SearchMode) {
	sort.Slice(sgmts, func(i, j int) bool {
		if mode == SearchByTime {
			return sgmts[i].StartTime < sgmts[j].StartTime
		}

		return sgmts[i].StartSampleOrFrame < sgmts[j].StartSampleOrFrame
	})
}

// ResolveRange resolves slice's bounds against sgmts (already sorted by
// SortByStart in the matching mode) into a segment-number range.
// Overflow rules (spec.md §4.3): a start past the last segment's end
// yields SegmentNumberNoEntry and an empty slice; a target before the
// first segment snaps to the first segment.
func ResolveRange(sgmts []Sgmt, slice timeslice.TimeSlice) (startSeg, endSeg int32, empty bool) {
	if len(sgmts) == 0 {
		return sentinel.SegmentNumberNoEntry, sentinel.SegmentNumberNoEntry, true
	}

	mode := SelectSearchMode(slice)

	startTarget, endTarget := targets(slice, mode)

	startIdx, startAfterEnd := findIndex(sgmts, mode, startTarget)
	if startAfterEnd {
		return sentinel.SegmentNumberNoEntry, sentinel.SegmentNumberNoEntry, true
	}

	endIdx, endAfterEnd := findIndex(sgmts, mode, endTarget)
	if endAfterEnd {
		endIdx = len(sgmts) - 1
	}

	if endIdx < startIdx {
		return sentinel.SegmentNumberNoEntry, sentinel.SegmentNumberNoEntry, true
	}

	return sgmts[startIdx].SegmentNumber, sgmts[endIdx].SegmentNumber, false
}

func targets(slice timeslice.TimeSlice, mode SearchMode) (start, end int64) {
	if mode == SearchByTime {
		return slice.StartTime, slice.EndTime
	}

	return slice.StartSample, slice.EndSample
}

// findIndex locates the sgmts entry containing target, snapping
// before-the-first targets to index 0. afterEnd reports whether target
// is past the end of the last segment, in which case idx is meaningless.
func findIndex(sgmts []Sgmt, mode SearchMode, target int64) (idx int, afterEnd bool) {
	// UUTCNoEntry and SampleNumberNoEntry share the same sentinel value
	// (-1), so this comparison is valid for either search mode.
	last := sgmts[len(sgmts)-1]
	if lastEnd(last, mode) != sentinel.UUTCNoEntry && target > lastEnd(last, mode) {
		return 0, true
	}

	// sort.Search finds the first segment whose start is > target; the
	// containing segment is one before that (or 0 if target precedes the
	// first segment's start).
	i := sort.Search(len(sgmts), func(i int) bool {
		return segStart(sgmts[i], mode) > target
	})

	if i == 0 {
		return 0, false
	}

	return i - 1, false
}

func segStart(s Sgmt, mode SearchMode) int64 {
	if mode == SearchByTime {
		return s.StartTime
	}

	return s.StartSampleOrFrame
}

func lastEnd(s Sgmt, mode SearchMode) int64 {
	if mode == SearchByTime {
		return s.EndTime
	}

	return s.EndSampleOrFrame
}

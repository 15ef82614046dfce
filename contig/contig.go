// Package contig builds contigua (spec.md §4.6): the maximal gap-free
// runs within a resolved index range, trimmed to the caller's slice.
package contig

import "github.com/MEDFormat/MEDC-sub000/tsindex"

// Contiguon delimits one gap-free run within a slice.
type Contiguon struct {
	StartTime             int64
	EndTime               int64
	StartSampleOrFrame    int64
	EndSampleOrFrame      int64
	StartSegment          int32
	EndSegment            int32
}

// Entry is one index entry plus the segment it belongs to, the unit
// Build walks across segment boundaries.
type Entry struct {
	tsindex.Entry
	SegmentNumber int32
	// Missing marks a forced discontinuity independent of FileOffset's
	// sign — a segment or its metadata could not be opened at all.
	Missing bool
}

// Build walks entries[startIdx:endIdx] (inclusive of the terminal
// sentinel at endIdx, which supplies each contiguon's closing bound) and
// returns the maximal gap-free runs within it. A negative FileOffset (a
// discontinuity marker) or a Missing entry closes the current contiguon
// and opens a new one. variableFrequency sessions carry no meaningful
// sample/frame coordinate, so those fields are left unset
// (sentinel.SampleNumberNoEntry) in every returned Contiguon.
func Build(entries []Entry, startIdx, endIdx int, variableFrequency bool) []Contiguon {
	if startIdx < 0 || endIdx >= len(entries) || startIdx >= endIdx {
		return nil
	}

	var out []Contiguon
	var cur *Contiguon

	for i := startIdx; i < endIdx; i++ {
		e := entries[i]

		discontinuous := e.Missing || e.FileOffset < 0
		if discontinuous && cur != nil {
			closeContiguon(cur, entries[i])
			out = append(out, *cur)
			cur = nil
		}

		if cur == nil {
			cur = &Contiguon{
				StartTime:          e.StartTime,
				StartSampleOrFrame: e.StartSampleOrFrame,
				StartSegment:       e.SegmentNumber,
			}
		}
	}

	if cur != nil {
		closeContiguon(cur, entries[endIdx])
		out = append(out, *cur)
	}

	if variableFrequency {
		for i := range out {
			out[i].StartSampleOrFrame = sentinelNoEntry
			out[i].EndSampleOrFrame = sentinelNoEntry
		}
	}

	return out
}

// sentinelNoEntry mirrors sentinel.SampleNumberNoEntry; duplicated as a
// constant here rather than importing sentinel, since this
// package only ever needs the one value and avoiding the import keeps
// contig decoupled from the session-level sentinel vocabulary.
const sentinelNoEntry int64 = -1

// Trim clamps the first contiguon's start and the last contiguon's end
// to the caller's requested [sliceStart, sliceEnd] time bounds (spec.md
// §4.6: "trim the first and last contiguon's bounds to the caller's
// slice"). Interior contiguons are untouched.
func Trim(contigua []Contiguon, sliceStart, sliceEnd int64) []Contiguon {
	if len(contigua) == 0 {
		return contigua
	}

	if contigua[0].StartTime < sliceStart {
		contigua[0].StartTime = sliceStart
	}

	last := len(contigua) - 1
	if contigua[last].EndTime > sliceEnd {
		contigua[last].EndTime = sliceEnd
	}

	return contigua
}

func closeContiguon(c *Contiguon, end Entry) {
	c.EndTime = end.StartTime
	c.EndSampleOrFrame = end.StartSampleOrFrame
	c.EndSegment = end.SegmentNumber
}

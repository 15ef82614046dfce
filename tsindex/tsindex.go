// Package tsindex implements find_index (spec.md §4.4): locating the
// compressed block (or video frame cluster) containing a target time or
// sample/frame number within a single segment's index table, by jumping
// to an estimated position and linearly walking to the exact block.
package tsindex

import "github.com/MEDFormat/MEDC-sub000/errs"

// Entry is one fixed 24-byte index record (spec.md §3 "Index entries").
// FileOffset < 0 marks a discontinuity at the transition into this
// entry's block; the real offset is |FileOffset|. The final entry in a
// Table is a terminal "one past the last" sentinel: its
// StartSampleOrFrame equals the segment's total sample/frame count.
type Entry struct {
	FileOffset         int64
	StartTime          int64
	StartSampleOrFrame int64
}

// Mode selects which of an Entry's two coordinate spaces FindIndex
// searches in, supporting both time-series (i64 sample numbers) and
// video (u32 frame numbers, widened to int64) index layouts.
type Mode uint8

const (
	ModeTime Mode = iota
	ModeSampleOrFrame
)

// FindIndex returns the index of the entry whose block contains target.
// segStart and blockSize (block duration in the time-series case, block
// sample/frame count in the video case) estimate a starting position via
// direct jump; a linear walk then corrects for blocks of uneven size.
// When noOverflows is true, a target past the terminal entry returns
// errs.ErrSegmentNotFound instead of clamping to the last real entry.
func FindIndex(entries []Entry, target, segStart, blockSize int64, mode Mode, noOverflows bool) (int, error) {
	n := len(entries)
	if n < 2 {
		return 0, errs.Wrap("tsindex.FindIndex", errs.ErrInvalidIndexEntry)
	}

	lastReal := n - 2 // entries[n-1] is the terminal sentinel

	jump := 0
	if blockSize > 0 {
		jump = int((target-segStart)/blockSize) + 1
	}
	if jump < 0 {
		jump = 0
	}
	if jump > lastReal {
		jump = lastReal
	}

	idx := jump
	for idx < lastReal && start(entries[idx+1], mode) <= target {
		idx++
	}
	for idx > 0 && start(entries[idx], mode) > target {
		idx--
	}

	if idx == lastReal && start(entries[n-1], mode) <= target {
		if noOverflows {
			return 0, errs.Wrap("tsindex.FindIndex", errs.ErrSegmentNotFound)
		}

		return lastReal, nil
	}

	return idx, nil
}

func start(e Entry, mode Mode) int64 {
	if mode == ModeTime {
		return e.StartTime
	}

	return e.StartSampleOrFrame
}

// BlockOffset returns the real byte offset of entry, resolving the
// negative-offset discontinuity encoding (spec.md §3).
func BlockOffset(e Entry) (offset int64, discontinuity bool) {
	if e.FileOffset < 0 {
		return -e.FileOffset, true
	}

	return e.FileOffset, false
}

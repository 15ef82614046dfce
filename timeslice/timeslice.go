// Package timeslice implements MED's TimeSlice value (spec.md §3) and the
// conditioning step that normalizes caller-supplied bounds into the
// canonical form segment resolution expects (spec.md §4.3).
package timeslice

import "github.com/MEDFormat/MEDC-sub000/sentinel"

// TimeSlice selects a time or sample range across a session. Sample and
// frame numbering share storage, matching the source union: callers pick
// one numbering space per slice and leave the other at its NoEntry
// sentinel.
type TimeSlice struct {
	StartTime int64
	EndTime   int64

	StartSample int64
	EndSample   int64

	StartSegment int32
	EndSegment   int32

	NumberOfSegments int32

	Conditioned bool
}

// New returns the full-extent slice: BeginningOfTime..EndOfTime, every
// other field at its NoEntry sentinel.
func New() TimeSlice {
	return TimeSlice{
		StartTime:    sentinel.BeginningOfTime,
		EndTime:      sentinel.EndOfTime,
		StartSample:  sentinel.SampleNumberNoEntry,
		EndSample:    sentinel.SampleNumberNoEntry,
		StartSegment: sentinel.SegmentNumberNoEntry,
		EndSegment:   sentinel.SegmentNumberNoEntry,
	}
}

// IsEmpty reports whether the slice resolved to no data (spec.md §6
// EMPTY_SLICE).
func (s TimeSlice) IsEmpty() bool {
	return sentinel.EmptySlice(s.StartSegment, s.EndSegment)
}

// Condition implements condition_time_slice (spec.md §4.3). sessionStart
// is the session's session_start_time and recordingOffset is the
// session's recording_time_offset (both µs UTC). Condition is idempotent:
// calling it again on an already-conditioned slice is a no-op.
func (s TimeSlice) Condition(sessionStart, recordingOffset int64) TimeSlice {
	if s.Conditioned {
		return s
	}

	out := s

	if out.StartTime == sentinel.UUTCNoEntry && out.StartSample == sentinel.SampleNumberNoEntry {
		out.StartTime = sentinel.BeginningOfTime
	} else if out.StartTime != sentinel.UUTCNoEntry && out.StartTime <= 0 && !isTimeSentinel(out.StartTime) {
		// A non-positive, non-sentinel start_time is a session-relative
		// offset: "N microseconds before session start".
		out.StartTime = sessionStart + out.StartTime
	} else if out.StartTime-recordingOffset > 0 {
		// The caller passed an un-offset wall-clock µUTC; remove the
		// recording-time offset to land in the session's internal clock.
		out.StartTime -= recordingOffset
	}

	if out.EndTime == sentinel.UUTCNoEntry && out.EndSample == sentinel.SampleNumberNoEntry {
		out.EndTime = sentinel.EndOfTime
	} else if out.EndTime != sentinel.UUTCNoEntry && out.EndTime <= 0 && !isTimeSentinel(out.EndTime) {
		out.EndTime = sessionStart + out.EndTime
	} else if out.EndTime-recordingOffset > 0 {
		out.EndTime -= recordingOffset
	}

	out.Conditioned = true

	return out
}

func isTimeSentinel(t int64) bool {
	return t == sentinel.BeginningOfTime || t == sentinel.EndOfTime || t == sentinel.UUTCNoEntry
}

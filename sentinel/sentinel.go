// Package sentinel defines the reserved values MED uses in place of option
// types across time, sample, segment, and UID fields (spec.md §6
// "Sentinels"). They are shared by every package that touches TimeSlice,
// Sgmt, or index entries so "no entry" and "whole recording" have one
// definition each.
package sentinel

const (
	// UUTCNoEntry marks an unset microsecond-UTC timestamp field.
	UUTCNoEntry int64 = -1

	// SampleNumberNoEntry marks an unset sample-number field.
	SampleNumberNoEntry int64 = -1

	// FrameNumberNoEntry marks an unset video frame-number field.
	FrameNumberNoEntry int64 = -1

	// SegmentNumberNoEntry marks an unresolved/absent segment number.
	SegmentNumberNoEntry int32 = -1

	// UIDNoEntry marks an unset 64-bit UID field.
	UIDNoEntry uint64 = 0

	// CRCNoEntry marks a CRC field that was never computed.
	CRCNoEntry uint32 = 0xFFFFFFFF

	// FrequencyNoEntry marks an unset sampling-frequency field.
	FrequencyNoEntry float64 = -1

	// FrequencyVariable marks a channel with no fixed sampling frequency.
	FrequencyVariable float64 = -2

	// BeginningOfTime selects the extreme low end of a recording's extent.
	BeginningOfTime int64 = -(1 << 62)

	// EndOfTime selects the extreme high end of a recording's extent.
	EndOfTime int64 = 1 << 62

	// EndOfSampleNumbers selects the extreme high end of a recording's
	// sample range (the sample-space analogue of EndOfTime).
	EndOfSampleNumbers int64 = 1 << 62
)

// EmptySlice reports whether a resolved segment range is the canonical
// "no data" result: both bounds collapsed to SegmentNumberNoEntry.
func EmptySlice(startSegment, endSegment int32) bool {
	return startSegment == SegmentNumberNoEntry && endSegment == SegmentNumberNoEntry
}

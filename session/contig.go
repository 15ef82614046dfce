package session

import (
	"github.com/MEDFormat/MEDC-sub000/contig"
	"github.com/MEDFormat/MEDC-sub000/format"
)

// ContiguousRuns implements spec.md §4.6 for a mapped channel: it walks
// every opened segment's index entries in segment-number order and
// returns the maximal gap-free runs within ch.Slice, trimmed to the
// slice's bounds. A sparse (unopened) segment within the mapped range
// forces a discontinuity, the same as a negative-offset index marker
// within one segment's own entries.
func (ch *Channel) ContiguousRuns() ([]contig.Contiguon, error) {
	var entries []contig.Entry

	for _, seg := range ch.Segments {
		if seg == nil {
			entries = append(entries, contig.Entry{Missing: true})
			continue
		}
		if seg.IndexFPS == nil {
			continue
		}

		idx := parseIndexEntries(seg.IndexFPS.Data())
		if len(idx) < 2 {
			continue
		}

		// A segment's own terminal "one past the last" entry is kept: it
		// either closes the run (the last mapped segment, where it
		// becomes entries[endIdx]) or seamlessly links into the next
		// segment's first entry when the recording continues across the
		// boundary without a gap.
		for _, e := range idx {
			entries = append(entries, contig.Entry{Entry: e, SegmentNumber: seg.Number})
		}
	}

	if len(entries) < 2 {
		return nil, nil
	}

	variableFrequency := ch.TypeCode == format.TypeVideoChannel

	runs := contig.Build(entries, 0, len(entries)-1, variableFrequency)
	return contig.Trim(runs, ch.Slice.StartTime, ch.Slice.EndTime), nil
}

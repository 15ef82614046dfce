package session

import (
	"iter"

	"github.com/MEDFormat/MEDC-sub000/aes128"
	"github.com/MEDFormat/MEDC-sub000/cmp"
	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/endian"
	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/MEDFormat/MEDC-sub000/medlog"
	"github.com/MEDFormat/MEDC-sub000/password"
	"github.com/MEDFormat/MEDC-sub000/sentinel"
	"github.com/MEDFormat/MEDC-sub000/tsindex"
)

// indexEntryBytes is the fixed width of one .tidx/.vidx record
// (tsindex.Entry: file_offset, start_time, start_sample_or_frame, all i64).
const indexEntryBytes = 24

// parseIndexEntries decodes a segment's index file into fixed entries.
func parseIndexEntries(data []byte) []tsindex.Entry {
	e := endian.GetLittleEndianEngine()
	n := len(data) / indexEntryBytes

	out := make([]tsindex.Entry, n)
	for i := 0; i < n; i++ {
		rec := data[i*indexEntryBytes : (i+1)*indexEntryBytes]
		out[i] = tsindex.Entry{
			FileOffset:         int64(e.Uint64(rec[0:8])),
			StartTime:          int64(e.Uint64(rec[8:16])),
			StartSampleOrFrame: int64(e.Uint64(rec[16:24])),
		}
	}

	return out
}

// roundKeyFor picks the AES round keys matching a block's encryption
// level, or nil if the block isn't encrypted at a level we hold keys for.
func roundKeyFor(level format.EncryptionLevel, rk *password.Keys) *aes128.RoundKeys {
	if rk == nil {
		return nil
	}

	switch level {
	case format.EncryptionLevel1:
		return rk.L1
	case format.EncryptionLevel2:
		return rk.L2
	default:
		return nil
	}
}

// ReadSegment decodes every CMP block in seg covering [startSample,
// endSample], trimming the first and last block's samples to that
// range, and returns the merged values alongside the sample number the
// first returned value corresponds to.
// A block whose CRC fails to validate is skipped rather than failing the
// whole segment read (spec.md §4.1/§7: warn, continue), unless crcMode is
// crc32x.ModeOff, in which case blocks are never checked.
func ReadSegment(seg *Segment, startSample, endSample int64, rk *password.Keys, crcMode crc32x.Mode) (firstSample int64, values []int64, err error) {
	if seg.DataFPS == nil || seg.IndexFPS == nil {
		return 0, nil, nil
	}

	entries := parseIndexEntries(seg.IndexFPS.Data())
	if len(entries) < 2 {
		return 0, nil, errs.Wrap("session.ReadSegment", errs.ErrInvalidIndexEntry)
	}

	if startSample == sentinel.SampleNumberNoEntry {
		startSample = entries[0].StartSampleOrFrame
	}
	if endSample == sentinel.SampleNumberNoEntry {
		endSample = entries[len(entries)-1].StartSampleOrFrame - 1
	}

	startIdx, err := tsindex.FindIndex(entries, startSample, entries[0].StartSampleOrFrame, 0, tsindex.ModeSampleOrFrame, false)
	if err != nil {
		return 0, nil, errs.Wrap("session.ReadSegment", err)
	}
	endIdx, err := tsindex.FindIndex(entries, endSample, entries[0].StartSampleOrFrame, 0, tsindex.ModeSampleOrFrame, false)
	if err != nil {
		endIdx = len(entries) - 2
	}

	data := seg.DataFPS.Data()
	var out []int64
	var first int64 = sentinel.SampleNumberNoEntry

	for i := startIdx; i <= endIdx; i++ {
		off, _ := tsindex.BlockOffset(entries[i])

		blockEnd := int64(len(data))
		if i+1 < len(entries) {
			if nextOff, _ := tsindex.BlockOffset(entries[i+1]); nextOff > off {
				blockEnd = nextOff
			}
		}
		if off < 0 || off >= int64(len(data)) || blockEnd > int64(len(data)) {
			continue
		}

		raw := append([]byte(nil), data[off:blockEnd]...)

		blk, perr := cmp.Parse(raw)
		if perr != nil {
			return 0, nil, errs.Wrap("session.ReadSegment", perr)
		}

		valid, verr := cmp.ValidateCRC(raw, blk.Header, crcMode)
		if verr != nil {
			return 0, nil, errs.Wrap("session.ReadSegment", verr)
		}
		if !valid {
			got := crc32x.Calculate(raw[4:blk.Header.TotalBlockBytes])
			medlog.WarnCRCMismatch("cmp.block", seg.Path, got, blk.Header.BlockCRC)
			continue
		}

		if err := cmp.Decrypt(raw, blk.Header, roundKeyFor(blk.Header.EncryptionLevel(), rk)); err != nil {
			return 0, nil, errs.Wrap("session.ReadSegment", err)
		}

		samples, derr := cmp.Decode(blk)
		if derr != nil {
			return 0, nil, errs.Wrap("session.ReadSegment", derr)
		}

		blockStartSample := entries[i].StartSampleOrFrame
		lo, hi := 0, len(samples)
		if blockStartSample < startSample {
			lo = int(startSample - blockStartSample)
		}
		if blockStartSample+int64(len(samples)) > endSample+1 {
			hi = int(endSample + 1 - blockStartSample)
		}
		if lo < 0 {
			lo = 0
		}
		if hi > len(samples) {
			hi = len(samples)
		}
		if lo >= hi {
			continue
		}

		if first == sentinel.SampleNumberNoEntry {
			first = blockStartSample + int64(lo)
		}
		out = append(out, samples[lo:hi]...)
	}

	return first, out, nil
}

// ReadTimeSeriesData implements the read pipeline (spec.md §2): it walks
// ch's mapped segments in order, decoding each one's blocks within ch's
// resolved slice and yielding (sample_number, value) pairs merged across
// segments. Iteration stops early, without signaling an error through
// the sequence, on the first segment that fails to decode; callers that
// need the failure reason should call ReadSegment directly instead.
func (ch *Channel) ReadTimeSeriesData(rk *password.Keys) iter.Seq2[int64, int64] {
	return func(yield func(int64, int64) bool) {
		for _, seg := range ch.Segments {
			if seg == nil {
				continue
			}

			first, values, err := ReadSegment(seg, ch.Slice.StartSample, ch.Slice.EndSample, rk, ch.CRCMode)
			if err != nil {
				return
			}

			for i, v := range values {
				if !yield(first+int64(i), v) {
					return
				}
			}
		}
	}
}

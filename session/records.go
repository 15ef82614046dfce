package session

import (
	"github.com/MEDFormat/MEDC-sub000/aes128"
	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/MEDFormat/MEDC-sub000/fps"
	"github.com/MEDFormat/MEDC-sub000/password"
	"github.com/MEDFormat/MEDC-sub000/records"
)

// openSegmentRecords opens a segment's optional record-index/record-data
// FPSes (SPEC_FULL.md §4.9). Absent files are not an error: not every
// segment carries a record stream.
func openSegmentRecords(seg *Segment, segDir string, crcMode crc32x.Mode) error {
	if idxPath, ok := findFileWithExt(segDir, format.TypeRecordIndex.Extension()); ok {
		seg.RecordIndexFPS = fps.Allocate(idxPath, format.TypeRecordIndex, fps.FullFile, nil, 0, fps.WithCRCMode(crcMode))
		if err := seg.RecordIndexFPS.Open(fps.ModeRead, fps.LockShared); err != nil {
			return errs.Wrap("session.openSegmentRecords", err)
		}
		if err := seg.RecordIndexFPS.Read(0, 0, 0, 0, fps.ReadFlags{}); err != nil {
			return errs.Wrap("session.openSegmentRecords", err)
		}
	}

	if datPath, ok := findFileWithExt(segDir, format.TypeRecordData.Extension()); ok {
		seg.RecordDataFPS = fps.Allocate(datPath, format.TypeRecordData, fps.FullFile, nil, 0, fps.WithCRCMode(crcMode))
		if err := seg.RecordDataFPS.Open(fps.ModeRead, fps.LockShared); err != nil {
			return errs.Wrap("session.openSegmentRecords", err)
		}
		if err := seg.RecordDataFPS.Read(0, 0, 0, 0, fps.ReadFlags{}); err != nil {
			return errs.Wrap("session.openSegmentRecords", err)
		}
	}

	return nil
}

// recordKeys adapts a password.Keys into the anonymous L1/L2 shape
// records.DecryptBody expects.
func recordKeys(rk *password.Keys) *struct {
	L1 *aes128.RoundKeys
	L2 *aes128.RoundKeys
} {
	if rk == nil {
		return nil
	}

	return &struct {
		L1 *aes128.RoundKeys
		L2 *aes128.RoundKeys
	}{L1: rk.L1, L2: rk.L2}
}

// ReadSegmentRecords decodes seg's record-data stream (SPEC_FULL.md
// §4.9): whole-stream decompression per Section1.RecordDataCompression,
// then per-record CRC validation and decryption. Returns (nil, nil) for
// a segment that carries no record-data file.
func ReadSegmentRecords(seg *Segment, rk *password.Keys, crcMode crc32x.Mode) ([]records.Record, error) {
	if seg.RecordDataFPS == nil {
		return nil, nil
	}

	recs, err := records.ReadRecordData(seg.RecordDataFPS.Data(), seg.Section1.RecordDataCompression, crcMode)
	if err != nil {
		return nil, errs.Wrap("session.ReadSegmentRecords", err)
	}

	keys := recordKeys(rk)
	for i := range recs {
		if err := records.DecryptBody(&recs[i], keys); err != nil {
			return nil, errs.Wrap("session.ReadSegmentRecords", err)
		}
	}

	return recs, nil
}

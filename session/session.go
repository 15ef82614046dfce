// Package session implements the Session/Channel/Segment tree and the
// eight-step open pipeline (spec.md §4.7): discovering a session's channel
// directories, partitioning them by the caller's include/map-all flags,
// resolving a requested TimeSlice into a segment range via the reference
// channel's Sgmt array, opening only the segments that range covers, and
// optionally merging per-channel metadata into session-level ephemeral
// aggregates.
package session

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/MEDFormat/MEDC-sub000/config"
	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/MEDFormat/MEDC-sub000/fps"
	"github.com/MEDFormat/MEDC-sub000/internal/hash"
	"github.com/MEDFormat/MEDC-sub000/medctx"
	"github.com/MEDFormat/MEDC-sub000/metadata"
	"github.com/MEDFormat/MEDC-sub000/password"
	"github.com/MEDFormat/MEDC-sub000/sentinel"
	"github.com/MEDFormat/MEDC-sub000/sgmt"
	"github.com/MEDFormat/MEDC-sub000/timeslice"
	"github.com/MEDFormat/MEDC-sub000/uheader"
)

// metadataFileBytes is the fixed size of a .tmet/.vmet file: the Universal
// Header followed by sections 1, 2, and 3 back to back (metadata package
// doc comment).
const metadataFileBytes = uheader.Size + metadata.Section1Bytes + metadata.Section2Bytes + metadata.Section3Bytes

// Segment is one leaf of the tree: a single numbered recording interval
// within a channel, with its own metadata and (lazily opened) data/index
// FPSes (spec.md §3 "Session / Channel / Segment").
type Segment struct {
	Number int32
	Path   string

	Header     uheader.Header
	Section1   metadata.Section1
	TimeSeries metadata.Section2TimeSeries
	Video      metadata.Section2Video
	Section3   metadata.Section3

	MetadataFPS    *fps.FPS
	IndexFPS       *fps.FPS
	DataFPS        *fps.FPS
	RecordDataFPS  *fps.FPS
	RecordIndexFPS *fps.FPS

	Slice          timeslice.TimeSlice
	LastAccessTime int64
}

// Channel is a time-series or video channel directory: it owns a sparse
// array of Segments, indexed by segment_number minus
// FirstMappedSegmentNumber, plus the Sgmt summary array used to resolve
// slices without opening every segment (spec.md §3, §4.3).
type Channel struct {
	TypeCode format.FileTypeCode
	Name     string
	Path     string
	Active   bool

	Header uheader.Header

	Sgmts                    []sgmt.Sgmt
	segmentDirs              []string
	Segments                 []*Segment
	FirstMappedSegmentNumber int32

	Slice          timeslice.TimeSlice
	LastAccessTime int64

	// CRCMode is the strictness this channel's segments were opened with;
	// ReadTimeSeriesData reuses it so a corrupt block degrades gracefully
	// instead of failing the whole read (spec.md §4.1/§7).
	CRCMode crc32x.Mode
}

// segmentAt returns ch's segment for segNum, or nil if it falls outside
// the sparse mapped range.
func (ch *Channel) segmentAt(segNum int32) *Segment {
	idx := int(segNum - ch.FirstMappedSegmentNumber)
	if idx < 0 || idx >= len(ch.Segments) {
		return nil
	}

	return ch.Segments[idx]
}

// Session is the root of the tree: it exclusively owns its Channel
// vector (spec.md §3 "Ownership and lifecycle").
type Session struct {
	Path string
	UID  uint64

	Channels     []*Channel
	channelIndex map[uint64]*Channel
	Slice        timeslice.TimeSlice

	// Ephemeral is the session-level aggregate metadata generated by step
	// 8 of the open pipeline when GenerateEphemeralData is set; nil
	// otherwise. EphemeralUID tags that aggregate with its own synthesized
	// provenance UID, since it has no Universal Header to carry one.
	Ephemeral    *metadata.Section2TimeSeries
	EphemeralUID uint64

	// Keys are the AES round keys unlocked by the password Open was
	// called with, if any; ReadTimeSeriesData uses them to decrypt CMP
	// blocks that carry an encryption level.
	Keys *password.Keys

	LastAccessTime int64
}

// Channel looks up an open channel by directory base name (without
// extension), e.g. "eeg1", via an xxHash64-keyed index built once at
// Open time (the same O(1) hash-based lookup arloliu-mebo uses for its
// metric IDs, applied here to channel names).
func (s *Session) Channel(name string) *Channel {
	if s.channelIndex == nil {
		return nil
	}

	return s.channelIndex[hash.ID(name)]
}

// buildChannelIndex populates the xxHash64-keyed name index used by
// Channel. Collisions fall back to first-registered-wins, matching
// channels' own directory-listing order.
func buildChannelIndex(channels []*Channel) map[uint64]*Channel {
	idx := make(map[uint64]*Channel, len(channels))
	for _, ch := range channels {
		key := hash.ID(ch.Name)
		if _, exists := idx[key]; !exists {
			idx[key] = ch
		}
	}

	return idx
}

// Open implements the session open pipeline (spec.md §4.7, steps 1-8).
// inputPath may be a session directory, a channel directory, or a segment
// directory; Open ascends to the owning session directory as needed.
func Open(ctx *medctx.Context, inputPath string, slice timeslice.TimeSlice, pw string) (*Session, error) {
	sessionDir, err := normalize(inputPath)
	if err != nil {
		return nil, err
	}

	// Step 1/2/3: discover channel directories and partition by the
	// caller's include/map-all flags.
	channelDirs, err := discoverChannelDirs(sessionDir)
	if err != nil {
		return nil, err
	}

	channels := make([]*Channel, 0, len(channelDirs))
	for _, dir := range channelDirs {
		tc, _ := format.ExtensionToTypeCode(filepath.Ext(dir))

		include := wantsChannelType(ctx.Options.Flags, tc)
		if !include && !mapsAllChannelType(ctx.Options.Flags, tc) {
			continue
		}

		channels = append(channels, &Channel{
			TypeCode: tc,
			Name:     baseNameNoExt(dir),
			Path:     dir,
			Active:   include,
		})
	}

	active := activeChannels(channels)
	if len(active) == 0 {
		return nil, errs.Wrap("session.Open", errs.ErrNoMetadata)
	}

	// Step 4: global timing. The reference channel anchors recording_time
	// offset and the slice-resolving Sgmt array.
	ref := pickReferenceChannel(active, ctx.ReferenceChannel().ChannelName)
	refSgmts, refSegDirs, err := buildChannelSgmts(ref, ctx.Options.CRCMode)
	if err != nil {
		return nil, err
	}
	ref.Sgmts = refSgmts
	ref.segmentDirs = refSegDirs

	var sessionStart, recordingOffset int64
	var sessionUID uint64
	var keys *password.Keys
	if len(refSegDirs) > 0 {
		sum, err := readSegmentSummaryFull(refSegDirs[0], ref.TypeCode, ctx.Options.CRCMode)
		if err == nil {
			sessionStart = sum.Header.SessionStartTime
			recordingOffset = sum.Section3.RecordingTimeOffset
			sessionUID = sum.Header.SessionUID

			if sum.Section1.Section3Level != format.EncryptionNone && pw != "" {
				keys, _, _ = password.Process(pw, sum.Header.PasswordValidation)
			}
		}
	}

	// Step 5: condition the slice and resolve the session-wide segment
	// range against the reference channel.
	conditioned := slice.Condition(sessionStart, recordingOffset)
	startSeg, endSeg, empty := sgmt.ResolveRange(ref.Sgmts, conditioned)
	if empty {
		return nil, errs.Wrap("session.Open", errs.ErrEmptySlice)
	}
	conditioned.StartSegment, conditioned.EndSegment = startSeg, endSeg

	// Step 6: open_channel per active channel.
	for _, ch := range active {
		if err := openChannel(ch, conditioned, ctx.Options.Flags, ctx.Options.CRCMode); err != nil {
			return nil, err
		}
	}

	// Step 7: verify/intersect active channels' time bounds.
	sessionSlice := intersectSlices(active)

	sess := &Session{
		Path:         sessionDir,
		UID:          sessionUID,
		Channels:     channels,
		channelIndex: buildChannelIndex(channels),
		Slice:        sessionSlice,
		Keys:         keys,
	}

	// Step 8: ephemeral metadata merge. The merged Section2TimeSeries is a
	// synthesized data product with no Universal Header of its own, so it
	// gets a fresh provenance UID rather than borrowing any one channel's.
	if ctx.Options.Flags.Has(config.GenerateEphemeralData) {
		sess.Ephemeral = mergeEphemeral(active)
		sess.EphemeralUID = uheader.NewUID()
	}

	return sess, nil
}

// normalize ascends a channel or segment path to its owning session
// directory; a bare directory with no recognized extension is accepted
// as-is (spec.md §4.7 step 1).
func normalize(inputPath string) (string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", errs.Wrap("session.normalize", errs.ErrNoFile)
	}
	if !info.IsDir() {
		return "", errs.Wrap("session.normalize", errs.ErrNotMed)
	}

	tc, ok := format.ExtensionToTypeCode(filepath.Ext(inputPath))
	switch {
	case !ok, tc == format.TypeSession:
		return inputPath, nil
	case tc == format.TypeTimeSeriesChannel, tc == format.TypeVideoChannel:
		return filepath.Dir(inputPath), nil
	case tc == format.TypeTimeSeriesSegment, tc == format.TypeVideoSegment:
		return filepath.Dir(filepath.Dir(inputPath)), nil
	default:
		return "", errs.Wrap("session.normalize", errs.ErrNotMed)
	}
}

func discoverChannelDirs(sessionDir string) ([]string, error) {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return nil, errs.Wrap("session.discoverChannelDirs", errs.ErrNoFile)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if tc, ok := format.ExtensionToTypeCode(filepath.Ext(e.Name())); ok &&
			(tc == format.TypeTimeSeriesChannel || tc == format.TypeVideoChannel) {
			dirs = append(dirs, filepath.Join(sessionDir, e.Name()))
		}
	}
	sort.Strings(dirs)

	return dirs, nil
}

func discoverSegmentDirs(channelDir string, channelType format.FileTypeCode) ([]string, error) {
	entries, err := os.ReadDir(channelDir)
	if err != nil {
		return nil, errs.Wrap("session.discoverSegmentDirs", errs.ErrNoFile)
	}

	want := format.TypeTimeSeriesSegment
	if channelType == format.TypeVideoChannel {
		want = format.TypeVideoSegment
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if tc, ok := format.ExtensionToTypeCode(filepath.Ext(e.Name())); ok && tc == want {
			dirs = append(dirs, filepath.Join(channelDir, e.Name()))
		}
	}
	sort.Strings(dirs)

	return dirs, nil
}

func findFileWithExt(dir, ext string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ext {
			return filepath.Join(dir, e.Name()), true
		}
	}

	return "", false
}

func baseNameNoExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func wantsChannelType(flags config.OpenFlags, tc format.FileTypeCode) bool {
	switch tc {
	case format.TypeTimeSeriesChannel:
		return flags.Has(config.IncludeTimeSeriesChannels)
	case format.TypeVideoChannel:
		return flags.Has(config.IncludeVideoChannels)
	default:
		return false
	}
}

// mapsAllChannelType implements MAP_ALL_*_CHANNELS: a channel type is
// enumerated into the tree (but left inactive) even when its
// INCLUDE_*_CHANNELS flag is unset.
func mapsAllChannelType(flags config.OpenFlags, tc format.FileTypeCode) bool {
	switch tc {
	case format.TypeTimeSeriesChannel:
		return flags.Has(config.MapAllTimeSeriesChannels)
	case format.TypeVideoChannel:
		return flags.Has(config.MapAllVideoChannels)
	default:
		return false
	}
}

func activeChannels(channels []*Channel) []*Channel {
	var out []*Channel
	for _, ch := range channels {
		if ch.Active {
			out = append(out, ch)
		}
	}

	return out
}

// pickReferenceChannel honors an explicitly configured reference channel
// name when present among the active set; otherwise it falls back to the
// first active channel, preferring time-series channels (spec.md §3: the
// reference channel anchors time/sample numbering for the whole session).
func pickReferenceChannel(active []*Channel, wantName string) *Channel {
	if wantName != "" {
		for _, ch := range active {
			if ch.Name == wantName {
				return ch
			}
		}
	}

	for _, ch := range active {
		if ch.TypeCode == format.TypeTimeSeriesChannel {
			return ch
		}
	}

	return active[0]
}

// buildChannelSgmts scans every segment directory under channelDir and
// builds the channel's Sgmt summary array without opening segment data
// (spec.md §4.3 "Sgmt array build").
func buildChannelSgmts(ch *Channel, crcMode crc32x.Mode) ([]sgmt.Sgmt, []string, error) {
	segDirs, err := discoverSegmentDirs(ch.Path, ch.TypeCode)
	if err != nil {
		return nil, nil, err
	}

	metaExt := format.TypeTimeSeriesMetadata.Extension()
	if ch.TypeCode == format.TypeVideoChannel {
		metaExt = format.TypeVideoMetadata.Extension()
	}

	sgmts := make([]sgmt.Sgmt, 0, len(segDirs))
	dirs := make([]string, 0, len(segDirs))
	for _, segDir := range segDirs {
		metaPath, ok := findFileWithExt(segDir, metaExt)
		if !ok {
			continue
		}

		header, _, s2, _, err := readSegmentSummary(metaPath, ch.TypeCode, crcMode)
		if err != nil {
			return nil, nil, err
		}

		s := sgmt.Sgmt{
			StartTime:          header.SegmentStartTime,
			EndTime:            header.SegmentEndTime,
			StartSampleOrFrame: sentinel.SampleNumberNoEntry,
			EndSampleOrFrame:   sentinel.SampleNumberNoEntry,
			SamplingFrequency:  sentinel.FrequencyNoEntry,
			UID:                header.SegmentUID,
			SegmentNumber:      header.SegmentNumber,
		}
		if ch.TypeCode == format.TypeTimeSeriesChannel {
			s.StartSampleOrFrame = s2.AbsoluteStartSampleNumber
			s.EndSampleOrFrame = s2.AbsoluteStartSampleNumber + s2.NumberOfSamples - 1
			s.SamplingFrequency = s2.SamplingFrequency
		}

		sgmts = append(sgmts, s)
		dirs = append(dirs, metaPath)
	}

	sgmt.SortByStart(sgmts, sgmt.SelectSearchMode(timeslice.New()))

	return sgmts, dirs, nil
}

// segmentSummary bundles everything readSegmentSummary parses out of a
// metadata file in one pass.
type segmentSummary struct {
	Header   uheader.Header
	Section1 metadata.Section1
	TS       metadata.Section2TimeSeries
	Video    metadata.Section2Video
	Section3 metadata.Section3
}

// readSegmentSummary opens a segment's metadata file and parses its
// Universal Header and three sections.
func readSegmentSummary(metaPath string, channelType format.FileTypeCode, crcMode crc32x.Mode) (uheader.Header, metadata.Section1, metadata.Section2TimeSeries, metadata.Section3, error) {
	sum, err := readSegmentSummaryFull(metaPath, channelType, crcMode)
	if err != nil {
		return uheader.Header{}, metadata.Section1{}, metadata.Section2TimeSeries{}, metadata.Section3{}, err
	}

	return sum.Header, sum.Section1, sum.TS, sum.Section3, nil
}

func readSegmentSummaryFull(metaPath string, channelType format.FileTypeCode, crcMode crc32x.Mode) (segmentSummary, error) {
	tc := format.TypeTimeSeriesMetadata
	if channelType == format.TypeVideoChannel {
		tc = format.TypeVideoMetadata
	}

	f := fps.Allocate(metaPath, tc, fps.FullFile, nil, 0, fps.WithCRCMode(crcMode))
	if err := f.Open(fps.ModeRead, fps.LockShared); err != nil {
		return segmentSummary{}, errs.Wrap("session.readSegmentSummary", err)
	}
	if err := f.Read(0, 0, 0, 0, fps.ReadFlags{}); err != nil {
		return segmentSummary{}, errs.Wrap("session.readSegmentSummary", err)
	}

	data := f.Data()
	if len(data) < metadataFileBytes-uheader.Size {
		return segmentSummary{}, errs.Wrap("session.readSegmentSummary", errs.ErrCorruptBlock)
	}

	s1, err := metadata.ParseSection1(data[:metadata.Section1Bytes])
	if err != nil {
		return segmentSummary{}, errs.Wrap("session.readSegmentSummary", err)
	}

	s2Off := metadata.Section1Bytes
	s3Off := s2Off + metadata.Section2Bytes

	sum := segmentSummary{Header: f.Header, Section1: s1}

	if channelType == format.TypeVideoChannel {
		sum.Video, err = metadata.ParseSection2Video(data[s2Off : s2Off+metadata.Section2Bytes])
	} else {
		sum.TS, err = metadata.ParseSection2TimeSeries(data[s2Off : s2Off+metadata.Section2Bytes])
	}
	if err != nil {
		return segmentSummary{}, errs.Wrap("session.readSegmentSummary", err)
	}

	sum.Section3, err = metadata.ParseSection3(data[s3Off : s3Off+metadata.Section3Bytes])
	if err != nil {
		return segmentSummary{}, errs.Wrap("session.readSegmentSummary", err)
	}

	return sum, nil
}

// openChannel resolves ch's own segment range against slice and opens
// every segment it covers, sparsely (spec.md §4.7 step 6).
func openChannel(ch *Channel, slice timeslice.TimeSlice, flags config.OpenFlags, crcMode crc32x.Mode) error {
	if ch.Sgmts == nil {
		sgmts, dirs, err := buildChannelSgmts(ch, crcMode)
		if err != nil {
			return err
		}
		ch.Sgmts = sgmts
		ch.segmentDirs = dirs
	}

	startSeg, endSeg, empty := sgmt.ResolveRange(ch.Sgmts, slice)
	if empty {
		ch.Slice = slice
		ch.Slice.StartSegment, ch.Slice.EndSegment = sentinel.SegmentNumberNoEntry, sentinel.SegmentNumberNoEntry
		return nil
	}

	// MAP_ALL_SEGMENTS widens the sparse array to span every segment the
	// channel has, not just the ones the slice covers; segments outside
	// the slice stay mapped (a non-nil slot is not guaranteed) but
	// unopened, matching spec.md §3's "NULLs allowed" sparse array.
	firstSeg, lastSeg := startSeg, endSeg
	if flags.Has(config.MapAllSegments) && len(ch.Sgmts) > 0 {
		firstSeg, lastSeg = ch.Sgmts[0].SegmentNumber, ch.Sgmts[0].SegmentNumber
		for _, s := range ch.Sgmts {
			if s.SegmentNumber < firstSeg {
				firstSeg = s.SegmentNumber
			}
			if s.SegmentNumber > lastSeg {
				lastSeg = s.SegmentNumber
			}
		}
	}

	ch.FirstMappedSegmentNumber = firstSeg
	ch.Segments = make([]*Segment, int(lastSeg-firstSeg)+1)

	segDirs, err := discoverSegmentDirs(ch.Path, ch.TypeCode)
	if err != nil {
		return err
	}

	metaExt := format.TypeTimeSeriesMetadata.Extension()
	if ch.TypeCode == format.TypeVideoChannel {
		metaExt = format.TypeVideoMetadata.Extension()
	}

	for _, s := range ch.Sgmts {
		if s.SegmentNumber < startSeg || s.SegmentNumber > endSeg {
			continue
		}

		segDir := findSegmentDirByUID(segDirs, ch.TypeCode, s, crcMode)
		if segDir == "" {
			continue
		}

		seg, err := openSegment(segDir, ch.TypeCode, metaExt, crcMode)
		if err != nil {
			return err
		}
		seg.Number = s.SegmentNumber

		ch.Segments[int(s.SegmentNumber-firstSeg)] = seg
		if ch.Header.ChannelUID == 0 {
			ch.Header = seg.Header
		}
	}

	ch.Slice = slice
	ch.Slice.StartSegment, ch.Slice.EndSegment = startSeg, endSeg
	ch.CRCMode = crcMode

	return nil
}

// findSegmentDirByUID matches a Sgmt entry back to its directory by
// reading each candidate's segment UID cheaply (header-only read),
// stopping at the first match.
func findSegmentDirByUID(segDirs []string, channelType format.FileTypeCode, want sgmt.Sgmt, crcMode crc32x.Mode) string {
	metaExt := format.TypeTimeSeriesMetadata.Extension()
	if channelType == format.TypeVideoChannel {
		metaExt = format.TypeVideoMetadata.Extension()
	}

	for _, dir := range segDirs {
		metaPath, ok := findFileWithExt(dir, metaExt)
		if !ok {
			continue
		}

		h, err := headerOnly(metaPath, channelType, crcMode)
		if err != nil {
			continue
		}
		if h.SegmentUID == want.UID {
			return dir
		}
	}

	return ""
}

func headerOnly(metaPath string, channelType format.FileTypeCode, crcMode crc32x.Mode) (uheader.Header, error) {
	tc := format.TypeTimeSeriesMetadata
	if channelType == format.TypeVideoChannel {
		tc = format.TypeVideoMetadata
	}

	f := fps.Allocate(metaPath, tc, fps.UniversalHeaderOnly, nil, 0, fps.WithCRCMode(crcMode))
	if err := f.Open(fps.ModeRead, fps.LockShared); err != nil {
		return uheader.Header{}, errs.Wrap("session.headerOnly", err)
	}
	defer f.Close()

	if err := f.Read(0, 0, 0, 0, fps.ReadFlags{HeaderOnly: true}); err != nil {
		return uheader.Header{}, errs.Wrap("session.headerOnly", err)
	}

	return f.Header, nil
}

// openSegment opens a single segment's metadata, index, and data FPSes.
// Index and data FPSes are opened and read in full here; ReadSegment
// decodes from those in-memory buffers.
func openSegment(segDir string, channelType format.FileTypeCode, metaExt string, crcMode crc32x.Mode) (*Segment, error) {
	metaPath, ok := findFileWithExt(segDir, metaExt)
	if !ok {
		return nil, errs.Wrap("session.openSegment", errs.ErrNoMetadata)
	}

	sum, err := readSegmentSummaryFull(metaPath, channelType, crcMode)
	if err != nil {
		return nil, err
	}

	seg := &Segment{
		Path:       segDir,
		Header:     sum.Header,
		Section1:   sum.Section1,
		TimeSeries: sum.TS,
		Video:      sum.Video,
		Section3:   sum.Section3,
	}

	if channelType == format.TypeTimeSeriesChannel {
		if idxPath, ok := findFileWithExt(segDir, format.TypeTimeSeriesIndex.Extension()); ok {
			seg.IndexFPS = fps.Allocate(idxPath, format.TypeTimeSeriesIndex, fps.FullFile, nil, 0, fps.WithCRCMode(crcMode))
			if err := seg.IndexFPS.Open(fps.ModeRead, fps.LockShared); err != nil {
				return nil, errs.Wrap("session.openSegment", err)
			}
			if err := seg.IndexFPS.Read(0, 0, 0, 0, fps.ReadFlags{}); err != nil {
				return nil, errs.Wrap("session.openSegment", err)
			}
		}

		if datPath, ok := findFileWithExt(segDir, format.TypeTimeSeriesData.Extension()); ok {
			seg.DataFPS = fps.Allocate(datPath, format.TypeTimeSeriesData, fps.FullFile, nil, 0, fps.WithCRCMode(crcMode))
			if err := seg.DataFPS.Open(fps.ModeRead, fps.LockShared); err != nil {
				return nil, errs.Wrap("session.openSegment", err)
			}
			if err := seg.DataFPS.Read(0, 0, 0, 0, fps.ReadFlags{}); err != nil {
				return nil, errs.Wrap("session.openSegment", err)
			}
		}
	}

	if err := openSegmentRecords(seg, segDir, crcMode); err != nil {
		return nil, err
	}

	return seg, nil
}

// intersectSlices implements spec.md §4.7 step 7: the session's
// effective slice is the intersection of every active channel's resolved
// slice.
func intersectSlices(active []*Channel) timeslice.TimeSlice {
	out := active[0].Slice
	for _, ch := range active[1:] {
		if ch.Slice.StartTime > out.StartTime {
			out.StartTime = ch.Slice.StartTime
		}
		if ch.Slice.EndTime < out.EndTime {
			out.EndTime = ch.Slice.EndTime
		}
	}

	return out
}

// mergeEphemeral merges every open segment's time-series section 2
// (spec.md §4.7 step 8): a conflicting SamplingFrequency becomes
// FrequencyNoEntry, NumberOfSamples, MaximumBlockBytes and
// MaximumBlockSamples take the maximum, and AbsoluteStartSampleNumber
// takes the minimum. The other fields (filter settings, units conversion
// factor, number of blocks) keep the first open segment's value and are
// not compared.
func mergeEphemeral(active []*Channel) *metadata.Section2TimeSeries {
	var out metadata.Section2TimeSeries
	first := true

	for _, ch := range active {
		for _, seg := range ch.Segments {
			if seg == nil {
				continue
			}
			s2 := seg.TimeSeries

			if first {
				out = s2
				first = false
				continue
			}

			if out.SamplingFrequency != s2.SamplingFrequency {
				out.SamplingFrequency = sentinel.FrequencyNoEntry
			}
			if s2.NumberOfSamples > out.NumberOfSamples {
				out.NumberOfSamples = s2.NumberOfSamples
			}
			if s2.AbsoluteStartSampleNumber < out.AbsoluteStartSampleNumber {
				out.AbsoluteStartSampleNumber = s2.AbsoluteStartSampleNumber
			}
			if s2.MaximumBlockBytes > out.MaximumBlockBytes {
				out.MaximumBlockBytes = s2.MaximumBlockBytes
			}
			if s2.MaximumBlockSamples > out.MaximumBlockSamples {
				out.MaximumBlockSamples = s2.MaximumBlockSamples
			}
		}
	}

	if first {
		return nil
	}

	return &out
}

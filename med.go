// Package med provides a high-level, convenience API for reading
// Multiscale Electrophysiology Data (MED) sessions: multi-channel,
// multi-segment physiological recordings stored as a directory tree of
// compressed, optionally encrypted time-series and video blocks.
//
// # Core Features
//
//   - Directory-tree session discovery (session/channel/segment, spec.md §3)
//   - Sparse segment mapping driven by a caller-supplied time or sample slice
//   - Transparent CRC validation, AES-128 decryption, and CMP block decoding
//   - Ephemeral session-level metadata aggregation across active channels
//   - Functional options over the library's built-in OpenOptions defaults
//
// # Basic Usage
//
// Opening a session and reading one channel's full extent:
//
//	import "github.com/MEDFormat/MEDC-sub000"
//
//	sess, err := med.Open("/data/mysession.medd")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ch := sess.Channel("eeg1")
//	for sampleNumber, value := range ch.ReadTimeSeriesData(sess.Keys) {
//	    fmt.Println(sampleNumber, value)
//	}
//
// Opening a password-protected session restricted to a sample range:
//
//	sess, err := med.OpenSampleRangeWithPassword("/data/mysession.medd", 0, 10_000,
//	    "hunter2", med.WithVideoChannels(),
//	)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the session,
// medctx, and config packages, simplifying the most common use cases. For
// advanced usage — custom contexts shared across opens, direct segment
// reads, or fine-grained slice conditioning — use those packages directly.
package med

import (
	"fmt"

	"github.com/MEDFormat/MEDC-sub000/config"
	"github.com/MEDFormat/MEDC-sub000/internal/options"
	"github.com/MEDFormat/MEDC-sub000/medctx"
	"github.com/MEDFormat/MEDC-sub000/sentinel"
	"github.com/MEDFormat/MEDC-sub000/session"
	"github.com/MEDFormat/MEDC-sub000/timeslice"
)

// Option is a functional option for configuring an OpenOptions value
// layered over config.Defaults().
type Option = options.Option[*config.OpenOptions]

// WithVideoChannels enables INCLUDE_VIDEO_CHANNELS alongside whatever
// channel types Defaults() already includes.
func WithVideoChannels() Option {
	return options.NoError(func(o *config.OpenOptions) {
		o.Flags |= config.IncludeVideoChannels
	})
}

// WithoutTimeSeriesChannels disables INCLUDE_TIME_SERIES_CHANNELS, which
// Defaults() otherwise sets.
func WithoutTimeSeriesChannels() Option {
	return options.NoError(func(o *config.OpenOptions) {
		o.Flags &^= config.IncludeTimeSeriesChannels
	})
}

// WithMapAllSegments widens every opened channel's sparse segment array to
// span its full segment range, not just the segments a slice covers.
func WithMapAllSegments() Option {
	return options.NoError(func(o *config.OpenOptions) {
		o.Flags |= config.MapAllSegments
	})
}

// WithoutEphemeralData skips step 8 of the open pipeline, leaving
// Session.Ephemeral nil.
func WithoutEphemeralData() Option {
	return options.NoError(func(o *config.OpenOptions) {
		o.Flags &^= config.GenerateEphemeralData
	})
}

// WithIndexJumpPadding sets OpenOptions.IndexJumpPadding. Negative values
// are rejected. No open or read path in this module consults the value;
// ReadSegment's block search does not use it.
func WithIndexJumpPadding(n int) Option {
	return options.New(func(o *config.OpenOptions) error {
		if n < 0 {
			return fmt.Errorf("index jump padding must be non-negative, got %d", n)
		}
		o.IndexJumpPadding = n
		return nil
	})
}

// WithSgmtThresholdFraction sets OpenOptions.SgmtThresholdFraction. f must
// lie in [0, 1]. Segment-range resolution always binary searches the Sgmt
// array and does not consult this value.
func WithSgmtThresholdFraction(f float64) Option {
	return options.New(func(o *config.OpenOptions) error {
		if f < 0 || f > 1 {
			return fmt.Errorf("sgmt threshold fraction must be in [0, 1], got %v", f)
		}
		o.SgmtThresholdFraction = f
		return nil
	})
}

// WithOpenFileLimitBump sets OpenOptions.OpenFileLimitBump. Open does not
// change the process's open file descriptor limit and does not consult
// this value.
func WithOpenFileLimitBump(n int) Option {
	return options.NoError(func(o *config.OpenOptions) {
		o.OpenFileLimitBump = n
	})
}

func buildOptions(opts []Option) (config.OpenOptions, error) {
	out := config.Defaults()
	if err := options.Apply(&out, opts...); err != nil {
		return config.OpenOptions{}, err
	}

	return out, nil
}

// NewContext builds a medctx.Context from Defaults() plus opts, for
// callers that want to reuse one Context (and its Metrics bundle) across
// several Open calls.
func NewContext(opts ...Option) (*medctx.Context, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	return medctx.New(o), nil
}

// Open opens the MED session rooted at (or reachable by ascending from)
// path, mapping its full time extent with the library's default options.
// path may name a session, channel, or segment directory.
func Open(path string, opts ...Option) (*session.Session, error) {
	return OpenWithPassword(path, "", opts...)
}

// OpenWithPassword is Open plus a session password, used to unlock AES
// round keys when the session's reference channel reports an encryption
// level (spec.md §5).
func OpenWithPassword(path, pw string, opts ...Option) (*session.Session, error) {
	ctx, err := NewContext(opts...)
	if err != nil {
		return nil, err
	}

	return session.Open(ctx, path, timeslice.New(), pw)
}

// OpenSlice opens path restricted to the wall-clock range
// [startTime, endTime], both bounds inclusive, in the same microsecond
// UUTC units as MED's Universal Header timestamps.
func OpenSlice(path string, startTime, endTime int64, opts ...Option) (*session.Session, error) {
	ctx, err := NewContext(opts...)
	if err != nil {
		return nil, err
	}

	slice := timeslice.New()
	slice.StartTime, slice.EndTime = startTime, endTime

	return session.Open(ctx, path, slice, "")
}

// OpenSampleRange opens path restricted to the inclusive sample range
// [startSample, endSample], resolved against the reference channel's
// sample numbering.
func OpenSampleRange(path string, startSample, endSample int64, opts ...Option) (*session.Session, error) {
	return OpenSampleRangeWithPassword(path, startSample, endSample, "", opts...)
}

// OpenSampleRangeWithPassword is OpenSampleRange plus a session password.
func OpenSampleRangeWithPassword(path string, startSample, endSample int64, pw string, opts ...Option) (*session.Session, error) {
	ctx, err := NewContext(opts...)
	if err != nil {
		return nil, err
	}

	slice := timeslice.New()
	slice.StartSample, slice.EndSample = startSample, endSample

	return session.Open(ctx, path, slice, pw)
}

// FullExtent returns the full-extent TimeSlice (spec.md §3's
// BeginningOfTime..EndOfTime default), exposed for callers building a
// custom TimeSlice by hand.
func FullExtent() timeslice.TimeSlice {
	return timeslice.New()
}

// NoSample is the sentinel sample number meaning "no entry", re-exported
// for callers comparing against ReadSegment's firstSample return value.
const NoSample = sentinel.SampleNumberNoEntry

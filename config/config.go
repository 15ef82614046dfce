// Package config loads OpenOptions defaults from TOML files via koanf
// (SPEC_FULL.md §1.1 ambient stack), layered under the library's
// built-in defaults so a caller only needs to specify overrides.
package config

import (
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/errs"
)

// OpenFlags mirrors spec.md §6's caller-facing level-header bitfield.
type OpenFlags uint32

const (
	IncludeTimeSeriesChannels OpenFlags = 1 << iota
	IncludeVideoChannels
	MapAllTimeSeriesChannels
	MapAllVideoChannels
	MapAllSegments
	GenerateEphemeralData
	UpdateEphemeralData
	ReadSliceSessionRecords
	ReadFullSessionRecords
	MemMapSessionRecords
	ReadSliceSegmentData
	ReadFullSegmentData
	MemMapSegmentData
	ReadSegmentMetadata
)

// OpenOptions is the caller-tunable configuration for a session open
// (spec.md §4.7, §6). Fields not present in a loaded file keep their
// Defaults() value.
type OpenOptions struct {
	Flags                 OpenFlags   `koanf:"flags"`
	SgmtThresholdFraction float64     `koanf:"sgmt_threshold_fraction"`
	IndexJumpPadding      int         `koanf:"index_jump_padding"`
	OpenFileLimitBump     int         `koanf:"open_file_limit_bump"`
	CRCMode               crc32x.Mode `koanf:"crc_mode"`
}

// Defaults returns the library's built-in OpenOptions, matching
// spec.md's described default behavior: include time-series channels,
// generate ephemeral aggregate metadata, read only the requested slice.
func Defaults() OpenOptions {
	return OpenOptions{
		Flags:                 IncludeTimeSeriesChannels | GenerateEphemeralData | ReadSliceSegmentData,
		SgmtThresholdFraction: 0.1,
		IndexJumpPadding:      1,
		OpenFileLimitBump:     4096,
		CRCMode:               crc32x.ModeValidate,
	}
}

// Load layers a TOML file's contents over Defaults() via koanf, so a
// caller's config file only needs to name the fields it overrides.
func Load(path string) (OpenOptions, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return OpenOptions{}, errs.Wrap("config.Load", err)
	}

	// Unmarshal into an already-populated Defaults() value: koanf's
	// mapstructure-based decode only overwrites fields present in the
	// loaded file, leaving every other default untouched.
	out := Defaults()
	if err := k.Unmarshal("", &out); err != nil {
		return OpenOptions{}, errs.Wrap("config.Load", err)
	}

	return out, nil
}

// Has reports whether every bit in want is set in f.
func (f OpenFlags) Has(want OpenFlags) bool {
	return f&want == want
}

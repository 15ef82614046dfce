// Package errs defines the sentinel error values shared across the MED
// library and the small taxonomy of failure kinds spec.md §7 requires
// ("NoFile", "ReadErr", "WriteErr", "NotMed", "BadPassword", "NoMetadata",
// "NoInet").
//
// The source library recorded each failure in a process-wide "last error"
// slot carrying {code, function, line}. This package instead attaches that
// context to the error value itself via github.com/pkg/errors, so a Fault
// travels with its causing call and concurrent opens never clobber each
// other's diagnostics (spec.md §9 redesign note).
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the coarse failure categories from spec.md §7.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNoFile
	KindReadErr
	KindWriteErr
	KindNotMed
	KindBadPassword
	KindNoMetadata
	KindNoInet
)

func (k Kind) String() string {
	switch k {
	case KindNoFile:
		return "NoFile"
	case KindReadErr:
		return "ReadErr"
	case KindWriteErr:
		return "WriteErr"
	case KindNotMed:
		return "NotMed"
	case KindBadPassword:
		return "BadPassword"
	case KindNoMetadata:
		return "NoMetadata"
	case KindNoInet:
		return "NoInet"
	default:
		return "Unknown"
	}
}

// Sentinel errors. Compare with errors.Is; each is wrapped with call-site
// context by Wrap before it leaves the package that detected the failure.
var (
	ErrNoFile              = errors.New("med: file not found")
	ErrReadErr             = errors.New("med: read failed")
	ErrWriteErr            = errors.New("med: write failed")
	ErrNotMed              = errors.New("med: not a MED file or path")
	ErrBadPassword         = errors.New("med: password validation failed")
	ErrNoMetadata          = errors.New("med: metadata unavailable")
	ErrNoInet              = errors.New("med: network unavailable")
	ErrInvalidHeaderSize   = errors.New("med: invalid universal header size")
	ErrInvalidHeaderCRC    = errors.New("med: universal header CRC mismatch")
	ErrInvalidBodyCRC      = errors.New("med: body CRC mismatch")
	ErrTypeCodeMismatch    = errors.New("med: type code does not match path extension")
	ErrInvalidIndexEntry   = errors.New("med: invalid index entry")
	ErrSegmentNotFound     = errors.New("med: no segment contains the requested target")
	ErrEmptySlice          = errors.New("med: time slice resolved to no data")
	ErrMixedSessions       = errors.New("med: channels belong to different sessions")
	ErrUnsupportedEncoding = errors.New("med: unsupported CMP algorithm or parameter combination")
	ErrCorruptBlock        = errors.New("med: compressed block is malformed")
	ErrSectionEncrypted    = errors.New("med: metadata section is encrypted and not accessible at current level")
)

// kindFor maps the common sentinels to their spec.md §7 Kind for Fault
// construction convenience.
var kindFor = map[error]Kind{
	ErrNoFile:      KindNoFile,
	ErrReadErr:     KindReadErr,
	ErrWriteErr:    KindWriteErr,
	ErrNotMed:      KindNotMed,
	ErrBadPassword: KindBadPassword,
	ErrNoMetadata:  KindNoMetadata,
	ErrNoInet:      KindNoInet,
}

// Fault is the concrete shape of spec.md §7's {code, function, line}
// record, carried on the error value rather than in global state.
type Fault struct {
	Kind Kind
	Op   string // the failing operation, e.g. "fps.Open"
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Wrap annotates err with the operation name and, when err matches one of
// the package sentinels, its Kind. It also attaches a stack trace via
// github.com/pkg/errors so callers can recover {function, line} with
// errors.WithStack's formatting (%+v).
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := KindUnknown
	for sentinel, k := range kindFor {
		if errors.Is(err, sentinel) {
			kind = k
			break
		}
	}

	return errors.WithStack(&Fault{Kind: kind, Op: op, Err: err})
}

// Is reports whether err carries the given Kind, looking through any
// wrapping Fault.
func Is(err error, kind Kind) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind == kind
	}

	return false
}

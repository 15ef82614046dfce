// Package fps implements the File Processing Struct (spec.md §4.2): the
// single I/O primitive every MED file goes through, from allocation
// through open, read (full, header-only, partial, or memory-mapped), and
// reallocation.
//
// The source library scoped a non-thread-safe behavior_on_fail stack
// (push_behavior/pop_behavior) across an entire process. This package
// instead takes a FailPolicy as an explicit option on each call that can
// fail, so concurrent FPS users never observe each other's policy
// (spec.md §9 redesign note, the same approach errs.Fault takes for
// diagnostics).
package fps

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/MEDFormat/MEDC-sub000/crc32x"
	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/MEDFormat/MEDC-sub000/internal/pool"
	"github.com/MEDFormat/MEDC-sub000/uheader"
)

// lockRetryLimiter paces retries of a contended advisory lock acquisition,
// replacing the source library's nap("500 ns")/nap("1 ms") busy-wait
// spin-with-backoff (spec.md §5) with a real token-bucket limiter: one
// retry permitted every 500µs, matching the tighter of the two nap
// durations the original alternates between.
var lockRetryLimiter = rate.NewLimiter(rate.Every(500*time.Microsecond), 1)

// lockAcquireTimeout bounds how long Open will keep retrying a contended
// flock before giving up; the original has no such bound, but an
// unbounded retry loop in a library call is its own defect.
const lockAcquireTimeout = 2 * time.Second

// flockRetrying acquires an advisory lock on fd, retrying a contended
// non-blocking attempt under lockRetryLimiter's pacing instead of blocking
// indefinitely on the syscall.
func flockRetrying(fd int, how int) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockAcquireTimeout)
	defer cancel()

	for {
		err := syscall.Flock(fd, how|syscall.LOCK_NB)
		if err == nil {
			return nil
		}
		if err != syscall.EWOULDBLOCK {
			return err
		}
		if waitErr := lockRetryLimiter.Wait(ctx); waitErr != nil {
			return err
		}
	}
}

// Raw-byte sentinels for Allocate's rawBytes parameter (spec.md §4.2).
const (
	FullFile            int64 = -1
	UniversalHeaderOnly int64 = -2
)

// blockSize is the OS block size memory-mapped reads coalesce against.
const blockSize = 4096

// Mode selects the open mode, mirroring spec.md's {R, R+, W, W+, A, A+}.
type Mode uint8

const (
	ModeRead Mode = iota
	ModeReadWrite
	ModeWrite
	ModeWriteRead
	ModeAppend
	ModeAppendRead
)

func (m Mode) osFlags() int {
	switch m {
	case ModeRead:
		return os.O_RDONLY
	case ModeReadWrite:
		return os.O_RDWR
	case ModeWrite:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case ModeWriteRead:
		return os.O_RDWR | os.O_CREATE
	case ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case ModeAppendRead:
		return os.O_RDWR | os.O_CREATE | os.O_APPEND
	default:
		return os.O_RDONLY
	}
}

func (m Mode) creates() bool {
	return m == ModeWrite || m == ModeWriteRead || m == ModeAppend || m == ModeAppendRead
}

// LockMode selects the advisory lock Open takes on the underlying file.
type LockMode uint8

const (
	LockNone LockMode = iota
	LockShared
	LockExclusive
)

// FailPolicy governs how Open/Read/Reallocate report failure (spec.md
// §4.2 "Failure semantics").
type FailPolicy uint8

const (
	// FailReturnError returns the error to the caller (the default).
	FailReturnError FailPolicy = iota
	// FailSuppress returns a nil error on failure instead of propagating it;
	// callers must check the FPS's Valid() state themselves afterward.
	FailSuppress
	// FailTerminate calls os.Exit on failure, matching the source library's
	// "terminate the process" behavior_on_fail option.
	FailTerminate
)

// ReadFlags select the read strategy passed to Read (spec.md §4.2/§6).
type ReadFlags struct {
	// MemoryMap requests block-coalesced partial reads via the resident
	// bitmap instead of a single full-buffer read. Ignored when FullFile
	// range is requested.
	MemoryMap bool
	// HeaderOnly requests exactly the 1024-byte Universal Header, leaving
	// the file open and DataOffset set just past it.
	HeaderOnly bool
}

// FPS is the per-file I/O object: one buffer, one file handle, one set of
// overlay offsets. All exported methods are safe for concurrent use; a
// single FPS serializes its own reads but is independent of any other
// FPS (spec.md §4.2 "Ordering guarantees").
type FPS struct {
	mu sync.Mutex

	Path     string
	TypeCode format.FileTypeCode

	failPolicy FailPolicy
	crcMode    crc32x.Mode

	file     *os.File
	mode     Mode
	lockMode LockMode

	buf *pool.ByteBuffer

	Header      uheader.Header
	HeaderValid bool

	// DataOffset is the byte offset within Bytes() where data past the
	// Universal Header begins.
	DataOffset int

	fileSize int64
	resident []bool // memory-mapped block-residence bitmap
}

// Option configures an FPS at Allocate time.
type Option func(*FPS)

// WithFailPolicy overrides the default FailReturnError policy.
func WithFailPolicy(p FailPolicy) Option {
	return func(f *FPS) { f.failPolicy = p }
}

// WithCRCMode overrides the default crc32x.ModeValidate header-CRC
// strictness used when this FPS parses a Universal Header.
func WithCRCMode(m crc32x.Mode) Option {
	return func(f *FPS) { f.crcMode = m }
}

// Allocate implements spec.md §4.2's allocate: it builds an FPS bound to
// path and typeCode without touching the filesystem. rawBytes pre-sizes
// the internal buffer; pass FullFile or UniversalHeaderOnly to defer
// sizing to Open/Read. If proto is non-nil, its first bytesToCopy buffer
// bytes (typically a Universal Header, for provenance_UID lineage) seed
// the new FPS's buffer.
func Allocate(path string, typeCode format.FileTypeCode, rawBytes int64, proto *FPS, bytesToCopy int64, opts ...Option) *FPS {
	size := pool.BlobBufferDefaultSize
	if rawBytes > 0 {
		size = int(rawBytes)
	}

	f := &FPS{
		Path:     path,
		TypeCode: typeCode,
		buf:      pool.NewByteBuffer(size),
	}

	if proto != nil && bytesToCopy > 0 {
		n := int64(proto.buf.Len())
		if bytesToCopy < n {
			n = bytesToCopy
		}
		f.buf.MustWrite(proto.buf.Bytes()[:n])
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Open opens the underlying file in mode with the given advisory lock,
// creating missing parent directories on create modes (spec.md §4.2:
// "ENOENT during create -> create tree -> retry once").
func (f *FPS) Open(mode Mode, lockMode LockMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.Path, mode.osFlags(), 0o644)
	if err != nil && os.IsNotExist(err) && mode.creates() {
		if mkErr := os.MkdirAll(filepath.Dir(f.Path), 0o755); mkErr != nil {
			return f.fail(errs.Wrap("fps.Open", errs.ErrWriteErr))
		}
		file, err = os.OpenFile(f.Path, mode.osFlags(), 0o644)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return f.fail(errs.Wrap("fps.Open", errs.ErrNoFile))
		}
		return f.fail(errs.Wrap("fps.Open", errs.ErrReadErr))
	}

	if lockMode != LockNone {
		how := syscall.LOCK_SH
		if lockMode == LockExclusive {
			how = syscall.LOCK_EX
		}
		if err := flockRetrying(int(file.Fd()), how); err != nil {
			file.Close()
			return f.fail(errs.Wrap("fps.Open", errs.ErrReadErr))
		}
	}

	f.file = file
	f.mode = mode
	f.lockMode = lockMode

	if stat, err := file.Stat(); err == nil {
		f.fileSize = stat.Size()
	}

	return nil
}

// Close releases the advisory lock (if any) and closes the file.
func (f *FPS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	if f.lockMode != LockNone {
		syscall.Flock(int(f.file.Fd()), syscall.LOCK_UN)
	}

	err := f.file.Close()
	f.file = nil

	return err
}

// Read implements spec.md §4.2's three read modes: full-file, header-only,
// and partial (optionally memory-mapped). offset and bytesToRead are
// ignored for a full-file read; numberOfItems, when bytesToRead is 0, is
// converted via itemSize.
func (f *FPS) Read(offset, bytesToRead, numberOfItems int64, itemSize int, flags ReadFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return f.fail(errs.Wrap("fps.Read", errs.ErrReadErr))
	}

	switch {
	case flags.HeaderOnly:
		return f.readHeaderOnlyLocked()
	case bytesToRead == 0 && offset == 0 && numberOfItems == 0:
		return f.readFullLocked()
	case flags.MemoryMap:
		n := bytesToRead
		if n == 0 {
			n = numberOfItems * int64(itemSize)
		}
		return f.readMemoryMappedLocked(offset, n)
	default:
		n := bytesToRead
		if n == 0 {
			n = numberOfItems * int64(itemSize)
		}
		return f.readPartialLocked(offset, n)
	}
}

func (f *FPS) readFullLocked() error {
	if f.fileSize == 0 {
		if stat, err := f.file.Stat(); err == nil {
			f.fileSize = stat.Size()
		}
	}

	f.buf.Reset()
	f.buf.Grow(int(f.fileSize))
	f.buf.SetLength(int(f.fileSize))

	if _, err := f.file.ReadAt(f.buf.Bytes(), 0); err != nil && err != io.EOF {
		return f.fail(errs.Wrap("fps.readFull", errs.ErrReadErr))
	}

	if err := f.parseHeaderLocked(); err != nil {
		return err
	}

	f.DataOffset = uheader.Size
	f.file.Close()
	f.file = nil

	return nil
}

func (f *FPS) readHeaderOnlyLocked() error {
	f.buf.Reset()
	f.buf.Grow(uheader.Size)
	f.buf.SetLength(uheader.Size)

	if _, err := f.file.ReadAt(f.buf.Bytes(), 0); err != nil {
		return f.fail(errs.Wrap("fps.readHeaderOnly", errs.ErrReadErr))
	}

	if err := f.parseHeaderLocked(); err != nil {
		return err
	}

	f.DataOffset = uheader.Size

	return nil
}

func (f *FPS) readPartialLocked(offset, n int64) error {
	need := int(offset + n)
	f.buf.Grow(need - f.buf.Len())
	if f.buf.Len() < need {
		f.buf.SetLength(need)
	}

	if _, err := f.file.ReadAt(f.buf.Bytes()[offset:offset+n], offset); err != nil && err != io.EOF {
		return f.fail(errs.Wrap("fps.readPartial", errs.ErrReadErr))
	}

	if offset == 0 && n >= uheader.Size {
		if err := f.parseHeaderLocked(); err == nil {
			f.DataOffset = uheader.Size
		}
	}

	return nil
}

// readMemoryMappedLocked implements spec.md §4.2's memory_map_read: a
// block-residence bitmap coalesces not-yet-read block runs into single
// ReadAt calls, and a block, once resident, is never re-read or evicted
// for the lifetime of the FPS.
func (f *FPS) readMemoryMappedLocked(offset, n int64) error {
	end := offset + n

	if f.fileSize == 0 {
		if stat, err := f.file.Stat(); err == nil {
			f.fileSize = stat.Size()
		}
	}

	startBlock := int(offset / blockSize)
	endBlock := int((end + blockSize - 1) / blockSize)

	need := endBlock * blockSize
	if f.buf.Len() < need {
		f.buf.Grow(need - f.buf.Len())
		f.buf.SetLength(need)
	}
	for len(f.resident) < endBlock {
		f.resident = append(f.resident, false)
	}

	blk := startBlock
	for blk < endBlock {
		if f.resident[blk] {
			blk++
			continue
		}

		runStart := blk
		for blk < endBlock && !f.resident[blk] {
			blk++
		}
		runEnd := blk

		readOff := int64(runStart * blockSize)
		readLen := int64((runEnd - runStart) * blockSize)
		if readOff+readLen > f.fileSize {
			readLen = f.fileSize - readOff
		}
		if readLen > 0 {
			if _, err := f.file.ReadAt(f.buf.Bytes()[readOff:readOff+readLen], readOff); err != nil && err != io.EOF {
				return f.fail(errs.Wrap("fps.readMemoryMapped", errs.ErrReadErr))
			}
		}
		for b := runStart; b < runEnd; b++ {
			f.resident[b] = true
		}
	}

	if offset == 0 && n >= uheader.Size {
		if err := f.parseHeaderLocked(); err == nil {
			f.DataOffset = uheader.Size
		}
	}

	return nil
}

func (f *FPS) parseHeaderLocked() error {
	if f.buf.Len() < uheader.Size {
		return nil
	}

	h, err := uheader.Parse(f.buf.Bytes()[:uheader.Size], f.crcMode)
	if err != nil {
		return f.fail(err)
	}

	f.Header = h
	f.HeaderValid = true

	return nil
}

// Reallocate grows the buffer to newRawBytes, zeroing the new tail.
// Shrinking is a no-op (spec.md §4.2). All offsets already handed out by
// DataOffset remain valid since Reallocate never moves existing bytes.
func (f *FPS) Reallocate(newRawBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if int(newRawBytes) <= f.buf.Len() {
		return nil
	}

	oldLen := f.buf.Len()
	extra := int(newRawBytes) - oldLen
	f.buf.ExtendOrGrow(extra)
	clear(f.buf.Bytes()[oldLen:])

	return nil
}

// Bytes returns the FPS's current buffer.
func (f *FPS) Bytes() []byte {
	return f.buf.Bytes()
}

// Data returns the buffer past the Universal Header (spec.md's
// data_pointers).
func (f *FPS) Data() []byte {
	if f.DataOffset > f.buf.Len() {
		return nil
	}

	return f.buf.Bytes()[f.DataOffset:]
}

func (f *FPS) fail(err error) error {
	switch f.failPolicy {
	case FailSuppress:
		return nil
	case FailTerminate:
		os.Exit(1)
		return nil
	default:
		return err
	}
}

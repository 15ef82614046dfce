package fps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MEDFormat/MEDC-sub000/format"
	"github.com/MEDFormat/MEDC-sub000/uheader"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir string, h uheader.Header, tail []byte) string {
	t.Helper()

	path := filepath.Join(dir, "test.tisd")
	data := append(h.Bytes(), tail...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func TestAllocateOpenReadFull(t *testing.T) {
	dir := t.TempDir()
	h := uheader.New(format.TypeTimeSeriesSegment)
	h.SegmentNumber = 7
	tail := []byte("segment-metadata-payload")
	path := writeTestFile(t, dir, h, tail)

	f := Allocate(path, format.TypeTimeSeriesSegment, FullFile, nil, 0)
	require.NoError(t, f.Open(ModeRead, LockShared))
	require.NoError(t, f.Read(0, 0, 0, 0, ReadFlags{}))

	require.True(t, f.HeaderValid)
	require.Equal(t, int32(7), f.Header.SegmentNumber)
	require.Equal(t, tail, f.Data())
}

func TestReadHeaderOnlyLeavesFileOpen(t *testing.T) {
	dir := t.TempDir()
	h := uheader.New(format.TypeTimeSeriesMetadata)
	path := writeTestFile(t, dir, h, []byte("rest-of-file"))

	f := Allocate(path, format.TypeTimeSeriesMetadata, UniversalHeaderOnly, nil, 0)
	require.NoError(t, f.Open(ModeRead, LockShared))
	require.NoError(t, f.Read(0, 0, 0, 0, ReadFlags{HeaderOnly: true}))

	require.True(t, f.HeaderValid)
	require.Equal(t, uheader.Size, f.DataOffset)
	require.NoError(t, f.Close())
}

func TestReadPartial(t *testing.T) {
	dir := t.TempDir()
	h := uheader.New(format.TypeRecordData)
	tail := []byte("0123456789abcdef")
	path := writeTestFile(t, dir, h, tail)

	f := Allocate(path, format.TypeRecordData, FullFile, nil, 0)
	require.NoError(t, f.Open(ModeRead, LockShared))
	require.NoError(t, f.Read(int64(uheader.Size), 4, 0, 0, ReadFlags{}))

	require.Equal(t, tail[:4], f.Bytes()[uheader.Size:uheader.Size+4])
}

func TestMemoryMappedReadCoalescesAndCaches(t *testing.T) {
	dir := t.TempDir()
	h := uheader.New(format.TypeTimeSeriesData)
	tail := make([]byte, 3*blockSize)
	for i := range tail {
		tail[i] = byte(i)
	}
	path := writeTestFile(t, dir, h, tail)

	f := Allocate(path, format.TypeTimeSeriesData, FullFile, nil, 0)
	require.NoError(t, f.Open(ModeRead, LockShared))

	// First read spans blocks 0-1 (within header+tail).
	require.NoError(t, f.Read(0, 2*blockSize, 0, 0, ReadFlags{MemoryMap: true}))
	require.True(t, f.resident[0])
	require.True(t, f.resident[1])

	// Second read overlapping the first plus a new block must not re-fetch
	// already-resident blocks, only extend residency into the new one.
	require.NoError(t, f.Read(0, int64(uheader.Size)+3*blockSize, 0, 0, ReadFlags{MemoryMap: true}))
	require.True(t, f.resident[2])
}

func TestReallocateGrowsAndZeroesTail(t *testing.T) {
	dir := t.TempDir()
	h := uheader.New(format.TypeSession)
	path := writeTestFile(t, dir, h, nil)

	f := Allocate(path, format.TypeSession, FullFile, nil, 0)
	require.NoError(t, f.Open(ModeRead, LockShared))
	require.NoError(t, f.Read(0, 0, 0, 0, ReadFlags{}))

	originalLen := len(f.Bytes())
	require.NoError(t, f.Reallocate(int64(originalLen+64)))
	require.Len(t, f.Bytes(), originalLen+64)

	for _, b := range f.Bytes()[originalLen:] {
		require.Equal(t, byte(0), b)
	}

	// Shrink requests are no-ops.
	require.NoError(t, f.Reallocate(10))
	require.Len(t, f.Bytes(), originalLen+64)
}

func TestOpenCreatesMissingParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "new.tmet")

	f := Allocate(path, format.TypeTimeSeriesMetadata, UniversalHeaderOnly, nil, 0)
	require.NoError(t, f.Open(ModeWriteRead, LockExclusive))
	require.NoError(t, f.Close())

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestOpenMissingFileReturnsNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.tisd")

	f := Allocate(path, format.TypeTimeSeriesSegment, FullFile, nil, 0)
	err := f.Open(ModeRead, LockShared)
	require.Error(t, err)
}

func TestFailSuppressPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.tisd")

	f := Allocate(path, format.TypeTimeSeriesSegment, FullFile, nil, 0, WithFailPolicy(FailSuppress))
	err := f.Open(ModeRead, LockShared)
	require.NoError(t, err)
}

func TestAllocateCopiesPrototypePrefix(t *testing.T) {
	dir := t.TempDir()
	h := uheader.New(format.TypeSession)
	h.ProvenanceUID = 0xabc123
	protoPath := writeTestFile(t, dir, h, nil)

	proto := Allocate(protoPath, format.TypeSession, FullFile, nil, 0)
	require.NoError(t, proto.Open(ModeRead, LockShared))
	require.NoError(t, proto.Read(0, 0, 0, 0, ReadFlags{}))

	derived := Allocate(filepath.Join(dir, "derived.tisd"), format.TypeTimeSeriesSegment, FullFile, proto, int64(uheader.Size))
	require.Equal(t, proto.Bytes()[:uheader.Size], derived.Bytes()[:uheader.Size])
}

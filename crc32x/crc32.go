// Package crc32x implements the split-CRC-32 scheme MED uses to protect
// universal headers and file bodies independently (spec.md §4.1), including
// a combine operation that folds the CRC of two adjacent byte ranges into
// the CRC of their concatenation without rereading either range.
//
// The table and combine matrices are built once behind sync.Once; table
// construction is idempotent so concurrent first use from multiple
// sessions is safe (spec.md §5).
package crc32x

import (
	"hash/crc32"
	"sync"
)

// Polynomial is the reversed Ethernet/zlib CRC-32 polynomial MED uses,
// matching hash/crc32.IEEE.
const Polynomial = crc32.IEEE

var (
	tableOnce sync.Once
	table     *crc32.Table
)

func ieeeTable() *crc32.Table {
	tableOnce.Do(func() {
		table = crc32.MakeTable(Polynomial)
	})

	return table
}

// Calculate returns the CRC-32 of data, seeded at zero.
func Calculate(data []byte) uint32 {
	return crc32.Checksum(data, ieeeTable())
}

// Update continues a CRC-32 computation seeded with a prior checksum,
// mirroring the "body CRC spans file body" incremental-update case in
// spec.md §3.
func Update(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, ieeeTable(), data)
}

// Validate reports whether data's CRC-32 equals expected.
func Validate(data []byte, expected uint32) bool {
	return Calculate(data) == expected
}

// Mode selects how strictly CRC mismatches are treated (spec.md §7).
type Mode uint8

const (
	// ModeValidate checks every CRC on every read and reports mismatches.
	ModeValidate Mode = iota
	// ModeValidateOnInput checks CRCs only on the initial read of a file,
	// not on subsequent cached accesses.
	ModeValidateOnInput
	// ModeOff never checks CRCs.
	ModeOff
)

// Check reports whether got should be accepted as matching want under m.
// ModeOff accepts unconditionally; the other modes require equality.
func (m Mode) Check(got, want uint32) bool {
	if m == ModeOff {
		return true
	}

	return got == want
}

const gf2MatrixDim = 32

// gf2MatrixTimes multiplies a GF(2) vector by a 32x32 matrix represented as
// 32 rows (one uint32 per row, MSB-first row ordering as zlib uses).
func gf2MatrixTimes(mat [gf2MatrixDim]uint32, vec uint32) uint32 {
	var sum uint32
	i := 0
	for vec != 0 {
		if vec&1 != 0 {
			sum ^= mat[i]
		}
		vec >>= 1
		i++
	}

	return sum
}

// gf2MatrixSquare squares mat (mat * mat) into square.
func gf2MatrixSquare(mat [gf2MatrixDim]uint32) [gf2MatrixDim]uint32 {
	var square [gf2MatrixDim]uint32
	for n := 0; n < gf2MatrixDim; n++ {
		square[n] = gf2MatrixTimes(mat, mat[n])
	}

	return square
}

// Combine computes the CRC-32 of the concatenation A ++ B, given only
// crcA = Calculate(A), crcB = Calculate(B), and lenB = len(B) — without
// rereading A or B. This implements the standard zlib/gzip crc32_combine
// algorithm via repeated squaring of the CRC shift-register's GF(2)
// companion matrix.
func Combine(crcA, crcB uint32, lenB int64) uint32 {
	if lenB <= 0 {
		return crcA
	}

	// odd holds the operator for one zero bit.
	var odd [gf2MatrixDim]uint32
	odd[0] = Polynomial
	row := uint32(1)
	for n := 1; n < gf2MatrixDim; n++ {
		odd[n] = row
		row <<= 1
	}

	// even holds the operator for two zero bits; odd is then replaced with
	// the operator for four zero bits, matching zlib's crc32_combine setup
	// before entering the bit-doubling loop below.
	even := gf2MatrixSquare(odd)
	odd = gf2MatrixSquare(even)

	crc1 := crcA
	length := lenB
	for {
		// apply the zeros operator for this bit of length; the first
		// squaring below turns "four zero bits" into "one zero byte".
		even = gf2MatrixSquare(odd)
		if length&1 != 0 {
			crc1 = gf2MatrixTimes(even, crc1)
		}
		length >>= 1
		if length == 0 {
			break
		}

		odd = gf2MatrixSquare(even)
		if length&1 != 0 {
			crc1 = gf2MatrixTimes(odd, crc1)
		}
		length >>= 1
		if length == 0 {
			break
		}
	}

	return crc1 ^ crcB
}

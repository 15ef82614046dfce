// Package vds implements the VDS (Vectorized Data Stream) CMP inner
// codec (spec.md §4.5.4): a lossy scheme that stores a sparse set of
// (sample-index, amplitude) control vertices, each sub-stream encoded
// with one of the other three codecs, then reconstructs the full trace
// by modified-Akima interpolation between them.
package vds

import (
	"encoding/binary"

	"github.com/MEDFormat/MEDC-sub000/errs"
	"github.com/MEDFormat/MEDC-sub000/format"
)

// SubBlockDecoder decodes one of VDS's two control-vertex streams using
// whichever of RED/PRED/MBE the stream's flags select. cmp.Decode passes
// its own dispatch function as this callback so this package never needs
// to import cmp (or RED/PRED/MBE) directly, avoiding an import cycle.
type SubBlockDecoder func(alg format.AlgorithmType, modelRegion []byte, numberOfSamples uint32) ([]int64, error)

const (
	subAlgorithmShift = 0
	subAlgorithmMask  = 0x3
	timeAlgorithmShift = 2
)

func subAlgorithm(flags byte, shift uint) format.AlgorithmType {
	switch (flags >> shift) & subAlgorithmMask {
	case 0:
		return format.AlgorithmRED
	case 1:
		return format.AlgorithmPRED
	default:
		return format.AlgorithmMBE
	}
}

// Decode reads a VDS model region and returns numberOfSamples
// reconstructed values by interpolating the decoded control vertices.
// No amplitude scaling is applied here; cmp.Decode applies amplitude
// unscaling, retrend and derivative integration to this function's
// output.
func Decode(modelRegion []byte, numberOfSamples uint32, decodeSub SubBlockDecoder) ([]int64, error) {
	if len(modelRegion) < 13 {
		return nil, errs.Wrap("vds.Decode", errs.ErrCorruptBlock)
	}

	numberOfVDSSamples := binary.LittleEndian.Uint32(modelRegion[0:4])
	amplitudeBlockTotalBytes := binary.LittleEndian.Uint32(modelRegion[4:8])
	amplitudeBlockModelBytes := binary.LittleEndian.Uint32(modelRegion[8:12])
	flags := modelRegion[12]

	off := 13
	if off+int(amplitudeBlockTotalBytes) > len(modelRegion) {
		return nil, errs.Wrap("vds.Decode", errs.ErrCorruptBlock)
	}

	amplitudeRegion := modelRegion[off : off+int(amplitudeBlockModelBytes)]
	off += int(amplitudeBlockTotalBytes)

	timeRegion := modelRegion[off:]

	amplitudeAlg := subAlgorithm(flags, subAlgorithmShift)
	timeAlg := subAlgorithm(flags, timeAlgorithmShift)

	amplitudes, err := decodeSub(amplitudeAlg, amplitudeRegion, numberOfVDSSamples)
	if err != nil {
		return nil, errs.Wrap("vds.Decode", err)
	}

	positions, err := decodeSub(timeAlg, timeRegion, numberOfVDSSamples)
	if err != nil {
		return nil, errs.Wrap("vds.Decode", err)
	}

	if len(amplitudes) != len(positions) || len(amplitudes) == 0 {
		return nil, errs.Wrap("vds.Decode", errs.ErrCorruptBlock)
	}

	return akimaReconstruct(positions, amplitudes, int(numberOfSamples)), nil
}

// akimaReconstruct evaluates a modified Akima spline through the
// (positions[i], amplitudes[i]) control vertices at every integer
// position 0..n-1, extrapolating the endpoints with phantom points
// mirrored from the slope of the nearest real segment (spec.md §4.5.4).
func akimaReconstruct(positions, amplitudes []int64, n int) []int64 {
	k := len(positions)
	if k == 1 {
		out := make([]int64, n)
		for i := range out {
			out[i] = amplitudes[0]
		}
		return out
	}

	x := make([]float64, k+4)
	y := make([]float64, k+4)
	for i := 0; i < k; i++ {
		x[i+2] = float64(positions[i])
		y[i+2] = float64(amplitudes[i])
	}

	// Phantom endpoints: reflect the boundary segment's slope outward
	// two points in each direction, the standard Akima extrapolation.
	x[1] = x[2] - (x[3] - x[2])
	y[1] = y[2] - (y[3] - y[2])
	x[0] = x[1] - (x[2] - x[1])
	y[0] = y[1] - (y[2] - y[1])

	x[k+2] = x[k+1] + (x[k+1] - x[k])
	y[k+2] = y[k+1] + (y[k+1] - y[k])
	x[k+3] = x[k+2] + (x[k+2] - x[k+1])
	y[k+3] = y[k+2] + (y[k+2] - y[k+1])

	m := make([]float64, k+3)
	for i := 0; i < k+3; i++ {
		dx := x[i+1] - x[i]
		if dx == 0 {
			m[i] = 0
			continue
		}
		m[i] = (y[i+1] - y[i]) / dx
	}

	out := make([]int64, n)
	seg := 0
	for p := 0; p < n; p++ {
		target := float64(p)

		for seg < k-2 && target > x[seg+3] {
			seg++
		}

		i := seg + 2 // index into x/y/m for the segment [x[i], x[i+1]]

		t1 := akimaTangent(m, i)
		t2 := akimaTangent(m, i+1)

		out[p] = roundInt64(hermite(x[i], x[i+1], y[i], y[i+1], t1, t2, target))
	}

	return out
}

// akimaTangent computes the modified-Akima tangent at point index p
// from the four secant slopes surrounding it: each weight is the absolute
// difference plus half the absolute sum of a pair of adjacent slopes,
// falling back to the plain average of the two inner slopes when both
// weights vanish (flat region on both sides).
func akimaTangent(m []float64, p int) float64 {
	w1 := abs(m[p+1]-m[p]) + abs(m[p+1]+m[p])/2
	w2 := abs(m[p-1]-m[p-2]) + abs(m[p-1]+m[p-2])/2

	denom := w1 + w2
	if denom == 0 {
		return (m[p-1] + m[p]) / 2
	}

	return (w1*m[p-1] + w2*m[p]) / denom
}

func hermite(x0, x1, y0, y1, t0, t1, x float64) float64 {
	h := x1 - x0
	if h == 0 {
		return y0
	}

	s := (x - x0) / h
	h00 := 2*s*s*s - 3*s*s + 1
	h10 := s*s*s - 2*s*s + s
	h01 := -2*s*s*s + 3*s*s
	h11 := s*s*s - s*s

	return h00*y0 + h10*h*t0 + h01*y1 + h11*h*t1
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func roundInt64(f float64) int64 {
	if f >= 0 {
		return int64(f + 0.5)
	}
	return int64(f - 0.5)
}

package model

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// KeyCount returns the number of keyframes.
func (tr *Track) KeyCount() int {
	return len(tr.Times)
}

// StartTime returns the first keyframe time.
func (tr *Track) StartTime() float32 {
	if len(tr.Times) == 0 {
		return 0
	}
	return tr.Times[0]
}

// EndTime returns the last keyframe time.
func (tr *Track) EndTime() float32 {
	if len(tr.Times) == 0 {
		return 0
	}
	return tr.Times[len(tr.Times)-1]
}

// Value returns the stored value of keyframe k.
func (tr *Track) Value(k int) []float32 {
	c := tr.Components
	if tr.Interpolation == InterpolationCubicSpline {
		return tr.Values[(3*k+1)*c : (3*k+2)*c]
	}
	return tr.Values[k*c : (k+1)*c]
}

// InTangent returns the incoming tangent of keyframe k. Only cubic spline tracks have tangents.
func (tr *Track) InTangent(k int) []float32 {
	c := tr.Components
	return tr.Values[3*k*c : (3*k+1)*c]
}

// OutTangent returns the outgoing tangent of keyframe k. Only cubic spline tracks have tangents.
func (tr *Track) OutTangent(k int) []float32 {
	c := tr.Components
	return tr.Values[(3*k+2)*c : (3*k+3)*c]
}

// Sample evaluates the track at time t and writes Components floats into dst.
// Times before the first key return the first value and times at or after the last key
// return the last value. Rotation results are unit quaternions (x, y, z, w).
//
// Parameters:
//   - t: the sample time in seconds
//   - dst: optional destination; a new slice is allocated when it is too short
//
// Returns:
//   - []float32: the sampled value
func (tr *Track) Sample(t float32, dst []float32) []float32 {
	c := tr.Components
	if len(dst) < c {
		dst = make([]float32, c)
	}
	dst = dst[:c]

	n := len(tr.Times)
	if n == 0 || c == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return dst
	}
	if t <= tr.Times[0] {
		copy(dst, tr.Value(0))
		return dst
	}
	if t >= tr.Times[n-1] {
		copy(dst, tr.Value(n-1))
		return dst
	}

	k := sort.Search(n, func(i int) bool { return tr.Times[i] > t }) - 1
	if tr.Interpolation == InterpolationStep {
		copy(dst, tr.Value(k))
		return dst
	}

	t0, t1 := tr.Times[k], tr.Times[k+1]
	td := t1 - t0
	s := (t - t0) / td
	if s <= 0 {
		copy(dst, tr.Value(k))
		return dst
	}

	switch tr.Interpolation {
	case InterpolationCubicSpline:
		hermite(dst, tr.Value(k), tr.OutTangent(k), tr.Value(k+1), tr.InTangent(k+1), s, td)
		if tr.Path == PathRotation && c == 4 {
			q := common.QuatFromXYZW([4]float32(dst)).Normalize()
			copy(dst, sliceOf(common.QuatToXYZW(q)))
		}
	default:
		if tr.Path == PathRotation && c == 4 {
			slerp(dst, tr.Value(k), tr.Value(k+1), s)
		} else {
			v0, v1 := tr.Value(k), tr.Value(k+1)
			for i := 0; i < c; i++ {
				dst[i] = v0[i] + (v1[i]-v0[i])*s
			}
		}
	}
	return dst
}

// hermite evaluates the cubic Hermite basis on a segment normalized to [0, 1].
// Tangents are scaled by the segment duration td.
func hermite(dst, p0, m0, p1, m1 []float32, s, td float32) {
	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	for i := range dst {
		dst[i] = h00*p0[i] + h10*td*m0[i] + h01*p1[i] + h11*td*m1[i]
	}
}

// slerp interpolates along the shortest arc between two (x, y, z, w) quaternions.
func slerp(dst, a, b []float32, s float32) {
	q0 := common.QuatFromXYZW([4]float32(a))
	q1 := common.QuatFromXYZW([4]float32(b))
	if q0.Dot(q1) < 0 {
		q1 = q1.Scale(-1)
	}
	q := mgl32.QuatSlerp(q0, q1, s).Normalize()
	copy(dst, sliceOf(common.QuatToXYZW(q)))
}

func sliceOf(v [4]float32) []float32 {
	return v[:]
}

package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/constraints"
)

// SliceToBytes converts any slice to a byte slice for buffer handoff.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Clamp restricts v to the closed range [low, high].
func Clamp[T constraints.Ordered](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// QuatFromXYZW converts a glTF-ordered quaternion (x, y, z, w) into an mgl32.Quat.
func QuatFromXYZW(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// QuatToXYZW converts an mgl32.Quat into glTF order (x, y, z, w).
func QuatToXYZW(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// ComposeTRS builds the column-major matrix T * R * S.
// The rotation is normalized before use; a zero quaternion is treated as identity.
//
// Parameters:
//   - t: translation (x, y, z)
//   - r: rotation quaternion (x, y, z, w)
//   - s: scale (x, y, z)
//
// Returns:
//   - mgl32.Mat4: the composed transform
func ComposeTRS(t [3]float32, r [4]float32, s [3]float32) mgl32.Mat4 {
	q := QuatFromXYZW(r)
	if q.Len() < 1e-8 {
		q = mgl32.QuatIdent()
	} else {
		q = q.Normalize()
	}
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// DecomposeMatrix splits a column-major affine matrix into translation, rotation and scale.
// Shear is discarded. A negative determinant is folded into the X scale.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - [3]float32: translation
//   - [4]float32: rotation quaternion (x, y, z, w)
//   - [3]float32: scale
func DecomposeMatrix(m mgl32.Mat4) ([3]float32, [4]float32, [3]float32) {
	t := [3]float32{m[12], m[13], m[14]}

	sx := vecLen(m[0], m[1], m[2])
	sy := vecLen(m[4], m[5], m[6])
	sz := vecLen(m[8], m[9], m[10])
	if m.Mat3().Det() < 0 {
		sx = -sx
	}

	rot := mgl32.Ident4()
	cols := [3]float32{sx, sy, sz}
	for c := 0; c < 3; c++ {
		d := cols[c]
		if math.Abs(float64(d)) < 1e-8 {
			continue
		}
		for r := 0; r < 3; r++ {
			rot[c*4+r] = m[c*4+r] / d
		}
	}

	q := mgl32.Mat4ToQuat(rot)
	if q.Len() < 1e-8 {
		q = mgl32.QuatIdent()
	} else {
		q = q.Normalize()
	}
	return t, QuatToXYZW(q), [3]float32{sx, sy, sz}
}

// TransformPoint applies m to the point p (w = 1).
func TransformPoint(m mgl32.Mat4, p [3]float32) [3]float32 {
	v := mgl32.TransformCoordinate(mgl32.Vec3(p), m)
	return [3]float32(v)
}

// TransformDirection applies the normal matrix of m (inverse transpose of the upper 3x3)
// to d and renormalizes the result. Degenerate matrices leave d unchanged.
func TransformDirection(m mgl32.Mat4, d [3]float32) [3]float32 {
	m3 := m.Mat3()
	if math.Abs(float64(m3.Det())) < 1e-12 {
		return d
	}
	v := m3.Inv().Transpose().Mul3x1(mgl32.Vec3(d))
	if v.Len() < 1e-12 {
		return d
	}
	return [3]float32(v.Normalize())
}

func vecLen(x, y, z float32) float32 {
	return float32(math.Sqrt(float64(x*x + y*y + z*z)))
}

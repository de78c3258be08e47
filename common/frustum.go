package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is ax + by + cz + d = 0 with (a, b, c) the unit normal and d the signed distance from the origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns the distance of p from the plane, positive on the normal's side.
func (p Plane) SignedDistance(v [3]float32) float32 {
	return p.Normal[0]*v[0] + p.Normal[1]*v[1] + p.Normal[2]*v[2] + p.Distance
}

// Frustum holds the six planes of a view volume. The positive half-space of each plane is inside.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts the frustum planes of a view-projection matrix (Gribb/Hartmann).
// An infinite far plane comes out with a zero normal and never rejects anything.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the combined projection * view matrix
//
// Returns:
//   - Frustum: the frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	var f Frustum
	r3 := viewProj.Row(3)

	for i, src := range [6]struct {
		row  int
		sign float32
	}{
		FrustumLeft:   {0, 1},
		FrustumRight:  {0, -1},
		FrustumBottom: {1, 1},
		FrustumTop:    {1, -1},
		FrustumNear:   {2, 1},
		FrustumFar:    {2, -1},
	} {
		r := viewProj.Row(src.row).Mul(src.sign)
		p := r3.Add(r)
		f.Planes[i] = Plane{Normal: [3]float32{p[0], p[1], p[2]}, Distance: p[3]}
		f.normalizePlane(i)
	}
	return f
}

func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 1e-12 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
		return
	}
	*p = Plane{}
}

// IntersectsAABB reports whether any part of box may be inside the frustum.
// The test is conservative: boxes near a frustum corner can be reported visible.
func (f *Frustum) IntersectsAABB(box AABB) bool {
	if !box.Valid() {
		return false
	}
	for _, p := range f.Planes {
		// The corner furthest along the normal.
		var v [3]float32
		for k := 0; k < 3; k++ {
			if p.Normal[k] >= 0 {
				v[k] = box.Max[k]
			} else {
				v[k] = box.Min[k]
			}
		}
		if p.SignedDistance(v) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether any part of s may be inside the frustum.
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

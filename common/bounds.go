package common

import (
	"math"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center [3]float32
	Radius float32
}

// EmptyAABB returns an inverted box that any Extend call will overwrite.
func EmptyAABB() AABB {
	return AABB{
		Min: [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// ComputeAABB computes the axis-aligned bounding box for positions.
// An empty input produces a zero box.
//
// Parameters:
//   - positions: the points to enclose
//
// Returns:
//   - AABB: the enclosing box
func ComputeAABB(positions [][3]float32) AABB {
	if len(positions) == 0 {
		return AABB{}
	}

	box := EmptyAABB()
	for _, p := range positions {
		box = box.Extend(p)
	}
	return box
}

// Extend grows the box to include p.
func (b AABB) Extend(p [3]float32) AABB {
	for j := 0; j < 3; j++ {
		if p[j] < b.Min[j] {
			b.Min[j] = p[j]
		}
		if p[j] > b.Max[j] {
			b.Max[j] = p[j]
		}
	}
	return b
}

// Union returns the smallest box containing both b and o. Invalid boxes are ignored.
func (b AABB) Union(o AABB) AABB {
	if !o.Valid() {
		return b
	}
	if !b.Valid() {
		return o
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Valid reports whether Min <= Max on every axis.
func (b AABB) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Center returns the midpoint of the box.
func (b AABB) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) * 0.5,
		(b.Min[1] + b.Max[1]) * 0.5,
		(b.Min[2] + b.Max[2]) * 0.5,
	}
}

// Extents returns the half size of the box on each axis.
func (b AABB) Extents() [3]float32 {
	return [3]float32{
		(b.Max[0] - b.Min[0]) * 0.5,
		(b.Max[1] - b.Min[1]) * 0.5,
		(b.Max[2] - b.Min[2]) * 0.5,
	}
}

// ComputeBoundingSphere returns a sphere centered on the box center whose radius reaches
// the farthest of the given positions.
func ComputeBoundingSphere(box AABB, positions [][3]float32) Sphere {
	c := box.Center()
	var r2 float32
	for _, p := range positions {
		dx, dy, dz := p[0]-c[0], p[1]-c[1], p[2]-c[2]
		if d := dx*dx + dy*dy + dz*dz; d > r2 {
			r2 = d
		}
	}
	return Sphere{Center: c, Radius: float32(math.Sqrt(float64(r2)))}
}

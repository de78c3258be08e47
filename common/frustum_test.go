package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestExtractFrustumPerspective(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 100)
	f := ExtractFrustum(proj)

	tests := []struct {
		name string
		box  AABB
		want bool
	}{
		{"in front", AABB{Min: [3]float32{-1, -1, -6}, Max: [3]float32{1, 1, -4}}, true},
		{"behind", AABB{Min: [3]float32{-1, -1, 4}, Max: [3]float32{1, 1, 6}}, false},
		{"far left", AABB{Min: [3]float32{-100, -1, -6}, Max: [3]float32{-90, 1, -4}}, false},
		{"beyond far", AABB{Min: [3]float32{-1, -1, -300}, Max: [3]float32{1, 1, -200}}, false},
		{"straddling near", AABB{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}, true},
		{"empty", EmptyAABB(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IntersectsAABB(tt.box); got != tt.want {
				t.Errorf("IntersectsAABB = %v, want %v", got, tt.want)
			}
		})
	}

	if !f.IntersectsSphere(Sphere{Center: [3]float32{0, 0, -10}, Radius: 1}) {
		t.Error("expected a sphere ahead to be visible")
	}
	if f.IntersectsSphere(Sphere{Center: [3]float32{0, 0, 10}, Radius: 1}) {
		t.Error("expected a sphere behind to be culled")
	}
}

func TestExtractFrustumNormalizesPlanes(t *testing.T) {
	f := ExtractFrustum(mgl32.Ortho(-2, 2, -2, 2, 1, 10))
	for i, p := range f.Planes {
		n := mgl32.Vec3(p.Normal)
		if l := n.Len(); l < 0.999 || l > 1.001 {
			t.Errorf("plane %d normal length %g", i, l)
		}
	}
	if d := f.Planes[FrustumNear].SignedDistance([3]float32{0, 0, -1}); d < -1e-5 || d > 1e-5 {
		t.Errorf("expected the near plane at z=-1, got distance %g", d)
	}
}

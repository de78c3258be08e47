package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestComposeDecomposeRoundTrip(t *testing.T) {
	q := mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0}.Normalize())
	tests := []struct {
		name string
		t    [3]float32
		r    [4]float32
		s    [3]float32
	}{
		{"identity", [3]float32{}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1}},
		{"translate rotate scale", [3]float32{1, -2, 3}, QuatToXYZW(q), [3]float32{2, 3, 4}},
		{"mirrored", [3]float32{0, 1, 0}, [4]float32{0, 0, 0, 1}, [3]float32{-1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComposeTRS(tt.t, tt.r, tt.s)
			tr, rot, sc := DecomposeMatrix(m)
			back := ComposeTRS(tr, rot, sc)
			for i := range m {
				if !near(m[i], back[i]) {
					t.Fatalf("round trip mismatch at %d: %v vs %v", i, m, back)
				}
			}
			if tr != tt.t {
				t.Errorf("expected translation %v, got %v", tt.t, tr)
			}
		})
	}
}

func TestComposeTRSZeroQuaternion(t *testing.T) {
	m := ComposeTRS([3]float32{}, [4]float32{}, [3]float32{1, 1, 1})
	if !m.ApproxEqual(mgl32.Ident4()) {
		t.Errorf("expected identity for a zero quaternion, got %v", m)
	}
}

func TestTransformDirection(t *testing.T) {
	m := mgl32.Scale3D(2, 1, 1)
	d := TransformDirection(m, [3]float32{1, 1, 0})
	l := mgl32.Vec3(d).Len()
	if !near(l, 1) {
		t.Errorf("expected a unit direction, got length %v", l)
	}
	// Normals shrink along the stretched axis.
	if d[0] >= d[1] {
		t.Errorf("expected x < y under a non-uniform scale, got %v", d)
	}

	p := TransformPoint(mgl32.Translate3D(1, 2, 3), [3]float32{1, 1, 1})
	if p != [3]float32{2, 3, 4} {
		t.Errorf("expected (2,3,4), got %v", p)
	}
}

func TestClampAndCoalesce(t *testing.T) {
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := Clamp(-3, -1, 1); got != -1 {
		t.Errorf("expected -1, got %v", got)
	}
	if got := Coalesce("", "b", "c"); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := SliceToBytes([]uint16{1, 2, 3}); len(got) != 6 {
		t.Errorf("expected 6 bytes, got %d", len(got))
	}
	if SliceToBytes([]float32(nil)) != nil {
		t.Error("expected nil for an empty slice")
	}
}

func TestBounds(t *testing.T) {
	positions := [][3]float32{{-1, 0, 2}, {3, 4, -2}, {0, 1, 0}}
	box := ComputeAABB(positions)
	if box.Min != [3]float32{-1, 0, -2} || box.Max != [3]float32{3, 4, 2} {
		t.Fatalf("unexpected box %v", box)
	}
	if box.Center() != [3]float32{1, 2, 0} {
		t.Errorf("unexpected center %v", box.Center())
	}
	if box.Extents() != [3]float32{2, 2, 2} {
		t.Errorf("unexpected extents %v", box.Extents())
	}

	s := ComputeBoundingSphere(box, positions)
	for _, p := range positions {
		d := mgl32.Vec3{p[0] - s.Center[0], p[1] - s.Center[1], p[2] - s.Center[2]}.Len()
		if d > s.Radius+1e-5 {
			t.Errorf("point %v outside sphere %v", p, s)
		}
	}

	if ComputeAABB(nil) != (AABB{}) {
		t.Error("expected a zero box for no positions")
	}
	if EmptyAABB().Valid() {
		t.Error("expected the empty box to be invalid")
	}
	if got := EmptyAABB().Union(box); got != box {
		t.Errorf("expected union with empty to return the other box, got %v", got)
	}
	if got := box.Union(EmptyAABB()); got != box {
		t.Errorf("expected invalid boxes to be ignored, got %v", got)
	}
}

func TestDeref(t *testing.T) {
	v := float32(0)
	if got := Deref(&v, 1); got != 0 {
		t.Errorf("expected an explicit zero to win, got %g", got)
	}
	if got := Deref((*[2]float32)(nil), [2]float32{1, 1}); got != [2]float32{1, 1} {
		t.Errorf("expected the fallback, got %v", got)
	}
}

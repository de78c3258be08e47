package model

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

func boxAsset(path string, world mgl32.Mat4) ConstructedAsset {
	return ConstructedAsset{
		Kind:  AssetMesh,
		Path:  path,
		World: world,
		Mesh:  &Mesh{Name: path, Bounds: common.AABB{Min: [3]float32{-1, -1, -1}, Max: [3]float32{1, 1, 1}}},
	}
}

func TestCameraProjectionInfinite(t *testing.T) {
	c := &Camera{YFov: math.Pi / 2, ZNear: 0.5}
	m := c.ProjectionMatrix(2)

	if got := m.At(0, 0); math.Abs(float64(got-0.5)) > 1e-6 {
		t.Errorf("expected x scale 0.5 for aspect 2, got %g", got)
	}
	if m.At(2, 3) != -1 || m.At(3, 2) != -1 {
		t.Errorf("unexpected infinite projection %v", m)
	}

	// The camera's own aspect ratio wins.
	c.AspectRatio = 1
	if got := c.ProjectionMatrix(2).At(0, 0); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("expected x scale 1, got %g", got)
	}
}

func TestModelVisibleFrom(t *testing.T) {
	cam := ConstructedAsset{
		Kind:   AssetCamera,
		Path:   "/Main/Eye",
		World:  mgl32.Translate3D(0, 0, 10),
		Camera: &Camera{YFov: math.Pi / 3, ZNear: 0.1, ZFar: 100},
	}
	m := NewModel(WithAssets([]ConstructedAsset{
		boxAsset("/Main/Ahead", mgl32.Ident4()),
		boxAsset("/Main/Behind", mgl32.Translate3D(0, 0, 20)),
		boxAsset("/Main/Aside", mgl32.Translate3D(50, 0, 0)),
		cam,
	}))

	visible := m.VisibleFrom(cam, 1)
	if len(visible) != 1 || visible[0].Path != "/Main/Ahead" {
		t.Fatalf("expected only /Main/Ahead, got %+v", visible)
	}

	ortho := cam
	ortho.Camera = &Camera{Projection: ProjectionOrthographic, XMag: 60, YMag: 60, ZNear: 0.1, ZFar: 100}
	if got := m.VisibleFrom(ortho, 1); len(got) != 2 {
		t.Errorf("expected the wide orthographic camera to see two boxes, got %d", len(got))
	}

	if got := m.VisibleFrom(visible[0], 1); got != nil {
		t.Errorf("expected nil for a non-camera asset, got %+v", got)
	}
}

package model

import (
	"math"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ProjectionMatrix builds the right-handed clip-space projection of the camera.
// The camera's own aspect ratio wins over aspect; with neither set a square viewport is assumed.
//
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#projection-matrices
//
// Parameters:
//   - aspect: the viewport aspect ratio (width / height)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	n, f := c.ZNear, c.ZFar

	if c.Projection == ProjectionOrthographic {
		return mgl32.Ortho(-c.XMag, c.XMag, -c.YMag, c.YMag, n, f)
	}

	a := common.Coalesce(c.AspectRatio, aspect, 1)
	if f > 0 {
		return mgl32.Perspective(c.YFov, a, n, f)
	}

	t := float32(math.Tan(float64(c.YFov) / 2))
	return mgl32.Mat4{
		1 / (a * t), 0, 0, 0,
		0, 1 / t, 0, 0,
		0, 0, -1, -1,
		0, 0, -2 * n, 0,
	}
}

// Frustum returns the world-space view volume of the camera placed at world.
func (c *Camera) Frustum(world mgl32.Mat4, aspect float32) common.Frustum {
	return common.ExtractFrustum(c.ProjectionMatrix(aspect).Mul4(world.Inv()))
}

package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// gltfExtractCamera converts a glTF camera into an engine-neutral camera.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#cameras
//
// Parameters:
//   - doc: the document
//   - cameraIndex: the camera index
//
// Returns:
//   - *model.Camera: the camera
func gltfExtractCamera(doc *gltfDocument, cameraIndex int) *model.Camera {
	src := &doc.Cameras[cameraIndex]
	cam := &model.Camera{
		Name:  src.Name,
		Index: cameraIndex,
	}
	if cam.Name == "" {
		cam.Name = fmt.Sprintf("camera_%d", cameraIndex)
	}

	switch {
	case src.Type == gltfCameraOrthographicType && src.Orthographic != nil:
		o := src.Orthographic
		cam.Projection = model.ProjectionOrthographic
		cam.XMag, cam.YMag = o.XMag, o.YMag
		cam.ZNear, cam.ZFar = o.ZNear, o.ZFar
	case src.Perspective != nil:
		p := src.Perspective
		cam.Projection = model.ProjectionPerspective
		cam.YFov = p.YFov
		cam.ZNear = p.ZNear
		cam.AspectRatio = common.Deref(p.AspectRatio, 0)
		cam.ZFar = common.Deref(p.ZFar, 0)
	}
	return cam
}

package loader

import "context"

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend imports .gltf and .glb sources through the gltfImporter.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(),
	}
}

func (b *gltfLoaderBackendImpl) Extensions() []string {
	return []string{".gltf", ".glb"}
}

// Implements lists the glTF extensions the extractors decode. Anything else in extensionsUsed is
// ignored, and anything else in extensionsRequired fails the document.
func (b *gltfLoaderBackendImpl) Implements() []string {
	return []string{
		gltfExtEmissiveStrength,
		gltfExtUnlit,
		gltfExtTextureTransform,
		gltfExtTextureWebP,
		gltfExtMeshQuantization,
	}
}

func (b *gltfLoaderBackendImpl) Import(ctx context.Context, in *importInput) (*importOutput, error) {
	return b.importer.Import(ctx, in)
}

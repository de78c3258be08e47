package loader

import (
	"context"
	"strconv"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter orchestrates one glTF/GLB import: parse, validate, then traverse the scenes
// and build animations, asking the extractors for each referenced mesh, skin, material and camera.
type gltfImporter interface {
	// Import runs the whole pipeline for one request.
	//
	// Parameters:
	//   - ctx: cancellation is checked between nodes, primitives and channels
	//   - in: the source bytes and request settings
	//
	// Returns:
	//   - *importOutput: the constructed assets with per-asset errors
	//   - error: a document-level error, or ErrCanceled
	Import(ctx context.Context, in *importInput) (*importOutput, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(ctx context.Context, in *importInput) (*importOutput, error) {
	parsed, err := gltfParse(in.data)
	if err != nil {
		return nil, documentLevel(err)
	}
	if err := gltfValidate(parsed, in.supported); err != nil {
		return nil, documentLevel(err)
	}
	in.prof.Mark("parse")

	doc := parsed.document
	out := &importOutput{name: gltfExtractModelName(doc, in.name)}

	resolver := newGLTFBufferResolver(parsed, in.baseURI, in.fetch)
	parents := gltfNodeParents(doc)
	meshes := newGLTFMeshExtractor(resolver, in.cfg.Mesh, in.cfg.Skin, in.supported[gltfExtMeshQuantization])
	skeletons := newGLTFSkeletonExtractor(resolver, parents)
	materials := newGLTFMaterialExtractor(resolver, in.supported)
	builder := newGLTFSceneBuilder(doc, parents, meshes, skeletons, materials, in.opts)

	sceneIndices, err := imp.selectScenes(doc, in.opts.scene)
	if err != nil {
		return nil, documentLevel(err)
	}
	for level, meshIndex := range in.opts.lods {
		if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
			return nil, documentLevel(errors.Wrapf(ErrReference, "LOD %d: mesh %d out of range [0,%d)", level, meshIndex, len(doc.Meshes)))
		}
	}

	for _, si := range sceneIndices {
		scene, err := builder.Build(ctx, si)
		if err != nil {
			return nil, errors.Wrap(ErrCanceled, err.Error())
		}
		if scene.Err != nil {
			in.logger.Warn("scene aborted", zap.String("scene", scene.Scene.Name), zap.Error(scene.Err))
			out.errors = append(out.errors, scene.Err)
			continue
		}

		out.scenes = append(out.scenes, scene.Scene)
		out.assets = append(out.assets, scene.Assets...)
		for _, e := range scene.Errors {
			out.errors = append(out.errors, e)
		}
		out.warnings = append(out.warnings, scene.Warnings...)
	}
	if len(in.opts.lods) > 0 {
		if err := imp.importLODs(ctx, meshes, in.opts.lods, out); err != nil {
			return nil, err
		}
	}
	in.prof.Mark("scene")

	if !in.opts.meshOnly {
		if err := imp.importAnimations(ctx, resolver, out); err != nil {
			return nil, err
		}
	}
	in.prof.Mark("animation")

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(ErrCanceled, err.Error())
	}
	return out, nil
}

// selectScenes returns the scenes to traverse: the requested one, else every declared scene,
// else the implicit scene (-1).
func (imp *gltfImporterImpl) selectScenes(doc *gltfDocument, requested *int) ([]int, error) {
	if requested != nil {
		if *requested < 0 || *requested >= len(doc.Scenes) {
			return nil, errors.Wrapf(ErrReference, "scene %d out of range [0,%d)", *requested, len(doc.Scenes))
		}
		return []int{*requested}, nil
	}
	if len(doc.Scenes) == 0 {
		return []int{-1}, nil
	}

	indices := make([]int, len(doc.Scenes))
	for i := range indices {
		indices[i] = i
	}
	return indices, nil
}

// importAnimations builds every animation as an unbound asset at /animations/<name>.
func (imp *gltfImporterImpl) importAnimations(ctx context.Context, resolver gltfBufferResolver, out *importOutput) error {
	extractor := newGLTFAnimationExtractor(resolver)
	doc := resolver.Document()
	used := make(map[string]bool, len(doc.Animations))

	for i := range doc.Animations {
		clip, dropped, err := extractor.ExtractAnimation(ctx, i)
		if ctx.Err() != nil {
			return errors.Wrap(ErrCanceled, ctx.Err().Error())
		}

		name := doc.Animations[i].Name
		if clip != nil {
			name = clip.Name
		} else if name == "" {
			name = "animation_" + strconv.Itoa(i)
		}
		segment := gltfPathSegment(name)
		for used[segment] {
			segment = segment + "#" + strconv.Itoa(i)
		}
		used[segment] = true
		path := "/animations/" + segment

		asset := model.ConstructedAsset{
			Kind:        model.AssetAnimation,
			Path:        path,
			Node:        -1,
			SourceIndex: i,
			World:       mgl32.Ident4(),
			Skin:        -1,
			Animation:   clip,
		}
		for _, d := range dropped {
			out.errors = append(out.errors, &AssetError{Kind: model.AssetAnimation, Path: path, Index: i, Err: d})
		}
		if err != nil {
			asset.Status = model.StatusFailed
			asset.Err = err
			if len(dropped) == 0 {
				out.errors = append(out.errors, &AssetError{Kind: model.AssetAnimation, Path: path, Index: i, Err: err})
			}
		}
		out.assets = append(out.assets, asset)
	}
	return nil
}

// importLODs builds one mesh from the requested meshes at /lods/<name>: the first mesh is level 0
// and the rest become its coarser levels. Any level that fails fails the group.
func (imp *gltfImporterImpl) importLODs(ctx context.Context, meshes gltfMeshExtractor, levels []int, out *importOutput) error {
	results := make([]*gltfMeshResult, len(levels))
	for i, meshIndex := range levels {
		results[i] = meshes.ExtractMesh(ctx, meshIndex)
		if ctx.Err() != nil {
			return errors.Wrap(ErrCanceled, ctx.Err().Error())
		}
	}

	name := "mesh_" + strconv.Itoa(levels[0])
	if results[0].Mesh != nil {
		name = results[0].Mesh.Name
	}
	asset := model.ConstructedAsset{
		Kind:        model.AssetMesh,
		Path:        "/lods/" + gltfPathSegment(name),
		Node:        -1,
		SourceIndex: levels[0],
		World:       mgl32.Ident4(),
		Skin:        -1,
	}

	for level, res := range results {
		for _, skipped := range res.Skipped {
			out.errors = append(out.errors, &AssetError{Kind: model.AssetMesh, Path: asset.Path, Index: levels[level], Err: skipped})
		}
		if res.Err != nil && asset.Err == nil {
			asset.Status = model.StatusFailed
			asset.Err = errors.WithMessagef(res.Err, "LOD %d", level)
			if len(res.Skipped) == 0 {
				out.errors = append(out.errors, &AssetError{Kind: model.AssetMesh, Path: asset.Path, Index: levels[level], Err: asset.Err})
			}
		}
		if res.Mesh != nil {
			asset.Warnings = append(asset.Warnings, res.Warnings...)
		}
	}
	if asset.Err != nil {
		asset.Warnings = nil
		out.assets = append(out.assets, asset)
		return nil
	}

	// The group is a copy so mesh instances in the scenes keep their own LOD-free mesh.
	group := *results[0].Mesh
	for _, res := range results[1:] {
		group.LODs = append(group.LODs, res.Mesh)
	}
	asset.Mesh = &group
	asset.Weights = group.Weights
	out.assets = append(out.assets, asset)
	return nil
}

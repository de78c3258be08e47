package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// gltfSceneOutput is everything one scene traversal produced.
type gltfSceneOutput struct {
	Scene    model.Scene
	Assets   []model.ConstructedAsset
	Errors   []*AssetError
	Warnings []error

	// Err is set when the scene was aborted. No assets are kept for an aborted scene.
	Err error
}

// gltfSceneBuilder walks node hierarchies and asks the extractors for the assets attached to each node.
// It is used by one request at a time; materials and skeletons are emitted once per request,
// at the first node that references them.
type gltfSceneBuilder struct {
	doc       *gltfDocument
	parents   []int
	meshes    gltfMeshExtractor
	skeletons gltfSkeletonExtractor
	materials gltfMaterialExtractor
	opts      requestOptions

	emittedMaterials map[int]bool
	emittedSkins     map[int]bool

	// instances holds the meshes delivered for a (mesh, skin) pair so every instance shares them.
	instances map[[2]int]*gltfMeshInstance
}

// gltfMeshInstance is the per-skin view of a synthesized mesh.
type gltfMeshInstance struct {
	meshes  []*model.Mesh
	dropped []error
}

// newGLTFSceneBuilder creates a scene builder over the request's extractors.
//
// Parameters:
//   - doc: the document
//   - parents: the node parent table from gltfNodeParents
//   - meshes: the mesh extractor
//   - skeletons: the skeleton extractor
//   - materials: the material extractor
//   - opts: the request options; mesh-only skips skeletons and cameras
//
// Returns:
//   - *gltfSceneBuilder: the builder
func newGLTFSceneBuilder(doc *gltfDocument, parents []int, meshes gltfMeshExtractor, skeletons gltfSkeletonExtractor, materials gltfMaterialExtractor, opts requestOptions) *gltfSceneBuilder {
	return &gltfSceneBuilder{
		doc:              doc,
		parents:          parents,
		meshes:           meshes,
		skeletons:        skeletons,
		materials:        materials,
		opts:             opts,
		emittedMaterials: make(map[int]bool),
		emittedSkins:     make(map[int]bool),
		instances:        make(map[[2]int]*gltfMeshInstance),
	}
}

// SceneRoots returns the name and root nodes of a scene. Index -1 selects the implicit scene
// made of every parentless node, used for documents that declare no scenes.
func (b *gltfSceneBuilder) SceneRoots(sceneIndex int) (string, []int) {
	if sceneIndex < 0 {
		var roots []int
		for i, p := range b.parents {
			if p < 0 {
				roots = append(roots, i)
			}
		}
		return "scene", roots
	}

	scene := &b.doc.Scenes[sceneIndex]
	name := scene.Name
	if name == "" {
		name = fmt.Sprintf("scene_%d", sceneIndex)
	}
	return name, scene.Nodes
}

// Build traverses one scene depth-first and constructs the assets of every node in traversal order.
//
// Parameters:
//   - ctx: cancellation is checked between nodes
//   - sceneIndex: the scene index, or -1 for the implicit scene
//
// Returns:
//   - *gltfSceneOutput: the scene, its assets and per-asset errors
//   - error: the context error if the request was canceled
func (b *gltfSceneBuilder) Build(ctx context.Context, sceneIndex int) (*gltfSceneOutput, error) {
	name, roots := b.SceneRoots(sceneIndex)
	out := &gltfSceneOutput{
		Scene: model.Scene{Name: name, Index: sceneIndex},
	}

	// The implicit scene owns every node, including nodes that only parent each other in a loop
	// and are therefore unreachable from a parentless root.
	starts := roots
	if sceneIndex < 0 {
		starts = make([]int, len(b.doc.Nodes))
		for i := range starts {
			starts[i] = i
		}
	}

	// Cycles are found before anything is constructed so an aborted scene emits nothing.
	if err := b.detectCycles(starts); err != nil {
		out.Err = errors.WithMessagef(err, "scene %q", name)
		return out, nil
	}

	scenePath := "/" + gltfPathSegment(name)
	segments := b.segments(roots)
	for i, root := range roots {
		if err := b.visit(ctx, out, root, -1, segments[i], scenePath, "", mgl32.Ident4()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// detectCycles runs a depth-first walk that tracks the nodes on the current path.
// Nodes whose subtree was already walked are not walked again.
func (b *gltfSceneBuilder) detectCycles(starts []int) error {
	const (
		unvisited = iota
		onPath
		finished
	)
	state := make([]uint8, len(b.doc.Nodes))

	var walk func(node int) error
	walk = func(node int) error {
		switch state[node] {
		case onPath:
			return errors.Wrapf(ErrCyclicHierarchy, "node %d is its own ancestor", node)
		case finished:
			return nil
		}
		state[node] = onPath
		for _, child := range b.doc.Nodes[node].Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		state[node] = finished
		return nil
	}

	for _, start := range starts {
		if err := walk(start); err != nil {
			return err
		}
	}
	return nil
}

// segments names each node of a sibling list for its path. A segment already taken by an
// earlier sibling gets the node index appended, so sibling paths never collide.
func (b *gltfSceneBuilder) segments(nodes []int) []string {
	used := make(map[string]bool, len(nodes))
	out := make([]string, len(nodes))
	for i, n := range nodes {
		seg := gltfPathSegment(b.nodeName(n))
		for used[seg] {
			seg = fmt.Sprintf("%s#%d", seg, n)
		}
		used[seg] = true
		out[i] = seg
	}
	return out
}

func (b *gltfSceneBuilder) nodeName(nodeIndex int) string {
	if name := b.doc.Nodes[nodeIndex].Name; name != "" {
		return name
	}
	return fmt.Sprintf("node_%d", nodeIndex)
}

func (b *gltfSceneBuilder) visit(ctx context.Context, out *gltfSceneOutput, nodeIndex, parent int, segment, parentPath, parentNodePath string, parentWorld mgl32.Mat4) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	node := &b.doc.Nodes[nodeIndex]
	path := parentPath + "/" + segment
	world := parentWorld.Mul4(gltfNodeMatrix(node))

	out.Scene.Nodes = append(out.Scene.Nodes, model.SceneNode{
		Index:  nodeIndex,
		Name:   b.nodeName(nodeIndex),
		Path:   path,
		Parent: parent,
		Local:  gltfExtractNodeTransform(node),
		World:  world,
	})

	base := model.ConstructedAsset{
		Path:       path,
		ParentPath: parentNodePath,
		Node:       nodeIndex,
		World:      world,
		Skin:       -1,
	}

	if node.Skin != nil && !b.opts.meshOnly {
		b.emitSkeleton(ctx, out, base, *node.Skin)
	}
	if node.Mesh != nil {
		b.emitMesh(ctx, out, base, node)
	}
	if node.Camera != nil && !b.opts.meshOnly {
		asset := base
		asset.Kind = model.AssetCamera
		asset.SourceIndex = *node.Camera
		asset.Camera = gltfExtractCamera(b.doc, *node.Camera)
		out.Assets = append(out.Assets, asset)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	segments := b.segments(node.Children)
	for i, child := range node.Children {
		if err := b.visit(ctx, out, child, nodeIndex, segments[i], path, path, world); err != nil {
			return err
		}
	}
	return nil
}

func (b *gltfSceneBuilder) emitSkeleton(ctx context.Context, out *gltfSceneOutput, base model.ConstructedAsset, skinIndex int) {
	if b.emittedSkins[skinIndex] {
		return
	}
	b.emittedSkins[skinIndex] = true

	asset := base
	asset.Kind = model.AssetSkeleton
	asset.SourceIndex = skinIndex
	asset.Skin = skinIndex

	skeleton, err := b.skeletons.ExtractSkeleton(ctx, skinIndex)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		asset.Status = model.StatusFailed
		asset.Err = err
		out.Errors = append(out.Errors, &AssetError{Kind: model.AssetSkeleton, Path: base.Path, Index: skinIndex, Err: err})
	} else {
		asset.Skeleton = skeleton
	}
	out.Assets = append(out.Assets, asset)
}

func (b *gltfSceneBuilder) emitMesh(ctx context.Context, out *gltfSceneOutput, base model.ConstructedAsset, node *gltfNode) {
	meshIndex := *node.Mesh
	src := &b.doc.Meshes[meshIndex]

	for _, prim := range src.Primitives {
		if prim.Material == nil || b.emittedMaterials[*prim.Material] {
			continue
		}
		b.emittedMaterials[*prim.Material] = true

		mat, warnings := b.materials.ExtractMaterial(ctx, *prim.Material)
		if ctx.Err() != nil {
			return
		}
		asset := base
		asset.Kind = model.AssetMaterial
		asset.SourceIndex = *prim.Material
		asset.Material = mat
		asset.Warnings = warnings
		out.Assets = append(out.Assets, asset)
		for _, w := range warnings {
			out.Warnings = append(out.Warnings, &AssetError{Kind: model.AssetMaterial, Path: base.Path, Index: *prim.Material, Err: w})
		}
	}

	res := b.meshes.ExtractMesh(ctx, meshIndex)
	if ctx.Err() != nil {
		return
	}

	asset := base
	asset.Kind = model.AssetMesh
	asset.SourceIndex = meshIndex
	if node.Skin != nil {
		asset.Skin = *node.Skin
	}

	for _, skipped := range res.Skipped {
		out.Errors = append(out.Errors, &AssetError{Kind: model.AssetMesh, Path: base.Path, Index: meshIndex, Err: skipped})
	}
	if res.Err != nil {
		asset.Status = model.StatusFailed
		asset.Err = res.Err
		if len(res.Skipped) == 0 {
			out.Errors = append(out.Errors, &AssetError{Kind: model.AssetMesh, Path: base.Path, Index: meshIndex, Err: res.Err})
		}
		out.Assets = append(out.Assets, asset)
		return
	}

	inst := b.instance(res.Mesh, meshIndex, asset.Skin)
	for _, d := range inst.dropped {
		out.Errors = append(out.Errors, &AssetError{Kind: model.AssetMesh, Path: base.Path, Index: meshIndex, Err: d})
	}
	if len(inst.meshes) == 0 {
		asset.Status = model.StatusFailed
		asset.Err = inst.dropped[len(inst.dropped)-1]
		out.Assets = append(out.Assets, asset)
		return
	}

	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, &AssetError{Kind: model.AssetMesh, Path: base.Path, Index: meshIndex, Err: w})
	}
	for _, mesh := range inst.meshes {
		a := asset
		a.Mesh = mesh
		a.Warnings = res.Warnings
		a.Weights = mesh.Weights
		if len(node.Weights) > 0 {
			a.Weights = append([]float32(nil), node.Weights...)
		}
		out.Assets = append(out.Assets, a)
	}
}

// instance returns the meshes delivered for a mesh bound to skin (-1 for none). Primitives that
// address joints the skin does not have are dropped; with per-primitive delivery the remaining
// primitives become one mesh each.
func (b *gltfSceneBuilder) instance(mesh *model.Mesh, meshIndex, skin int) *gltfMeshInstance {
	key := [2]int{meshIndex, skin}
	if inst, ok := b.instances[key]; ok {
		return inst
	}

	inst := &gltfMeshInstance{}
	if skin >= 0 {
		mesh, inst.dropped = gltfCheckJointRange(mesh, len(b.doc.Skins[skin].Joints))
	}
	switch {
	case mesh == nil:
	case b.opts.perPrimitive:
		inst.meshes = gltfSplitPrimitives(mesh)
	default:
		inst.meshes = []*model.Mesh{mesh}
	}
	b.instances[key] = inst
	return inst
}

// gltfPathSegment keeps node names from splitting a path.
func gltfPathSegment(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}

package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type gltfSkeletonResult struct {
	skeleton *model.Skeleton
	err      error
}

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	resolver gltfBufferResolver
	parents  []int

	mu        sync.Mutex
	skeletons map[int]gltfSkeletonResult
}

// gltfSkeletonExtractor converts glTF skins into bone hierarchies.
// Bones keep the order of the skin's joint list, so vertex joint indices address them directly;
// the parents-first order is exposed separately as Skeleton.EvaluationOrder.
type gltfSkeletonExtractor interface {
	// ExtractSkeleton builds the skeleton of a skin. Results are memoized by skin index.
	//
	// Parameters:
	//   - ctx: context bounding any buffer fetch
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *model.Skeleton: the skeleton
	//   - error: error if the inverse bind matrices cannot be read
	ExtractSkeleton(ctx context.Context, skinIndex int) (*model.Skeleton, error)

	// FindSkeletonForMesh finds which skin is bound to a mesh by any node.
	//
	// Parameters:
	//   - meshIndex: the mesh index to find a skin for
	//
	// Returns:
	//   - int: the skin index, or -1 if none
	FindSkeletonForMesh(meshIndex int) int
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor.
//
// Parameters:
//   - resolver: the accessor source
//   - parents: the node parent table from gltfNodeParents
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(resolver gltfBufferResolver, parents []int) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{
		resolver:  resolver,
		parents:   parents,
		skeletons: make(map[int]gltfSkeletonResult),
	}
}

func (e *gltfSkeletonExtractorImpl) ExtractSkeleton(ctx context.Context, skinIndex int) (*model.Skeleton, error) {
	e.mu.Lock()
	if res, ok := e.skeletons[skinIndex]; ok {
		e.mu.Unlock()
		return res.skeleton, res.err
	}
	e.mu.Unlock()

	skeleton, err := e.extractSkeleton(ctx, skinIndex)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	e.mu.Lock()
	e.skeletons[skinIndex] = gltfSkeletonResult{skeleton: skeleton, err: err}
	e.mu.Unlock()
	return skeleton, err
}

func (e *gltfSkeletonExtractorImpl) FindSkeletonForMesh(meshIndex int) int {
	for _, node := range e.resolver.Document().Nodes {
		if node.Mesh != nil && *node.Mesh == meshIndex && node.Skin != nil {
			return *node.Skin
		}
	}
	return -1
}

func (e *gltfSkeletonExtractorImpl) extractSkeleton(ctx context.Context, skinIndex int) (*model.Skeleton, error) {
	doc := e.resolver.Document()
	skin := &doc.Skins[skinIndex]

	var inverseBindMatrices []mgl32.Mat4
	if skin.InverseBindMatrices != nil {
		var err error
		inverseBindMatrices, err = e.resolver.ReadMat4(ctx, *skin.InverseBindMatrices)
		if err != nil {
			return nil, errors.WithMessage(err, "inverse bind matrices")
		}
		if len(inverseBindMatrices) != len(skin.Joints) {
			return nil, errors.Wrapf(ErrFormat, "%d inverse bind matrices for %d joints", len(inverseBindMatrices), len(skin.Joints))
		}
	}

	skeleton := &model.Skeleton{
		Name:            skin.Name,
		SkinIndex:       skinIndex,
		RootNode:        -1,
		Bones:           make([]model.Bone, len(skin.Joints)),
		BoneNameToIndex: make(map[string]int32, len(skin.Joints)),
		NodeToBone:      make(map[int]int32, len(skin.Joints)),
	}
	if skeleton.Name == "" {
		skeleton.Name = fmt.Sprintf("skin_%d", skinIndex)
	}
	if skin.Skeleton != nil {
		skeleton.RootNode = *skin.Skeleton
	}

	// First pass: create bones and map names
	for i, jointIndex := range skin.Joints {
		node := &doc.Nodes[jointIndex]
		bone := &skeleton.Bones[i]

		bone.Name = node.Name
		if bone.Name == "" {
			bone.Name = fmt.Sprintf("bone_%d", i)
		}
		if _, dup := skeleton.BoneNameToIndex[bone.Name]; !dup {
			skeleton.BoneNameToIndex[bone.Name] = int32(i)
		}
		if _, dup := skeleton.NodeToBone[jointIndex]; !dup {
			skeleton.NodeToBone[jointIndex] = int32(i)
		}

		bone.NodeIndex = jointIndex
		bone.ParentNode = -1
		bone.InverseBindMatrix = mgl32.Ident4()
		if inverseBindMatrices != nil {
			bone.InverseBindMatrix = inverseBindMatrices[i]
		}
		bone.LocalTransform = gltfExtractNodeTransform(node)
	}

	// Second pass: nearest joint ancestor
	for i := range skeleton.Bones {
		bone := &skeleton.Bones[i]
		bone.ParentIndex = e.nearestJointAncestor(bone.NodeIndex, skeleton.NodeToBone)
	}

	// Third pass: fall back to the declared root, then to the node tree
	rootBone, hasRootBone := int32(-1), false
	if skin.Skeleton != nil {
		rootBone, hasRootBone = skeleton.NodeToBone[*skin.Skeleton]
	}
	for i := range skeleton.Bones {
		bone := &skeleton.Bones[i]
		if bone.ParentIndex >= 0 {
			continue
		}
		if hasRootBone && rootBone != int32(i) && !gltfBoneDescendsFrom(skeleton.Bones, rootBone, int32(i)) {
			bone.ParentIndex = rootBone
			continue
		}
		bone.ParentNode = e.parents[bone.NodeIndex]
	}

	for i := range skeleton.Bones {
		if skeleton.Bones[i].ParentIndex < 0 {
			skeleton.RootBoneIndices = append(skeleton.RootBoneIndices, int32(i))
		}
	}
	skeleton.EvaluationOrder = gltfTopologicalSortBones(skeleton.Bones, skeleton.RootBoneIndices)
	return skeleton, nil
}

// nearestJointAncestor walks up the node tree from node and returns the bone of the first joint found, or -1.
func (e *gltfSkeletonExtractorImpl) nearestJointAncestor(node int, nodeToBone map[int]int32) int32 {
	seen := make(map[int]bool)
	for p := e.parents[node]; p >= 0 && !seen[p]; p = e.parents[p] {
		seen[p] = true
		if b, ok := nodeToBone[p]; ok {
			return b
		}
	}
	return -1
}

// gltfBoneDescendsFrom reports whether bone's parent chain reaches ancestor.
func gltfBoneDescendsFrom(bones []model.Bone, bone, ancestor int32) bool {
	for steps, b := 0, bone; b >= 0 && steps <= len(bones); steps++ {
		if b == ancestor {
			return true
		}
		b = bones[b].ParentIndex
	}
	return false
}

// --- Helper Functions ---

// gltfNodeParents returns the parent of every node, or -1 for parentless nodes.
// A node listed as a child more than once keeps its first parent.
func gltfNodeParents(doc *gltfDocument) []int {
	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, node := range doc.Nodes {
		for _, child := range node.Children {
			if parents[child] < 0 && child != i {
				parents[child] = i
			}
		}
	}
	return parents
}

// gltfExtractNodeTransform extracts the TRS transform of a glTF node.
func gltfExtractNodeTransform(node *gltfNode) model.Transform {
	if node.Matrix != nil {
		return model.TransformFromMatrix(mgl32.Mat4(*node.Matrix))
	}

	transform := model.IdentityTransform()
	if node.Translation != nil {
		transform.Translation = *node.Translation
	}
	if node.Rotation != nil {
		transform.Rotation = *node.Rotation
	}
	if node.Scale != nil {
		transform.Scale = *node.Scale
	}
	return transform
}

// gltfNodeMatrix returns the local matrix of a node. A declared matrix is used as is,
// column-major like mgl32.
func gltfNodeMatrix(node *gltfNode) mgl32.Mat4 {
	if node.Matrix != nil {
		return mgl32.Mat4(*node.Matrix)
	}
	return gltfExtractNodeTransform(node).Matrix()
}

// gltfTopologicalSortBones returns bone indices in breadth-first order from the roots,
// so every parent precedes its children. Bones unreachable from a root are appended last.
//
// Parameters:
//   - bones: the bone array with parent indices set
//   - rootIndices: indices of root bones (no parent)
//
// Returns:
//   - []int32: the evaluation order
func gltfTopologicalSortBones(bones []model.Bone, rootIndices []int32) []int32 {
	if len(bones) == 0 {
		return nil
	}

	children := make(map[int32][]int32)
	for i, bone := range bones {
		if bone.ParentIndex >= 0 {
			children[bone.ParentIndex] = append(children[bone.ParentIndex], int32(i))
		}
	}

	sorted := make([]int32, 0, len(bones))
	visited := make([]bool, len(bones))
	queue := append([]int32(nil), rootIndices...)
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if visited[idx] {
			continue
		}
		visited[idx] = true
		sorted = append(sorted, idx)
		queue = append(queue, children[idx]...)
	}

	for i := range bones {
		if !visited[i] {
			sorted = append(sorted, int32(i))
		}
	}
	return sorted
}

package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// --- Transform & Skeleton Types ---

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Matrix composes the transform as T * R * S.
func (t Transform) Matrix() mgl32.Mat4 {
	return common.ComposeTRS(t.Translation, t.Rotation, t.Scale)
}

// TransformFromMatrix decomposes m into a Transform.
func TransformFromMatrix(m mgl32.Mat4) Transform {
	tr, rot, sc := common.DecomposeMatrix(m)
	return Transform{Translation: tr, Rotation: rot, Scale: sc}
}

// Bone represents a single bone in a skeleton hierarchy.
type Bone struct {
	// Name is the bone's identifier (for debugging and animation targeting).
	Name string

	// NodeIndex is the source node this bone was built from.
	NodeIndex int

	// ParentIndex is the index of the parent bone (-1 for root bones).
	ParentIndex int32

	// ParentNode is the source node-tree parent of a root bone, or -1.
	// It is only meaningful when ParentIndex is -1.
	ParentNode int

	// InverseBindMatrix transforms from model space to bone space at bind pose.
	InverseBindMatrix mgl32.Mat4

	// LocalTransform is the bone's bind transform relative to its parent node.
	LocalTransform Transform
}

// Skeleton represents a bone hierarchy for skeletal animation.
// Bones are ordered exactly as the skin's joint list so vertex joint indices address them directly.
type Skeleton struct {
	// Name is the skin name.
	Name string

	// SkinIndex is the source skin index.
	SkinIndex int

	// RootNode is the declared skeleton root node, or -1.
	RootNode int

	// Bones is the array of all bones in the skeleton.
	Bones []Bone

	// RootBoneIndices are indices of bones with no parent bone.
	RootBoneIndices []int32

	// EvaluationOrder lists bone indices with every parent before its children.
	EvaluationOrder []int32

	// BoneNameToIndex maps bone names to their indices for quick lookup.
	BoneNameToIndex map[string]int32

	// NodeToBone maps source node indices to bone indices.
	NodeToBone map[int]int32
}

// BoneIndex returns the bone index for a name, or -1.
func (s *Skeleton) BoneIndex(name string) int32 {
	if s == nil {
		return -1
	}
	if i, ok := s.BoneNameToIndex[name]; ok {
		return i
	}
	return -1
}

// --- Animation Types ---

// Interpolation is a keyframe interpolation mode.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationStep:
		return "STEP"
	case InterpolationCubicSpline:
		return "CUBICSPLINE"
	default:
		return "LINEAR"
	}
}

// TrackPath is the node property a track animates.
type TrackPath int

const (
	PathTranslation TrackPath = iota
	PathRotation
	PathScale
	PathWeights
)

func (p TrackPath) String() string {
	switch p {
	case PathRotation:
		return "rotation"
	case PathScale:
		return "scale"
	case PathWeights:
		return "weights"
	default:
		return "translation"
	}
}

// AnimationClip represents a single animation (walk, run, attack, etc.).
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Index is the source animation index.
	Index int

	// Duration is the total length of the animation in seconds.
	Duration float32

	// Tracks contains one keyframe track per animated (node, property) pair.
	Tracks []Track
}

// TracksForNode returns every track animating node.
func (c *AnimationClip) TracksForNode(node int) []*Track {
	var out []*Track
	for i := range c.Tracks {
		if c.Tracks[i].Node == node {
			out = append(out, &c.Tracks[i])
		}
	}
	return out
}

// Track holds keyframes for a single node property.
// Values are flat: Components floats per key, or 3*Components per key for cubic splines
// laid out as in-tangent, value, out-tangent.
type Track struct {
	// Node is the animated node index.
	Node int

	// NodeName is the animated node's name, for host-side retargeting.
	NodeName string

	Path          TrackPath
	Interpolation Interpolation

	// Times are strictly increasing keyframe times in seconds.
	Times []float32

	// Values holds the keyframe values.
	Values []float32

	// Components is the number of floats per value: 3, 4, or the morph target count.
	Components int
}

// --- Mesh Types ---

// Topology is the primitive assembly mode of a mesh primitive after triangulation.
type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyLines
	TopologyPoints
)

func (t Topology) String() string {
	switch t {
	case TopologyLines:
		return "lines"
	case TopologyPoints:
		return "points"
	default:
		return "triangles"
	}
}

// Influence is one joint weight acting on a vertex. Joint indexes the skeleton's bones.
type Influence struct {
	Joint  uint32
	Weight float32
}

// MorphTarget holds per-vertex deltas aligned with the base vertex arrays.
// A nil slice means the target does not displace that attribute.
type MorphTarget struct {
	Name           string
	PositionDeltas [][3]float32
	NormalDeltas   [][3]float32
	TangentDeltas  [][3]float32
}

// MeshPrimitive is one drawable piece of a mesh with planar vertex arrays.
// Every non-nil per-vertex slice has exactly len(Positions) entries.
type MeshPrimitive struct {
	// Index is the primitive's position within the source mesh.
	Index int

	Topology Topology

	Positions [][3]float32
	Normals   [][3]float32

	// Tangents carry handedness in W.
	Tangents [][4]float32

	// UVs holds TEXCOORD_0..n in order.
	UVs [][][2]float32

	// Colors holds COLOR_0..n expanded to RGBA.
	Colors [][][4]float32

	// Influences lists the merged, renormalized joint weights of each vertex, strongest first.
	Influences [][]Influence

	// Indices is the list-topology index buffer.
	Indices []uint32

	// MaterialIndex references the source material, or -1.
	MaterialIndex int

	Targets []MorphTarget

	Bounds common.AABB
}

// VertexCount returns the number of vertices.
func (p *MeshPrimitive) VertexCount() int {
	return len(p.Positions)
}

// Skinned reports whether the primitive carries joint influences.
func (p *MeshPrimitive) Skinned() bool {
	return len(p.Influences) > 0
}

// Mesh is a synthesized mesh made of one or more primitives.
type Mesh struct {
	// Name is the mesh identifier.
	Name string

	// MeshIndex is the source mesh index, or -1 for merged meshes.
	MeshIndex int

	Primitives []MeshPrimitive

	// Weights are the default morph target weights.
	Weights []float32

	// TargetNames are optional morph target names.
	TargetNames []string

	Bounds common.AABB
	Sphere common.Sphere

	// Sockets maps names to transforms relative to the mesh origin. Merged meshes record their
	// mesh-less nodes here; a pivoted mesh may record its source origin.
	Sockets map[string]Transform

	// LODs holds coarser levels of detail in order. The mesh itself is level 0.
	LODs []*Mesh
}

// IndexCount returns the total number of indices across primitives.
func (m *Mesh) IndexCount() int {
	n := 0
	for i := range m.Primitives {
		n += len(m.Primitives[i].Indices)
	}
	return n
}

// VertexCount returns the total number of vertices across primitives.
func (m *Mesh) VertexCount() int {
	n := 0
	for i := range m.Primitives {
		n += len(m.Primitives[i].Positions)
	}
	return n
}

// LODCount returns the number of levels of detail, including the mesh itself.
func (m *Mesh) LODCount() int {
	return 1 + len(m.LODs)
}

// LOD returns level i, where level 0 is the mesh itself, or nil when out of range.
func (m *Mesh) LOD(i int) *Mesh {
	switch {
	case i == 0:
		return m
	case i > 0 && i <= len(m.LODs):
		return m.LODs[i-1]
	default:
		return nil
	}
}

// --- Camera Types ---

// CameraProjection distinguishes perspective from orthographic cameras.
type CameraProjection int

const (
	ProjectionPerspective CameraProjection = iota
	ProjectionOrthographic
)

// Camera is an engine-neutral camera description.
type Camera struct {
	Name       string
	Index      int
	Projection CameraProjection

	// Perspective parameters. AspectRatio is 0 when the host should use the viewport aspect.
	YFov        float32
	AspectRatio float32

	// Orthographic parameters.
	XMag float32
	YMag float32

	ZNear float32

	// ZFar is 0 for an infinite perspective projection.
	ZFar float32
}

// --- Scene Types ---

// SceneNode is one node of a traversed scene with its composed transforms.
type SceneNode struct {
	Index  int
	Name   string
	Path   string
	Parent int
	Local  Transform
	World  mgl32.Mat4
}

// Scene is a traversed scene.
type Scene struct {
	Name  string
	Index int
	Nodes []SceneNode
}

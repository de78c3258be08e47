package model

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// model is the implementation of the Model interface.
type model struct {
	name       string
	source     string
	assets     []ConstructedAsset
	scenes     []Scene
	meshes     []*Mesh
	skeletons  []*Skeleton
	animations []*AnimationClip
	materials  []*common.Material
	cameras    []*Camera
	bounds     common.AABB
}

// Model defines the interface for a loaded glTF model.
// A Model aggregates every ConstructedAsset of a completed load request together with
// the traversed scenes. It is produced by the Loader and is safe for concurrent reads.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Source retrieves the path or name the model was loaded from.
	//
	// Returns:
	//   - string: the source identifier
	Source() string

	// Skinned reports whether any mesh of this model carries joint influences.
	//
	// Returns:
	//   - bool: true if the model has bone data
	Skinned() bool

	// Assets retrieves every constructed asset in traversal order, including failed ones.
	//
	// Returns:
	//   - []ConstructedAsset: the assets
	Assets() []ConstructedAsset

	// Scenes retrieves the traversed scenes.
	//
	// Returns:
	//   - []Scene: the scenes
	Scenes() []Scene

	// Meshes retrieves the distinct ready meshes.
	//
	// Returns:
	//   - []*Mesh: the meshes
	Meshes() []*Mesh

	// MeshByName returns the first mesh with the given name, or nil.
	//
	// Parameters:
	//   - name: the mesh name
	//
	// Returns:
	//   - *Mesh: the mesh or nil
	MeshByName(name string) *Mesh

	// Skeleton retrieves the first skeleton, or nil for static models.
	//
	// Returns:
	//   - *Skeleton: the skeleton or nil
	Skeleton() *Skeleton

	// Skeletons retrieves every ready skeleton.
	//
	// Returns:
	//   - []*Skeleton: the skeletons
	Skeletons() []*Skeleton

	// SkeletonBySkin returns the skeleton built from a skin index, or nil.
	//
	// Parameters:
	//   - skin: the source skin index
	//
	// Returns:
	//   - *Skeleton: the skeleton or nil
	SkeletonBySkin(skin int) *Skeleton

	// Animations retrieves all animation clips bundled with this model.
	//
	// Returns:
	//   - []*AnimationClip: the animation clips
	Animations() []*AnimationClip

	// AnimationCount returns the number of available animation clips.
	//
	// Returns:
	//   - int: the animation count
	AnimationCount() int

	// AnimationNames returns the names of all animation clips.
	//
	// Returns:
	//   - []string: the animation clip names
	AnimationNames() []string

	// GetAnimationIndex returns the index of an animation by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the animation clip name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	GetAnimationIndex(name string) int

	// AnimationByName returns the clip with the given name, or nil.
	//
	// Parameters:
	//   - name: the animation clip name
	//
	// Returns:
	//   - *AnimationClip: the clip or nil
	AnimationByName(name string) *AnimationClip

	// Materials retrieves the resolved materials.
	//
	// Returns:
	//   - []*common.Material: the materials
	Materials() []*common.Material

	// Cameras retrieves the resolved cameras.
	//
	// Returns:
	//   - []*Camera: the cameras
	Cameras() []*Camera

	// Bounds returns the world-space bounding box of every ready mesh instance.
	//
	// Returns:
	//   - common.AABB: the bounds
	Bounds() common.AABB

	// BoundingRadius returns the radius of the sphere around Bounds.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// MergeHierarchy merges every mesh instance under the named node into a single mesh with
	// transforms baked relative to that node. Nodes named in exclude are skipped together with
	// their subtrees. Mesh-less nodes are recorded as sockets under their name, or under their path
	// below the root when another socket already took that name.
	//
	// Parameters:
	//   - root: the name of the subtree root node
	//   - exclude: node names to skip
	//
	// Returns:
	//   - *Mesh: the merged mesh
	//   - error: error if the root node does not exist or contains no meshes
	MergeHierarchy(root string, exclude ...string) (*Mesh, error)

	// VisibleFrom returns the ready mesh instances whose world bounds intersect the view
	// volume of a camera asset.
	//
	// Parameters:
	//   - camera: a ready camera asset of this model
	//   - aspect: the viewport aspect ratio used when the camera does not fix one
	//
	// Returns:
	//   - []ConstructedAsset: the visible mesh instances in traversal order
	VisibleFrom(camera ConstructedAsset, aspect float32) []ConstructedAsset
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{bounds: common.EmptyAABB()}
	for _, opt := range options {
		opt(m)
	}
	if !m.bounds.Valid() {
		m.bounds = common.AABB{}
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Source() string {
	return m.source
}

func (m *model) Skinned() bool {
	for _, mesh := range m.meshes {
		for i := range mesh.Primitives {
			if mesh.Primitives[i].Skinned() {
				return true
			}
		}
	}
	return false
}

func (m *model) Assets() []ConstructedAsset {
	return m.assets
}

func (m *model) Scenes() []Scene {
	return m.scenes
}

func (m *model) Meshes() []*Mesh {
	return m.meshes
}

func (m *model) MeshByName(name string) *Mesh {
	for _, mesh := range m.meshes {
		if mesh.Name == name {
			return mesh
		}
	}
	return nil
}

func (m *model) Skeleton() *Skeleton {
	if len(m.skeletons) == 0 {
		return nil
	}
	return m.skeletons[0]
}

func (m *model) Skeletons() []*Skeleton {
	return m.skeletons
}

func (m *model) SkeletonBySkin(skin int) *Skeleton {
	for _, s := range m.skeletons {
		if s.SkinIndex == skin {
			return s
		}
	}
	return nil
}

func (m *model) Animations() []*AnimationClip {
	return m.animations
}

func (m *model) AnimationCount() int {
	return len(m.animations)
}

func (m *model) AnimationNames() []string {
	names := make([]string, len(m.animations))
	for i, anim := range m.animations {
		names[i] = anim.Name
	}
	return names
}

func (m *model) GetAnimationIndex(name string) int {
	for i, anim := range m.animations {
		if anim.Name == name {
			return i
		}
	}
	return -1
}

func (m *model) AnimationByName(name string) *AnimationClip {
	if i := m.GetAnimationIndex(name); i >= 0 {
		return m.animations[i]
	}
	return nil
}

func (m *model) Materials() []*common.Material {
	return m.materials
}

func (m *model) Cameras() []*Camera {
	return m.cameras
}

func (m *model) Bounds() common.AABB {
	return m.bounds
}

func (m *model) BoundingRadius() float32 {
	e := m.bounds.Extents()
	return mgl32.Vec3(e).Len()
}

func (m *model) MergeHierarchy(root string, exclude ...string) (*Mesh, error) {
	var scene *Scene
	rootPos := -1
	for si := range m.scenes {
		for ni, n := range m.scenes[si].Nodes {
			if n.Name == root {
				scene, rootPos = &m.scenes[si], ni
				break
			}
		}
		if scene != nil {
			break
		}
	}
	if scene == nil {
		return nil, errors.Errorf("node %q not found", root)
	}

	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	rootNode := scene.Nodes[rootPos]
	invRoot := rootNode.World.Inv()
	prefix := rootNode.Path + "/"

	included := map[int]bool{rootNode.Index: true}
	for _, n := range scene.Nodes {
		if n.Index == rootNode.Index || n.Parent < 0 {
			continue
		}
		if skip[n.Name] || !included[n.Parent] {
			continue
		}
		included[n.Index] = true
	}

	merged := &Mesh{
		Name:      root,
		MeshIndex: -1,
		Sockets:   make(map[string]Transform),
		Bounds:    common.EmptyAABB(),
	}
	withMesh := make(map[int]bool)
	for i := range m.assets {
		a := &m.assets[i]
		if a.Kind != AssetMesh || !a.Ready() || a.Node < 0 || !included[a.Node] {
			continue
		}
		// The same node index may be instanced by another scene.
		if a.Path != rootNode.Path && !strings.HasPrefix(a.Path, prefix) {
			continue
		}
		withMesh[a.Node] = true
		rel := invRoot.Mul4(a.World)
		for pi := range a.Mesh.Primitives {
			p := bakePrimitive(&a.Mesh.Primitives[pi], rel)
			p.Index = len(merged.Primitives)
			merged.Bounds = merged.Bounds.Union(p.Bounds)
			merged.Primitives = append(merged.Primitives, p)
		}
	}
	if len(merged.Primitives) == 0 {
		return nil, errors.Errorf("node %q has no meshes", root)
	}

	for _, n := range scene.Nodes {
		if !included[n.Index] || withMesh[n.Index] || n.Index == rootNode.Index {
			continue
		}
		name := n.Name
		if _, taken := merged.Sockets[name]; taken {
			name = strings.TrimPrefix(n.Path, prefix)
		}
		merged.Sockets[name] = TransformFromMatrix(invRoot.Mul4(n.World))
	}

	var positions [][3]float32
	for i := range merged.Primitives {
		positions = append(positions, merged.Primitives[i].Positions...)
	}
	merged.Sphere = common.ComputeBoundingSphere(merged.Bounds, positions)
	return merged, nil
}

// bakePrimitive returns a copy of p with positions, normals and tangents transformed by rel.
func bakePrimitive(p *MeshPrimitive, rel mgl32.Mat4) MeshPrimitive {
	out := *p
	out.Positions = make([][3]float32, len(p.Positions))
	for i, pos := range p.Positions {
		out.Positions[i] = common.TransformPoint(rel, pos)
	}
	if p.Normals != nil {
		out.Normals = make([][3]float32, len(p.Normals))
		for i, n := range p.Normals {
			out.Normals[i] = common.TransformDirection(rel, n)
		}
	}
	if p.Tangents != nil {
		out.Tangents = make([][4]float32, len(p.Tangents))
		for i, t := range p.Tangents {
			v := rel.Mat3().Mul3x1(mgl32.Vec3{t[0], t[1], t[2]})
			if v.Len() > 1e-12 {
				v = v.Normalize()
			}
			out.Tangents[i] = [4]float32{v[0], v[1], v[2], t[3]}
		}
	}
	if rel.Mat3().Det() < 0 && out.Topology == TopologyTriangles {
		out.Indices = make([]uint32, len(p.Indices))
		copy(out.Indices, p.Indices)
		for i := 0; i+2 < len(out.Indices); i += 3 {
			out.Indices[i+1], out.Indices[i+2] = out.Indices[i+2], out.Indices[i+1]
		}
	}
	out.Targets = nil
	out.Bounds = common.ComputeAABB(out.Positions)
	return out
}

func (m *model) VisibleFrom(camera ConstructedAsset, aspect float32) []ConstructedAsset {
	if camera.Kind != AssetCamera || !camera.Ready() {
		return nil
	}
	frustum := camera.Camera.Frustum(camera.World, aspect)

	var visible []ConstructedAsset
	for i := range m.assets {
		a := &m.assets[i]
		if a.Kind != AssetMesh || !a.Ready() || a.Node < 0 {
			continue
		}
		if frustum.IntersectsAABB(worldBounds(a.Mesh.Bounds, a)) {
			visible = append(visible, *a)
		}
	}
	return visible
}

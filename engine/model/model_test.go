package model

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

func quadMesh(name string) *Mesh {
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	p := MeshPrimitive{
		Positions:     positions,
		Normals:       [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Indices:       []uint32{0, 1, 2, 0, 2, 3},
		MaterialIndex: -1,
		Bounds:        common.ComputeAABB(positions),
	}
	return &Mesh{Name: name, Primitives: []MeshPrimitive{p}, Bounds: p.Bounds}
}

func testModel() Model {
	body := quadMesh("body")
	hat := quadMesh("hat")

	root := mgl32.Translate3D(10, 0, 0)
	child := root.Mul4(mgl32.Translate3D(0, 2, 0))
	socket := child.Mul4(mgl32.Translate3D(0, 1, 0))

	scenes := []Scene{{
		Name: "Scene",
		Nodes: []SceneNode{
			{Index: 0, Name: "Root", Path: "/Scene/Root", Parent: -1, World: root},
			{Index: 1, Name: "Hat", Path: "/Scene/Root/Hat", Parent: 0, World: child},
			{Index: 2, Name: "Tip", Path: "/Scene/Root/Hat/Tip", Parent: 1, World: socket},
			{Index: 3, Name: "Other", Path: "/Scene/Other", Parent: -1, World: mgl32.Ident4()},
		},
	}}
	assets := []ConstructedAsset{
		{Kind: AssetMesh, Status: StatusReady, Path: "/Scene/Root", Node: 0, World: root, Mesh: body, Skin: -1},
		{Kind: AssetMesh, Status: StatusReady, Path: "/Scene/Root/Hat", Node: 1, World: child, Mesh: hat, Skin: -1},
		{Kind: AssetMesh, Status: StatusReady, Path: "/Scene/Other", Node: 3, World: mgl32.Ident4(), Mesh: body, Skin: -1},
		{Kind: AssetAnimation, Status: StatusReady, Path: "/animations/Wave", Node: -1, Animation: &AnimationClip{Name: "Wave", Duration: 1}},
	}

	return NewModel(WithName("test"), WithSource("test.gltf"), WithScenes(scenes), WithAssets(assets))
}

func TestModelAggregates(t *testing.T) {
	m := testModel()

	if m.Name() != "test" || m.Source() != "test.gltf" {
		t.Errorf("unexpected name/source %q %q", m.Name(), m.Source())
	}
	if got := len(m.Meshes()); got != 2 {
		t.Errorf("expected shared mesh to be listed once, got %d meshes", got)
	}
	if m.MeshByName("hat") == nil {
		t.Error("expected to find mesh hat")
	}
	if m.AnimationCount() != 1 || m.GetAnimationIndex("Wave") != 0 || m.GetAnimationIndex("Run") != -1 {
		t.Errorf("unexpected animation lookup")
	}
	if m.AnimationByName("Wave") == nil {
		t.Error("expected to find animation Wave")
	}
	if m.Skinned() {
		t.Error("expected an unskinned model")
	}

	b := m.Bounds()
	if b.Min != [3]float32{0, 0, 0} || b.Max != [3]float32{11, 3, 0} {
		t.Errorf("unexpected world bounds %v", b)
	}
}

func TestMergeHierarchy(t *testing.T) {
	m := testModel()

	merged, err := m.MergeHierarchy("Root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Primitives) != 2 {
		t.Fatalf("expected 2 primitives, got %d", len(merged.Primitives))
	}
	if merged.MeshIndex != -1 {
		t.Errorf("expected merged mesh index -1, got %d", merged.MeshIndex)
	}

	// The hat is baked relative to the root, not in world space.
	hat := merged.Primitives[1]
	if hat.Positions[0] != [3]float32{0, 2, 0} {
		t.Errorf("expected hat origin at (0,2,0), got %v", hat.Positions[0])
	}
	if merged.Bounds.Max[1] != 3 {
		t.Errorf("expected merged bounds to reach y=3, got %v", merged.Bounds)
	}

	tip, ok := merged.Sockets["Tip"]
	if !ok {
		t.Fatal("expected a socket for the mesh-less Tip node")
	}
	if tip.Translation != [3]float32{0, 3, 0} {
		t.Errorf("expected Tip socket at (0,3,0), got %v", tip.Translation)
	}
}

func TestMergeHierarchyExclude(t *testing.T) {
	m := testModel()

	merged, err := m.MergeHierarchy("Root", "Hat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Primitives) != 1 {
		t.Errorf("expected excluded subtree to be skipped, got %d primitives", len(merged.Primitives))
	}
	if _, ok := merged.Sockets["Tip"]; ok {
		t.Error("expected descendants of an excluded node to be skipped")
	}

	if _, err := m.MergeHierarchy("Missing"); err == nil {
		t.Error("expected an error for an unknown root")
	}
}

func TestInterleave(t *testing.T) {
	p := quadMesh("q").Primitives[0]
	p.Influences = [][]Influence{
		{{Joint: 2, Weight: 0.5}, {Joint: 1, Weight: 0.3}, {Joint: 0, Weight: 0.1}, {Joint: 3, Weight: 0.07}, {Joint: 4, Weight: 0.03}},
		{{Joint: 0, Weight: 1}},
		{{Joint: 0, Weight: 1}},
		{{Joint: 0, Weight: 1}},
	}

	verts := p.Interleave()
	if len(verts) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(verts))
	}
	if verts[2].Position != [3]float32{1, 1, 0} || verts[2].Normal != [3]float32{0, 0, 1} {
		t.Errorf("unexpected vertex %v", verts[2])
	}
	if verts[0].Color != [4]float32{1, 1, 1, 1} {
		t.Errorf("expected default white color, got %v", verts[0].Color)
	}
	if got := len(verts[0].Marshal()); got != verts[0].Size() {
		t.Errorf("expected %d marshalled bytes, got %d", verts[0].Size(), got)
	}

	skinned := p.InterleaveSkinned()
	if skinned[0].Joints != [4]uint32{2, 1, 0, 3} {
		t.Errorf("expected the four strongest joints, got %v", skinned[0].Joints)
	}
	if got := len(skinned[0].Marshal()); got != skinned[0].Size() {
		t.Errorf("expected %d marshalled bytes, got %d", skinned[0].Size(), got)
	}
	if got := len(p.IndexBytes()); got != 4*len(p.Indices) {
		t.Errorf("expected %d index bytes, got %d", 4*len(p.Indices), got)
	}
}

func TestMergeHierarchyDuplicateNames(t *testing.T) {
	car := mgl32.Ident4()
	wheel := mgl32.Translate3D(1, 0, 0)
	spare := mgl32.Translate3D(0, 0, -2)

	scenes := []Scene{{
		Name: "Main",
		Nodes: []SceneNode{
			{Index: 0, Name: "Car", Path: "/Main/Car", Parent: -1, World: car},
			{Index: 1, Name: "Wheel", Path: "/Main/Car/Wheel", Parent: 0, World: wheel},
			{Index: 2, Name: "Wheel", Path: "/Main/Car/Wheel#2", Parent: 0, World: spare},
		},
	}}
	assets := []ConstructedAsset{
		{Kind: AssetMesh, Status: StatusReady, Path: "/Main/Car/Wheel", Node: 1, World: wheel, Mesh: quadMesh("wheel"), Skin: -1},
	}
	m := NewModel(WithScenes(scenes), WithAssets(assets))

	merged, err := m.MergeHierarchy("Car")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Primitives) != 1 {
		t.Fatalf("expected the wheel mesh only, got %d primitives", len(merged.Primitives))
	}
	socket, ok := merged.Sockets["Wheel"]
	if !ok {
		t.Fatalf("expected the mesh-less wheel as a socket, got %v", merged.Sockets)
	}
	if socket.Translation != [3]float32{0, 0, -2} {
		t.Errorf("expected the spare wheel socket at (0,0,-2), got %v", socket.Translation)
	}
}

func TestModelLODGroup(t *testing.T) {
	fine, coarse := quadMesh("rock"), quadMesh("rock_low")
	group := *fine
	group.LODs = []*Mesh{coarse}

	far := mgl32.Translate3D(100, 0, 0)
	assets := []ConstructedAsset{
		{Kind: AssetMesh, Status: StatusReady, Path: "/Main/Rock", Node: 0, World: mgl32.Ident4(), Mesh: fine, Skin: -1},
		{Kind: AssetMesh, Status: StatusReady, Path: "/lods/rock", Node: -1, World: far, Mesh: &group, Skin: -1},
	}
	m := NewModel(WithAssets(assets))

	if b := m.Bounds(); b.Max != [3]float32{1, 1, 0} {
		t.Errorf("expected LOD groups to stay out of the scene bounds, got %v", b)
	}
	if group.LODCount() != 2 || group.LOD(0) != &group || group.LOD(1) != coarse || group.LOD(2) != nil {
		t.Errorf("unexpected LOD levels %d", group.LODCount())
	}
	if fine.LODCount() != 1 {
		t.Errorf("expected a plain mesh to be its only level, got %d", fine.LODCount())
	}
}

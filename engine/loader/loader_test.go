package loader

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/resource"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Loader.Workers = 2
	cfg.Fetch.Backoff = config.Duration(time.Millisecond)
	return cfg
}

func newTestLoader(opts ...LoaderBuilderOption) Loader {
	return NewLoader(BackendTypeGLTF, append([]LoaderBuilderOption{WithConfig(testConfig())}, opts...)...)
}

func assetsOfKind(assets []model.ConstructedAsset, kind model.AssetKind) []model.ConstructedAsset {
	var out []model.ConstructedAsset
	for _, a := range assets {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func encodeTriangleGLB(t *testing.T) []byte {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "Tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]uint32{gltf.POSITION: pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{{
		Name:     "Root",
		Mesh:     gltf.Index(0),
		Matrix:   [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}}
	doc.Scenes[0].Nodes = []uint32{0}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("encode glb: %v", err)
	}
	return buf.Bytes()
}

func TestLoadGLBTriangle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	if err := os.WriteFile(path, encodeTriangleGLB(t), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := newTestLoader()
	res, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %v (%v)", res.Status, res.Errors)
	}

	meshes := assetsOfKind(res.Assets, model.AssetMesh)
	if len(meshes) != 1 {
		t.Fatalf("expected one mesh asset, got %d", len(meshes))
	}
	mesh := meshes[0].Mesh
	if !strings.HasSuffix(meshes[0].Path, "/Root") {
		t.Errorf("unexpected asset path %q", meshes[0].Path)
	}
	if len(mesh.Primitives) != 1 {
		t.Fatalf("expected one primitive, got %d", len(mesh.Primitives))
	}
	prim := mesh.Primitives[0]
	if len(prim.Indices) != 3 {
		t.Errorf("expected 3 indices, got %v", prim.Indices)
	}
	for i, n := range prim.Normals {
		if n != [3]float32{0, 0, 1} {
			t.Errorf("vertex %d: expected generated face normal (0,0,1), got %v", i, n)
		}
	}
	if mesh.Bounds.Min != [3]float32{0, 0, 0} || mesh.Bounds.Max != [3]float32{2, 2, 0} {
		t.Errorf("expected bounds to match accessor min/max, got %v", mesh.Bounds)
	}
	if mesh.Sphere.Radius <= 0 {
		t.Errorf("expected a bounding sphere, got %v", mesh.Sphere)
	}

	if res.Model == nil || l.Get(path) != res.Model {
		t.Error("expected the model to be cached under its path")
	}
	var stages []string
	for _, st := range res.Stats.Stages {
		stages = append(stages, st.Name)
	}
	if len(stages) == 0 || stages[0] != "fetch" || stages[1] != "parse" {
		t.Errorf("expected fetch then parse stages, got %v", stages)
	}
}

func TestLoadBytesTriangleJSON(t *testing.T) {
	l := newTestLoader()
	res, err := l.LoadBytes(context.Background(), "tri", triangleFixture().json(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meshes := assetsOfKind(res.Assets, model.AssetMesh)
	if len(meshes) != 1 {
		t.Fatalf("expected one mesh asset, got %d", len(meshes))
	}
	a := meshes[0]
	if a.Path != "/Main/Tri" || a.ParentPath != "" || a.Node != 0 {
		t.Errorf("unexpected asset placement %q %q %d", a.Path, a.ParentPath, a.Node)
	}
	prim := a.Mesh.Primitives[0]
	if len(prim.Indices) != 3 || prim.Topology != model.TopologyTriangles {
		t.Errorf("expected a sequential triangle list, got %v %v", prim.Topology, prim.Indices)
	}
	if prim.MaterialIndex != -1 {
		t.Errorf("expected no material, got %d", prim.MaterialIndex)
	}
	if prim.Tangents != nil {
		t.Error("expected no tangents without UVs")
	}
	if a.Mesh.Name != "Triangle" {
		t.Errorf("expected mesh name Triangle, got %q", a.Mesh.Name)
	}
}

func TestLoadAnimation(t *testing.T) {
	f := triangleFixture()
	times := f.floats("SCALAR", 0, 1)
	values := f.floats("VEC3", 0, 0, 0, 2, 4, 6)
	badTimes := f.floats("SCALAR", 1, 0.5)
	scales := f.floats("VEC3", 1, 1, 1, 2, 2, 2)
	f.set("animations", []any{map[string]any{
		"name": "Slide",
		"samplers": []any{
			map[string]any{"input": times, "output": values, "interpolation": "LINEAR"},
			map[string]any{"input": badTimes, "output": scales},
		},
		"channels": []any{
			map[string]any{"sampler": 0, "target": map[string]any{"node": 0, "path": "translation"}},
			map[string]any{"sampler": 1, "target": map[string]any{"node": 0, "path": "scale"}},
			map[string]any{"sampler": 0, "target": map[string]any{"node": 0, "path": "translation"}},
		},
	}})

	l := newTestLoader()
	res, err := l.LoadBytes(context.Background(), "anim", f.json(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusPartialSuccess {
		t.Errorf("expected partial success, got %v", res.Status)
	}

	var timeOrder, duplicate bool
	for _, e := range res.Errors {
		timeOrder = timeOrder || errors.Is(e, ErrTimeOrder)
		duplicate = duplicate || errors.Is(e, ErrDuplicateChannel)
	}
	if !timeOrder || !duplicate {
		t.Errorf("expected time order and duplicate channel errors, got %v", res.Errors)
	}

	anims := assetsOfKind(res.Assets, model.AssetAnimation)
	if len(anims) != 1 || !anims[0].Ready() {
		t.Fatalf("expected one ready animation, got %v", anims)
	}
	clip := anims[0].Animation
	if anims[0].Path != "/animations/Slide" || anims[0].Node != -1 {
		t.Errorf("unexpected animation placement %q %d", anims[0].Path, anims[0].Node)
	}
	if len(clip.Tracks) != 1 {
		t.Fatalf("expected the valid track only, got %d", len(clip.Tracks))
	}
	if clip.Duration != 1 {
		t.Errorf("expected duration 1, got %v", clip.Duration)
	}

	got := clip.Tracks[0].Sample(0.5, nil)
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("expected (1,2,3) at t=0.5, got %v", got)
	}
	if res.Model.AnimationByName("Slide") != clip {
		t.Error("expected the model to index the clip by name")
	}
}

func TestLoadSkinned(t *testing.T) {
	f := newGLTFFixture()
	pos := f.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)
	joints := f.ubytes("VEC4", false, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1)
	weights := f.floats("VEC4", 0.5, 0.5, 0, 0, 1, 0, 0, 0, 0.25, 0.25, 0.25, 0.25)
	f.set("meshes", []any{map[string]any{
		"primitives": []any{map[string]any{"attributes": map[string]any{
			"POSITION": pos, "JOINTS_0": joints, "WEIGHTS_0": weights,
		}}},
	}})
	f.set("skins", []any{map[string]any{"name": "Rig", "joints": []int{1, 2}}})
	f.set("nodes", []any{
		map[string]any{"name": "Body", "mesh": 0, "skin": 0},
		map[string]any{"name": "Hip", "children": []int{2}, "translation": []float32{0, 1, 0}},
		map[string]any{"name": "Knee", "translation": []float32{0, -0.5, 0}},
	})
	f.set("scenes", []any{map[string]any{"nodes": []int{1, 0}}})

	l := newTestLoader()
	res, err := l.LoadBytes(context.Background(), "skinned", f.json(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var kinds []model.AssetKind
	for _, a := range res.Assets {
		kinds = append(kinds, a.Kind)
	}
	if len(kinds) != 2 || kinds[0] != model.AssetSkeleton || kinds[1] != model.AssetMesh {
		t.Fatalf("expected skeleton before mesh, got %v", kinds)
	}

	skel := res.Assets[0].Skeleton
	if len(skel.Bones) != 2 || skel.Bones[1].ParentIndex != 0 || skel.Bones[0].ParentIndex != -1 {
		t.Errorf("unexpected bone hierarchy %+v", skel.Bones)
	}
	if skel.BoneIndex("Knee") != 1 {
		t.Errorf("expected Knee at bone 1, got %d", skel.BoneIndex("Knee"))
	}
	if len(skel.EvaluationOrder) != 2 || skel.EvaluationOrder[0] != 0 {
		t.Errorf("expected parents first, got %v", skel.EvaluationOrder)
	}

	mesh := res.Assets[1]
	if mesh.Skin != 0 {
		t.Errorf("expected the mesh bound to skin 0, got %d", mesh.Skin)
	}
	prim := mesh.Mesh.Primitives[0]
	for v, infl := range prim.Influences {
		var sum float32
		for _, inf := range infl {
			sum += inf.Weight
		}
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("vertex %d: weights sum to %v", v, sum)
		}
	}
	if len(prim.Influences[2]) != 2 {
		t.Errorf("expected duplicate joints to merge, got %v", prim.Influences[2])
	}
	if !res.Model.Skinned() {
		t.Error("expected a skinned model")
	}

	meshOnly, err := l.LoadBytes(context.Background(), "skinned", f.json(t), "", WithMeshOnly())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(meshOnly.Assets) != 1 || meshOnly.Assets[0].Kind != model.AssetMesh {
		t.Errorf("expected only the mesh in mesh-only mode, got %d assets", len(meshOnly.Assets))
	}
}

func TestLoadCyclicHierarchy(t *testing.T) {
	f := triangleFixture()
	f.set("nodes", []any{
		map[string]any{"name": "Loop", "mesh": 0, "children": []int{0}},
		map[string]any{"name": "Fine", "mesh": 0},
	})
	f.set("scenes", []any{
		map[string]any{"name": "Broken", "nodes": []int{0}},
		map[string]any{"name": "Good", "nodes": []int{1}},
	})

	l := newTestLoader()

	res, err := l.LoadBytes(context.Background(), "cycle-only", f.json(t), "", WithScene(0))
	if !errors.Is(err, ErrCyclicHierarchy) {
		t.Fatalf("expected ErrCyclicHierarchy, got %v", err)
	}
	if res.Status != StatusFailure || len(res.Assets) != 0 {
		t.Errorf("expected failure without assets, got %v with %d assets", res.Status, len(res.Assets))
	}

	res, err = l.LoadBytes(context.Background(), "cycle", f.json(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusPartialSuccess {
		t.Errorf("expected partial success, got %v", res.Status)
	}
	for _, a := range res.Assets {
		if a.Path != "/Good/Fine" {
			t.Errorf("expected only assets of the good scene, got %q", a.Path)
		}
	}
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], ErrCyclicHierarchy) {
		t.Errorf("expected one cyclic hierarchy error, got %v", res.Errors)
	}
}

func TestLoadExternalBufferFailure(t *testing.T) {
	var hits atomic.Int32
	router := mux.NewRouter()
	router.HandleFunc("/models/missing.bin", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}).Methods(http.MethodGet)
	server := httptest.NewServer(router)
	defer server.Close()

	f := triangleFixture()
	remote := f.externalFloats("missing.bin", "VEC3", 3)
	f.set("meshes", []any{
		map[string]any{"name": "Local", "primitives": []any{map[string]any{"attributes": map[string]any{"POSITION": 0}}}},
		map[string]any{"name": "Remote", "primitives": []any{map[string]any{"attributes": map[string]any{"POSITION": remote}}}},
	})
	f.set("nodes", []any{
		map[string]any{"name": "A", "mesh": 0},
		map[string]any{"name": "B", "mesh": 1},
	})
	f.set("scenes", []any{map[string]any{"name": "Main", "nodes": []int{0, 1}}})

	l := newTestLoader()
	res, err := l.LoadBytes(context.Background(), "remote", f.json(t), server.URL+"/models/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusPartialSuccess {
		t.Fatalf("expected partial success, got %v", res.Status)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected the fetch to be attempted twice, got %d", got)
	}

	meshes := assetsOfKind(res.Assets, model.AssetMesh)
	if len(meshes) != 2 {
		t.Fatalf("expected two mesh assets, got %d", len(meshes))
	}
	if !meshes[0].Ready() || meshes[0].Mesh.Name != "Local" {
		t.Errorf("expected the local mesh to complete, got %v", meshes[0].Err)
	}
	if meshes[1].Ready() || !errors.Is(meshes[1].Err, ErrFetch) {
		t.Errorf("expected the remote mesh to fail with ErrFetch, got %v", meshes[1].Err)
	}

	var assetErr *AssetError
	if len(res.Errors) == 0 || !errors.As(res.Errors[0], &assetErr) || assetErr.Path != "/Main/B" {
		t.Errorf("expected an asset error for /Main/B, got %v", res.Errors)
	}
}

func TestLoadDocumentErrors(t *testing.T) {
	badRef := triangleFixture()
	badRef.set("nodes", []any{map[string]any{"mesh": 3}})

	required := triangleFixture()
	required.set("extensionsRequired", []string{"KHR_draco_mesh_compression"})

	oldVersion := triangleFixture()
	oldVersion.set("asset", map[string]any{"version": "1.0"})

	badComponent := triangleFixture()
	badComponent.accessors[0]["componentType"] = 9999

	glb := encodeTriangleGLB(t)
	badMagic := append([]byte("glTX"), glb[4:]...)
	truncated := glb[:len(glb)-8]

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"malformed json", []byte(`{"asset": `), ErrFormat},
		{"old version", oldVersion.json(t), ErrFormat},
		{"bad reference", badRef.json(t), ErrReference},
		{"required extension", required.json(t), ErrUnsupportedExtension},
		{"unknown component type", badComponent.json(t), ErrUnsupportedFormat},
		{"glb bad magic", badMagic, ErrFormat},
		{"glb truncated", truncated, ErrFormat},
	}

	l := newTestLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := l.LoadBytes(context.Background(), tt.name, tt.data, "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !IsFatal(err) {
				t.Errorf("expected a fatal error, got %v", err)
			}
			if res.Status != StatusFailure || len(res.Assets) != 0 || res.Model != nil {
				t.Errorf("expected a failure without output, got %v", res.Status)
			}
			if l.Get(tt.name) != nil {
				t.Error("expected failed loads not to be cached")
			}
		})
	}
}

func TestLoadUnsupportedPath(t *testing.T) {
	l := newTestLoader()
	_, err := l.Load(context.Background(), "model.fbx")
	if !errors.Is(err, ErrUnsupportedFormat) || !IsFatal(err) {
		t.Errorf("expected a fatal ErrUnsupportedFormat, got %v", err)
	}

	_, err = l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.gltf"))
	if !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch for a missing file, got %v", err)
	}
}

func TestSubmitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var delivered atomic.Int32
	l := newTestLoader()
	req := l.Submit(ctx, Source{Name: "canceled", Data: triangleFixture().json(t)},
		WithAssetHandler(func(model.ConstructedAsset) { delivered.Add(1) }))

	res, err := req.Wait(context.Background())
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if res.Status != StatusFailure {
		t.Errorf("expected failure, got %v", res.Status)
	}
	for range req.Assets() {
		t.Error("expected no assets from a canceled request")
	}
	if delivered.Load() != 0 {
		t.Errorf("expected no handler calls, got %d", delivered.Load())
	}
}

func TestSubmitDelivery(t *testing.T) {
	f := triangleFixture()
	f.set("materials", []any{map[string]any{"name": "Red", "pbrMetallicRoughness": map[string]any{"baseColorFactor": []float32{1, 0, 0, 1}}}})
	f.set("meshes", []any{map[string]any{
		"primitives": []any{map[string]any{"attributes": map[string]any{"POSITION": 0}, "material": 0}},
	}})
	f.set("cameras", []any{map[string]any{"type": "perspective", "perspective": map[string]any{"yfov": 0.8, "znear": 0.1}}})
	f.set("nodes", []any{
		map[string]any{"name": "Tri", "mesh": 0, "children": []int{1}},
		map[string]any{"name": "Eye", "camera": 0},
	})

	var mu sync.Mutex
	var handled []string
	l := newTestLoader()
	req := l.Submit(context.Background(), Source{Name: "delivery", Data: f.json(t)},
		WithAssetHandler(func(a model.ConstructedAsset) {
			mu.Lock()
			handled = append(handled, a.Kind.String()+" "+a.Path)
			mu.Unlock()
		}))

	var streamed []string
	for a := range req.Assets() {
		streamed = append(streamed, a.Kind.String()+" "+a.Path)
	}
	<-req.Done()

	want := []string{
		model.AssetMaterial.String() + " /Main/Tri",
		model.AssetMesh.String() + " /Main/Tri",
		model.AssetCamera.String() + " /Main/Tri/Eye",
	}
	mu.Lock()
	defer mu.Unlock()
	for name, got := range map[string][]string{"handler": handled, "stream": streamed} {
		if len(got) != len(want) {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: expected %v, got %v", name, want, got)
				break
			}
		}
	}

	res := req.Result()
	if mat := res.Model.Materials(); len(mat) != 1 || mat[0].BaseColor != [4]float32{1, 0, 0, 1} {
		t.Errorf("unexpected materials %v", mat)
	}
	cam := res.Assets[2]
	if cam.Camera == nil || cam.Camera.ZFar != 0 || cam.ParentPath != "/Main/Tri" {
		t.Errorf("unexpected camera asset %+v", cam)
	}
}

func TestLoaderModelCache(t *testing.T) {
	var fetches atomic.Int32
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.gltf")
	if err := os.WriteFile(path, triangleFixture().json(t), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := newTestLoader(WithFetcher(resource.FetcherFunc(func(ctx context.Context, uri string) ([]byte, error) {
		fetches.Add(1)
		return os.ReadFile(uri)
	})))

	first, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Model != second.Model {
		t.Error("expected the cached model on the second load")
	}
	if fetches.Load() != 1 {
		t.Errorf("expected one fetch, got %d", fetches.Load())
	}
	if len(l.Models()) != 1 {
		t.Errorf("expected one cached model, got %d", len(l.Models()))
	}

	l.Evict(path)
	if l.Get(path) != nil {
		t.Error("expected the model to be evicted")
	}
}

func TestLoaderConcurrentRequests(t *testing.T) {
	l := newTestLoader()
	data := triangleFixture().json(t)

	reqs := make([]Request, 8)
	for i := range reqs {
		reqs[i] = l.Submit(context.Background(), Source{Name: "tri-" + string(rune('a'+i)), Data: data})
	}
	ids := make(map[string]bool)
	for _, req := range reqs {
		res, err := req.Wait(context.Background())
		if err != nil {
			t.Fatalf("request %s: %v", req.ID(), err)
		}
		if res.ID != req.ID() || ids[res.ID] {
			t.Errorf("unexpected or duplicate request id %q", res.ID)
		}
		ids[res.ID] = true
	}
}

func TestLoaderRequiredExtensions(t *testing.T) {
	cfg := testConfig()
	cfg.Loader.Extensions = append(cfg.Loader.Extensions, "KHR_draco_mesh_compression")
	l := NewLoader(BackendTypeGLTF, WithConfig(cfg))

	// Enabling an extension in config does not make it decodable.
	f := triangleFixture()
	f.set("extensionsUsed", []any{"KHR_draco_mesh_compression"})
	f.set("extensionsRequired", []any{"KHR_draco_mesh_compression"})
	res, err := l.LoadBytes(context.Background(), "draco.gltf", f.json(t), "")
	if !errors.Is(err, ErrUnsupportedExtension) || res.Status != StatusFailure {
		t.Fatalf("expected ErrUnsupportedExtension, got %v (%v)", err, res.Status)
	}

	// A disabled but implemented extension is rejected the same way when required.
	cfg = testConfig()
	cfg.Loader.Extensions = nil
	l = NewLoader(BackendTypeGLTF, WithConfig(cfg))
	f = triangleFixture()
	f.set("extensionsRequired", []any{"KHR_texture_transform"})
	if _, err := l.LoadBytes(context.Background(), "transform.gltf", f.json(t), ""); !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("expected ErrUnsupportedExtension, got %v", err)
	}

	f = triangleFixture()
	f.set("extensionsUsed", []any{"KHR_texture_transform"})
	if res, err := l.LoadBytes(context.Background(), "optional.gltf", f.json(t), ""); err != nil || res.Status != StatusSuccess {
		t.Errorf("expected optional extensions to be ignored, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"format", errors.Wrap(ErrFormat, "bad json"), true},
		{"reference", errors.Wrap(ErrReference, "mesh 3"), true},
		{"canceled", errors.Wrap(ErrCanceled, "stop"), true},
		{"document unsupported format", documentLevel(errors.Wrap(ErrUnsupportedFormat, "componentType 9999")), true},
		{"primitive unsupported format", errors.Wrap(ErrUnsupportedFormat, "NORMAL component type"), false},
		{"asset bounds", &AssetError{Kind: model.AssetMesh, Err: ErrBufferBounds}, false},
		{"nil", documentLevel(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}

func TestRequestAssetsAbandoned(t *testing.T) {
	f := triangleFixture()
	f.set("nodes", []any{
		map[string]any{"name": "A", "mesh": 0},
		map[string]any{"name": "B", "mesh": 0},
	})
	f.set("scenes", []any{map[string]any{"name": "Main", "nodes": []int{0, 1}}})
	data := f.json(t)

	cfg := testConfig()
	cfg.Loader.CacheModels = false
	l := NewLoader(BackendTypeGLTF, WithConfig(cfg))
	if _, err := l.LoadBytes(context.Background(), "warm-up", data, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		req := l.Submit(context.Background(), Source{Name: "abandoned", Data: data})
		if a, ok := <-req.Assets(); !ok || a.Kind != model.AssetMesh {
			t.Fatalf("expected a first mesh asset, got %v %v", a.Kind, ok)
		}
	}

	// Idle pool workers may still be winding down; nothing should be left per request.
	time.Sleep(20 * time.Millisecond)
	if after := runtime.NumGoroutine(); after > before+5 {
		t.Errorf("goroutines grew from %d to %d after abandoned readers", before, after)
	}

	req := l.Submit(context.Background(), Source{Name: "replay", Data: data})
	first, second := 0, 0
	for range req.Assets() {
		first++
	}
	for range req.Assets() {
		second++
	}
	if first != 2 || second != 2 {
		t.Errorf("expected every call to replay both assets, got %d and %d", first, second)
	}
}

func TestLoadLODGroup(t *testing.T) {
	f := triangleFixture()
	f.set("meshes", []any{
		map[string]any{"name": "Fine", "primitives": []any{map[string]any{"attributes": map[string]any{"POSITION": 0}}}},
		map[string]any{"name": "Coarse", "primitives": []any{map[string]any{"attributes": map[string]any{"POSITION": 0}}}},
	})

	l := newTestLoader()
	res, err := l.LoadBytes(context.Background(), "lods", f.json(t), "", WithLODs(0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meshes := assetsOfKind(res.Assets, model.AssetMesh)
	if len(meshes) != 2 {
		t.Fatalf("expected the scene instance and the LOD group, got %d meshes", len(meshes))
	}
	group := meshes[1]
	if group.Path != "/lods/Fine" || group.Node != -1 || group.SourceIndex != 0 {
		t.Errorf("unexpected LOD asset %q node %d source %d", group.Path, group.Node, group.SourceIndex)
	}
	if group.Mesh.LODCount() != 2 || group.Mesh.LOD(1).Name != "Coarse" {
		t.Errorf("expected Fine with a Coarse level, got %d levels", group.Mesh.LODCount())
	}
	if len(meshes[0].Mesh.LODs) != 0 {
		t.Error("expected the scene instance to stay free of LOD levels")
	}
	if l.Get("lods") != nil {
		t.Error("expected LOD requests to stay out of the model cache")
	}

	_, err = l.LoadBytes(context.Background(), "bad-lods", f.json(t), "", WithLODs(0, 7))
	if !errors.Is(err, ErrReference) || !IsFatal(err) {
		t.Errorf("expected a fatal ErrReference for an unknown LOD mesh, got %v", err)
	}
}

func TestLoaderInvalidConfigFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := testConfig()
	cfg.Skin.MaxInfluences = 0

	l := NewLoader(BackendTypeGLTF, WithConfig(cfg), WithLogger(zap.New(core)))
	if got := logs.FilterMessage("invalid loader configuration, using defaults").Len(); got != 1 {
		t.Errorf("expected one warning, got %d", got)
	}

	res, err := l.LoadBytes(context.Background(), "skinned", skinnedFixture(1, 2).json(t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mesh := assetsOfKind(res.Assets, model.AssetMesh)[0].Mesh
	for v, infl := range mesh.Primitives[0].Influences {
		if len(infl) == 0 {
			t.Errorf("vertex %d: expected influences under the default cap", v)
		}
	}
}

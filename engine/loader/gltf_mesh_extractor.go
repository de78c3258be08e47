package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/pkg/errors"
)

// gltfMeshResult is the memoized outcome of synthesizing one mesh.
type gltfMeshResult struct {
	// Mesh holds the primitives that were built. It is nil when every primitive failed.
	Mesh *model.Mesh

	// Skipped lists the primitives that could not be built.
	Skipped []error

	// Warnings lists non-fatal issues such as influence precision loss.
	Warnings []error

	// Err is set when the mesh as a whole could not be built.
	Err error
}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	resolver  gltfBufferResolver
	cfg       config.MeshConfig
	skin      config.SkinConfig
	quantized bool

	mu     sync.Mutex
	meshes map[int]*gltfMeshResult
}

// gltfMeshExtractor synthesizes engine meshes from glTF mesh primitives.
type gltfMeshExtractor interface {
	// ExtractMesh synthesizes every primitive of a mesh. Results are memoized by mesh index.
	// A primitive that fails is skipped and reported; the mesh fails only when no primitive survives.
	//
	// Parameters:
	//   - ctx: cancellation is checked between primitives
	//   - meshIndex: the index of the mesh in the glTF document
	//
	// Returns:
	//   - *gltfMeshResult: the mesh with its skipped primitives and warnings
	ExtractMesh(ctx context.Context, meshIndex int) *gltfMeshResult
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor.
//
// Parameters:
//   - resolver: the accessor source
//   - meshCfg: normal, tangent, winding and pivot settings
//   - skinCfg: influence cap and precision threshold
//   - quantized: whether KHR_mesh_quantization attribute formats are accepted
//
// Returns:
//   - gltfMeshExtractor: the extractor
func newGLTFMeshExtractor(resolver gltfBufferResolver, meshCfg config.MeshConfig, skinCfg config.SkinConfig, quantized bool) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		resolver:  resolver,
		cfg:       meshCfg,
		skin:      skinCfg,
		quantized: quantized,
		meshes:    make(map[int]*gltfMeshResult),
	}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(ctx context.Context, meshIndex int) *gltfMeshResult {
	e.mu.Lock()
	if res, ok := e.meshes[meshIndex]; ok {
		e.mu.Unlock()
		return res
	}
	e.mu.Unlock()

	res := e.extractMesh(ctx, meshIndex)
	if ctx.Err() != nil {
		return res
	}

	e.mu.Lock()
	e.meshes[meshIndex] = res
	e.mu.Unlock()
	return res
}

func (e *gltfMeshExtractorImpl) extractMesh(ctx context.Context, meshIndex int) *gltfMeshResult {
	doc := e.resolver.Document()
	src := &doc.Meshes[meshIndex]
	res := &gltfMeshResult{}

	mesh := &model.Mesh{
		Name:      src.Name,
		MeshIndex: meshIndex,
		Weights:   append([]float32(nil), src.Weights...),
	}
	if mesh.Name == "" {
		mesh.Name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if len(src.Extras) > 0 {
		var extras gltfMeshExtras
		if json.Unmarshal(src.Extras, &extras) == nil {
			mesh.TargetNames = extras.TargetNames
		}
	}

	for i := range src.Primitives {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		prim, warnings, err := e.extractPrimitive(ctx, &src.Primitives[i], i, mesh.TargetNames)
		if err != nil {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
				return res
			}
			res.Skipped = append(res.Skipped, errors.WithMessagef(err, "primitive %d", i))
			continue
		}
		res.Warnings = append(res.Warnings, warnings...)
		mesh.Primitives = append(mesh.Primitives, *prim)
	}

	if len(mesh.Primitives) == 0 {
		if len(res.Skipped) > 0 {
			res.Err = res.Skipped[len(res.Skipped)-1]
		} else {
			res.Err = errors.Wrapf(ErrMissingAttribute, "mesh %d has no primitives", meshIndex)
		}
		return res
	}

	gltfApplyPivot(mesh, e.cfg.Pivot, e.cfg.PivotSocket)
	gltfFinishBounds(mesh)
	res.Mesh = mesh
	return res
}

// extractPrimitive builds one primitive. Any error skips the primitive.
func (e *gltfMeshExtractorImpl) extractPrimitive(ctx context.Context, prim *gltfPrimitive, primIndex int, targetNames []string) (*model.MeshPrimitive, []error, error) {
	doc := e.resolver.Document()

	posAccessor, ok := prim.Attributes[gltfAttrPosition]
	if !ok {
		return nil, nil, errors.Wrap(ErrMissingAttribute, "no POSITION attribute")
	}
	vertexCount := doc.Accessors[posAccessor].Count

	// Every attribute must be decodable and match the POSITION count before anything is read.
	for _, name := range gltfSortedAttributeNames(prim.Attributes) {
		acc := &doc.Accessors[prim.Attributes[name]]
		if err := gltfCheckAttribute(name, acc, false, e.quantized); err != nil {
			return nil, nil, err
		}
		if acc.Count != vertexCount {
			return nil, nil, errors.Wrapf(ErrAttributeCountMismatch, "%s has %d elements, POSITION has %d", name, acc.Count, vertexCount)
		}
	}
	for t, target := range prim.Targets {
		for _, name := range gltfSortedAttributeNames(target) {
			acc := &doc.Accessors[target[name]]
			if err := gltfCheckAttribute(name, acc, true, e.quantized); err != nil {
				return nil, nil, errors.WithMessagef(err, "target %d", t)
			}
			if acc.Count != vertexCount {
				return nil, nil, errors.Wrapf(ErrAttributeCountMismatch, "target %d %s has %d elements, POSITION has %d", t, name, acc.Count, vertexCount)
			}
		}
	}

	out := &model.MeshPrimitive{
		Index:         primIndex,
		MaterialIndex: -1,
	}
	if prim.Material != nil {
		out.MaterialIndex = *prim.Material
	}

	var err error
	if out.Positions, err = e.resolver.ReadVec3(ctx, posAccessor); err != nil {
		return nil, nil, errors.WithMessage(err, "POSITION")
	}
	if idx, ok := prim.Attributes[gltfAttrNormal]; ok {
		if out.Normals, err = e.resolver.ReadVec3(ctx, idx); err != nil {
			return nil, nil, errors.WithMessage(err, "NORMAL")
		}
	}
	if idx, ok := prim.Attributes[gltfAttrTangent]; ok {
		if out.Tangents, err = e.resolver.ReadVec4(ctx, idx); err != nil {
			return nil, nil, errors.WithMessage(err, "TANGENT")
		}
	}
	for set := 0; ; set++ {
		idx, ok := prim.Attributes[gltfAttrTexCoord+strconv.Itoa(set)]
		if !ok {
			break
		}
		uv, err := e.resolver.ReadVec2(ctx, idx)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "TEXCOORD_%d", set)
		}
		out.UVs = append(out.UVs, uv)
	}
	for set := 0; ; set++ {
		idx, ok := prim.Attributes[gltfAttrColor+strconv.Itoa(set)]
		if !ok {
			break
		}
		colors, err := e.readColorAccessor(ctx, idx)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "COLOR_%d", set)
		}
		out.Colors = append(out.Colors, colors)
	}

	var warnings []error
	if out.Influences, warnings, err = e.readInfluences(ctx, prim, primIndex); err != nil {
		return nil, nil, err
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = e.resolver.ReadIndices(ctx, *prim.Indices); err != nil {
			return nil, nil, errors.WithMessage(err, "indices")
		}
		for _, ix := range indices {
			if int(ix) >= vertexCount {
				return nil, nil, errors.Wrapf(ErrBufferBounds, "index %d out of range for %d vertices", ix, vertexCount)
			}
		}
	} else {
		indices = gltfSequentialIndices(vertexCount)
	}

	mode := common.Deref(prim.Mode, gltfPrimitiveModeTriangles)
	if out.Topology, out.Indices, err = gltfListIndices(mode, indices); err != nil {
		return nil, nil, err
	}

	for t, target := range prim.Targets {
		mt, err := e.readTarget(ctx, target)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "target %d", t)
		}
		if t < len(targetNames) {
			mt.Name = targetNames[t]
		}
		out.Targets = append(out.Targets, *mt)
	}

	if out.Topology == model.TopologyTriangles && len(out.Indices) >= 3 {
		if gltfShouldGenerate(e.cfg.Normals, out.Normals != nil) {
			out.Normals = generateNormals(out.Positions, out.Indices)
		}
		if len(out.UVs) > 0 && out.Normals != nil && gltfShouldGenerate(e.cfg.Tangents, out.Tangents != nil) {
			out.Tangents = generateTangents(out.Positions, out.Normals, out.UVs[0], out.Indices)
		}
		if e.cfg.ReverseWinding {
			for i := 0; i+2 < len(out.Indices); i += 3 {
				out.Indices[i+1], out.Indices[i+2] = out.Indices[i+2], out.Indices[i+1]
			}
		}
	}
	if e.cfg.ReverseTangents {
		for i := range out.Tangents {
			out.Tangents[i][3] = -out.Tangents[i][3]
		}
	}

	out.Bounds = common.ComputeAABB(out.Positions)
	return out, warnings, nil
}

// readInfluences gathers paired JOINTS_n/WEIGHTS_n sets and merges them.
func (e *gltfMeshExtractorImpl) readInfluences(ctx context.Context, prim *gltfPrimitive, primIndex int) ([][]model.Influence, []error, error) {
	var joints [][][4]uint32
	var weights [][][4]float32

	for set := 0; ; set++ {
		jIdx, hasJoints := prim.Attributes[gltfAttrJoints+strconv.Itoa(set)]
		wIdx, hasWeights := prim.Attributes[gltfAttrWeights+strconv.Itoa(set)]
		if !hasJoints && !hasWeights {
			break
		}
		if hasJoints != hasWeights {
			return nil, nil, errors.Wrapf(ErrMissingAttribute, "JOINTS_%d and WEIGHTS_%d must be paired", set, set)
		}

		j, err := e.resolver.ReadJoints(ctx, jIdx)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "JOINTS_%d", set)
		}
		w, err := e.resolver.ReadVec4(ctx, wIdx)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "WEIGHTS_%d", set)
		}
		joints = append(joints, j)
		weights = append(weights, w)
	}
	if len(joints) == 0 {
		return nil, nil, nil
	}

	influences, stats := gltfMergeInfluences(joints, weights, e.skin.MaxInfluences, e.skin.PrecisionThreshold)
	if stats.OverThreshold == 0 {
		return influences, nil, nil
	}
	warning := errors.Wrapf(ErrPrecision, "primitive %d: %d vertices lost more than %.0f%% of their skin weight (worst %.1f%%)",
		primIndex, stats.OverThreshold, e.skin.PrecisionThreshold*100, stats.WorstLoss*100)
	return influences, []error{warning}, nil
}

func (e *gltfMeshExtractorImpl) readTarget(ctx context.Context, target map[string]int) (*model.MorphTarget, error) {
	mt := &model.MorphTarget{}
	var err error
	if idx, ok := target[gltfAttrPosition]; ok {
		if mt.PositionDeltas, err = e.resolver.ReadVec3(ctx, idx); err != nil {
			return nil, errors.WithMessage(err, "POSITION")
		}
	}
	if idx, ok := target[gltfAttrNormal]; ok {
		if mt.NormalDeltas, err = e.resolver.ReadVec3(ctx, idx); err != nil {
			return nil, errors.WithMessage(err, "NORMAL")
		}
	}
	if idx, ok := target[gltfAttrTangent]; ok {
		if mt.TangentDeltas, err = e.resolver.ReadVec3(ctx, idx); err != nil {
			return nil, errors.WithMessage(err, "TANGENT")
		}
	}
	return mt, nil
}

// readColorAccessor reads a color accessor, expanding RGB to RGBA with alpha 1.
// Normalized integer colors were already mapped to [0, 1] by the resolver.
func (e *gltfMeshExtractorImpl) readColorAccessor(ctx context.Context, accessorIndex int) ([][4]float32, error) {
	doc := e.resolver.Document()
	if doc.Accessors[accessorIndex].Type == gltfAccessorTypeVec4 {
		return e.resolver.ReadVec4(ctx, accessorIndex)
	}

	vec3s, err := e.resolver.ReadVec3(ctx, accessorIndex)
	if err != nil {
		return nil, err
	}
	result := make([][4]float32, len(vec3s))
	for i, v := range vec3s {
		result[i] = [4]float32{v[0], v[1], v[2], 1.0}
	}
	return result, nil
}

// --- Attribute Formats ---

// gltfAttributeFormat lists the accepted element types and component encodings of one attribute.
type gltfAttributeFormat struct {
	types []string

	// float and normalized integer components accepted by core glTF.
	core []gltfComponentRule

	// additional encodings accepted with KHR_mesh_quantization.
	quantized []gltfComponentRule
}

type gltfComponentRule struct {
	component  gltfComponent
	normalized bool
}

var (
	gltfRuleFloat   = gltfComponentRule{componentFloat, false}
	gltfRuleByteN   = gltfComponentRule{componentByte, true}
	gltfRuleUByteN  = gltfComponentRule{componentUnsignedByte, true}
	gltfRuleShortN  = gltfComponentRule{componentShort, true}
	gltfRuleUShortN = gltfComponentRule{componentUnsignedShort, true}
	gltfRuleByte    = gltfComponentRule{componentByte, false}
	gltfRuleUByte   = gltfComponentRule{componentUnsignedByte, false}
	gltfRuleShort   = gltfComponentRule{componentShort, false}
	gltfRuleUShort  = gltfComponentRule{componentUnsignedShort, false}
)

// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#meshes-overview
var gltfAttributeFormats = map[string]gltfAttributeFormat{
	gltfAttrPosition: {
		types:     []string{gltfAccessorTypeVec3},
		core:      []gltfComponentRule{gltfRuleFloat},
		quantized: []gltfComponentRule{gltfRuleByte, gltfRuleByteN, gltfRuleUByte, gltfRuleUByteN, gltfRuleShort, gltfRuleShortN, gltfRuleUShort, gltfRuleUShortN},
	},
	gltfAttrNormal: {
		types:     []string{gltfAccessorTypeVec3},
		core:      []gltfComponentRule{gltfRuleFloat},
		quantized: []gltfComponentRule{gltfRuleByteN, gltfRuleShortN},
	},
	gltfAttrTangent: {
		types:     []string{gltfAccessorTypeVec4},
		core:      []gltfComponentRule{gltfRuleFloat},
		quantized: []gltfComponentRule{gltfRuleByteN, gltfRuleShortN},
	},
	gltfAttrTexCoord: {
		types:     []string{gltfAccessorTypeVec2},
		core:      []gltfComponentRule{gltfRuleFloat, gltfRuleUByteN, gltfRuleUShortN},
		quantized: []gltfComponentRule{gltfRuleByte, gltfRuleByteN, gltfRuleUByte, gltfRuleShort, gltfRuleShortN, gltfRuleUShort},
	},
	gltfAttrColor: {
		types: []string{gltfAccessorTypeVec3, gltfAccessorTypeVec4},
		core:  []gltfComponentRule{gltfRuleFloat, gltfRuleUByteN, gltfRuleUShortN},
	},
	gltfAttrJoints: {
		types: []string{gltfAccessorTypeVec4},
		core:  []gltfComponentRule{gltfRuleUByte, gltfRuleUShort},
	},
	gltfAttrWeights: {
		types: []string{gltfAccessorTypeVec4},
		core:  []gltfComponentRule{gltfRuleFloat, gltfRuleUByteN, gltfRuleUShortN},
	},
}

// Morph target deltas are always VEC3, tangents included.
var gltfTargetFormat = gltfAttributeFormat{
	types:     []string{gltfAccessorTypeVec3},
	core:      []gltfComponentRule{gltfRuleFloat},
	quantized: []gltfComponentRule{gltfRuleByte, gltfRuleByteN, gltfRuleShort, gltfRuleShortN},
}

// gltfCheckAttribute rejects attribute encodings the mesh synthesizer cannot decode.
// Custom attributes (leading underscore) and unknown names are accepted and ignored.
func gltfCheckAttribute(name string, acc *gltfAccessor, target, quantized bool) error {
	var format gltfAttributeFormat
	switch {
	case target:
		format = gltfTargetFormat
	case strings.HasPrefix(name, gltfAttrTexCoord):
		format = gltfAttributeFormats[gltfAttrTexCoord]
	case strings.HasPrefix(name, gltfAttrColor):
		format = gltfAttributeFormats[gltfAttrColor]
	case strings.HasPrefix(name, gltfAttrJoints):
		format = gltfAttributeFormats[gltfAttrJoints]
	case strings.HasPrefix(name, gltfAttrWeights):
		format = gltfAttributeFormats[gltfAttrWeights]
	default:
		f, ok := gltfAttributeFormats[name]
		if !ok {
			return nil
		}
		format = f
	}

	typeOK := false
	for _, t := range format.types {
		if acc.Type == t {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return errors.Wrapf(ErrUnsupportedFormat, "%s accessor type %s", name, acc.Type)
	}

	rule := gltfComponentRule{gltfComponent(acc.ComponentType), acc.Normalized}
	if gltfRuleIn(rule, format.core) || (quantized && gltfRuleIn(rule, format.quantized)) {
		return nil
	}
	return errors.Wrapf(ErrUnsupportedFormat, "%s component type %d (normalized=%t)", name, acc.ComponentType, acc.Normalized)
}

func gltfRuleIn(rule gltfComponentRule, rules []gltfComponentRule) bool {
	for _, r := range rules {
		if r == rule {
			return true
		}
	}
	return false
}

// --- Mesh Post-processing ---

func gltfShouldGenerate(strategy string, present bool) bool {
	switch strategy {
	case config.StrategyAlways:
		return true
	case config.StrategyNever:
		return false
	default:
		return !present
	}
}

// gltfApplyPivot moves every vertex so the chosen point of the mesh bounds becomes the origin.
// When socket is set, the source origin is kept as a socket of that name in the new mesh space.
func gltfApplyPivot(mesh *model.Mesh, pivot, socket string) {
	if pivot == "" || pivot == config.PivotAsset {
		return
	}

	box := common.EmptyAABB()
	for i := range mesh.Primitives {
		box = box.Union(common.ComputeAABB(mesh.Primitives[i].Positions))
	}
	if !box.Valid() {
		return
	}

	offset := box.Center()
	switch pivot {
	case config.PivotTop:
		offset[1] = box.Max[1]
	case config.PivotBottom:
		offset[1] = box.Min[1]
	}

	for i := range mesh.Primitives {
		positions := mesh.Primitives[i].Positions
		for v := range positions {
			positions[v][0] -= offset[0]
			positions[v][1] -= offset[1]
			positions[v][2] -= offset[2]
		}
		mesh.Primitives[i].Bounds = common.ComputeAABB(positions)
	}

	if socket != "" {
		origin := model.IdentityTransform()
		origin.Translation = [3]float32{-offset[0], -offset[1], -offset[2]}
		mesh.Sockets = map[string]model.Transform{socket: origin}
	}
}

// gltfFinishBounds computes the mesh box and sphere from its primitives.
func gltfFinishBounds(mesh *model.Mesh) {
	box := common.EmptyAABB()
	for i := range mesh.Primitives {
		box = box.Union(mesh.Primitives[i].Bounds)
	}
	if !box.Valid() {
		box = common.AABB{}
	}
	mesh.Bounds = box

	var radius float32
	for i := range mesh.Primitives {
		s := common.ComputeBoundingSphere(box, mesh.Primitives[i].Positions)
		radius = float32(math.Max(float64(radius), float64(s.Radius)))
	}
	mesh.Sphere = common.Sphere{Center: box.Center(), Radius: radius}
}

// gltfCheckJointRange drops the primitives whose influences address a joint outside a skin of
// joints bones. It returns mesh itself when nothing is dropped and nil when nothing is left.
func gltfCheckJointRange(mesh *model.Mesh, joints int) (*model.Mesh, []error) {
	var kept []model.MeshPrimitive
	var dropped []error
	for i := range mesh.Primitives {
		p := &mesh.Primitives[i]
		if j, ok := gltfMaxJoint(p); ok && int(j) >= joints {
			dropped = append(dropped, errors.Wrapf(ErrBufferBounds, "primitive %d: joint %d out of range for %d joints", p.Index, j, joints))
			continue
		}
		kept = append(kept, *p)
	}
	if len(dropped) == 0 {
		return mesh, nil
	}
	if len(kept) == 0 {
		return nil, dropped
	}

	out := *mesh
	out.Primitives = kept
	gltfFinishBounds(&out)
	return &out, dropped
}

func gltfMaxJoint(p *model.MeshPrimitive) (uint32, bool) {
	var highest uint32
	found := false
	for _, vertex := range p.Influences {
		for _, inf := range vertex {
			if !found || inf.Joint > highest {
				highest, found = inf.Joint, true
			}
		}
	}
	return highest, found
}

// gltfSplitPrimitives turns every primitive of mesh into a mesh of its own named <mesh>_<primitive>.
// Vertex data is shared with mesh.
func gltfSplitPrimitives(mesh *model.Mesh) []*model.Mesh {
	parts := make([]*model.Mesh, len(mesh.Primitives))
	for i := range mesh.Primitives {
		part := &model.Mesh{
			Name:        fmt.Sprintf("%s_%d", mesh.Name, mesh.Primitives[i].Index),
			MeshIndex:   mesh.MeshIndex,
			Primitives:  mesh.Primitives[i : i+1 : i+1],
			Weights:     mesh.Weights,
			TargetNames: mesh.TargetNames,
			Sockets:     mesh.Sockets,
		}
		gltfFinishBounds(part)
		parts[i] = part
	}
	return parts
}

// gltfSortedAttributeNames returns the attribute names of a primitive in a stable order.
func gltfSortedAttributeNames(attrs map[string]int) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Normal & Tangent Generation ---

// generateNormals computes smooth vertex normals from the triangle geometry. For each triangle,
// the face normal is the cross product of its two edges, accumulated (area-weighted) onto every
// vertex of that triangle. All vertex normals are normalized at the end.
//
// Parameters:
//   - positions: the vertex positions
//   - indices: the triangle list index buffer
//
// Returns:
//   - [][3]float32: one unit normal per vertex
func generateNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	n := len(positions)
	accum := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := positions[i0], positions[i1], positions[i2]

		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}

		// Length proportional to triangle area.
		faceNormal := [3]float32{
			edge1[1]*edge2[2] - edge1[2]*edge2[1],
			edge1[2]*edge2[0] - edge1[0]*edge2[2],
			edge1[0]*edge2[1] - edge1[1]*edge2[0],
		}

		for _, idx := range [3]uint32{i0, i1, i2} {
			accum[idx][0] += faceNormal[0]
			accum[idx][1] += faceNormal[1]
			accum[idx][2] += faceNormal[2]
		}
	}

	normals := make([][3]float32, n)
	for i := range normals {
		length := float32(math.Sqrt(float64(accum[i][0]*accum[i][0] + accum[i][1]*accum[i][1] + accum[i][2]*accum[i][2])))
		if length < 1e-12 {
			// Unreferenced or degenerate: default to up.
			normals[i] = [3]float32{0, 1, 0}
			continue
		}
		invLen := 1.0 / length
		normals[i] = [3]float32{accum[i][0] * invLen, accum[i][1] * invLen, accum[i][2] * invLen}
	}
	return normals
}

// generateTangents computes per-vertex tangents from triangle UV gradients. Tangent and bitangent
// are accumulated per vertex, orthonormalized against the vertex normal (Gram-Schmidt), and W
// stores the handedness (±1).
//
// Parameters:
//   - positions: the vertex positions
//   - normals: the unit vertex normals
//   - uvs: the TEXCOORD_0 set
//   - indices: the triangle list index buffer
//
// Returns:
//   - [][4]float32: one tangent per vertex
func generateTangents(positions, normals [][3]float32, uvs [][2]float32, indices []uint32) [][4]float32 {
	n := len(positions)
	tan := make([][3]float32, n)
	btan := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := positions[i0], positions[i1], positions[i2]
		uv0, uv1, uv2 := uvs[i0], uvs[i1], uvs[i2]

		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		duv1 := [2]float32{uv1[0] - uv0[0], uv1[1] - uv0[1]}
		duv2 := [2]float32{uv2[0] - uv0[0], uv2[1] - uv0[1]}

		det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
		if det == 0 {
			continue
		}
		invDet := 1.0 / det

		t := [3]float32{
			invDet * (duv2[1]*edge1[0] - duv1[1]*edge2[0]),
			invDet * (duv2[1]*edge1[1] - duv1[1]*edge2[1]),
			invDet * (duv2[1]*edge1[2] - duv1[1]*edge2[2]),
		}
		b := [3]float32{
			invDet * (-duv2[0]*edge1[0] + duv1[0]*edge2[0]),
			invDet * (-duv2[0]*edge1[1] + duv1[0]*edge2[1]),
			invDet * (-duv2[0]*edge1[2] + duv1[0]*edge2[2]),
		}

		for _, idx := range [3]uint32{i0, i1, i2} {
			tan[idx][0] += t[0]
			tan[idx][1] += t[1]
			tan[idx][2] += t[2]
			btan[idx][0] += b[0]
			btan[idx][1] += b[1]
			btan[idx][2] += b[2]
		}
	}

	tangents := make([][4]float32, n)
	for i := 0; i < n; i++ {
		normal := normals[i]
		t := tan[i]

		// T' = normalize(T - N * dot(N, T))
		nDotT := normal[0]*t[0] + normal[1]*t[1] + normal[2]*t[2]
		ortho := [3]float32{
			t[0] - normal[0]*nDotT,
			t[1] - normal[1]*nDotT,
			t[2] - normal[2]*nDotT,
		}

		length := float32(math.Sqrt(float64(ortho[0]*ortho[0] + ortho[1]*ortho[1] + ortho[2]*ortho[2])))
		if length < 1e-6 {
			tangents[i] = gltfFallbackTangent(normal)
			continue
		}
		invLen := 1.0 / length
		ortho[0] *= invLen
		ortho[1] *= invLen
		ortho[2] *= invLen

		// Handedness: sign of dot(cross(N, T), B).
		cross := [3]float32{
			normal[1]*ortho[2] - normal[2]*ortho[1],
			normal[2]*ortho[0] - normal[0]*ortho[2],
			normal[0]*ortho[1] - normal[1]*ortho[0],
		}
		w := float32(1.0)
		if cross[0]*btan[i][0]+cross[1]*btan[i][1]+cross[2]*btan[i][2] < 0 {
			w = -1.0
		}

		tangents[i] = [4]float32{ortho[0], ortho[1], ortho[2], w}
	}
	return tangents
}

// gltfFallbackTangent picks an axis perpendicular to n.
func gltfFallbackTangent(n [3]float32) [4]float32 {
	axis := [3]float32{1, 0, 0}
	if math.Abs(float64(n[0])) > 0.9 {
		axis = [3]float32{0, 1, 0}
	}
	d := n[0]*axis[0] + n[1]*axis[1] + n[2]*axis[2]
	t := [3]float32{axis[0] - n[0]*d, axis[1] - n[1]*d, axis[2] - n[2]*d}
	l := float32(math.Sqrt(float64(t[0]*t[0] + t[1]*t[1] + t[2]*t[2])))
	return [4]float32{t[0] / l, t[1] / l, t[2] / l, 1}
}

package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

func extractFlags(fs *flag.FlagSet) func(ctx context.Context, e *env, file string) error {
	root := fs.String("root", "", "name of the node whose hierarchy is merged (required)")
	out := fs.String("out", "", "output .glb path (default <root>.glb)")
	exclude := fs.String("exclude", "", "comma separated node names left out of the merge")

	return func(ctx context.Context, e *env, file string) error {
		if *root == "" {
			return errors.New("extract: -root is required")
		}
		res, err := e.load(ctx, file)
		if err != nil {
			return err
		}

		var skip []string
		for _, name := range strings.Split(*exclude, ",") {
			if name = strings.TrimSpace(name); name != "" {
				skip = append(skip, name)
			}
		}
		mesh, err := res.Model.MergeHierarchy(*root, skip...)
		if err != nil {
			return err
		}

		data, err := encodeMeshGLB(mesh, res.Model.Materials())
		if err != nil {
			return err
		}

		path := *out
		if path == "" {
			path = filepath.Join(filepath.Dir(file), *root+".glb")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
		e.log.Info("mesh extracted",
			zap.String("root", *root),
			zap.String("out", path),
			zap.Int("primitives", len(mesh.Primitives)),
			zap.Int("sockets", len(mesh.Sockets)),
		)
		return nil
	}
}

// encodeMeshGLB writes mesh as a single-node binary glTF. Skinning and morph targets are not carried over.
func encodeMeshGLB(mesh *model.Mesh, materials []*common.Material) ([]byte, error) {
	doc := gltf.NewDocument()
	out := &gltf.Mesh{Name: mesh.Name}
	matIndex := make(map[int]uint32)

	for i := range mesh.Primitives {
		p := &mesh.Primitives[i]
		if len(p.Positions) == 0 {
			continue
		}

		attrs := map[string]uint32{gltf.POSITION: modeler.WritePosition(doc, p.Positions)}
		if len(p.Normals) == len(p.Positions) {
			attrs[gltf.NORMAL] = modeler.WriteNormal(doc, p.Normals)
		}
		if len(p.UVs) > 0 && len(p.UVs[0]) == len(p.Positions) {
			attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, p.UVs[0])
		}

		prim := &gltf.Primitive{Attributes: attrs, Mode: gltfMode(p.Topology)}
		if len(p.Indices) > 0 {
			prim.Indices = gltf.Index(modeler.WriteIndices(doc, p.Indices))
		}
		if p.MaterialIndex >= 0 && p.MaterialIndex < len(materials) && materials[p.MaterialIndex] != nil {
			idx, ok := matIndex[p.MaterialIndex]
			if !ok {
				idx = uint32(len(doc.Materials))
				doc.Materials = append(doc.Materials, gltfMaterial(materials[p.MaterialIndex]))
				matIndex[p.MaterialIndex] = idx
			}
			prim.Material = gltf.Index(idx)
		}
		out.Primitives = append(out.Primitives, prim)
	}
	if len(out.Primitives) == 0 {
		return nil, errors.Errorf("mesh %q has no primitives to write", mesh.Name)
	}

	doc.Meshes = []*gltf.Mesh{out}
	doc.Nodes = []*gltf.Node{{
		Name:     mesh.Name,
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
		return nil, errors.Wrap(err, "encode glb")
	}
	return buf.Bytes(), nil
}

func gltfMode(t model.Topology) gltf.PrimitiveMode {
	switch t {
	case model.TopologyLines:
		return gltf.PrimitiveLines
	case model.TopologyPoints:
		return gltf.PrimitivePoints
	default:
		return gltf.PrimitiveTriangles
	}
}

func gltfMaterial(m *common.Material) *gltf.Material {
	base := m.BaseColor
	metallic, roughness := m.Metallic, m.Roughness
	return &gltf.Material{
		Name:        m.Name,
		DoubleSided: m.DoubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &base,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}
}

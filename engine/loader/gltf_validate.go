package loader

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// gltfValidate checks every cross-index reference and structural invariant of a parsed document.
// Any violation is fatal to the whole request: the rest of the pipeline indexes the document
// without further range checks.
//
// Parameters:
//   - p: the parsed document and binary chunk
//   - supported: the extensions the loader implements
//
// Returns:
//   - error: an error wrapping ErrFormat, ErrReference, ErrUnsupportedExtension or ErrUnsupportedFormat
func gltfValidate(p *gltfParsed, supported map[string]bool) error {
	doc := p.document
	v := &gltfValidator{doc: doc}

	for _, ext := range doc.ExtensionsRequired {
		if !supported[ext] {
			return errors.Wrapf(ErrUnsupportedExtension, "%s is required", ext)
		}
	}

	if err := v.buffers(p); err != nil {
		return err
	}
	if err := v.bufferViews(); err != nil {
		return err
	}
	if err := v.accessors(); err != nil {
		return err
	}
	if err := v.textures(); err != nil {
		return err
	}
	if err := v.materials(); err != nil {
		return err
	}
	if err := v.meshes(); err != nil {
		return err
	}
	if err := v.cameras(); err != nil {
		return err
	}
	if err := v.nodes(); err != nil {
		return err
	}
	if err := v.skins(); err != nil {
		return err
	}
	if err := v.animations(); err != nil {
		return err
	}
	return v.scenes()
}

type gltfValidator struct {
	doc *gltfDocument
}

func (v *gltfValidator) ref(what string, index, length int) error {
	if index < 0 || index >= length {
		return errors.Wrapf(ErrReference, "%s index %d out of range [0,%d)", what, index, length)
	}
	return nil
}

func (v *gltfValidator) optRef(what string, index *int, length int) error {
	if index == nil {
		return nil
	}
	return v.ref(what, *index, length)
}

func (v *gltfValidator) buffers(p *gltfParsed) error {
	for i, buf := range v.doc.Buffers {
		if buf.ByteLength < 1 {
			return errors.Wrapf(ErrFormat, "buffer %d: byteLength must be positive", i)
		}
		if buf.URI != "" {
			continue
		}
		if i != 0 || !p.isGLB {
			return errors.Wrapf(ErrFormat, "buffer %d has no uri and is not the GLB binary chunk", i)
		}
		if p.bin == nil {
			return errors.Wrap(ErrFormat, "buffer 0 refers to a missing GLB binary chunk")
		}
		if len(p.bin) < buf.ByteLength {
			return errors.Wrapf(ErrFormat, "GLB binary chunk holds %d bytes, buffer 0 declares %d", len(p.bin), buf.ByteLength)
		}
	}
	return nil
}

func (v *gltfValidator) bufferViews() error {
	for i, bv := range v.doc.BufferViews {
		if err := v.ref("bufferView.buffer", bv.Buffer, len(v.doc.Buffers)); err != nil {
			return errors.WithMessagef(err, "bufferView %d", i)
		}
		if bv.ByteLength < 1 || bv.ByteOffset < 0 {
			return errors.Wrapf(ErrFormat, "bufferView %d: invalid byte range", i)
		}
		if bv.ByteOffset+bv.ByteLength > v.doc.Buffers[bv.Buffer].ByteLength {
			return errors.Wrapf(ErrFormat, "bufferView %d: range %d+%d exceeds buffer %d length %d",
				i, bv.ByteOffset, bv.ByteLength, bv.Buffer, v.doc.Buffers[bv.Buffer].ByteLength)
		}
		if bv.ByteStride != nil && (*bv.ByteStride < 4 || *bv.ByteStride > 252 || *bv.ByteStride%4 != 0) {
			return errors.Wrapf(ErrFormat, "bufferView %d: byteStride %d must be a multiple of 4 in [4,252]", i, *bv.ByteStride)
		}
	}
	return nil
}

func (v *gltfValidator) accessors() error {
	for i := range v.doc.Accessors {
		acc := &v.doc.Accessors[i]

		comp, ok := gltfComponentOf(acc.ComponentType)
		if !ok {
			return errors.Wrapf(ErrUnsupportedFormat, "accessor %d: componentType %d", i, acc.ComponentType)
		}
		layout, ok := gltfLayoutOf(acc.Type, comp)
		if !ok {
			return errors.Wrapf(ErrUnsupportedFormat, "accessor %d: type %q", i, acc.Type)
		}
		if acc.Normalized && (comp == componentFloat || comp == componentUnsignedInt) {
			return errors.Wrapf(ErrUnsupportedFormat, "accessor %d: normalized %d components", i, acc.ComponentType)
		}
		if acc.Count < 1 {
			return errors.Wrapf(ErrFormat, "accessor %d: count must be positive", i)
		}
		if acc.ByteOffset < 0 {
			return errors.Wrapf(ErrFormat, "accessor %d: negative byteOffset", i)
		}

		if acc.BufferView != nil {
			if err := v.ref("accessor.bufferView", *acc.BufferView, len(v.doc.BufferViews)); err != nil {
				return errors.WithMessagef(err, "accessor %d", i)
			}
			bv := &v.doc.BufferViews[*acc.BufferView]
			stride := layout.size()
			if bv.ByteStride != nil {
				if *bv.ByteStride < layout.size() {
					return errors.Wrapf(ErrFormat, "accessor %d: byteStride %d smaller than element size %d", i, *bv.ByteStride, layout.size())
				}
				stride = *bv.ByteStride
			}
			if end := acc.ByteOffset + (acc.Count-1)*stride + layout.size(); end > bv.ByteLength {
				return errors.Wrapf(ErrFormat, "accessor %d: needs %d bytes, bufferView %d has %d", i, end, *acc.BufferView, bv.ByteLength)
			}
		}

		if acc.Sparse != nil {
			if err := v.sparse(i, acc, comp, layout); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *gltfValidator) sparse(i int, acc *gltfAccessor, comp gltfComponent, layout gltfElementLayout) error {
	sp := acc.Sparse
	if sp.Count < 1 || sp.Count > acc.Count {
		return errors.Wrapf(ErrFormat, "accessor %d: sparse count %d outside [1,%d]", i, sp.Count, acc.Count)
	}

	idxComp, ok := gltfComponentOf(sp.Indices.ComponentType)
	if !ok || !idxComp.unsigned() {
		return errors.Wrapf(ErrUnsupportedFormat, "accessor %d: sparse indices componentType %d", i, sp.Indices.ComponentType)
	}

	for _, part := range []struct {
		name   string
		view   int
		offset int
		size   int
	}{
		{"indices", sp.Indices.BufferView, sp.Indices.ByteOffset, idxComp.size()},
		{"values", sp.Values.BufferView, sp.Values.ByteOffset, layout.size()},
	} {
		if err := v.ref("sparse."+part.name+".bufferView", part.view, len(v.doc.BufferViews)); err != nil {
			return errors.WithMessagef(err, "accessor %d", i)
		}
		if end := part.offset + sp.Count*part.size; end > v.doc.BufferViews[part.view].ByteLength {
			return errors.Wrapf(ErrFormat, "accessor %d: sparse %s need %d bytes, bufferView %d has %d",
				i, part.name, end, part.view, v.doc.BufferViews[part.view].ByteLength)
		}
	}
	return nil
}

func (v *gltfValidator) textures() error {
	for i, tex := range v.doc.Textures {
		if err := v.optRef("texture.sampler", tex.Sampler, len(v.doc.Samplers)); err != nil {
			return errors.WithMessagef(err, "texture %d", i)
		}
		if err := v.optRef("texture.source", tex.Source, len(v.doc.Images)); err != nil {
			return errors.WithMessagef(err, "texture %d", i)
		}
		if raw, ok := tex.Extensions[gltfExtTextureWebP]; ok {
			var src gltfTextureSource
			if err := json.Unmarshal(raw, &src); err != nil {
				return errors.Wrapf(ErrFormat, "texture %d: %s: %v", i, gltfExtTextureWebP, err)
			}
			if err := v.optRef("texture.webp.source", src.Source, len(v.doc.Images)); err != nil {
				return errors.WithMessagef(err, "texture %d", i)
			}
		}
	}
	for i, img := range v.doc.Images {
		if err := v.optRef("image.bufferView", img.BufferView, len(v.doc.BufferViews)); err != nil {
			return errors.WithMessagef(err, "image %d", i)
		}
		if img.BufferView == nil && img.URI == "" {
			return errors.Wrapf(ErrFormat, "image %d has neither uri nor bufferView", i)
		}
	}
	return nil
}

func (v *gltfValidator) materials() error {
	n := len(v.doc.Textures)
	for i := range v.doc.Materials {
		m := &v.doc.Materials[i]
		var infos []*gltfTextureInfo
		if pbr := m.PbrMetallicRoughness; pbr != nil {
			infos = append(infos, pbr.BaseColorTexture, pbr.MetallicRoughnessTexture)
		}
		if m.NormalTexture != nil {
			infos = append(infos, &m.NormalTexture.gltfTextureInfo)
		}
		if m.OcclusionTexture != nil {
			infos = append(infos, &m.OcclusionTexture.gltfTextureInfo)
		}
		infos = append(infos, m.EmissiveTexture)

		for _, info := range infos {
			if info == nil {
				continue
			}
			if err := v.ref("material texture", info.Index, n); err != nil {
				return errors.WithMessagef(err, "material %d", i)
			}
		}
		switch m.AlphaMode {
		case "", gltfAlphaModeOpaque, gltfAlphaModeMask, gltfAlphaModeBlend:
		default:
			return errors.Wrapf(ErrFormat, "material %d: alphaMode %q", i, m.AlphaMode)
		}
	}
	return nil
}

func (v *gltfValidator) meshes() error {
	nAcc := len(v.doc.Accessors)
	for i, mesh := range v.doc.Meshes {
		if len(mesh.Primitives) == 0 {
			return errors.Wrapf(ErrFormat, "mesh %d has no primitives", i)
		}
		for p, prim := range mesh.Primitives {
			for name, idx := range prim.Attributes {
				if err := v.ref("attribute "+name, idx, nAcc); err != nil {
					return errors.WithMessagef(err, "mesh %d primitive %d", i, p)
				}
			}
			if err := v.optRef("indices", prim.Indices, nAcc); err != nil {
				return errors.WithMessagef(err, "mesh %d primitive %d", i, p)
			}
			if err := v.optRef("material", prim.Material, len(v.doc.Materials)); err != nil {
				return errors.WithMessagef(err, "mesh %d primitive %d", i, p)
			}
			for t, target := range prim.Targets {
				for name, idx := range target {
					if err := v.ref("target "+name, idx, nAcc); err != nil {
						return errors.WithMessagef(err, "mesh %d primitive %d target %d", i, p, t)
					}
				}
			}
		}
	}
	return nil
}

func (v *gltfValidator) cameras() error {
	for i, cam := range v.doc.Cameras {
		switch cam.Type {
		case gltfCameraPerspectiveType:
			if cam.Perspective == nil {
				return errors.Wrapf(ErrFormat, "camera %d: missing perspective", i)
			}
		case gltfCameraOrthographicType:
			if cam.Orthographic == nil {
				return errors.Wrapf(ErrFormat, "camera %d: missing orthographic", i)
			}
		default:
			return errors.Wrapf(ErrFormat, "camera %d: type %q", i, cam.Type)
		}
	}
	return nil
}

func (v *gltfValidator) nodes() error {
	n := len(v.doc.Nodes)
	for i, node := range v.doc.Nodes {
		if err := v.optRef("node.mesh", node.Mesh, len(v.doc.Meshes)); err != nil {
			return errors.WithMessagef(err, "node %d", i)
		}
		if err := v.optRef("node.skin", node.Skin, len(v.doc.Skins)); err != nil {
			return errors.WithMessagef(err, "node %d", i)
		}
		if err := v.optRef("node.camera", node.Camera, len(v.doc.Cameras)); err != nil {
			return errors.WithMessagef(err, "node %d", i)
		}
		for _, c := range node.Children {
			if err := v.ref("node.children", c, n); err != nil {
				return errors.WithMessagef(err, "node %d", i)
			}
		}
	}
	return nil
}

func (v *gltfValidator) skins() error {
	n := len(v.doc.Nodes)
	for i, skin := range v.doc.Skins {
		if len(skin.Joints) == 0 {
			return errors.Wrapf(ErrFormat, "skin %d has no joints", i)
		}
		for _, j := range skin.Joints {
			if err := v.ref("skin.joints", j, n); err != nil {
				return errors.WithMessagef(err, "skin %d", i)
			}
		}
		if err := v.optRef("skin.skeleton", skin.Skeleton, n); err != nil {
			return errors.WithMessagef(err, "skin %d", i)
		}
		if skin.InverseBindMatrices != nil {
			if err := v.ref("skin.inverseBindMatrices", *skin.InverseBindMatrices, len(v.doc.Accessors)); err != nil {
				return errors.WithMessagef(err, "skin %d", i)
			}
			acc := &v.doc.Accessors[*skin.InverseBindMatrices]
			if acc.Type != gltfAccessorTypeMat4 || acc.ComponentType != gltfComponentTypeFloat {
				return errors.Wrapf(ErrUnsupportedFormat, "skin %d: inverse bind matrices must be MAT4 float, got %s/%d", i, acc.Type, acc.ComponentType)
			}
			if acc.Count != len(skin.Joints) {
				return errors.Wrapf(ErrFormat, "skin %d: %d inverse bind matrices for %d joints", i, acc.Count, len(skin.Joints))
			}
		}
	}
	return nil
}

func (v *gltfValidator) animations() error {
	for i, anim := range v.doc.Animations {
		for s, smp := range anim.Samplers {
			if err := v.ref("sampler.input", smp.Input, len(v.doc.Accessors)); err != nil {
				return errors.WithMessagef(err, "animation %d sampler %d", i, s)
			}
			if err := v.ref("sampler.output", smp.Output, len(v.doc.Accessors)); err != nil {
				return errors.WithMessagef(err, "animation %d sampler %d", i, s)
			}
			switch smp.Interpolation {
			case "", gltfAnimInterpolationLinear, gltfAnimInterpolationStep, gltfAnimInterpolationCubicSpline:
			default:
				return errors.Wrapf(ErrFormat, "animation %d sampler %d: interpolation %q", i, s, smp.Interpolation)
			}
		}
		for c, ch := range anim.Channels {
			if err := v.ref("channel.sampler", ch.Sampler, len(anim.Samplers)); err != nil {
				return errors.WithMessagef(err, "animation %d channel %d", i, c)
			}
			if err := v.optRef("channel.target.node", ch.Target.Node, len(v.doc.Nodes)); err != nil {
				return errors.WithMessagef(err, "animation %d channel %d", i, c)
			}
			switch ch.Target.Path {
			case gltfAnimPathTranslation, gltfAnimPathRotation, gltfAnimPathScale, gltfAnimPathWeights:
			default:
				if !strings.HasPrefix(ch.Target.Path, "KHR_") && !strings.HasPrefix(ch.Target.Path, "EXT_") {
					return errors.Wrapf(ErrFormat, "animation %d channel %d: path %q", i, c, ch.Target.Path)
				}
			}
		}
	}
	return nil
}

func (v *gltfValidator) scenes() error {
	if err := v.optRef("scene", v.doc.Scene, len(v.doc.Scenes)); err != nil {
		return err
	}
	for i, scene := range v.doc.Scenes {
		for _, n := range scene.Nodes {
			if err := v.ref("scene.nodes", n, len(v.doc.Nodes)); err != nil {
				return errors.WithMessagef(err, "scene %d", i)
			}
		}
	}
	return nil
}

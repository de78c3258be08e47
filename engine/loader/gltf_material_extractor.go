package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/resource"
	"github.com/pkg/errors"
)

type gltfMaterialResult struct {
	material *common.Material
	warnings []error
}

type gltfImageResult struct {
	data []byte
	mime string
	uri  string
	err  error
}

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	resolver  gltfBufferResolver
	supported map[string]bool

	mu        sync.Mutex
	materials map[int]gltfMaterialResult
	images    map[int]gltfImageResult
}

// gltfMaterialExtractor maps glTF materials to engine-neutral shading descriptions.
// A texture that cannot be loaded leaves its slot unbound and is reported as a warning;
// a material never fails as a whole.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index. Results are memoized by material index.
	//
	// Parameters:
	//   - ctx: context bounding image fetches
	//   - materialIndex: the index of the material to extract
	//
	// Returns:
	//   - *common.Material: the material
	//   - []error: texture slots that were dropped
	ExtractMaterial(ctx context.Context, materialIndex int) (*common.Material, []error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor.
//
// Parameters:
//   - resolver: the buffer and image source
//   - supported: the extensions whose material and texture payloads are honoured
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(resolver gltfBufferResolver, supported map[string]bool) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		resolver:  resolver,
		supported: supported,
		materials: make(map[int]gltfMaterialResult),
		images:    make(map[int]gltfImageResult),
	}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(ctx context.Context, materialIndex int) (*common.Material, []error) {
	e.mu.Lock()
	if res, ok := e.materials[materialIndex]; ok {
		e.mu.Unlock()
		return res.material, res.warnings
	}
	e.mu.Unlock()

	mat, warnings := e.extractMaterial(ctx, materialIndex)
	if ctx.Err() != nil {
		return mat, warnings
	}

	e.mu.Lock()
	e.materials[materialIndex] = gltfMaterialResult{material: mat, warnings: warnings}
	e.mu.Unlock()
	return mat, warnings
}

func (e *gltfMaterialExtractorImpl) extractMaterial(ctx context.Context, materialIndex int) (*common.Material, []error) {
	doc := e.resolver.Document()
	src := &doc.Materials[materialIndex]

	mat := common.DefaultMaterial()
	mat.Index = materialIndex
	mat.Name = src.Name
	if mat.Name == "" {
		mat.Name = fmt.Sprintf("material_%d", materialIndex)
	}
	mat.DoubleSided = src.DoubleSided
	mat.AlphaCutoff = common.Deref(src.AlphaCutoff, mat.AlphaCutoff)
	switch src.AlphaMode {
	case gltfAlphaModeMask:
		mat.AlphaMode = common.AlphaMask
	case gltfAlphaModeBlend:
		mat.AlphaMode = common.AlphaBlend
	default:
		mat.AlphaMode = common.AlphaOpaque
	}

	var warnings []error
	bind := func(slot common.TextureSlot, info *gltfTextureInfo, scale float32) {
		tex, err := e.loadTexture(ctx, info, scale)
		if err != nil {
			warnings = append(warnings, errors.WithMessagef(err, "material %d %s texture", materialIndex, slot))
			return
		}
		if tex != nil {
			mat.Textures[slot] = tex
		}
	}

	if pbr := src.PbrMetallicRoughness; pbr != nil {
		mat.BaseColor = common.Deref(pbr.BaseColorFactor, mat.BaseColor)
		mat.Metallic = common.Deref(pbr.MetallicFactor, mat.Metallic)
		mat.Roughness = common.Deref(pbr.RoughnessFactor, mat.Roughness)
		if pbr.BaseColorTexture != nil {
			bind(common.SlotBaseColor, pbr.BaseColorTexture, 1)
		}
		if pbr.MetallicRoughnessTexture != nil {
			bind(common.SlotMetallicRoughness, pbr.MetallicRoughnessTexture, 1)
		}
	}
	if t := src.NormalTexture; t != nil {
		scale := float32(1)
		if t.Scale != nil {
			scale = *t.Scale
		}
		bind(common.SlotNormal, &t.gltfTextureInfo, scale)
	}
	if t := src.OcclusionTexture; t != nil {
		strength := float32(1)
		if t.Strength != nil {
			strength = *t.Strength
		}
		bind(common.SlotOcclusion, &t.gltfTextureInfo, strength)
	}
	if src.EmissiveTexture != nil {
		bind(common.SlotEmissive, src.EmissiveTexture, 1)
	}

	mat.Emissive = common.Deref(src.EmissiveFactor, mat.Emissive)
	var strength gltfEmissiveStrength
	if e.extension(src.Extensions, gltfExtEmissiveStrength, &strength) && strength.EmissiveStrength != nil {
		mat.EmissiveStrength = *strength.EmissiveStrength
	}
	if _, ok := src.Extensions[gltfExtUnlit]; ok && e.supported[gltfExtUnlit] {
		mat.Unlit = true
	}

	return &mat, warnings
}

// extension decodes a supported extension payload into dst and reports whether it was present.
func (e *gltfMaterialExtractorImpl) extension(exts map[string]json.RawMessage, name string, dst any) bool {
	raw, ok := exts[name]
	if !ok || !e.supported[name] {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// loadTexture resolves a texture reference to its image bytes and sampler.
// A texture without any usable image source returns nil without error.
func (e *gltfMaterialExtractorImpl) loadTexture(ctx context.Context, info *gltfTextureInfo, scale float32) (*common.Texture, error) {
	doc := e.resolver.Document()
	tex := &doc.Textures[info.Index]

	source := tex.Source
	var webp gltfTextureSource
	if e.extension(tex.Extensions, gltfExtTextureWebP, &webp) && webp.Source != nil {
		source = webp.Source
	}
	if source == nil {
		return nil, nil
	}

	img, err := e.loadImage(ctx, *source)
	if err != nil {
		return nil, err
	}

	result := &common.Texture{
		Name:     common.Coalesce(tex.Name, doc.Images[*source].Name),
		Index:    info.Index,
		URI:      img.uri,
		Data:     img.data,
		MimeType: img.mime,
		TexCoord: info.TexCoord,
		Scale:    scale,
	}
	if tex.Sampler != nil {
		result.Sampler = gltfSamplerToDesc(&doc.Samplers[*tex.Sampler])
	}

	var transform gltfTextureTransform
	if e.extension(info.Extensions, gltfExtTextureTransform, &transform) {
		result.Transform = &common.TextureTransform{
			Offset:   common.Deref(transform.Offset, [2]float32{}),
			Rotation: transform.Rotation,
			Scale:    common.Deref(transform.Scale, [2]float32{1, 1}),
		}
		result.TexCoord = common.Deref(transform.TexCoord, result.TexCoord)
	}

	if err := result.DecodeConfig(); err != nil {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "image %d: %v", *source, err)
	}
	return result, nil
}

// loadImage returns the encoded bytes of an image, memoized by image index.
func (e *gltfMaterialExtractorImpl) loadImage(ctx context.Context, imageIndex int) (gltfImageResult, error) {
	e.mu.Lock()
	if res, ok := e.images[imageIndex]; ok {
		e.mu.Unlock()
		return res, res.err
	}
	e.mu.Unlock()

	img := &e.resolver.Document().Images[imageIndex]
	res := gltfImageResult{mime: img.MimeType}

	switch {
	case img.BufferView != nil:
		view, err := e.resolver.BufferView(ctx, *img.BufferView)
		if err != nil {
			res.err = errors.WithMessagef(err, "image %d", imageIndex)
		} else {
			res.data = append([]byte(nil), view...)
		}
	case img.URI != "":
		data, err := e.resolver.FetchURI(ctx, img.URI)
		if err != nil {
			res.err = errors.WithMessagef(err, "image %d", imageIndex)
		} else {
			res.data = data
		}
		if !resource.IsDataURI(img.URI) {
			res.uri = img.URI
		}
	default:
		res.err = errors.Wrapf(ErrFormat, "image %d has neither uri nor bufferView", imageIndex)
	}

	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	e.mu.Lock()
	e.images[imageIndex] = res
	e.mu.Unlock()
	return res, res.err
}

// gltfSamplerToDesc converts a glTF sampler into a SamplerDesc.
// Unset fields fall back to linear filtering and repeat wrapping.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
func gltfSamplerToDesc(s *gltfSampler) common.SamplerDesc {
	desc := common.SamplerDesc{}

	if s.MagFilter != nil && *s.MagFilter == gltfFilterNearest {
		desc.MagFilter = common.FilterNearest
	}
	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest:
			desc.MinFilter, desc.Mipmap = common.FilterNearest, common.MipmapNone
		case gltfFilterLinear:
			desc.MinFilter, desc.Mipmap = common.FilterLinear, common.MipmapNone
		case gltfFilterNearestMipmapNearest:
			desc.MinFilter, desc.Mipmap = common.FilterNearest, common.MipmapNearest
		case gltfFilterLinearMipmapNearest:
			desc.MinFilter, desc.Mipmap = common.FilterLinear, common.MipmapNearest
		case gltfFilterNearestMipmapLinear:
			desc.MinFilter, desc.Mipmap = common.FilterNearest, common.MipmapLinear
		case gltfFilterLinearMipmapLinear:
			desc.MinFilter, desc.Mipmap = common.FilterLinear, common.MipmapLinear
		}
	}
	if s.WrapS != nil {
		desc.WrapS = gltfWrapMode(*s.WrapS)
	}
	if s.WrapT != nil {
		desc.WrapT = gltfWrapMode(*s.WrapT)
	}
	return desc
}

func gltfWrapMode(wrap int) common.WrapMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return common.WrapClampToEdge
	case gltfWrapMirroredRepeat:
		return common.WrapMirroredRepeat
	default:
		return common.WrapRepeat
	}
}

// package common contains common types that are used throughout this module. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

// AlphaMode describes how the alpha channel of a material is interpreted.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

func (a AlphaMode) String() string {
	switch a {
	case AlphaMask:
		return "MASK"
	case AlphaBlend:
		return "BLEND"
	default:
		return "OPAQUE"
	}
}

// FilterMode is an engine-neutral texel filter.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// MipmapMode selects how mip levels are blended.
type MipmapMode int

const (
	MipmapLinear MipmapMode = iota
	MipmapNearest
	MipmapNone
)

// WrapMode is an engine-neutral texture address mode.
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

// SamplerDesc holds texture sampling parameters extracted from a model file.
// The zero value is linear filtering with repeat wrapping.
type SamplerDesc struct {
	MagFilter FilterMode
	MinFilter FilterMode
	Mipmap    MipmapMode
	WrapS     WrapMode
	WrapT     WrapMode
}

// TextureSlot names the material input a texture is bound to.
type TextureSlot int

const (
	SlotBaseColor TextureSlot = iota
	SlotMetallicRoughness
	SlotNormal
	SlotOcclusion
	SlotEmissive
)

func (s TextureSlot) String() string {
	switch s {
	case SlotBaseColor:
		return "baseColor"
	case SlotMetallicRoughness:
		return "metallicRoughness"
	case SlotNormal:
		return "normal"
	case SlotOcclusion:
		return "occlusion"
	case SlotEmissive:
		return "emissive"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// TextureTransform is a UV offset/rotation/scale applied before sampling.
type TextureTransform struct {
	Offset   [2]float32
	Rotation float32
	Scale    [2]float32
}

// Matrix returns the UV transform as translation * rotation * scale.
func (t TextureTransform) Matrix() mgl32.Mat3 {
	c := float32(math.Cos(float64(t.Rotation)))
	s := float32(math.Sin(float64(t.Rotation)))
	translation := mgl32.Mat3{1, 0, 0, 0, 1, 0, t.Offset[0], t.Offset[1], 1}
	rotation := mgl32.Mat3{c, -s, 0, s, c, 0, 0, 0, 1}
	scale := mgl32.Mat3{t.Scale[0], 0, 0, 0, t.Scale[1], 0, 0, 0, 1}
	return translation.Mul3(rotation).Mul3(scale)
}

// Texture represents an image and sampler pair bound to a material slot.
// Embedded and fetched images carry their encoded bytes in Data.
type Texture struct {
	// Name is an identifier for this texture.
	Name string

	// Index is the source texture index in the model file.
	Index int

	// URI is the resolved image URI (empty for embedded images).
	URI string

	// Data contains raw encoded image bytes (PNG/JPEG/WebP).
	Data []byte

	// MimeType indicates the image format (e.g., "image/png", "image/jpeg").
	MimeType string

	// Width is the texture width in pixels (populated by DecodeConfig or Decode).
	Width int

	// Height is the texture height in pixels (populated by DecodeConfig or Decode).
	Height int

	// Sampler holds the sampling parameters.
	Sampler SamplerDesc

	// TexCoord selects the UV set used to sample this texture.
	TexCoord int

	// Scale is the normal map scale or occlusion strength; 1 for other slots.
	Scale float32

	// Transform is the optional UV transform.
	Transform *TextureTransform
}

// DecodeConfig reads the image header and fills Width, Height and MimeType when unset.
//
// Returns:
//   - error: error if the image format is not recognized
func (t *Texture) DecodeConfig() error {
	if t == nil || len(t.Data) == 0 {
		return errors.New("texture has no data")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(t.Data))
	if err != nil {
		return errors.Wrap(err, "failed to decode image header")
	}
	t.Width, t.Height = cfg.Width, cfg.Height
	if t.MimeType == "" {
		t.MimeType = "image/" + format
	}
	return nil
}

// Decode decodes the texture to raw RGBA pixel data.
// Supports PNG, JPEG and WebP formats.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - []byte: raw RGBA pixel data (4 bytes per pixel, row-major order)
//   - uint32: texture width in pixels
//   - uint32: texture height in pixels
//   - error: error if decoding fails
func (t *Texture) Decode() ([]byte, uint32, uint32, error) {
	if t == nil {
		return nil, 0, 0, errors.New("texture is nil")
	}
	if len(t.Data) == 0 {
		return nil, 0, 0, errors.Errorf("texture %q has no data", t.Name)
	}

	img, _, err := image.Decode(bytes.NewReader(t.Data))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "failed to decode embedded image")
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	t.Width = width
	t.Height = height

	return rgba.Pix, uint32(width), uint32(height), nil
}

// Material is an engine-neutral metallic-roughness shading description.
type Material struct {
	// Name is the material identifier.
	Name string

	// Index is the source material index, or -1 for the default material.
	Index int

	// BaseColor is the albedo color (RGBA).
	BaseColor [4]float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32

	// Emissive is the emissive factor (RGB) as declared, not scaled by EmissiveStrength.
	Emissive [3]float32

	// EmissiveStrength is the KHR_materials_emissive_strength multiplier, 1 when absent.
	// The host applies it once; EmittedColor does so.
	EmissiveStrength float32

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool

	// Unlit marks KHR_materials_unlit materials.
	Unlit bool

	// Textures maps each bound slot to its texture. Unbound slots fall back to the factors above.
	Textures map[TextureSlot]*Texture
}

// DefaultMaterial returns the material used for primitives without one.
func DefaultMaterial() Material {
	return Material{
		Name:             "default",
		Index:            -1,
		BaseColor:        [4]float32{1, 1, 1, 1},
		Metallic:         1,
		Roughness:        1,
		EmissiveStrength: 1,
		AlphaCutoff:      0.5,
		Textures:         map[TextureSlot]*Texture{},
	}
}

// EmittedColor returns the emissive factor scaled by the emissive strength.
func (m *Material) EmittedColor() [3]float32 {
	return [3]float32{
		m.Emissive[0] * m.EmissiveStrength,
		m.Emissive[1] * m.EmissiveStrength,
		m.Emissive[2] * m.EmissiveStrength,
	}
}

// Texture returns the texture bound to slot, or nil.
func (m *Material) Texture(slot TextureSlot) *Texture {
	if m == nil || m.Textures == nil {
		return nil
	}
	return m.Textures[slot]
}

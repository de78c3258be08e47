// gltf_types.go holds the subset of the glTF 2.0 JSON schema the loader reads.
// Unknown properties are ignored by encoding/json; extension objects stay raw until a
// resolver that understands them decodes them.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

import "encoding/json"

// --- Document ---

// gltfDocument is the root object. It is read-only once parsed and validated, so one document
// can be shared by every extractor of a request.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type gltfDocument struct {
	Asset gltfAsset `json:"asset"`

	// Scene is the default scene; it names the model. Every scene is constructed unless a request picks one.
	Scene  *int        `json:"scene,omitempty"`
	Scenes []gltfScene `json:"scenes,omitempty"`
	Nodes  []gltfNode  `json:"nodes,omitempty"`

	Meshes      []gltfMesh       `json:"meshes,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`

	Materials []gltfMaterial `json:"materials,omitempty"`
	Textures  []gltfTexture  `json:"textures,omitempty"`
	Images    []gltfImage    `json:"images,omitempty"`
	Samplers  []gltfSampler  `json:"samplers,omitempty"`

	Skins      []gltfSkin      `json:"skins,omitempty"`
	Animations []gltfAnimation `json:"animations,omitempty"`
	Cameras    []gltfCamera    `json:"cameras,omitempty"`

	ExtensionsUsed []string `json:"extensionsUsed,omitempty"`

	// ExtensionsRequired must be a subset of the supported extensions or the request fails.
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
	Extras     json.RawMessage            `json:"extras,omitempty"`
}

type gltfAsset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
}

// --- Scene Graph ---

type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode is one entry of the node hierarchy. Matrix and TRS are mutually exclusive;
// a missing transform is the identity.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`

	Mesh   *int `json:"mesh,omitempty"`
	Skin   *int `json:"skin,omitempty"`
	Camera *int `json:"camera,omitempty"`

	Matrix      *[16]float32 `json:"matrix,omitempty"` // column-major
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"` // x, y, z, w
	Scale       *[3]float32  `json:"scale,omitempty"`

	// Weights override the mesh's default morph weights for this instance.
	Weights []float32 `json:"weights,omitempty"`

	Extras json.RawMessage `json:"extras,omitempty"`
}

// --- Meshes ---

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
	Weights    []float32       `json:"weights,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

// gltfMeshExtras carries morph target names by the common exporter convention.
type gltfMeshExtras struct {
	TargetNames []string `json:"targetNames,omitempty"`
}

// gltfPrimitive maps attribute semantics to accessor indices.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`

	// Mode defaults to triangles.
	Mode *int `json:"mode,omitempty"`

	// Targets hold POSITION, NORMAL and TANGENT delta accessors per morph target.
	Targets []map[string]int `json:"targets,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

const (
	gltfPrimitiveModePoints = iota
	gltfPrimitiveModeLines
	gltfPrimitiveModeLineLoop
	gltfPrimitiveModeLineStrip
	gltfPrimitiveModeTriangles
	gltfPrimitiveModeTriangleStrip
	gltfPrimitiveModeTriangleFan
)

// Attribute semantics. The indexed ones are prefixes completed by the set number.
const (
	gltfAttrPosition = "POSITION"
	gltfAttrNormal   = "NORMAL"
	gltfAttrTangent  = "TANGENT"
	gltfAttrTexCoord = "TEXCOORD_"
	gltfAttrColor    = "COLOR_"
	gltfAttrJoints   = "JOINTS_"
	gltfAttrWeights  = "WEIGHTS_"
)

// --- Accessors and Buffers ---

// gltfAccessor is a typed view over a buffer view. Without a buffer view the accessor reads as
// zeros before sparse substitution.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type gltfAccessor struct {
	BufferView    *int   `json:"bufferView,omitempty"`
	ByteOffset    int    `json:"byteOffset,omitempty"`
	ComponentType int    `json:"componentType"`
	Normalized    bool   `json:"normalized,omitempty"`
	Count         int    `json:"count"`
	Type          string `json:"type"`

	Max []float64 `json:"max,omitempty"`
	Min []float64 `json:"min,omitempty"`

	Sparse *gltfAccessorSparse `json:"sparse,omitempty"`
}

const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126
)

const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec2   = "VEC2"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat2   = "MAT2"
	gltfAccessorTypeMat3   = "MAT3"
	gltfAccessorTypeMat4   = "MAT4"
)

// gltfAccessorSparse replaces Count elements of the base array. Both arrays are tightly packed.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor-sparse
type gltfAccessorSparse struct {
	Count   int                       `json:"count"`
	Indices gltfAccessorSparseIndices `json:"indices"`
	Values  gltfAccessorSparseValues  `json:"values"`
}

type gltfAccessorSparseIndices struct {
	BufferView    int `json:"bufferView"`
	ByteOffset    int `json:"byteOffset,omitempty"`
	ComponentType int `json:"componentType"` // unsigned byte, short or int
}

// gltfAccessorSparseValues use the component type of the owning accessor.
type gltfAccessorSparseValues struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`
}

type gltfBufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
}

// gltfBuffer is resolved lazily by the buffer resolver. An empty URI on buffer 0 of a GLB
// refers to the BIN chunk.
type gltfBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// --- Materials and Textures ---

// gltfMaterial is the core metallic-roughness material plus raw extension objects.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material
type gltfMaterial struct {
	Name string `json:"name,omitempty"`

	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *gltfNormalTextureInfo    `json:"normalTexture,omitempty"`
	OcclusionTexture     *gltfOcclusionTextureInfo `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *gltfTextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32               `json:"emissiveFactor,omitempty"`

	AlphaMode   string   `json:"alphaMode,omitempty"`
	AlphaCutoff *float32 `json:"alphaCutoff,omitempty"` // 0.5 when absent
	DoubleSided bool     `json:"doubleSided,omitempty"`

	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

const (
	gltfAlphaModeOpaque = "OPAQUE"
	gltfAlphaModeMask   = "MASK"
	gltfAlphaModeBlend  = "BLEND"
)

// Absent factors keep their schema defaults (white, fully metallic, fully rough).
type gltfPbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32      `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *gltfTextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32         `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32         `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *gltfTextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// gltfTextureInfo binds a texture and UV set to a material slot.
type gltfTextureInfo struct {
	Index      int                        `json:"index"`
	TexCoord   int                        `json:"texCoord,omitempty"`
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

type gltfNormalTextureInfo struct {
	gltfTextureInfo
	Scale *float32 `json:"scale,omitempty"`
}

type gltfOcclusionTextureInfo struct {
	gltfTextureInfo
	Strength *float32 `json:"strength,omitempty"`
}

// gltfTexture pairs an image with a sampler. EXT_texture_webp may supply the source instead.
type gltfTexture struct {
	Name       string                     `json:"name,omitempty"`
	Sampler    *int                       `json:"sampler,omitempty"`
	Source     *int                       `json:"source,omitempty"`
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// gltfImage is either a URI or a buffer view with a MIME type.
type gltfImage struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// gltfSampler uses the WebGL enums; absent wrap modes repeat.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
type gltfSampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

const (
	gltfFilterNearest              = 9728
	gltfFilterLinear               = 9729
	gltfFilterNearestMipmapNearest = 9984
	gltfFilterLinearMipmapNearest  = 9985
	gltfFilterNearestMipmapLinear  = 9986
	gltfFilterLinearMipmapLinear   = 9987
)

const (
	gltfWrapClampToEdge    = 33071
	gltfWrapMirroredRepeat = 33648
)

// --- Extensions ---

const (
	gltfExtEmissiveStrength = "KHR_materials_emissive_strength"
	gltfExtUnlit            = "KHR_materials_unlit"
	gltfExtTextureTransform = "KHR_texture_transform"
	gltfExtTextureWebP      = "EXT_texture_webp"
	gltfExtMeshQuantization = "KHR_mesh_quantization"
)

type gltfEmissiveStrength struct {
	EmissiveStrength *float32 `json:"emissiveStrength,omitempty"`
}

type gltfTextureTransform struct {
	Offset   *[2]float32 `json:"offset,omitempty"`
	Rotation float32     `json:"rotation,omitempty"`
	Scale    *[2]float32 `json:"scale,omitempty"`
	TexCoord *int        `json:"texCoord,omitempty"`
}

// gltfTextureSource is the body of EXT_texture_webp.
type gltfTextureSource struct {
	Source *int `json:"source,omitempty"`
}

// --- Cameras ---

// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-camera
type gltfCamera struct {
	Name         string                  `json:"name,omitempty"`
	Type         string                  `json:"type"`
	Perspective  *gltfCameraPerspective  `json:"perspective,omitempty"`
	Orthographic *gltfCameraOrthographic `json:"orthographic,omitempty"`
}

type gltfCameraPerspective struct {
	AspectRatio *float32 `json:"aspectRatio,omitempty"`
	YFov        float32  `json:"yfov"`
	ZFar        *float32 `json:"zfar,omitempty"` // absent means infinite
	ZNear       float32  `json:"znear"`
}

type gltfCameraOrthographic struct {
	XMag  float32 `json:"xmag"`
	YMag  float32 `json:"ymag"`
	ZFar  float32 `json:"zfar"`
	ZNear float32 `json:"znear"`
}

const (
	gltfCameraPerspectiveType  = "perspective"
	gltfCameraOrthographicType = "orthographic"
)

// --- Skins and Animations ---

// gltfSkin lists joints in the order JOINTS_n indices refer to them.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-skin
type gltfSkin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"` // identity when absent
	Skeleton            *int   `json:"skeleton,omitempty"`
	Joints              []int  `json:"joints"`
}

// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-animation
type gltfAnimation struct {
	Name     string            `json:"name,omitempty"`
	Channels []gltfAnimChannel `json:"channels"`
	Samplers []gltfAnimSampler `json:"samplers"`
}

type gltfAnimChannel struct {
	Sampler int            `json:"sampler"`
	Target  gltfAnimTarget `json:"target"`
}

// gltfAnimTarget has no node when an extension such as KHR_animation_pointer supplies the target.
type gltfAnimTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

// gltfAnimSampler pairs keyframe times (Input) with values (Output).
// CUBICSPLINE outputs hold in-tangent, value and out-tangent per key.
type gltfAnimSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}

const (
	gltfAnimInterpolationLinear      = "LINEAR"
	gltfAnimInterpolationStep        = "STEP"
	gltfAnimInterpolationCubicSpline = "CUBICSPLINE"
)

const (
	gltfAnimPathTranslation = "translation"
	gltfAnimPathRotation    = "rotation"
	gltfAnimPathScale       = "scale"
	gltfAnimPathWeights     = "weights"
)

// --- GLB Container ---

// gltfGLBHeader is the 12 byte GLB file header.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32 // whole file, header included
}

// gltfGLBChunkHeader precedes every chunk. Chunks are padded to 4 bytes.
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF"
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)

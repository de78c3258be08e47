package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/go-gl/mathgl/mgl32"
)

// AssetKind identifies the payload type of a ConstructedAsset.
type AssetKind int

const (
	AssetMesh AssetKind = iota
	AssetSkeleton
	AssetAnimation
	AssetMaterial
	AssetCamera
)

func (k AssetKind) String() string {
	switch k {
	case AssetMesh:
		return "mesh"
	case AssetSkeleton:
		return "skeleton"
	case AssetAnimation:
		return "animation"
	case AssetMaterial:
		return "material"
	case AssetCamera:
		return "camera"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AssetStatus is the construction outcome of a single asset.
type AssetStatus int

const (
	StatusReady AssetStatus = iota
	StatusFailed
)

func (s AssetStatus) String() string {
	if s == StatusFailed {
		return "failed"
	}
	return "ready"
}

// ConstructedAsset is one synthesized unit handed to the host.
// It carries no reference back into the source document.
type ConstructedAsset struct {
	Kind   AssetKind
	Status AssetStatus

	// Path is the node path the asset is attached to ("/Scene/Root/Child"), or a
	// synthetic path such as "/animations/Walk" for assets not bound to a node.
	Path string

	// ParentPath is the node path of the parent node, or "" for scene roots.
	ParentPath string

	// Node is the source node index, or -1.
	Node int

	// SourceIndex is the mesh, skin, animation, material or camera index the asset was built from.
	SourceIndex int

	// World is the node's composed world transform (identity for unbound assets).
	World mgl32.Mat4

	// Exactly one payload is set when Status is StatusReady.
	Mesh      *Mesh
	Skeleton  *Skeleton
	Animation *AnimationClip
	Material  *common.Material
	Camera    *Camera

	// Skin is the skin index bound to a mesh instance, or -1.
	Skin int

	// Weights are the instance morph weights (node weights override mesh defaults).
	Weights []float32

	// Err is the failure cause when Status is StatusFailed.
	Err error

	// Warnings lists non-fatal issues found while constructing this asset.
	Warnings []error
}

// Ready reports whether the asset was constructed.
func (a *ConstructedAsset) Ready() bool {
	return a.Status == StatusReady
}

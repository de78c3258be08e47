package model

import (
	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithSource is an option builder that sets the path or name the Model was loaded from.
//
// Parameters:
//   - source: the source identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the source option to a model
func WithSource(source string) ModelBuilderOption {
	return func(m *model) {
		m.source = source
	}
}

// WithScenes is an option builder that sets the traversed scenes of the Model.
//
// Parameters:
//   - scenes: the scenes to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the scenes option to a model
func WithScenes(scenes []Scene) ModelBuilderOption {
	return func(m *model) {
		m.scenes = scenes
	}
}

// WithAssets is an option builder that sets the constructed assets of the Model.
// Ready payloads are collected into the typed lists once per distinct pointer, and
// every mesh instance extends the model bounds by its world-space box.
//
// Parameters:
//   - assets: the constructed assets in delivery order
//
// Returns:
//   - ModelBuilderOption: a function that applies the assets option to a model
func WithAssets(assets []ConstructedAsset) ModelBuilderOption {
	return func(m *model) {
		m.assets = assets
		seen := make(map[any]bool)
		for i := range assets {
			a := &assets[i]
			if !a.Ready() {
				continue
			}
			switch a.Kind {
			case AssetMesh:
				// LOD groups are not placed in a scene.
				if a.Node >= 0 {
					m.bounds = m.bounds.Union(worldBounds(a.Mesh.Bounds, a))
				}
				if !seen[a.Mesh] {
					seen[a.Mesh] = true
					m.meshes = append(m.meshes, a.Mesh)
				}
			case AssetSkeleton:
				if !seen[a.Skeleton] {
					seen[a.Skeleton] = true
					m.skeletons = append(m.skeletons, a.Skeleton)
				}
			case AssetAnimation:
				if !seen[a.Animation] {
					seen[a.Animation] = true
					m.animations = append(m.animations, a.Animation)
				}
			case AssetMaterial:
				if !seen[a.Material] {
					seen[a.Material] = true
					m.materials = append(m.materials, a.Material)
				}
			case AssetCamera:
				if !seen[a.Camera] {
					seen[a.Camera] = true
					m.cameras = append(m.cameras, a.Camera)
				}
			}
		}
	}
}

// worldBounds transforms the eight corners of a local box by the asset's world matrix.
func worldBounds(local common.AABB, a *ConstructedAsset) common.AABB {
	if !local.Valid() {
		return common.EmptyAABB()
	}
	out := common.EmptyAABB()
	for c := 0; c < 8; c++ {
		p := [3]float32{local.Min[0], local.Min[1], local.Min[2]}
		if c&1 != 0 {
			p[0] = local.Max[0]
		}
		if c&2 != 0 {
			p[1] = local.Max[1]
		}
		if c&4 != 0 {
			p[2] = local.Max[2]
		}
		out = out.Extend(common.TransformPoint(a.World, p))
	}
	return out
}

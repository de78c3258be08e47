package main

import (
	"context"
	"flag"
	"os"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/davecgh/go-spew/spew"
)

func dumpFlags(fs *flag.FlagSet) func(ctx context.Context, e *env, file string) error {
	depth := fs.Int("depth", 6, "maximum nesting depth, 0 for unlimited")
	kind := fs.String("kind", "", "only dump assets of this kind (mesh, skeleton, animation, material, camera)")
	scenes := fs.Bool("scenes", false, "dump the scene graphs instead of the assets")

	return func(ctx context.Context, e *env, file string) error {
		res, err := e.load(ctx, file)
		if err != nil {
			return err
		}

		dumper := spew.ConfigState{
			Indent:                  "  ",
			MaxDepth:                *depth,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		}

		if *scenes {
			dumper.Fdump(os.Stdout, res.Model.Scenes())
			return nil
		}

		for _, a := range res.Assets {
			if *kind != "" && a.Kind.String() != *kind {
				continue
			}
			dumper.Fdump(os.Stdout, assetPayload(&a))
		}
		return nil
	}
}

func assetPayload(a *model.ConstructedAsset) any {
	if !a.Ready() {
		return a
	}
	switch a.Kind {
	case model.AssetMesh:
		return a.Mesh
	case model.AssetSkeleton:
		return a.Skeleton
	case model.AssetAnimation:
		return a.Animation
	case model.AssetMaterial:
		return a.Material
	default:
		return a.Camera
	}
}

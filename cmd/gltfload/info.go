package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/pkg/errors"
)

func infoFlags(fs *flag.FlagSet) func(ctx context.Context, e *env, file string) error {
	scene := fs.Int("scene", -1, "construct only this scene")
	meshOnly := fs.Bool("mesh-only", false, "skip skins and animations")
	stats := fs.Bool("stats", false, "print stage timings")
	lods := fs.String("lods", "", "comma separated mesh indices grouped as levels of detail, finest first")
	perPrimitive := fs.Bool("per-primitive", false, "report every primitive as its own mesh")

	return func(ctx context.Context, e *env, file string) error {
		var opts []loader.RequestOption
		if *lods != "" {
			levels, err := parseIndices(*lods)
			if err != nil {
				return errors.Wrap(err, "-lods")
			}
			opts = append(opts, loader.WithLODs(levels...))
		}
		if *perPrimitive {
			opts = append(opts, loader.WithMeshPerPrimitive())
		}
		if *scene >= 0 {
			opts = append(opts, loader.WithScene(*scene))
		}
		if *meshOnly {
			opts = append(opts, loader.WithMeshOnly())
		}

		res, err := e.load(ctx, file, opts...)
		if err != nil {
			return err
		}
		printInfo(os.Stdout, res, *stats)
		return nil
	}
}

func parseIndices(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func printInfo(w io.Writer, res *loader.Result, stats bool) {
	m := res.Model
	b := m.Bounds()

	fmt.Fprintf(w, "%s: %s\n", res.Source, res.Status)
	fmt.Fprintf(w, "  scenes %d, meshes %d, skeletons %d, animations %d, materials %d, cameras %d\n",
		len(m.Scenes()), len(m.Meshes()), len(m.Skeletons()), m.AnimationCount(), len(m.Materials()), len(m.Cameras()))
	fmt.Fprintf(w, "  bounds min %v max %v radius %.4g\n", b.Min, b.Max, m.BoundingRadius())
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tPATH\tSTATUS\tDETAIL")
	for _, a := range res.Assets {
		status := a.Status.String()
		if !a.Ready() {
			status += ": " + a.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Kind, a.Path, status, assetDetail(m, &a))
	}
	tw.Flush()

	for _, err := range res.Errors {
		if _, ok := err.(*loader.AssetError); ok {
			continue
		}
		fmt.Fprintf(w, "error: %v\n", err)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %v\n", warn)
	}

	if stats {
		fmt.Fprintln(w)
		for _, st := range res.Stats.Stages {
			fmt.Fprintf(w, "  %-10s %v\n", st.Name, st.Duration)
		}
		fmt.Fprintf(w, "  %-10s %v (%d bytes allocated)\n", "total", res.Stats.Total, res.Stats.Allocated)
	}
}

func assetDetail(m model.Model, a *model.ConstructedAsset) string {
	if !a.Ready() {
		return ""
	}
	switch a.Kind {
	case model.AssetMesh:
		verts, tris := 0, 0
		for _, p := range a.Mesh.Primitives {
			verts += len(p.Positions)
			if p.Topology == model.TopologyTriangles {
				tris += len(p.Indices) / 3
			}
		}
		detail := fmt.Sprintf("%d primitives, %d vertices, %d triangles", len(a.Mesh.Primitives), verts, tris)
		if a.Skin >= 0 {
			detail += fmt.Sprintf(", skin %d", a.Skin)
		}
		if n := a.Mesh.LODCount(); n > 1 {
			detail += fmt.Sprintf(", %d levels of detail", n)
		}
		return detail
	case model.AssetSkeleton:
		return fmt.Sprintf("%d bones", len(a.Skeleton.Bones))
	case model.AssetAnimation:
		return fmt.Sprintf("%d tracks, %.3gs", len(a.Animation.Tracks), a.Animation.Duration)
	case model.AssetMaterial:
		return a.Material.Name
	case model.AssetCamera:
		visible := len(m.VisibleFrom(*a, 16.0/9.0))
		if a.Camera.Projection == model.ProjectionPerspective {
			return fmt.Sprintf("perspective yfov %.3g, %d meshes in view", a.Camera.YFov, visible)
		}
		return fmt.Sprintf("orthographic %gx%g, %d meshes in view", a.Camera.XMag, a.Camera.YMag, visible)
	default:
		return ""
	}
}

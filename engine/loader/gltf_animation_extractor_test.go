package loader

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/pkg/errors"
)

func extractAnimation(t *testing.T, f *gltfFixture) (*model.AnimationClip, []error, error) {
	t.Helper()
	r := resolverFor(t, f.json(t), nil)
	return newGLTFAnimationExtractor(r).ExtractAnimation(context.Background(), 0)
}

func TestAnimationExtractorCubicAndWeights(t *testing.T) {
	f := triangleFixture()
	times := f.floats("SCALAR", 0, 2)
	cubic := f.floats("VEC4",
		0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0,
	)
	weights := f.floats("SCALAR", 0, 1, 1, 0)
	f.set("animations", []any{map[string]any{
		"samplers": []any{
			map[string]any{"input": times, "output": cubic, "interpolation": "CUBICSPLINE"},
			map[string]any{"input": times, "output": weights, "interpolation": "STEP"},
		},
		"channels": []any{
			map[string]any{"sampler": 0, "target": map[string]any{"node": 0, "path": "rotation"}},
			map[string]any{"sampler": 1, "target": map[string]any{"node": 0, "path": "weights"}},
			map[string]any{"sampler": 1, "target": map[string]any{"path": "weights"}},
			map[string]any{"sampler": 1, "target": map[string]any{"node": 0, "path": "KHR_custom"}},
		},
	}})

	clip, dropped, err := extractAnimation(t, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dropped) != 0 {
		t.Errorf("expected extension channels to be skipped silently, got %v", dropped)
	}
	if clip.Name != "animation_0" || clip.Duration != 2 || len(clip.Tracks) != 2 {
		t.Fatalf("unexpected clip %+v", clip)
	}

	rot := clip.Tracks[0]
	if rot.Interpolation != model.InterpolationCubicSpline || rot.Components != 4 || rot.NodeName != "Tri" {
		t.Errorf("unexpected rotation track %+v", rot)
	}
	if got := rot.Sample(2, nil); got[1] != 1 {
		t.Errorf("expected the last key at the end, got %v", got)
	}

	w := clip.Tracks[1]
	if w.Path != model.PathWeights || w.Components != 2 {
		t.Errorf("expected two morph weights per key, got %d", w.Components)
	}
	if got := w.Sample(0.5, nil); got[0] != 0 || got[1] != 1 {
		t.Errorf("expected step weights to hold [0 1], got %v", got)
	}
}

func TestAnimationExtractorOutputErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		output func(f *gltfFixture) int
		want   error
	}{
		{"wrong type", "translation", func(f *gltfFixture) int { return f.floats("VEC4", 0, 0, 0, 1, 0, 0, 0, 1) }, ErrUnsupportedFormat},
		{"wrong count", "scale", func(f *gltfFixture) int { return f.floats("VEC3", 1, 1, 1) }, ErrFormat},
		{"weights do not divide", "weights", func(f *gltfFixture) int { return f.floats("SCALAR", 1, 2, 3) }, ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := triangleFixture()
			times := f.floats("SCALAR", 0, 1)
			out := tt.output(f)
			f.set("animations", []any{map[string]any{
				"name":     "Broken",
				"samplers": []any{map[string]any{"input": times, "output": out}},
				"channels": []any{map[string]any{"sampler": 0, "target": map[string]any{"node": 0, "path": tt.path}}},
			}})

			clip, dropped, err := extractAnimation(t, f)
			if clip != nil {
				t.Fatalf("expected no clip, got %+v", clip)
			}
			if !errors.Is(err, tt.want) || len(dropped) != 1 {
				t.Errorf("expected %v with one dropped channel, got %v (%v)", tt.want, err, dropped)
			}
		})
	}
}

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"go.uber.org/zap"
)

func TestConfigPath(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-config", "a.yaml", "model.glb"}, "a.yaml"},
		{[]string{"--config=b.toml", "model.glb"}, "b.toml"},
		{[]string{"-workers", "2", "model.glb"}, ""},
		{[]string{"config", "model.glb"}, ""},
	}
	for _, tt := range tests {
		if got := configPath(tt.args); got != tt.want {
			t.Errorf("configPath(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestRunRejectsBadInvocations(t *testing.T) {
	ctx := context.Background()
	if err := run(ctx, nil); err == nil {
		t.Error("expected an error without a command")
	}
	if err := run(ctx, []string{"convert", "a.glb"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command, got %v", err)
	}
	if err := run(ctx, []string{"info"}); err == nil || !strings.Contains(err.Error(), "exactly one file") {
		t.Errorf("expected a missing file error, got %v", err)
	}
}

func TestParseIndices(t *testing.T) {
	got, err := parseIndices("0, 2,5")
	if err != nil || len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 5 {
		t.Errorf("unexpected indices %v (%v)", got, err)
	}
	if _, err := parseIndices("0,x"); err == nil {
		t.Error("expected an error for a non-numeric index")
	}
}

func TestEncodeMeshGLBRoundTrip(t *testing.T) {
	mesh := &model.Mesh{
		Name: "Merged",
		Primitives: []model.MeshPrimitive{{
			Positions:     [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Normals:       [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
			UVs:           [][][2]float32{{{0, 0}, {1, 0}, {0, 1}}},
			Indices:       []uint32{0, 1, 2},
			MaterialIndex: 0,
		}},
	}
	mat := common.DefaultMaterial()
	mat.Name = "Red"
	mat.BaseColor = [4]float32{1, 0, 0, 1}

	data, err := encodeMeshGLB(mesh, []*common.Material{&mat})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithConfig(config.Default()), loader.WithLogger(zap.NewNop()))
	res, err := l.LoadBytes(context.Background(), "merged.glb", data, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := res.Model.MeshByName("Merged")
	if got == nil || len(got.Primitives) != 1 {
		t.Fatalf("expected the merged mesh back, got %+v", got)
	}
	p := got.Primitives[0]
	if p.Positions[1] != [3]float32{1, 0, 0} || len(p.Indices) != 3 || len(p.UVs) != 1 {
		t.Errorf("unexpected primitive %+v", p)
	}
	if mats := res.Model.Materials(); len(mats) != 1 || mats[0].Name != "Red" || mats[0].BaseColor[0] != 1 {
		t.Errorf("unexpected materials %+v", mats)
	}

	var out bytes.Buffer
	printInfo(&out, res, true)
	for _, want := range []string{"merged.glb: success", "1 primitives, 3 vertices, 1 triangles", "Red"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("info output missing %q:\n%s", want, out.String())
		}
	}
}

func TestEncodeMeshGLBEmpty(t *testing.T) {
	if _, err := encodeMeshGLB(&model.Mesh{Name: "Empty"}, nil); err == nil {
		t.Error("expected an error for a mesh without primitives")
	}
}

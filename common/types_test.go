package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestTextureDecode(t *testing.T) {
	tex := &Texture{Name: "albedo", Data: encodePNG(t, 2, 3)}

	if err := tex.DecodeConfig(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tex.Width != 2 || tex.Height != 3 || tex.MimeType != "image/png" {
		t.Errorf("unexpected header %dx%d %q", tex.Width, tex.Height, tex.MimeType)
	}

	pix, w, h, err := tex.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 2 || h != 3 || len(pix) != 2*3*4 {
		t.Errorf("unexpected pixels %dx%d len %d", w, h, len(pix))
	}
	if pix[0] != 255 || pix[3] != 255 {
		t.Errorf("expected a red first pixel, got %v", pix[:4])
	}

	bad := &Texture{Data: []byte("not an image")}
	if err := bad.DecodeConfig(); err == nil {
		t.Error("expected an error for unknown image data")
	}
	if err := (&Texture{}).DecodeConfig(); err == nil {
		t.Error("expected an error for an empty texture")
	}
}

func TestTextureTransformMatrix(t *testing.T) {
	tr := TextureTransform{
		Offset:   [2]float32{0.5, 0},
		Rotation: math.Pi / 2,
		Scale:    [2]float32{2, 2},
	}
	uv := tr.Matrix().Mul3x1(mgl32.Vec3{1, 0, 1})
	want := mgl32.Vec3{0.5, -2, 1}
	if !uv.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("expected %v, got %v", want, uv)
	}
}

func TestDefaultMaterial(t *testing.T) {
	m := DefaultMaterial()
	if m.Index != -1 || m.BaseColor != [4]float32{1, 1, 1, 1} || m.AlphaCutoff != 0.5 {
		t.Errorf("unexpected default material %+v", m)
	}
	if m.Texture(SlotBaseColor) != nil {
		t.Error("expected no textures on the default material")
	}
	if SlotNormal.String() != "normal" || AlphaBlend.String() != "BLEND" {
		t.Error("unexpected enum names")
	}
}

package loader

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
)

func resolverFor(t *testing.T, data []byte, fetch gltfFetchFunc) gltfBufferResolver {
	t.Helper()
	p, err := gltfParse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := gltfValidate(p, nil); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return newGLTFBufferResolver(p, "https://example.com/models/", fetch)
}

func uint16Bytes(values ...uint16) []byte {
	buf := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	return buf
}

func float32Bytes(values ...float32) []byte {
	f := newGLTFFixture()
	f.floats("SCALAR", values...)
	return f.bin.Bytes()
}

func TestBufferResolverNormalized(t *testing.T) {
	f := newGLTFFixture()
	acc := f.ubytes("VEC4", true, 255, 0, 51, 255)
	r := resolverFor(t, f.json(t), nil)

	colors, err := r.ReadVec4(context.Background(), acc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if colors[0] != [4]float32{1, 0, 0.2, 1} {
		t.Errorf("expected normalized color, got %v", colors[0])
	}

	if _, err := r.ReadVec3(context.Background(), acc); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for a type mismatch, got %v", err)
	}
	if _, err := r.ReadIndices(context.Background(), acc); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for non-scalar indices, got %v", err)
	}
}

func TestBufferResolverSparse(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint16
		base    bool
		want    []float32
		wantErr error
	}{
		{"overlay", []uint16{1, 3}, true, []float32{1, 5, 3, 7}, nil},
		{"zero base", []uint16{0, 2}, false, []float32{5, 0, 7, 0}, nil},
		{"index out of range", []uint16{1, 4}, true, nil, ErrBufferBounds},
		{"not increasing", []uint16{3, 1}, true, nil, ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGLTFFixture()
			acc := f.floats("SCALAR", 1, 2, 3, 4)
			idxView := f.view(uint16Bytes(tt.indices...))
			valView := f.view(float32Bytes(5, 7))
			f.accessors[acc]["sparse"] = map[string]any{
				"count":   2,
				"indices": map[string]any{"bufferView": idxView, "componentType": gltfComponentTypeUnsignedShort},
				"values":  map[string]any{"bufferView": valView},
			}
			if !tt.base {
				delete(f.accessors[acc], "bufferView")
			}

			r := resolverFor(t, f.json(t), nil)
			got, err := r.ReadScalars(context.Background(), acc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestBufferResolverExternalBuffer(t *testing.T) {
	f := newGLTFFixture()
	acc := f.floats("VEC2", 0.5, 0.25, 1, 0)
	data, bin := f.build(t, "buffers/uv.bin")

	var calls atomic.Int32
	var requested string
	fetch := func(ctx context.Context, uri string) ([]byte, error) {
		calls.Add(1)
		requested = uri
		return bin, nil
	}
	r := resolverFor(t, data, fetch)

	for i := 0; i < 2; i++ {
		uvs, err := r.ReadVec2(context.Background(), acc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if uvs[1] != [2]float32{1, 0} {
			t.Errorf("unexpected uv %v", uvs[1])
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected one fetch, got %d", calls.Load())
	}
	if requested != "https://example.com/models/buffers/uv.bin" {
		t.Errorf("expected the uri to be resolved against the base, got %q", requested)
	}
}

func TestBufferResolverShortBuffer(t *testing.T) {
	f := newGLTFFixture()
	acc := f.floats("SCALAR", 1, 2, 3)
	data, bin := f.build(t, "short.bin")

	r := resolverFor(t, data, func(ctx context.Context, uri string) ([]byte, error) {
		return bin[:4], nil
	})
	if _, err := r.ReadScalars(context.Background(), acc); !errors.Is(err, ErrBufferBounds) {
		t.Errorf("expected ErrBufferBounds, got %v", err)
	}
}

func TestBufferResolverFetchError(t *testing.T) {
	f := newGLTFFixture()
	acc := f.floats("SCALAR", 1)
	data, _ := f.build(t, "missing.bin")

	r := resolverFor(t, data, func(ctx context.Context, uri string) ([]byte, error) {
		return nil, errors.Wrap(ErrFetch, "404")
	})
	if _, err := r.ReadScalars(context.Background(), acc); !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r = resolverFor(t, data, func(ctx context.Context, uri string) ([]byte, error) {
		return nil, ctx.Err()
	})
	if _, err := r.ReadScalars(ctx, acc); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBufferResolverIndices(t *testing.T) {
	f := newGLTFFixture()
	acc := f.ushorts("SCALAR", 2, 1, 0)
	r := resolverFor(t, f.json(t), nil)

	got, err := r.ReadIndices(context.Background(), acc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 2 || got[2] != 0 {
		t.Errorf("unexpected indices %v", got)
	}
}

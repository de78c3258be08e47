package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"
)

// gltfFixture assembles small glTF JSON documents whose single buffer is either
// embedded as a base64 data URI or served externally.
type gltfFixture struct {
	bin       bytes.Buffer
	views     []map[string]any
	accessors []map[string]any
	external  []map[string]any
	doc       map[string]any
}

func newGLTFFixture() *gltfFixture {
	return &gltfFixture{
		doc: map[string]any{"asset": map[string]any{"version": "2.0"}},
	}
}

func (f *gltfFixture) set(key string, value any) *gltfFixture {
	f.doc[key] = value
	return f
}

// view appends data 4-byte aligned and returns its bufferView index.
func (f *gltfFixture) view(data []byte) int {
	for f.bin.Len()%4 != 0 {
		f.bin.WriteByte(0)
	}
	f.views = append(f.views, map[string]any{
		"buffer":     0,
		"byteOffset": f.bin.Len(),
		"byteLength": len(data),
	})
	f.bin.Write(data)
	return len(f.views) - 1
}

func (f *gltfFixture) accessor(view, componentType int, typ string, count int) int {
	f.accessors = append(f.accessors, map[string]any{
		"bufferView":    view,
		"componentType": componentType,
		"type":          typ,
		"count":         count,
	})
	return len(f.accessors) - 1
}

func (f *gltfFixture) floats(typ string, values ...float32) int {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return f.accessor(f.view(buf), gltfComponentTypeFloat, typ, len(values)/gltfAccessorTypeComponentCount(typ))
}

func (f *gltfFixture) ushorts(typ string, values ...uint16) int {
	buf := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	return f.accessor(f.view(buf), gltfComponentTypeUnsignedShort, typ, len(values)/gltfAccessorTypeComponentCount(typ))
}

func (f *gltfFixture) ubytes(typ string, normalized bool, values ...uint8) int {
	idx := f.accessor(f.view(values), gltfComponentTypeUnsignedByte, typ, len(values)/gltfAccessorTypeComponentCount(typ))
	if normalized {
		f.accessors[idx]["normalized"] = true
	}
	return idx
}

// externalFloats declares a float accessor over a separate buffer fetched from uri.
func (f *gltfFixture) externalFloats(uri, typ string, count int) int {
	n := 4 * count * gltfAccessorTypeComponentCount(typ)
	f.external = append(f.external, map[string]any{"byteLength": n, "uri": uri})
	f.views = append(f.views, map[string]any{"buffer": len(f.external), "byteLength": n})
	return f.accessor(len(f.views)-1, gltfComponentTypeFloat, typ, count)
}

func (f *gltfFixture) build(t *testing.T, uri string) ([]byte, []byte) {
	t.Helper()
	bin := append([]byte(nil), f.bin.Bytes()...)
	if uri == "" {
		uri = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)
	}
	if len(bin) > 0 {
		buffers := []map[string]any{{"byteLength": len(bin), "uri": uri}}
		f.doc["buffers"] = append(buffers, f.external...)
		f.doc["bufferViews"] = f.views
		f.doc["accessors"] = f.accessors
	}
	data, err := json.Marshal(f.doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data, bin
}

func (f *gltfFixture) json(t *testing.T) []byte {
	t.Helper()
	data, _ := f.build(t, "")
	return data
}

// triangleFixture is one unindexed triangle without normals in the XY plane,
// referenced by a single node in a single scene.
func triangleFixture() *gltfFixture {
	f := newGLTFFixture()
	pos := f.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)
	f.set("meshes", []any{map[string]any{
		"name":       "Triangle",
		"primitives": []any{map[string]any{"attributes": map[string]any{"POSITION": pos}}},
	}})
	f.set("nodes", []any{map[string]any{"name": "Tri", "mesh": 0}})
	f.set("scenes", []any{map[string]any{"name": "Main", "nodes": []int{0}}})
	f.set("scene", 0)
	return f
}

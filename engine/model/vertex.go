package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// Vertex is an interleaved vertex layout for hosts that prefer a single vertex stream.
// Size: 64 bytes.
type Vertex struct {
	Position [3]float32 // offset  0
	Normal   [3]float32 // offset 12
	TexCoord [2]float32 // offset 24
	Color    [4]float32 // offset 32
	Tangent  [4]float32 // offset 48: xyz + handedness in w
}

// SkinnedVertex extends Vertex with up to four joint influences.
// Size: 96 bytes.
type SkinnedVertex struct {
	Vertex
	Joints  [4]uint32  // offset 64
	Weights [4]float32 // offset 80
}

// Size returns the size of the Vertex struct in bytes.
func (v *Vertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Size returns the size of the SkinnedVertex struct in bytes.
func (v *SkinnedVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the vertex little-endian.
func (v *Vertex) Marshal() []byte {
	buf := make([]byte, 64)
	putFloats(buf[0:], v.Position[:])
	putFloats(buf[12:], v.Normal[:])
	putFloats(buf[24:], v.TexCoord[:])
	putFloats(buf[32:], v.Color[:])
	putFloats(buf[48:], v.Tangent[:])
	return buf
}

// Marshal serializes the skinned vertex little-endian.
func (v *SkinnedVertex) Marshal() []byte {
	buf := make([]byte, 96)
	copy(buf, v.Vertex.Marshal())
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[64+i*4:], v.Joints[i])
	}
	putFloats(buf[80:], v.Weights[:])
	return buf
}

func putFloats(buf []byte, values []float32) {
	for i, f := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
}

// Interleave packs the primitive's planar arrays into Vertex records using UV set 0
// and color set 0. Missing colors default to white.
//
// Returns:
//   - []Vertex: one vertex per position
func (p *MeshPrimitive) Interleave() []Vertex {
	out := make([]Vertex, len(p.Positions))
	for i := range out {
		v := &out[i]
		v.Position = p.Positions[i]
		v.Color = [4]float32{1, 1, 1, 1}
		if i < len(p.Normals) {
			v.Normal = p.Normals[i]
		}
		if len(p.UVs) > 0 && i < len(p.UVs[0]) {
			v.TexCoord = p.UVs[0][i]
		}
		if len(p.Colors) > 0 && i < len(p.Colors[0]) {
			v.Color = p.Colors[0][i]
		}
		if i < len(p.Tangents) {
			v.Tangent = p.Tangents[i]
		}
	}
	return out
}

// InterleaveSkinned packs the primitive into SkinnedVertex records. Influences beyond the
// fourth are dropped; influence lists are already sorted strongest first.
//
// Returns:
//   - []SkinnedVertex: one vertex per position
func (p *MeshPrimitive) InterleaveSkinned() []SkinnedVertex {
	base := p.Interleave()
	out := make([]SkinnedVertex, len(base))
	for i := range out {
		out[i].Vertex = base[i]
		if i >= len(p.Influences) {
			continue
		}
		for j, inf := range p.Influences[i] {
			if j >= 4 {
				break
			}
			out[i].Joints[j] = inf.Joint
			out[i].Weights[j] = inf.Weight
		}
	}
	return out
}

// IndexBytes returns a byte view of the index buffer in native byte order.
func (p *MeshPrimitive) IndexBytes() []byte {
	return common.SliceToBytes(p.Indices)
}

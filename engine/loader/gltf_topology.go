package loader

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/pkg/errors"
)

// gltfListIndices converts a primitive's index stream to list topology.
// Strips, fans and loops are unrolled; degenerate strip triangles are dropped.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#meshes-overview
//
// Parameters:
//   - mode: the primitive mode
//   - indices: the source index stream
//
// Returns:
//   - model.Topology: the resulting list topology
//   - []uint32: the list indices
//   - error: ErrUnsupportedFormat for an unknown mode
func gltfListIndices(mode int, indices []uint32) (model.Topology, []uint32, error) {
	switch mode {
	case gltfPrimitiveModePoints:
		return model.TopologyPoints, indices, nil

	case gltfPrimitiveModeLines:
		return model.TopologyLines, indices[:len(indices)-len(indices)%2], nil

	case gltfPrimitiveModeLineStrip, gltfPrimitiveModeLineLoop:
		if len(indices) < 2 {
			return model.TopologyLines, nil, nil
		}
		out := make([]uint32, 0, len(indices)*2)
		for i := 0; i+1 < len(indices); i++ {
			out = append(out, indices[i], indices[i+1])
		}
		if mode == gltfPrimitiveModeLineLoop {
			out = append(out, indices[len(indices)-1], indices[0])
		}
		return model.TopologyLines, out, nil

	case gltfPrimitiveModeTriangles:
		return model.TopologyTriangles, indices[:len(indices)-len(indices)%3], nil

	case gltfPrimitiveModeTriangleStrip:
		if len(indices) < 3 {
			return model.TopologyTriangles, nil, nil
		}
		out := make([]uint32, 0, (len(indices)-2)*3)
		for i := 0; i+2 < len(indices); i++ {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			if a == b || b == c || a == c {
				continue
			}
			// Odd triangles swap the first two vertices to keep a consistent winding.
			if i%2 == 1 {
				a, b = b, a
			}
			out = append(out, a, b, c)
		}
		return model.TopologyTriangles, out, nil

	case gltfPrimitiveModeTriangleFan:
		if len(indices) < 3 {
			return model.TopologyTriangles, nil, nil
		}
		out := make([]uint32, 0, (len(indices)-2)*3)
		for i := 1; i+1 < len(indices); i++ {
			out = append(out, indices[i], indices[i+1], indices[0])
		}
		return model.TopologyTriangles, out, nil

	default:
		return 0, nil, errors.Wrapf(ErrUnsupportedFormat, "primitive mode %d", mode)
	}
}

// gltfSequentialIndices returns 0..n-1.
func gltfSequentialIndices(n int) []uint32 {
	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = uint32(i)
	}
	return indices
}

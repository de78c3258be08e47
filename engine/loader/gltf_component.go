package loader

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// gltfComponent is the closed set of accessor component types. The values are the glTF enums.
type gltfComponent int

const (
	componentByte          gltfComponent = gltfComponentTypeByte
	componentUnsignedByte  gltfComponent = gltfComponentTypeUnsignedByte
	componentShort         gltfComponent = gltfComponentTypeShort
	componentUnsignedShort gltfComponent = gltfComponentTypeUnsignedShort
	componentUnsignedInt   gltfComponent = gltfComponentTypeUnsignedInt
	componentFloat         gltfComponent = gltfComponentTypeFloat
)

// gltfComponentOf maps a componentType enum to its variant.
func gltfComponentOf(componentType int) (gltfComponent, bool) {
	switch c := gltfComponent(componentType); c {
	case componentByte, componentUnsignedByte, componentShort, componentUnsignedShort,
		componentUnsignedInt, componentFloat:
		return c, true
	default:
		return 0, false
	}
}

// size returns the byte size of one component.
func (c gltfComponent) size() int {
	switch c {
	case componentByte, componentUnsignedByte:
		return 1
	case componentShort, componentUnsignedShort:
		return 2
	default:
		return 4
	}
}

// integer reports whether the component is an integer type.
func (c gltfComponent) integer() bool {
	return c != componentFloat
}

// unsigned reports whether the component is an unsigned integer type.
func (c gltfComponent) unsigned() bool {
	return c == componentUnsignedByte || c == componentUnsignedShort || c == componentUnsignedInt
}

// decode reads one raw component value from the start of b.
// float64 holds every component type exactly.
func (c gltfComponent) decode(b []byte) float64 {
	switch c {
	case componentByte:
		return decodeByte(b)
	case componentUnsignedByte:
		return decodeUnsignedByte(b)
	case componentShort:
		return decodeShort(b)
	case componentUnsignedShort:
		return decodeUnsignedShort(b)
	case componentUnsignedInt:
		return decodeUnsignedInt(b)
	default:
		return decodeFloat(b)
	}
}

// normalize maps a raw integer value to [0,1] (unsigned) or [-1,1] (signed).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#accessor-data-types
func (c gltfComponent) normalize(v float64) float64 {
	switch c {
	case componentByte:
		return common.Clamp(v/127.0, -1, 1)
	case componentUnsignedByte:
		return v / 255.0
	case componentShort:
		return common.Clamp(v/32767.0, -1, 1)
	case componentUnsignedShort:
		return v / 65535.0
	case componentUnsignedInt:
		return v / 4294967295.0
	default:
		return v
	}
}

func decodeByte(b []byte) float64 {
	return float64(int8(b[0]))
}

func decodeUnsignedByte(b []byte) float64 {
	return float64(b[0])
}

func decodeShort(b []byte) float64 {
	return float64(int16(binary.LittleEndian.Uint16(b)))
}

func decodeUnsignedShort(b []byte) float64 {
	return float64(binary.LittleEndian.Uint16(b))
}

func decodeUnsignedInt(b []byte) float64 {
	return float64(binary.LittleEndian.Uint32(b))
}

func decodeFloat(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

// gltfElementLayout describes the byte layout of one accessor element.
// Matrix columns start on 4-byte boundaries, which pads MAT2 of bytes and MAT3 of bytes or shorts.
type gltfElementLayout struct {
	columns     int
	rows        int
	columnBytes int
}

// components returns the number of components per element.
func (l gltfElementLayout) components() int {
	return l.columns * l.rows
}

// size returns the byte size of one element.
func (l gltfElementLayout) size() int {
	return l.columns * l.columnBytes
}

// gltfLayoutOf returns the element layout for an accessor type, or false for an unknown type.
func gltfLayoutOf(accessorType string, c gltfComponent) (gltfElementLayout, bool) {
	var cols, rows int
	switch accessorType {
	case gltfAccessorTypeScalar:
		cols, rows = 1, 1
	case gltfAccessorTypeVec2:
		cols, rows = 1, 2
	case gltfAccessorTypeVec3:
		cols, rows = 1, 3
	case gltfAccessorTypeVec4:
		cols, rows = 1, 4
	case gltfAccessorTypeMat2:
		cols, rows = 2, 2
	case gltfAccessorTypeMat3:
		cols, rows = 3, 3
	case gltfAccessorTypeMat4:
		cols, rows = 4, 4
	default:
		return gltfElementLayout{}, false
	}

	colBytes := rows * c.size()
	if cols > 1 {
		colBytes = (colBytes + 3) &^ 3
	}
	return gltfElementLayout{columns: cols, rows: rows, columnBytes: colBytes}, true
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	l, ok := gltfLayoutOf(accessorType, componentFloat)
	if !ok {
		return 0
	}
	return l.components()
}

package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// gltfParsed is the output of parsing: the document graph plus the GLB binary chunk, if any.
type gltfParsed struct {
	document *gltfDocument
	bin      []byte
	isGLB    bool
}

// gltfParse decodes a whole .gltf or .glb file. GLB input is detected by its magic number,
// everything else is treated as JSON text. It has no side effects and performs no I/O;
// external buffers are resolved later by the buffer resolver.
//
// Parameters:
//   - data: the raw file contents
//
// Returns:
//   - *gltfParsed: the parsed document and binary chunk
//   - error: an ErrFormat-wrapped error if the container or JSON is malformed
func gltfParse(data []byte) (*gltfParsed, error) {
	if gltfIsGLB(data) {
		return gltfParseGLB(data)
	}

	doc, err := gltfParseJSON(data)
	if err != nil {
		return nil, err
	}
	return &gltfParsed{document: doc}, nil
}

// gltfIsGLB reports whether data starts with the GLB magic.
func gltfIsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic
}

// gltfParseJSON parses a glTF JSON document.
func gltfParseJSON(data []byte) (*gltfDocument, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrFormat, "parse glTF JSON: %v", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, errors.Wrapf(ErrFormat, "asset.version %q: must be 2.x", doc.Asset.Version)
	}
	if doc.Asset.MinVersion != "" && doc.Asset.MinVersion != "2.0" {
		return nil, errors.Wrapf(ErrFormat, "asset.minVersion %q is newer than 2.0", doc.Asset.MinVersion)
	}

	return &doc, nil
}

// gltfParseGLB splits a GLB container into its JSON and BIN chunks.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func gltfParseGLB(data []byte) (*gltfParsed, error) {
	if len(data) < 12 {
		return nil, errors.Wrap(ErrFormat, "GLB file too small")
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrapf(ErrFormat, "read GLB header: %v", err)
	}

	if header.Magic != gltfGLBMagic {
		return nil, errors.Wrap(ErrFormat, "invalid GLB magic number")
	}
	if header.Version != gltfGLBVersion {
		return nil, errors.Wrapf(ErrFormat, "invalid GLB version %d: must be 2", header.Version)
	}
	if int(header.Length) > len(data) {
		return nil, errors.Wrapf(ErrFormat, "GLB header length %d exceeds file size %d", header.Length, len(data))
	}
	data = data[:header.Length]

	var jsonData, binData []byte
	offset := 12
	for chunk := 0; offset < len(data); chunk++ {
		if offset+8 > len(data) {
			return nil, errors.Wrapf(ErrFormat, "truncated chunk header at %d", offset)
		}
		chunkHeader := gltfGLBChunkHeader{
			ChunkLength: binary.LittleEndian.Uint32(data[offset:]),
			ChunkType:   binary.LittleEndian.Uint32(data[offset+4:]),
		}
		offset += 8

		end := offset + int(chunkHeader.ChunkLength)
		if end > len(data) || end < offset {
			return nil, errors.Wrapf(ErrFormat, "chunk %d length %d exceeds container", chunk, chunkHeader.ChunkLength)
		}
		chunkData := data[offset:end]
		offset = end

		switch {
		case chunk == 0 && chunkHeader.ChunkType != gltfGLBChunkJSON:
			return nil, errors.Wrap(ErrFormat, "first GLB chunk is not JSON")
		case chunk == 0:
			jsonData = chunkData
		case chunkHeader.ChunkType == gltfGLBChunkBIN && binData == nil:
			binData = chunkData
		}
		// Unknown chunk types are skipped.
	}

	if jsonData == nil {
		return nil, errors.Wrap(ErrFormat, "GLB file missing JSON chunk")
	}

	doc, err := gltfParseJSON(bytes.TrimRight(jsonData, " \x00"))
	if err != nil {
		return nil, err
	}

	return &gltfParsed{document: doc, bin: binData, isGLB: true}, nil
}

// gltfExtractModelName derives a model name from the default scene or a path fallback.
func gltfExtractModelName(doc *gltfDocument, fallbackPath string) string {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}

	if fallbackPath != "" {
		return fallbackPath
	}

	return "unnamed_model"
}

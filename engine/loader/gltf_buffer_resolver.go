package loader

import (
	"context"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// gltfFetchFunc retrieves an external resource by resolved URI.
type gltfFetchFunc func(ctx context.Context, uri string) ([]byte, error)

// gltfAccessorData is a decoded accessor. Values holds Count*Components entries in element order;
// float64 represents every component type exactly, and normalization has already been applied.
type gltfAccessorData struct {
	Count      int
	Components int
	Component  gltfComponent
	Normalized bool
	Values     []float64
}

// element returns the components of element i.
func (a *gltfAccessorData) element(i int) []float64 {
	return a.Values[i*a.Components : (i+1)*a.Components]
}

type gltfBufferResult struct {
	data []byte
	err  error
}

type gltfAccessorResult struct {
	data *gltfAccessorData
	err  error
}

// gltfBufferResolverImpl is the implementation of the gltfBufferResolver interface.
type gltfBufferResolverImpl struct {
	doc     *gltfDocument
	bin     []byte
	baseURI string
	fetch   gltfFetchFunc

	mu        sync.Mutex
	buffers   map[int]gltfBufferResult
	accessors map[int]gltfAccessorResult
}

// gltfBufferResolver decodes buffers and accessors of one document on demand.
// Buffers and accessors are resolved at most once per request; failures are memoized too,
// so every dependent of a failed external buffer sees the same FetchError.
type gltfBufferResolver interface {
	// Document returns the document being resolved.
	//
	// Returns:
	//   - *gltfDocument: the document
	Document() *gltfDocument

	// Buffer returns the bytes of a buffer, fetching external URIs on first use.
	//
	// Parameters:
	//   - ctx: context bounding any fetch
	//   - index: the buffer index
	//
	// Returns:
	//   - []byte: the buffer bytes
	//   - error: ErrFetch or ErrBufferBounds wrapped with context
	Buffer(ctx context.Context, index int) ([]byte, error)

	// BufferView returns the byte range of a buffer view.
	//
	// Parameters:
	//   - ctx: context bounding any fetch
	//   - index: the buffer view index
	//
	// Returns:
	//   - []byte: the view bytes
	//   - error: error if the underlying buffer cannot be resolved or is too short
	BufferView(ctx context.Context, index int) ([]byte, error)

	// Resolve decodes an accessor, applying normalization and sparse substitution.
	//
	// Parameters:
	//   - ctx: context bounding any fetch
	//   - index: the accessor index
	//
	// Returns:
	//   - *gltfAccessorData: exactly accessor.count elements
	//   - error: error if the data cannot be read
	Resolve(ctx context.Context, index int) (*gltfAccessorData, error)

	// FetchURI resolves a relative reference against the document base and fetches it.
	//
	// Parameters:
	//   - ctx: context bounding the fetch
	//   - uri: a data URI or relative/absolute reference
	//
	// Returns:
	//   - []byte: the resource bytes
	//   - error: error if the resource cannot be retrieved
	FetchURI(ctx context.Context, uri string) ([]byte, error)

	ReadScalars(ctx context.Context, index int) ([]float32, error)
	ReadVec2(ctx context.Context, index int) ([][2]float32, error)
	ReadVec3(ctx context.Context, index int) ([][3]float32, error)
	ReadVec4(ctx context.Context, index int) ([][4]float32, error)
	ReadMat4(ctx context.Context, index int) ([]mgl32.Mat4, error)

	// ReadIndices reads an unsigned integer scalar accessor.
	ReadIndices(ctx context.Context, index int) ([]uint32, error)

	// ReadJoints reads an unsigned byte or short VEC4 accessor.
	ReadJoints(ctx context.Context, index int) ([][4]uint32, error)
}

var _ gltfBufferResolver = &gltfBufferResolverImpl{}

// newGLTFBufferResolver creates a resolver for one load request.
//
// Parameters:
//   - p: the parsed and validated document
//   - baseURI: the location relative references are resolved against
//   - fetch: the fetch function for external resources
//
// Returns:
//   - gltfBufferResolver: the resolver
func newGLTFBufferResolver(p *gltfParsed, baseURI string, fetch gltfFetchFunc) gltfBufferResolver {
	return &gltfBufferResolverImpl{
		doc:       p.document,
		bin:       p.bin,
		baseURI:   baseURI,
		fetch:     fetch,
		buffers:   make(map[int]gltfBufferResult),
		accessors: make(map[int]gltfAccessorResult),
	}
}

func (r *gltfBufferResolverImpl) Document() *gltfDocument {
	return r.doc
}

func (r *gltfBufferResolverImpl) Buffer(ctx context.Context, index int) ([]byte, error) {
	r.mu.Lock()
	if res, ok := r.buffers[index]; ok {
		r.mu.Unlock()
		return res.data, res.err
	}
	r.mu.Unlock()

	data, err := r.loadBuffer(ctx, index)
	if ctx.Err() != nil {
		// Cancellation is not a property of the buffer.
		return nil, ctx.Err()
	}

	r.mu.Lock()
	r.buffers[index] = gltfBufferResult{data: data, err: err}
	r.mu.Unlock()
	return data, err
}

func (r *gltfBufferResolverImpl) loadBuffer(ctx context.Context, index int) ([]byte, error) {
	buf := &r.doc.Buffers[index]

	var data []byte
	if buf.URI == "" {
		data = r.bin
	} else {
		var err error
		data, err = r.FetchURI(ctx, buf.URI)
		if err != nil {
			return nil, errors.WithMessagef(err, "buffer %d", index)
		}
	}

	if len(data) < buf.ByteLength {
		return nil, errors.Wrapf(ErrBufferBounds, "buffer %d holds %d bytes, declares %d", index, len(data), buf.ByteLength)
	}
	return data, nil
}

func (r *gltfBufferResolverImpl) FetchURI(ctx context.Context, uri string) ([]byte, error) {
	if resource.IsDataURI(uri) {
		data, _, err := resource.DecodeDataURI(uri)
		if err != nil {
			return nil, errors.Wrapf(ErrFetch, "%v", err)
		}
		return data, nil
	}
	if r.fetch == nil {
		return nil, errors.Wrapf(ErrFetch, "no fetcher for %s", uri)
	}
	return r.fetch(ctx, resource.ResolveURI(r.baseURI, uri))
}

func (r *gltfBufferResolverImpl) BufferView(ctx context.Context, index int) ([]byte, error) {
	bv := &r.doc.BufferViews[index]
	data, err := r.Buffer(ctx, bv.Buffer)
	if err != nil {
		return nil, err
	}
	end := bv.ByteOffset + bv.ByteLength
	if end > len(data) {
		return nil, errors.Wrapf(ErrBufferBounds, "bufferView %d ends at %d, buffer %d holds %d bytes", index, end, bv.Buffer, len(data))
	}
	return data[bv.ByteOffset:end], nil
}

func (r *gltfBufferResolverImpl) Resolve(ctx context.Context, index int) (*gltfAccessorData, error) {
	r.mu.Lock()
	if res, ok := r.accessors[index]; ok {
		r.mu.Unlock()
		return res.data, res.err
	}
	r.mu.Unlock()

	data, err := r.resolveAccessor(ctx, index)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		err = errors.WithMessagef(err, "accessor %d", index)
	}

	r.mu.Lock()
	r.accessors[index] = gltfAccessorResult{data: data, err: err}
	r.mu.Unlock()
	return data, err
}

func (r *gltfBufferResolverImpl) resolveAccessor(ctx context.Context, index int) (*gltfAccessorData, error) {
	acc := &r.doc.Accessors[index]
	comp, _ := gltfComponentOf(acc.ComponentType)
	layout, _ := gltfLayoutOf(acc.Type, comp)

	out := &gltfAccessorData{
		Count:      acc.Count,
		Components: layout.components(),
		Component:  comp,
		Normalized: acc.Normalized,
		Values:     make([]float64, acc.Count*layout.components()),
	}

	if acc.BufferView != nil {
		view, err := r.BufferView(ctx, *acc.BufferView)
		if err != nil {
			return nil, err
		}
		stride := layout.size()
		if bs := r.doc.BufferViews[*acc.BufferView].ByteStride; bs != nil {
			stride = *bs
		}
		if end := acc.ByteOffset + (acc.Count-1)*stride + layout.size(); end > len(view) {
			return nil, errors.Wrapf(ErrBufferBounds, "needs %d bytes, view holds %d", end, len(view))
		}
		for i := 0; i < acc.Count; i++ {
			gltfDecodeElement(out.element(i), view[acc.ByteOffset+i*stride:], comp, layout, acc.Normalized)
		}
	}

	if acc.Sparse != nil {
		if err := r.applySparse(ctx, acc, out, comp, layout); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// applySparse overwrites the elements listed by the sparse indices with the sparse values.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#sparse-accessors
func (r *gltfBufferResolverImpl) applySparse(ctx context.Context, acc *gltfAccessor, out *gltfAccessorData, comp gltfComponent, layout gltfElementLayout) error {
	sp := acc.Sparse
	idxComp, _ := gltfComponentOf(sp.Indices.ComponentType)

	idxView, err := r.BufferView(ctx, sp.Indices.BufferView)
	if err != nil {
		return errors.WithMessage(err, "sparse indices")
	}
	valView, err := r.BufferView(ctx, sp.Values.BufferView)
	if err != nil {
		return errors.WithMessage(err, "sparse values")
	}

	if sp.Indices.ByteOffset+sp.Count*idxComp.size() > len(idxView) {
		return errors.Wrap(ErrBufferBounds, "sparse indices exceed view")
	}
	if sp.Values.ByteOffset+sp.Count*layout.size() > len(valView) {
		return errors.Wrap(ErrBufferBounds, "sparse values exceed view")
	}

	prev := -1
	for k := 0; k < sp.Count; k++ {
		target := int(idxComp.decode(idxView[sp.Indices.ByteOffset+k*idxComp.size():]))
		if target >= acc.Count {
			return errors.Wrapf(ErrBufferBounds, "sparse index %d >= count %d", target, acc.Count)
		}
		if target <= prev {
			return errors.Wrapf(ErrFormat, "sparse indices not strictly increasing at %d", k)
		}
		prev = target
		gltfDecodeElement(out.element(target), valView[sp.Values.ByteOffset+k*layout.size():], comp, layout, acc.Normalized)
	}
	return nil
}

// gltfDecodeElement decodes one element starting at src into dst, column by column.
func gltfDecodeElement(dst []float64, src []byte, comp gltfComponent, layout gltfElementLayout, normalized bool) {
	size := comp.size()
	for c := 0; c < layout.columns; c++ {
		col := src[c*layout.columnBytes:]
		for row := 0; row < layout.rows; row++ {
			v := comp.decode(col[row*size:])
			if normalized {
				v = comp.normalize(v)
			}
			dst[c*layout.rows+row] = v
		}
	}
}

// --- Typed Readers ---

func (r *gltfBufferResolverImpl) readTyped(ctx context.Context, index int, accessorType string) (*gltfAccessorData, error) {
	acc := &r.doc.Accessors[index]
	if acc.Type != accessorType {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "accessor %d is %s, want %s", index, acc.Type, accessorType)
	}
	return r.Resolve(ctx, index)
}

func (r *gltfBufferResolverImpl) ReadScalars(ctx context.Context, index int) ([]float32, error) {
	data, err := r.readTyped(ctx, index, gltfAccessorTypeScalar)
	if err != nil {
		return nil, err
	}
	result := make([]float32, data.Count)
	for i := range result {
		result[i] = float32(data.Values[i])
	}
	return result, nil
}

func (r *gltfBufferResolverImpl) ReadVec2(ctx context.Context, index int) ([][2]float32, error) {
	data, err := r.readTyped(ctx, index, gltfAccessorTypeVec2)
	if err != nil {
		return nil, err
	}
	result := make([][2]float32, data.Count)
	for i := range result {
		e := data.element(i)
		result[i] = [2]float32{float32(e[0]), float32(e[1])}
	}
	return result, nil
}

func (r *gltfBufferResolverImpl) ReadVec3(ctx context.Context, index int) ([][3]float32, error) {
	data, err := r.readTyped(ctx, index, gltfAccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	result := make([][3]float32, data.Count)
	for i := range result {
		e := data.element(i)
		result[i] = [3]float32{float32(e[0]), float32(e[1]), float32(e[2])}
	}
	return result, nil
}

func (r *gltfBufferResolverImpl) ReadVec4(ctx context.Context, index int) ([][4]float32, error) {
	data, err := r.readTyped(ctx, index, gltfAccessorTypeVec4)
	if err != nil {
		return nil, err
	}
	result := make([][4]float32, data.Count)
	for i := range result {
		e := data.element(i)
		result[i] = [4]float32{float32(e[0]), float32(e[1]), float32(e[2]), float32(e[3])}
	}
	return result, nil
}

func (r *gltfBufferResolverImpl) ReadMat4(ctx context.Context, index int) ([]mgl32.Mat4, error) {
	data, err := r.readTyped(ctx, index, gltfAccessorTypeMat4)
	if err != nil {
		return nil, err
	}
	result := make([]mgl32.Mat4, data.Count)
	for i := range result {
		e := data.element(i)
		for j := 0; j < 16; j++ {
			result[i][j] = float32(e[j])
		}
	}
	return result, nil
}

func (r *gltfBufferResolverImpl) ReadIndices(ctx context.Context, index int) ([]uint32, error) {
	acc := &r.doc.Accessors[index]
	comp, _ := gltfComponentOf(acc.ComponentType)
	if acc.Type != gltfAccessorTypeScalar || !comp.unsigned() || acc.Normalized {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "index accessor %d: %s/%d", index, acc.Type, acc.ComponentType)
	}

	data, err := r.Resolve(ctx, index)
	if err != nil {
		return nil, err
	}
	result := make([]uint32, data.Count)
	for i := range result {
		result[i] = uint32(data.Values[i])
	}
	return result, nil
}

func (r *gltfBufferResolverImpl) ReadJoints(ctx context.Context, index int) ([][4]uint32, error) {
	acc := &r.doc.Accessors[index]
	if acc.Type != gltfAccessorTypeVec4 ||
		(acc.ComponentType != gltfComponentTypeUnsignedByte && acc.ComponentType != gltfComponentTypeUnsignedShort) ||
		acc.Normalized {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "joints accessor %d: %s/%d", index, acc.Type, acc.ComponentType)
	}

	data, err := r.Resolve(ctx, index)
	if err != nil {
		return nil, err
	}
	result := make([][4]uint32, data.Count)
	for i := range result {
		e := data.element(i)
		result[i] = [4]uint32{uint32(e[0]), uint32(e[1]), uint32(e[2]), uint32(e[3])}
	}
	return result, nil
}

package loader

import (
	"context"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// Source describes what a request loads: a path resolved through the loader's fetcher,
// or in-memory Data. BaseURI resolves relative references; it defaults to the directory of Path.
type Source struct {
	Name    string
	Path    string
	Data    []byte
	BaseURI string
}

// RequestOption is a functional option for a single load request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	handler      func(model.ConstructedAsset)
	meshOnly     bool
	scene        *int
	lods         []int
	perPrimitive bool
}

// partial reports whether the options narrow or reshape the output, which keeps the model
// out of the loader's model cache.
func (o *requestOptions) partial() bool {
	return o.meshOnly || o.scene != nil || len(o.lods) > 0 || o.perPrimitive
}

// WithAssetHandler is an option builder that registers a callback invoked once per constructed asset,
// in traversal order, before the request completes. Nothing is delivered for failed or canceled requests.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - RequestOption: a function that applies the handler option to a request
func WithAssetHandler(fn func(model.ConstructedAsset)) RequestOption {
	return func(o *requestOptions) {
		o.handler = fn
	}
}

// WithMeshOnly is an option builder that skips skeletons, animations and cameras.
//
// Returns:
//   - RequestOption: a function that applies the mesh-only option to a request
func WithMeshOnly() RequestOption {
	return func(o *requestOptions) {
		o.meshOnly = true
	}
}

// WithScene is an option builder that restricts traversal to one scene.
//
// Parameters:
//   - index: the scene index
//
// Returns:
//   - RequestOption: a function that applies the scene option to a request
func WithScene(index int) RequestOption {
	return func(o *requestOptions) {
		o.scene = &index
	}
}

// WithLODs is an option builder that groups meshes into levels of detail. The first mesh is level 0
// and each following mesh is the next coarser level. The group is delivered as one mesh asset at
// /lods/<name> after the scene assets.
//
// Parameters:
//   - meshes: the mesh indices, finest first
//
// Returns:
//   - RequestOption: a function that applies the LOD option to a request
func WithLODs(meshes ...int) RequestOption {
	return func(o *requestOptions) {
		o.lods = append([]int(nil), meshes...)
	}
}

// WithMeshPerPrimitive is an option builder that delivers every primitive of a mesh instance as
// its own mesh asset, named <mesh>_<primitive>.
//
// Returns:
//   - RequestOption: a function that applies the per-primitive option to a request
func WithMeshPerPrimitive() RequestOption {
	return func(o *requestOptions) {
		o.perPrimitive = true
	}
}

// Request is the future of one asynchronous load.
type Request interface {
	// ID returns the request identifier.
	ID() string

	// Source returns what is being loaded.
	Source() Source

	// Assets blocks until the request completes and returns a closed channel buffered with every
	// constructed asset in traversal order. Each call returns its own channel, so a reader may stop
	// early. The channel is empty on failure or cancellation.
	//
	// Returns:
	//   - <-chan model.ConstructedAsset: the asset stream
	Assets() <-chan model.ConstructedAsset

	// Done is closed when the result is available.
	Done() <-chan struct{}

	// Result returns the terminal result, or nil while the request is running.
	Result() *Result

	// Wait blocks until the request completes or ctx is done.
	//
	// Parameters:
	//   - ctx: bounds the wait only; it does not cancel the request
	//
	// Returns:
	//   - *Result: the terminal result
	//   - error: the result's Err on failure, or ctx's error if the wait was abandoned
	Wait(ctx context.Context) (*Result, error)

	// Cancel stops the request at the next node or primitive boundary. Nothing is delivered.
	Cancel()
}

// request is the implementation of the Request interface.
type request struct {
	id     string
	src    Source
	opts   requestOptions
	ctx    context.Context
	cancel context.CancelFunc

	done   chan struct{}
	mu     sync.RWMutex
	result *Result
}

var _ Request = &request{}

func newRequest(ctx context.Context, id string, src Source, opts ...RequestOption) *request {
	r := &request{
		id:   id,
		src:  src,
		done: make(chan struct{}),
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

func (r *request) ID() string {
	return r.id
}

func (r *request) Source() Source {
	return r.src
}

func (r *request) Assets() <-chan model.ConstructedAsset {
	<-r.done
	var assets []model.ConstructedAsset
	if res := r.Result(); res.Status != StatusFailure {
		assets = res.Assets
	}

	ch := make(chan model.ConstructedAsset, len(assets))
	for _, a := range assets {
		ch <- a
	}
	close(ch)
	return ch
}

func (r *request) Done() <-chan struct{} {
	return r.done
}

func (r *request) Result() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.result
}

func (r *request) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-r.done:
		res := r.Result()
		if res.Status == StatusFailure {
			return res, res.Err
		}
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *request) Cancel() {
	r.cancel()
}

// complete publishes the result, runs the asset handler and closes Done. It runs once.
func (r *request) complete(res *Result) {
	if res.Status != StatusFailure && r.opts.handler != nil {
		for _, a := range res.Assets {
			r.opts.handler(a)
		}
	}

	r.mu.Lock()
	r.result = res
	r.mu.Unlock()

	r.cancel()
	close(r.done)
}

package loader

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gltf/engine/resource"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]model.Model

	backend loaderBackend

	cfg     *config.Config
	workers int
	logger  *zap.Logger
	fetcher resource.Fetcher
	cache   *resource.Cache

	pool   worker.DynamicWorkerPool
	taskID atomic.Int64
}

// Loader decodes model files into engine-agnostic assets off the caller's goroutine.
// Every request runs as one task on a bounded worker pool; requests share only the
// resource cache and the model cache.
type Loader interface {
	// Load loads a model file and blocks until the request completes.
	// A cached model with the same path is returned without decoding again.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - path: a file path or URL
	//   - opts: request options
	//
	// Returns:
	//   - *Result: the terminal result
	//   - error: the result's Err when the status is StatusFailure
	Load(ctx context.Context, path string, opts ...RequestOption) (*Result, error)

	// LoadBytes loads a model from memory and blocks until the request completes.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - name: the model cache key
	//   - data: the .gltf or .glb contents
	//   - baseURI: resolves relative buffer and image references
	//   - opts: request options
	//
	// Returns:
	//   - *Result: the terminal result
	//   - error: the result's Err when the status is StatusFailure
	LoadBytes(ctx context.Context, name string, data []byte, baseURI string, opts ...RequestOption) (*Result, error)

	// Submit queues a load request and returns its future immediately.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - src: what to load
	//   - opts: request options
	//
	// Returns:
	//   - Request: the request future
	Submit(ctx context.Context, src Source, opts ...RequestOption) Request

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model

	// Evict removes a model from the model cache.
	//
	// Parameters:
	//   - name: the cache key
	Evict(name string)

	// Cache returns the resource cache shared by every request of this loader.
	//
	// Returns:
	//   - *resource.Cache: the cache of fetched buffers and images
	Cache() *resource.Cache
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
// A configuration that fails validation is replaced by the defaults and logged as a warning.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		modelCache: make(map[string]model.Model),
		cfg:        config.Default(),
		logger:     zap.NewNop(),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}

	if err := l.cfg.Validate(); err != nil {
		l.logger.Warn("invalid loader configuration, using defaults", zap.Error(err))
		l.cfg = config.Default()
	}
	if l.cache == nil {
		l.cache = resource.NewCache()
	}
	if l.fetcher == nil {
		l.fetcher = resource.NewDefaultFetcher(l.cfg.Fetch.Timeout.Std())
	}
	workers := common.Coalesce(l.workers, l.cfg.Loader.Workers, 1)
	l.pool = worker.NewDynamicWorkerPool(workers, l.cfg.Loader.QueueSize, l.cfg.Loader.IdleTimeout.Std())
	return l
}

func (l *loader) Load(ctx context.Context, path string, opts ...RequestOption) (*Result, error) {
	return l.wait(l.Submit(ctx, Source{Name: path, Path: path}, opts...))
}

func (l *loader) LoadBytes(ctx context.Context, name string, data []byte, baseURI string, opts ...RequestOption) (*Result, error) {
	return l.wait(l.Submit(ctx, Source{Name: name, Data: data, BaseURI: baseURI}, opts...))
}

// wait blocks until req completes. Cancellation of the request context ends the request itself,
// so the wait always observes a terminal result.
func (l *loader) wait(req Request) (*Result, error) {
	<-req.Done()
	res := req.Result()
	if res.Status == StatusFailure {
		return res, res.Err
	}
	return res, nil
}

func (l *loader) Submit(ctx context.Context, src Source, opts ...RequestOption) Request {
	if src.Name == "" {
		src.Name = src.Path
	}
	req := newRequest(ctx, uuid.NewString(), src, opts...)

	if cached := l.cachedModel(req); cached != nil {
		req.complete(&Result{
			ID:     req.id,
			Source: src.Name,
			Status: StatusSuccess,
			Model:  cached,
			Assets: cached.Assets(),
		})
		return req
	}

	l.pool.SubmitTask(worker.Task{
		ID: int(l.taskID.Add(1)),
		Do: func() (any, error) {
			res := l.run(req)
			req.complete(res)
			return nil, res.Err
		},
	})
	return req
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	delete(l.modelCache, name)
	l.mu.Unlock()
}

func (l *loader) Cache() *resource.Cache {
	return l.cache
}

// cachedModel returns the cached model for an unrestricted request, or nil.
func (l *loader) cachedModel(req *request) model.Model {
	if !l.cfg.Loader.CacheModels || req.opts.partial() {
		return nil
	}
	return l.Get(req.src.Name)
}

// run executes one request on a pool worker.
func (l *loader) run(req *request) *Result {
	ctx := req.ctx
	log := l.logger.With(zap.String("request", req.id), zap.String("source", req.src.Name))
	prof := profiler.NewProfiler(log)
	res := &Result{ID: req.id, Source: req.src.Name}

	fail := func(err error) *Result {
		if ctx.Err() != nil && !errors.Is(err, ErrCanceled) {
			err = errors.Wrap(ErrCanceled, err.Error())
		}
		res.Status = StatusFailure
		res.Err = err
		res.Stats = prof.Finish()
		log.Error("load failed", zap.Error(err))
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(errors.Wrap(ErrCanceled, err.Error()))
	}

	backend, err := l.resolveBackend(req.src)
	if err != nil {
		return fail(err)
	}

	data := req.src.Data
	if data == nil {
		data, err = resource.FetchWithRetry(ctx, l.fetcher, req.src.Path, l.cfg.Fetch.Retries, l.cfg.Fetch.Backoff.Std())
		if err != nil {
			return fail(errors.WithMessagef(err, "read %s", req.src.Path))
		}
	}
	prof.Mark("fetch")

	out, err := backend.Import(ctx, &importInput{
		name:      req.src.Name,
		data:      data,
		baseURI:   common.Coalesce(req.src.BaseURI, resource.BaseOf(req.src.Path)),
		fetch:     l.fetchResource,
		cfg:       l.cfg,
		supported: l.supportedExtensions(backend),
		opts:      req.opts,
		prof:      prof,
		logger:    log,
	})
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(errors.Wrap(ErrCanceled, err.Error()))
	}

	ready := 0
	for i := range out.assets {
		a := &out.assets[i]
		if a.Ready() {
			ready++
		}
		log.Debug("asset constructed",
			zap.Stringer("kind", a.Kind),
			zap.String("path", a.Path),
			zap.Stringer("status", a.Status))
	}
	for _, e := range out.errors {
		log.Warn("asset failed", zap.Error(e))
	}
	for _, w := range out.warnings {
		log.Warn("asset warning", zap.Error(w))
	}

	res.Errors = out.errors
	res.Warnings = out.warnings
	if ready == 0 && len(out.errors) > 0 {
		return fail(out.errors[0])
	}

	res.Status = StatusSuccess
	if len(out.errors) > 0 {
		res.Status = StatusPartialSuccess
	}
	res.Assets = out.assets
	res.Model = model.NewModel(
		model.WithName(out.name),
		model.WithSource(req.src.Name),
		model.WithScenes(out.scenes),
		model.WithAssets(out.assets),
	)
	prof.Mark("model")
	res.Stats = prof.Finish()

	if l.cfg.Loader.CacheModels && !req.opts.partial() {
		l.mu.Lock()
		l.modelCache[req.src.Name] = res.Model
		l.mu.Unlock()
	}

	log.Info("model loaded",
		zap.Stringer("status", res.Status),
		zap.Int("assets", len(res.Assets)),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", res.Stats.Total))
	return res
}

// fetchResource retrieves an external buffer or image through the shared cache.
func (l *loader) fetchResource(ctx context.Context, uri string) ([]byte, error) {
	return l.cache.GetOrFetch(ctx, uri, func(ctx context.Context, uri string) ([]byte, error) {
		return resource.FetchWithRetry(ctx, l.fetcher, uri, l.cfg.Fetch.Retries, l.cfg.Fetch.Backoff.Std())
	})
}

// supportedExtensions intersects the configured extensions with what the backend implements.
func (l *loader) supportedExtensions(backend loaderBackend) map[string]bool {
	enabled := make(map[string]bool, len(l.cfg.Loader.Extensions))
	for _, ext := range l.cfg.Loader.Extensions {
		enabled[ext] = true
	}
	supported := make(map[string]bool, len(enabled))
	for _, ext := range backend.Implements() {
		if enabled[ext] {
			supported[ext] = true
		}
	}
	return supported
}

// resolveBackend checks the source against the backend's file extensions.
// In-memory sources and paths without an extension are handed to the backend as is.
func (l *loader) resolveBackend(src Source) (loaderBackend, error) {
	if src.Data != nil || src.Path == "" {
		return l.backend, nil
	}

	path := src.Path
	if i := strings.IndexAny(path, "?#"); i >= 0 && resource.IsRemote(path) {
		path = path[:i]
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return l.backend, nil
	}
	for _, e := range l.backend.Extensions() {
		if e == ext {
			return l.backend, nil
		}
	}
	return nil, documentLevel(errors.Wrapf(ErrUnsupportedFormat, "unsupported model format: %s", ext))
}

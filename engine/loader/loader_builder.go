package loader

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/resource"
	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithConfig is an option builder that replaces the loader configuration.
// The configuration is copied; later changes by the caller have no effect. NewLoader validates it.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - LoaderBuilderOption: a function that applies the config option to a loader
func WithConfig(cfg *config.Config) LoaderBuilderOption {
	return func(l *loader) {
		if cfg == nil {
			return
		}
		c := *cfg
		c.Loader.Extensions = append([]string(nil), cfg.Loader.Extensions...)
		l.cfg = &c
	}
}

// WithLogger is an option builder that sets the logger used by the Loader.
//
// Parameters:
//   - logger: the logger; nil keeps the no-op default
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithFetcher is an option builder that sets how model files and external resources are retrieved.
//
// Parameters:
//   - f: the fetcher
//
// Returns:
//   - LoaderBuilderOption: a function that applies the fetcher option to a loader
func WithFetcher(f resource.Fetcher) LoaderBuilderOption {
	return func(l *loader) {
		l.fetcher = f
	}
}

// WithResourceCache is an option builder that shares a resource cache with the Loader.
// The cache lives as long as the caller keeps it; several loaders may share one.
//
// Parameters:
//   - c: the cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cache option to a loader
func WithResourceCache(c *resource.Cache) LoaderBuilderOption {
	return func(l *loader) {
		l.cache = c
	}
}

// WithWorkers is an option builder that sets the number of concurrent load requests,
// overriding the configured value.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = n
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}

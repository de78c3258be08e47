package loader

import (
	"context"

	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
	"go.uber.org/zap"
)

// importInput carries everything one import needs, independent of the file format.
type importInput struct {
	name      string
	data      []byte
	baseURI   string
	fetch     gltfFetchFunc
	cfg       *config.Config
	supported map[string]bool
	opts      requestOptions
	prof      *profiler.Profiler
	logger    *zap.Logger
}

// importOutput is everything one import constructed.
type importOutput struct {
	name     string
	scenes   []model.Scene
	assets   []model.ConstructedAsset
	errors   []error
	warnings []error
}

// loaderBackend defines the generic interface for importing one model format.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Extensions lists the lower-case file extensions the backend accepts, dot included.
	//
	// Returns:
	//   - []string: the extensions
	Extensions() []string

	// Implements lists the format-level extensions the backend can decode. The loader enables the
	// configured extensions that appear here.
	//
	// Returns:
	//   - []string: the extension names
	Implements() []string

	// Import decodes the source bytes and constructs every asset.
	//
	// Parameters:
	//   - ctx: the request context; cancellation aborts the import
	//   - in: the source bytes and request settings
	//
	// Returns:
	//   - *importOutput: the constructed assets with per-asset errors
	//   - error: a document-level error, or ErrCanceled
	Import(ctx context.Context, in *importInput) (*importOutput, error)
}

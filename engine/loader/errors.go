package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/resource"
	"github.com/pkg/errors"
)

// Error kinds reported by the loader. Call sites wrap a kind with context; test with errors.Is.
var (
	// ErrFormat reports a malformed JSON document or binary container.
	ErrFormat = errors.New("format error")

	// ErrReference reports an out-of-range index in the document graph.
	ErrReference = errors.New("reference error")

	// ErrUnsupportedExtension reports a required extension the loader does not implement.
	ErrUnsupportedExtension = errors.New("unsupported extension")

	// ErrUnsupportedFormat reports a component/element type combination or topology the loader cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrBufferBounds reports an accessor or view reading past the end of its buffer data.
	ErrBufferBounds = errors.New("buffer bounds error")

	// ErrAttributeCountMismatch reports a vertex attribute whose count differs from POSITION.
	ErrAttributeCountMismatch = errors.New("attribute count mismatch")

	// ErrMissingAttribute reports a primitive without POSITION.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrDuplicateChannel reports a second animation channel for an already bound (node, path) pair.
	ErrDuplicateChannel = errors.New("duplicate animation channel")

	// ErrCyclicHierarchy reports a node reachable from itself.
	ErrCyclicHierarchy = errors.New("cyclic node hierarchy")

	// ErrTimeOrder reports keyframe times that are not strictly increasing.
	ErrTimeOrder = errors.New("keyframe times not strictly increasing")

	// ErrFetch reports an external resource that could not be retrieved after retrying.
	ErrFetch = resource.ErrFetch

	// ErrPrecision reports skin weights discarded beyond the precision threshold. It is a warning.
	ErrPrecision = errors.New("precision warning")

	// ErrCanceled reports a request canceled before completion.
	ErrCanceled = errors.New("load canceled")
)

// IsFatal reports whether err aborts the whole request rather than a single asset.
// ErrUnsupportedFormat is fatal only when the document itself was rejected; the same kind
// raised while building one primitive skips that primitive.
//
// Parameters:
//   - err: the error to classify
//
// Returns:
//   - bool: true for format, reference, unsupported extension, document-level and cancellation errors
func IsFatal(err error) bool {
	var doc *documentError
	return errors.Is(err, ErrFormat) ||
		errors.Is(err, ErrReference) ||
		errors.Is(err, ErrUnsupportedExtension) ||
		errors.Is(err, ErrCanceled) ||
		errors.As(err, &doc)
}

// documentError marks an error that rejected the document before any asset was built.
type documentError struct {
	err error
}

// documentLevel marks err as rejecting the whole document. A nil err stays nil.
func documentLevel(err error) error {
	if err == nil {
		return nil
	}
	return &documentError{err: err}
}

func (e *documentError) Error() string {
	return e.err.Error()
}

func (e *documentError) Unwrap() error {
	return e.err
}

func (e *documentError) Cause() error {
	return e.err
}

// AssetError describes a failure or warning attributed to one asset.
type AssetError struct {
	// Kind is the kind of asset affected.
	Kind model.AssetKind

	// Path is the node path or synthetic path of the asset.
	Path string

	// Index is the source mesh, skin, animation, material or camera index.
	Index int

	// Err is the cause, wrapping one of the loader error kinds.
	Err error
}

func (e *AssetError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %d at %s: %v", e.Kind, e.Index, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %d: %v", e.Kind, e.Index, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

package loader

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"github.com/Carmen-Shannon/oxy-gltf/engine/profiler"
)

// Status is the terminal outcome of a load request.
type Status int

const (
	// StatusSuccess means every asset was constructed.
	StatusSuccess Status = iota

	// StatusPartialSuccess means at least one asset was constructed and at least one failed.
	StatusPartialSuccess

	// StatusFailure means the request produced nothing usable. Result.Err holds the cause.
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusPartialSuccess:
		return "partial-success"
	case StatusFailure:
		return "failure"
	default:
		return "success"
	}
}

// Result is the terminal completion of a load request.
type Result struct {
	// ID is the request identifier.
	ID string

	// Source is the name of the loaded source.
	Source string

	Status Status

	// Model aggregates the ready assets. It is nil on failure.
	Model model.Model

	// Assets lists every constructed asset in traversal order, failed ones included.
	// It is empty on failure.
	Assets []model.ConstructedAsset

	// Errors lists every per-asset failure (as *AssetError) and every aborted scene.
	Errors []error

	// Warnings lists non-fatal issues such as precision loss or dropped texture slots.
	Warnings []error

	// Err is the cause of a failure.
	Err error

	// Stats holds the stage timings and memory statistics of the request.
	Stats profiler.Stats
}

// OK reports whether the request produced a model.
func (r *Result) OK() bool {
	return r != nil && r.Status != StatusFailure
}

// Failed returns the assets that could not be constructed.
func (r *Result) Failed() []model.ConstructedAsset {
	var failed []model.ConstructedAsset
	for _, a := range r.Assets {
		if !a.Ready() {
			failed = append(failed, a)
		}
	}
	return failed
}

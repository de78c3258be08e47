package resource

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Errors returned by fetchers and URI helpers.
var (
	ErrFetch          = errors.New("fetch failed")
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidDataURI = errors.New("invalid data URI")
)

// Fetcher retrieves the bytes behind a resolved URI.
// Implementations must be safe for concurrent use; fetches are the only blocking
// operations of a load request.
type Fetcher interface {
	// Fetch retrieves the resource at uri.
	//
	// Parameters:
	//   - ctx: context bounding the fetch
	//   - uri: an absolute file path, file:// URI, http(s) URL or data URI
	//
	// Returns:
	//   - []byte: the resource bytes
	//   - error: error if the resource could not be retrieved
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, uri string) ([]byte, error)

// Fetch calls f(ctx, uri).
func (f FetcherFunc) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return f(ctx, uri)
}

// FileFetcher reads local files. A file:// prefix is stripped.
type FileFetcher struct{}

var _ Fetcher = FileFetcher{}

func (FileFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errors.Wrapf(ErrFetch, "read %s: %v", path, err)
	}
	return data, nil
}

// HTTPFetcher retrieves http and https URLs.
type HTTPFetcher struct {
	Client *http.Client
}

var _ Fetcher = &HTTPFetcher{}

// NewHTTPFetcher creates an HTTPFetcher whose client gives up after timeout.
//
// Parameters:
//   - timeout: the per-request client timeout, 0 for none
//
// Returns:
//   - *HTTPFetcher: the fetcher
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrFetch, "build request %s: %v", uri, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(ErrFetch, "get %s: %v", uri, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "%s", uri)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.Wrapf(ErrFetch, "get %s: status %d", uri, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrFetch, "read body %s: %v", uri, err)
	}
	return data, nil
}

// SchemeFetcher dispatches on the URI scheme: data URIs are decoded inline, http(s)
// URLs go to HTTP, everything else to File.
type SchemeFetcher struct {
	File Fetcher
	HTTP Fetcher
}

var _ Fetcher = &SchemeFetcher{}

// NewDefaultFetcher returns a SchemeFetcher over the local filesystem and an HTTP client
// with the given timeout.
//
// Parameters:
//   - timeout: the HTTP client timeout
//
// Returns:
//   - Fetcher: the fetcher
func NewDefaultFetcher(timeout time.Duration) Fetcher {
	return &SchemeFetcher{
		File: FileFetcher{},
		HTTP: NewHTTPFetcher(timeout),
	}
}

func (s *SchemeFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case IsDataURI(uri):
		data, _, err := DecodeDataURI(uri)
		return data, err
	case IsRemote(uri):
		if s.HTTP == nil {
			return nil, errors.Wrapf(ErrFetch, "no http fetcher for %s", uri)
		}
		return s.HTTP.Fetch(ctx, uri)
	default:
		if s.File == nil {
			return nil, errors.Wrapf(ErrFetch, "no file fetcher for %s", uri)
		}
		return s.File.Fetch(ctx, uri)
	}
}

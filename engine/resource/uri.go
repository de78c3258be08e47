package resource

import (
	"encoding/base64"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// IsDataURI reports whether uri is an RFC 2397 data URI.
func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// IsRemote reports whether uri is an http or https URL.
func IsRemote(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// DecodeDataURI decodes a data URI of the form data:[<mediatype>][;base64],<data>.
// Payloads without the base64 marker are percent-decoded.
//
// Parameters:
//   - uri: the data URI
//
// Returns:
//   - []byte: the decoded payload
//   - string: the declared media type, or "" if absent
//   - error: ErrInvalidDataURI if the URI is malformed
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !IsDataURI(uri) {
		return nil, "", errors.Wrap(ErrInvalidDataURI, "missing data: prefix")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, "", errors.Wrap(ErrInvalidDataURI, "missing comma")
	}

	header := uri[len("data:"):comma]
	payload := uri[comma+1:]

	mime := header
	isBase64 := false
	if strings.HasSuffix(header, ";base64") {
		isBase64 = true
		mime = strings.TrimSuffix(header, ";base64")
	}
	if semi := strings.IndexByte(mime, ';'); semi >= 0 {
		mime = mime[:semi]
	}

	if !isBase64 {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", errors.Wrapf(ErrInvalidDataURI, "percent decoding: %v", err)
		}
		return []byte(data), mime, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some exporters drop the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", errors.Wrapf(ErrInvalidDataURI, "base64: %v", err)
		}
	}
	return data, mime, nil
}

// ResolveURI resolves a relative resource reference against the base location of its document.
// Data URIs and absolute references are returned unchanged. A remote base resolves with URL
// semantics; anything else is treated as a local directory and the reference is percent-decoded.
//
// Parameters:
//   - base: the directory or URL directory the document was loaded from
//   - ref: the uri property of a buffer or image
//
// Returns:
//   - string: the resolved URI
func ResolveURI(base, ref string) string {
	if IsDataURI(ref) || IsRemote(ref) || strings.HasPrefix(ref, "file://") {
		return ref
	}

	if IsRemote(base) {
		b, err := url.Parse(base)
		if err != nil {
			return ref
		}
		if !strings.HasSuffix(b.Path, "/") {
			b.Path += "/"
		}
		r, err := url.Parse(ref)
		if err != nil {
			return b.String() + ref
		}
		return b.ResolveReference(r).String()
	}

	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	if filepath.IsAbs(ref) || path.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	base = strings.TrimPrefix(base, "file://")
	return filepath.Join(base, filepath.FromSlash(ref))
}

// BaseOf returns the base location for resolving references made by the document at uri.
func BaseOf(uri string) string {
	if IsRemote(uri) {
		if i := strings.LastIndexByte(uri, '/'); i > len("https://") {
			return uri[:i+1]
		}
		return uri
	}
	return filepath.Dir(uri)
}

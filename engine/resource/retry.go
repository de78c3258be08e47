package resource

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// FetchWithRetry calls f.Fetch and retries failed attempts, doubling the wait after each.
// Context errors and malformed data URIs are returned without retrying. The final error
// wraps ErrFetch unless it is a context error.
//
// Parameters:
//   - ctx: context bounding all attempts
//   - f: the fetcher
//   - uri: the resolved URI
//   - retries: extra attempts after the first
//   - backoff: wait before the first retry
//
// Returns:
//   - []byte: the resource bytes
//   - error: the last error if every attempt failed
func FetchWithRetry(ctx context.Context, f Fetcher, uri string, retries int, backoff time.Duration) ([]byte, error) {
	var lastErr error
	wait := backoff
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			wait *= 2
		}

		data, err := f.Fetch(ctx, uri)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrInvalidDataURI) {
			return nil, err
		}
		lastErr = err
	}

	if errors.Is(lastErr, ErrFetch) {
		return nil, errors.Wrapf(lastErr, "after %d attempts", retries+1)
	}
	return nil, errors.Wrapf(ErrFetch, "%s after %d attempts: %v", uri, retries+1, lastErr)
}

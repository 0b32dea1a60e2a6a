package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const fetchAttempts = 3

// HTTPSource loads images over HTTP with bounded retries. Server errors and
// transport failures are retried with linear backoff; client errors are not.
type HTTPSource struct {
	client *http.Client
	maxDim int
}

// NewHTTPSource creates an HTTP image source with a pooled transport sized
// for fetching one image at a time per host.
func NewHTTPSource(timeout time.Duration, maxDim int) *HTTPSource {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPSource{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxDim: maxDim,
	}
}

func (s *HTTPSource) Load(ctx context.Context, ref string) (*DecodedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "photo-culler/1.0")

	resp, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeAndPrepare(resp.Body, s.maxDim)
}

func (s *HTTPSource) fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < fetchAttempts; attempt++ {
		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode == http.StatusOK {
			return resp, nil
		} else {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code %d", resp.StatusCode)
			// 4xx responses will not improve on retry
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break
			}
		}

		if attempt < fetchAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", fetchAttempts, lastErr)
}

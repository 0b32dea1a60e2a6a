package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestHTTPSourceRetryLogic(t *testing.T) {
	tests := []struct {
		name           string
		responses      []int
		expectRequests int
		expectError    bool
		errorContains  string
	}{
		{
			name:           "success on first attempt",
			responses:      []int{200},
			expectRequests: 1,
		},
		{
			name:           "success on second attempt after 5xx",
			responses:      []int{500, 200},
			expectRequests: 2,
		},
		{
			name:           "4xx is not retried",
			responses:      []int{404},
			expectRequests: 1,
			expectError:    true,
			errorContains:  "unexpected status code 404",
		},
		{
			name:           "4xx after 5xx stops retrying",
			responses:      []int{500, 404},
			expectRequests: 2,
			expectError:    true,
			errorContains:  "unexpected status code 404",
		},
		{
			name:           "all attempts exhausted on 5xx",
			responses:      []int{500, 502, 503},
			expectRequests: 3,
			expectError:    true,
			errorContains:  "unexpected status code 503",
		},
	}

	imgData := testPNG(t, 4, 4)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requestCount := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				status := http.StatusInternalServerError
				if requestCount < len(tt.responses) {
					status = tt.responses[requestCount]
				}
				requestCount++

				if status == http.StatusOK {
					w.Header().Set("Content-Type", "image/png")
					w.Write(imgData)
					return
				}
				w.WriteHeader(status)
				fmt.Fprintf(w, "error %d", status)
			}))
			defer server.Close()

			source := NewHTTPSource(30*time.Second, 800)
			decoded, err := source.Load(context.Background(), server.URL)

			if requestCount != tt.expectRequests {
				t.Errorf("expected %d requests, got %d", tt.expectRequests, requestCount)
			}

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain %q, got: %s", tt.errorContains, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("expected success, got error: %v", err)
			}
			if decoded.OrigWidth != 4 || decoded.OrigHeight != 4 {
				t.Errorf("expected original dimensions 4x4, got %dx%d", decoded.OrigWidth, decoded.OrigHeight)
			}
			if decoded.Buf.Width != 4 || decoded.Buf.Height != 4 {
				t.Errorf("expected buffer dimensions 4x4, got %dx%d", decoded.Buf.Width, decoded.Buf.Height)
			}
		})
	}
}

func TestHTTPSourceNetworkErrorRetry(t *testing.T) {
	requestCount := 0
	imgData := testPNG(t, 4, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount < 3 {
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(imgData)
	}))
	defer server.Close()

	source := NewHTTPSource(30*time.Second, 800)

	start := time.Now()
	_, err := source.Load(context.Background(), server.URL)
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if requestCount != 3 {
		t.Errorf("expected 3 requests, got %d", requestCount)
	}
	// 1s + 2s of linear backoff
	if duration < 3*time.Second {
		t.Errorf("expected at least 3 seconds of backoff, took %v", duration)
	}
}

func TestHTTPSourceCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewHTTPSource(30*time.Second, 800)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := source.Load(ctx, server.URL)
	if err == nil {
		t.Fatal("expected error when context expires during backoff")
	}
}

// Package extractor wraps the external face embedding service. The core
// never inspects pixels; it hands an image to the extractor and receives
// an opaque fixed-length vector back, or a failure.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrNoFaceDetected means the extractor found no usable face in the
	// image. Recoverable by recapture; never conflated with a failed match.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrTimeout means the extractor did not answer within the configured
	// deadline.
	ErrTimeout = errors.New("embedding extraction timed out")
)

// Extractor produces a fixed-length embedding for a captured face image.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]float64, error)
}

// HTTPExtractor calls a remote embedding service over HTTP.
type HTTPExtractor struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPExtractor builds an extractor client for the given endpoint. Every
// call is bounded by the provided timeout.
func NewHTTPExtractor(url string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{url: url, timeout: timeout, client: &http.Client{}}
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Extract posts the raw image and decodes the returned vector. A 422
// response maps to ErrNoFaceDetected, a deadline hit to ErrTimeout.
func (e *HTTPExtractor) Extract(ctx context.Context, image []byte) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return nil, ErrNoFaceDetected
	default:
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("extractor returned empty embedding")
	}
	return decoded.Embedding, nil
}

// StaticExtractor serves embeddings from a fixed table keyed by the image
// bytes. It backs tests and development mode, where no embedding service
// is reachable.
type StaticExtractor struct {
	table map[string][]float64
}

// NewStaticExtractor builds a stub extractor from the provided table.
func NewStaticExtractor(table map[string][]float64) *StaticExtractor {
	if table == nil {
		table = make(map[string][]float64)
	}
	return &StaticExtractor{table: table}
}

// Extract returns the embedding registered for the image, or ErrNoFaceDetected.
func (e *StaticExtractor) Extract(_ context.Context, image []byte) ([]float64, error) {
	vec, ok := e.table[string(image)]
	if !ok {
		return nil, ErrNoFaceDetected
	}
	out := make([]float64, len(vec))
	copy(out, vec)
	return out, nil
}

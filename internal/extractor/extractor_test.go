package extractor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPExtractorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "image-bytes" {
			t.Errorf("unexpected body %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"embedding":[0.1,0.2,0.3]}`)
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, time.Second)
	vec, err := e.Extract(context.Background(), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Fatalf("unexpected embedding %+v", vec)
	}
}

func TestHTTPExtractorNoFaceDetected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, time.Second)
	if _, err := e.Extract(context.Background(), []byte("blank wall")); !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestHTTPExtractorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, 50*time.Millisecond)
	if _, err := e.Extract(context.Background(), []byte("img")); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestHTTPExtractorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, time.Second)
	_, err := e.Extract(context.Background(), []byte("img"))
	if err == nil || errors.Is(err, ErrNoFaceDetected) || errors.Is(err, ErrTimeout) {
		t.Fatalf("expected generic error for 500, got %v", err)
	}
}

func TestHTTPExtractorEmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"embedding":[]}`)
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, time.Second)
	if _, err := e.Extract(context.Background(), []byte("img")); err == nil {
		t.Fatalf("expected error for empty embedding")
	}
}

func TestStaticExtractor(t *testing.T) {
	e := NewStaticExtractor(map[string][]float64{
		"selfie": {0.1, 0.2, 0.3},
	})

	vec, err := e.Extract(context.Background(), []byte("selfie"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("unexpected embedding %+v", vec)
	}

	// Returned slice is a copy; mutating it must not poison the table.
	vec[0] = 99
	again, err := e.Extract(context.Background(), []byte("selfie"))
	if err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if again[0] != 0.1 {
		t.Fatalf("table mutated through returned slice: %+v", again)
	}

	if _, err := e.Extract(context.Background(), []byte("unknown")); !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
}

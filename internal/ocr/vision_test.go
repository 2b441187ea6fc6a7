package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestVisionClientRequiresKey(t *testing.T) {
	if _, err := NewVisionClient("  "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

func TestVisionClientDetectText(t *testing.T) {
	var gotBody annotateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key query param")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"responses": []map[string]any{
				{"fullTextAnnotation": map[string]any{"text": "  Nama: BUDI\n  "}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewVisionClient("test-key", WithVisionBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	text, err := c.DetectText(context.Background(), []byte("raw-image-bytes"))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if text != "Nama: BUDI" {
		t.Fatalf("unexpected text: %q", text)
	}

	if len(gotBody.Requests) != 1 {
		t.Fatalf("expected 1 request entry, got %d", len(gotBody.Requests))
	}
	decoded, _ := base64.StdEncoding.DecodeString(gotBody.Requests[0].Image.Content)
	if string(decoded) != "raw-image-bytes" {
		t.Fatalf("content not base64 of payload: %q", decoded)
	}
	if gotBody.Requests[0].Features[0].Type != "DOCUMENT_TEXT_DETECTION" {
		t.Fatalf("unexpected feature: %+v", gotBody.Requests[0].Features)
	}
}

func TestVisionClientAnnotationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"responses": []map[string]any{
				{"error": map[string]any{"code": 7, "message": "permission denied"}},
			},
		})
	}))
	defer srv.Close()

	c, _ := NewVisionClient("test-key", WithVisionBaseURL(srv.URL))
	_, err := c.DetectText(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("expected annotation error, got %v", err)
	}
}

func TestVisionClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewVisionClient("test-key", WithVisionBaseURL(srv.URL))
	_, err := c.DetectText(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "http status 502") {
		t.Fatalf("expected status error, got %v", err)
	}
	if !shouldRetryDetect(err) {
		t.Fatal("5xx should be retryable")
	}
}

func TestVisionClientEmptyContentShortCircuits(t *testing.T) {
	c, _ := NewVisionClient("test-key", WithVisionBaseURL("http://127.0.0.1:0"))
	text, err := c.DetectText(context.Background(), nil)
	if err != nil || text != "" {
		t.Fatalf("expected empty no-op, got %q %v", text, err)
	}
}

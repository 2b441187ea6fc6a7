package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultVisionURL = "https://vision.googleapis.com/v1/images:annotate"

// VisionClient implements TextDetector against the Google Cloud Vision REST
// API using DOCUMENT_TEXT_DETECTION.
type VisionClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewVisionClient constructs a Vision detector. The base URL is overridable
// for tests.
func NewVisionClient(apiKey string, opts ...VisionOption) (*VisionClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("VISION_API_KEY is required")
	}
	c := &VisionClient{
		apiKey:  apiKey,
		baseURL: defaultVisionURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// VisionOption tweaks a VisionClient.
type VisionOption func(*VisionClient)

// WithVisionBaseURL points the client at an alternative endpoint.
func WithVisionBaseURL(url string) VisionOption {
	return func(c *VisionClient) { c.baseURL = url }
}

// WithVisionHTTPClient swaps the underlying HTTP client.
func WithVisionHTTPClient(hc *http.Client) VisionOption {
	return func(c *VisionClient) { c.httpClient = hc }
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DetectText sends the content for document text detection and returns the
// full text annotation, trimmed.
func (c *VisionClient) DetectText(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", nil
	}

	reqBody := annotateRequest{
		Requests: []annotateEntry{{
			Image:    annotateImage{Content: base64.StdEncoding.EncodeToString(content)},
			Features: []annotateFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
		}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("vision request timeout: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision http status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed annotateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("vision response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("vision error: %s (code %d)", parsed.Error.Message, parsed.Error.Code)
	}
	if len(parsed.Responses) == 0 {
		return "", fmt.Errorf("vision response missing annotations")
	}

	first := parsed.Responses[0]
	if first.Error != nil {
		return "", fmt.Errorf("vision annotation error: %s (code %d)", first.Error.Message, first.Error.Code)
	}
	if first.FullTextAnnotation == nil {
		return "", nil
	}
	return strings.TrimSpace(first.FullTextAnnotation.Text), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ TextDetector = (*VisionClient)(nil)

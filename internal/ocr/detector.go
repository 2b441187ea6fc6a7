// Package ocr provides text detection over raw image or PDF bytes. Providers
// are opaque and possibly flaky remote services; callers decide retry and
// fail-open policy.
package ocr

import "context"

// TextDetector extracts plain text from raw file bytes.
type TextDetector interface {
	DetectText(ctx context.Context, content []byte) (string, error)
}

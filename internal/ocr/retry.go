package ocr

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

const retryBaseDelay = 500 * time.Millisecond

// RetryingDetector wraps a TextDetector with bounded retries and exponential
// backoff on transient failures. Permanent failures (auth, bad request) are
// returned immediately.
type RetryingDetector struct {
	base        TextDetector
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetryingDetector wraps base with up to maxAttempts attempts. A nil base
// yields a nil wrapper so the fail-open check upstream stays a simple nil
// comparison.
func NewRetryingDetector(base TextDetector, maxAttempts int) *RetryingDetector {
	if base == nil {
		return nil
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingDetector{base: base, maxAttempts: maxAttempts, baseDelay: retryBaseDelay}
}

func (r *RetryingDetector) DetectText(ctx context.Context, content []byte) (string, error) {
	var lastErr error
	delay := r.baseDelay
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		text, err := r.base.DetectText(ctx, content)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !shouldRetryDetect(err) || attempt == r.maxAttempts {
			return "", lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= 2
	}
	return "", lastErr
}

func shouldRetryDetect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "unavailable") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}

var _ TextDetector = (*RetryingDetector)(nil)

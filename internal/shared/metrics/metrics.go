package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	ocrJobStartedTotal   atomic.Uint64
	ocrJobCompletedTotal atomic.Uint64
	ocrJobFailedTotal    atomic.Uint64

	optimizeJobStartedTotal   atomic.Uint64
	optimizeJobCompletedTotal atomic.Uint64
	optimizeJobFailedTotal    atomic.Uint64

	workerJobsReceivedTotal             atomic.Uint64
	workerJobsCompletedTotal            atomic.Uint64
	workerJobsFailedTotal               atomic.Uint64
	workerJobsDeletedUnrecoverableTotal atomic.Uint64

	ocrDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncWorkerJobsReceived increments the worker received counter.
func IncWorkerJobsReceived() {
	workerJobsReceivedTotal.Add(1)
}

// IncWorkerJobsCompleted increments the worker completed counter.
func IncWorkerJobsCompleted() {
	workerJobsCompletedTotal.Add(1)
}

// IncWorkerJobsFailed increments the worker failed counter.
func IncWorkerJobsFailed() {
	workerJobsFailedTotal.Add(1)
}

// IncWorkerJobsDeletedUnrecoverable increments the counter for poison
// messages deleted without processing.
func IncWorkerJobsDeletedUnrecoverable() {
	workerJobsDeletedUnrecoverableTotal.Add(1)
}

// IncOCRJobStarted increments the OCR started counter.
func IncOCRJobStarted() {
	ocrJobStartedTotal.Add(1)
}

// IncOCRJobCompleted increments the OCR completed counter.
func IncOCRJobCompleted() {
	ocrJobCompletedTotal.Add(1)
}

// IncOCRJobFailed increments the OCR failed counter.
func IncOCRJobFailed() {
	ocrJobFailedTotal.Add(1)
}

// ObserveOCRDurationMs records an OCR job duration in milliseconds.
func ObserveOCRDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ocrDuration.Observe(value)
}

// IncOptimizeJobStarted increments the optimization started counter.
func IncOptimizeJobStarted() {
	optimizeJobStartedTotal.Add(1)
}

// IncOptimizeJobCompleted increments the optimization completed counter.
func IncOptimizeJobCompleted() {
	optimizeJobCompletedTotal.Add(1)
}

// IncOptimizeJobFailed increments the optimization failed counter.
func IncOptimizeJobFailed() {
	optimizeJobFailedTotal.Add(1)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "ocr_jobs_started_total", "Total OCR jobs started", ocrJobStartedTotal.Load())
	writeCounter(&buf, "ocr_jobs_completed_total", "Total OCR jobs completed", ocrJobCompletedTotal.Load())
	writeCounter(&buf, "ocr_jobs_failed_total", "Total OCR jobs failed", ocrJobFailedTotal.Load())
	writeCounter(&buf, "optimize_jobs_started_total", "Total image optimization jobs started", optimizeJobStartedTotal.Load())
	writeCounter(&buf, "optimize_jobs_completed_total", "Total image optimization jobs completed", optimizeJobCompletedTotal.Load())
	writeCounter(&buf, "optimize_jobs_failed_total", "Total image optimization jobs failed", optimizeJobFailedTotal.Load())
	writeCounter(&buf, "worker_jobs_received_total", "Total queue messages received by the worker", workerJobsReceivedTotal.Load())
	writeCounter(&buf, "worker_jobs_completed_total", "Total queue messages processed and deleted", workerJobsCompletedTotal.Load())
	writeCounter(&buf, "worker_jobs_failed_total", "Total queue messages whose processing failed", workerJobsFailedTotal.Load())
	writeCounter(&buf, "worker_jobs_deleted_unrecoverable_total", "Total poison messages deleted without processing", workerJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "ocr_duration_ms", "OCR job duration in milliseconds", ocrDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

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

type counter struct {
	name  string
	help  string
	value atomic.Uint64
}

func (c *counter) Inc() { c.value.Add(1) }

var (
	documentsIngested       = &counter{name: "documents_ingested_total", help: "Total documents created by ingestion"}
	documentsDuplicate      = &counter{name: "documents_duplicate_total", help: "Total ingestions resolved to an existing document"}
	structuringDispatchFail = &counter{name: "structuring_dispatch_failed_total", help: "Total structuring messages that could not be enqueued"}
	structuringStarted      = &counter{name: "structuring_started_total", help: "Total structuring runs started"}
	structuringCompleted    = &counter{name: "structuring_completed_total", help: "Total structuring runs that persisted a profile"}
	structuringFailed       = &counter{name: "structuring_failed_total", help: "Total structuring runs that failed"}
	structuringSkipped      = &counter{name: "structuring_skipped_total", help: "Total structuring runs skipped (done, missing or unconfigured)"}
	targetsSubmitted        = &counter{name: "targets_submitted_total", help: "Total targets created"}
	ocrFailed               = &counter{name: "ocr_failed_total", help: "Total OCR extractions that fell back to the failure placeholder"}
	artifactsGenerated      = &counter{name: "artifacts_generated_total", help: "Total artifacts created by generation"}
	artifactsOutOfBand      = &counter{name: "artifacts_word_count_out_of_band_total", help: "Total generated artifacts outside the expected word band"}
	generationFailed        = &counter{name: "generation_failed_total", help: "Total generation provider failures"}
	workerReceived          = &counter{name: "worker_messages_received_total", help: "Total queue messages received by the worker"}
	workerCompleted         = &counter{name: "worker_messages_completed_total", help: "Total queue messages processed and deleted"}
	workerFailed            = &counter{name: "worker_messages_failed_total", help: "Total queue messages left for redelivery"}
	workerUnrecoverable     = &counter{name: "worker_messages_deleted_unrecoverable_total", help: "Total malformed queue messages deleted without processing"}

	counters = []*counter{
		documentsIngested,
		documentsDuplicate,
		structuringDispatchFail,
		structuringStarted,
		structuringCompleted,
		structuringFailed,
		structuringSkipped,
		targetsSubmitted,
		ocrFailed,
		artifactsGenerated,
		artifactsOutOfBand,
		generationFailed,
		workerReceived,
		workerCompleted,
		workerFailed,
		workerUnrecoverable,
	}

	durationBuckets     = []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000}
	structuringDuration = newHistogram(durationBuckets)
	generationDuration  = newHistogram(durationBuckets)
)

func IncDocumentIngested()          { documentsIngested.Inc() }
func IncDocumentDuplicate()         { documentsDuplicate.Inc() }
func IncStructuringDispatchFailed() { structuringDispatchFail.Inc() }
func IncStructuringStarted()        { structuringStarted.Inc() }
func IncStructuringCompleted()      { structuringCompleted.Inc() }
func IncStructuringFailed()         { structuringFailed.Inc() }
func IncStructuringSkipped()        { structuringSkipped.Inc() }
func IncTargetSubmitted()           { targetsSubmitted.Inc() }
func IncOCRFailed()                 { ocrFailed.Inc() }
func IncArtifactGenerated()         { artifactsGenerated.Inc() }
func IncArtifactOutOfBand()         { artifactsOutOfBand.Inc() }
func IncGenerationFailed()          { generationFailed.Inc() }
func IncWorkerReceived()            { workerReceived.Inc() }
func IncWorkerCompleted()           { workerCompleted.Inc() }
func IncWorkerFailed()              { workerFailed.Inc() }
func IncWorkerUnrecoverable()       { workerUnrecoverable.Inc() }

// ObserveStructuringDurationMs records a structuring duration in milliseconds.
func ObserveStructuringDurationMs(value float64) {
	structuringDuration.Observe(clamp(value))
}

// ObserveGenerationDurationMs records a generation duration in milliseconds.
func ObserveGenerationDurationMs(value float64) {
	generationDuration.Observe(clamp(value))
}

// Value returns the current value of a counter by metric name, or 0 when unknown.
func Value(name string) uint64 {
	for _, c := range counters {
		if c.name == name {
			return c.value.Load()
		}
	}
	return 0
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
	for _, c := range counters {
		writeCounter(&buf, c.name, c.help, c.value.Load())
	}
	writeHistogram(&buf, "structuring_duration_ms", "Structuring duration in milliseconds", structuringDuration.Snapshot())
	writeHistogram(&buf, "generation_duration_ms", "Generation duration in milliseconds", generationDuration.Snapshot())
	return buf.String()
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
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

// Observe counts value into the first bucket whose bound holds it; writeHistogram accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
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

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

package progress

import (
	"sync"

	"go.uber.org/zap"

	"github.com/csk-sniffer/imagefetch/internal/metrics"
)

// LogRecorder writes one structured log line per event.
type LogRecorder struct {
	logger *zap.Logger
}

// NewLogRecorder returns a LogRecorder.
func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRecorder{logger: logger}
}

// Record logs the event at a level matching its outcome.
func (r *LogRecorder) Record(evt Event) {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID.String()),
		zap.String("keyword", evt.Keyword),
		zap.String("reason", evt.Reason),
	}
	if evt.URL != "" {
		fields = append(fields, zap.String("url", evt.URL))
	}
	if evt.Filename != "" {
		fields = append(fields, zap.String("filename", evt.Filename))
	}
	if evt.DuplicateOf != "" {
		fields = append(fields, zap.String("duplicate_of", evt.DuplicateOf))
	}

	switch evt.Reason {
	case "ok":
		r.logger.Info("saved", fields...)
	case "fail-network", "fail-write":
		r.logger.Warn("discarded", fields...)
	default:
		r.logger.Debug("discarded", fields...)
	}
}

// MetricsRecorder forwards events to the Prometheus collectors.
type MetricsRecorder struct{}

// NewMetricsRecorder initializes the collectors and returns a recorder.
func NewMetricsRecorder() *MetricsRecorder {
	metrics.Init()
	return &MetricsRecorder{}
}

// Record updates the item and byte counters.
func (r *MetricsRecorder) Record(evt Event) {
	metrics.ItemProcessed(evt.Reason)
	if evt.Reason == "ok" {
		metrics.BytesWritten(evt.Bytes)
	}
}

// Snapshot is a point-in-time view of the run, served by the status API.
type Snapshot struct {
	RunID     string           `json:"run_id"`
	Keyword   string           `json:"keyword"`
	Reasons   map[string]int64 `json:"reasons"`
	Bytes     int64            `json:"bytes"`
	LastSaved string           `json:"last_saved,omitempty"`
}

// SnapshotRecorder accumulates per-reason counts for the status API.
type SnapshotRecorder struct {
	mu        sync.RWMutex
	runID     string
	keyword   string
	reasons   map[string]int64
	bytes     int64
	lastSaved string
}

// NewSnapshotRecorder returns an empty SnapshotRecorder.
func NewSnapshotRecorder() *SnapshotRecorder {
	return &SnapshotRecorder{reasons: make(map[string]int64)}
}

// Record folds the event into the snapshot.
func (r *SnapshotRecorder) Record(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runID = evt.RunID.String()
	r.keyword = evt.Keyword
	r.reasons[evt.Reason]++
	if evt.Reason == "ok" {
		r.bytes += evt.Bytes
		r.lastSaved = evt.Filename
	}
}

// Snapshot returns a copy of the accumulated state.
func (r *SnapshotRecorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := Snapshot{
		RunID:     r.runID,
		Keyword:   r.keyword,
		Reasons:   make(map[string]int64, len(r.reasons)),
		Bytes:     r.bytes,
		LastSaved: r.lastSaved,
	}
	for k, v := range r.reasons {
		out.Reasons[k] = v
	}
	return out
}

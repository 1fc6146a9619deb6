package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/sylphlab/sotimediaorganizer/internal/dedup"
	"github.com/sylphlab/sotimediaorganizer/internal/events"
	"github.com/sylphlab/sotimediaorganizer/internal/metrics"
	"github.com/sylphlab/sotimediaorganizer/internal/processor"
)

// IngestFilePayload is the TaskIngestFile payload.
type IngestFilePayload struct {
	Path string `json:"path"`
}

// RunDedupPayload is the TaskRunDedup payload; empty today but kept as a
// named type so a future cause/scope field does not change the task's
// wire shape.
type RunDedupPayload struct{}

// IngestHandler drives the Per-File Processor from a queued task.
type IngestHandler struct {
	proc     *processor.Processor
	notifier events.Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewIngestHandler constructs an IngestHandler. notifier and m may be nil
// (events.Nop{} / no metrics, respectively).
func NewIngestHandler(proc *processor.Processor, notifier events.Notifier, m *metrics.Metrics, log *zap.Logger) *IngestHandler {
	if notifier == nil {
		notifier = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IngestHandler{proc: proc, notifier: notifier, metrics: m, log: log}
}

// ProcessTask implements asynq.Handler.
func (h *IngestHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p IngestFilePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	start := time.Now()
	h.notifier.Broadcast("ingest:start", map[string]any{"path": p.Path})

	_, err := h.proc.Ingest(ctx, p.Path)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if h.metrics != nil {
		h.metrics.ObserveIngest(outcome, time.Since(start))
	}

	if err != nil {
		h.log.Warn("jobs: ingest failed", zap.String("path", p.Path), zap.Error(err))
		h.notifier.Broadcast("ingest:failed", map[string]any{"path": p.Path, "error": err.Error()})
		return fmt.Errorf("ingest %s: %w", p.Path, err)
	}

	h.notifier.Broadcast("ingest:complete", map[string]any{"path": p.Path})
	return nil
}

// DedupHandler drives the Duplicate Detector from a queued task.
type DedupHandler struct {
	detector *dedup.Detector
	notifier events.Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewDedupHandler constructs a DedupHandler.
func NewDedupHandler(detector *dedup.Detector, notifier events.Notifier, m *metrics.Metrics, log *zap.Logger) *DedupHandler {
	if notifier == nil {
		notifier = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DedupHandler{detector: detector, notifier: notifier, metrics: m, log: log}
}

// ProcessTask implements asynq.Handler.
func (h *DedupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	h.notifier.Broadcast("dedup:start", nil)

	result, err := h.detector.Run(ctx)
	if err != nil {
		h.log.Warn("jobs: dedup run failed", zap.Error(err))
		h.notifier.Broadcast("dedup:failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("dedup run: %w", err)
	}

	if h.metrics != nil {
		h.metrics.ObserveDedupRun(time.Since(start), result.ExactClusters, result.SimilarClusters, result.ComparisonsRun, len(result.ErrorPaths))
	}

	h.notifier.Broadcast("dedup:complete", map[string]any{
		"unique":           len(result.Unique),
		"duplicate_sets":   len(result.DuplicateSets),
		"exact_clusters":   result.ExactClusters,
		"similar_clusters": result.SimilarClusters,
		"comparisons_run":  result.ComparisonsRun,
		"errors":           len(result.ErrorPaths),
	})
	return nil
}

// Package jobs wires the per-file ingest and library-wide dedup
// operations onto an asynq task queue. Grounded on CineVault's
// internal/jobs.Queue (asynq.Client/Server/ServeMux/Inspector wrapper,
// EnqueueUnique's duplicate-task-ID handling) and tasks.go/task_scan.go's
// handler shape (a small struct of collaborators plus a notifier,
// ProcessTask unmarshals the payload and drives one core operation).
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// TaskIngestFile runs the Per-File Processor (C5) over one path.
	TaskIngestFile = "ingest:file"
	// TaskRunDedup runs the Duplicate Detector (C7) over the whole store.
	TaskRunDedup = "dedup:run"
)

// Queue wraps an asynq client/server/inspector triple for this core's two
// task types.
type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
	log       *zap.Logger
}

// NewQueue constructs a Queue against a Redis instance at redisAddr,
// running up to concurrency tasks at once.
func NewQueue(redisAddr string, concurrency int, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	return &Queue{
		client: asynq.NewClient(redisOpt),
		server: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
		}),
		mux:       asynq.NewServeMux(),
		inspector: asynq.NewInspector(redisOpt),
		log:       log,
	}
}

// RegisterHandler attaches a handler for taskType.
func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

// Enqueue marshals payload and submits taskType.
func (q *Queue) Enqueue(taskType string, payload any, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	info, err := q.client.Enqueue(asynq.NewTask(taskType, data, opts...))
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return info.ID, nil
}

// EnqueueUnique enqueues taskType with a deterministic task ID so two
// ingest requests for the same path (or two dedup-run requests) collapse
// into one in-flight job instead of running concurrently.
func (q *Queue) EnqueueUnique(taskType string, payload any, uniqueID string, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	opts = append(opts, asynq.TaskID(uniqueID))
	task := asynq.NewTask(taskType, data, opts...)

	info, err := q.client.Enqueue(task)
	if err == nil {
		return info.ID, nil
	}
	if !isTaskConflict(err) {
		return "", fmt.Errorf("enqueue: %w", err)
	}

	for _, queueName := range []string{"default", "low"} {
		if delErr := q.inspector.DeleteTask(queueName, uniqueID); delErr == nil {
			q.log.Info("jobs: cleared stale completed task before re-enqueue", zap.String("task_id", uniqueID), zap.String("queue", queueName))
			if info, err = q.client.Enqueue(task); err == nil {
				return info.ID, nil
			}
			break
		}
	}

	if isTaskConflict(err) {
		q.log.Info("jobs: task already active, skipping enqueue", zap.String("task_type", taskType), zap.String("task_id", uniqueID))
		return uniqueID, nil
	}
	return "", fmt.Errorf("enqueue: %w", err)
}

func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "task ID conflicts") || strings.Contains(msg, "duplicate task")
}

// Start runs the worker server until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) error {
	q.log.Info("jobs: queue worker starting")
	if err := q.server.Start(q.mux); err != nil {
		return err
	}
	<-ctx.Done()
	q.Stop()
	return nil
}

// Stop shuts the server and client down.
func (q *Queue) Stop() {
	q.server.Shutdown()
	q.client.Close()
	q.inspector.Close()
}

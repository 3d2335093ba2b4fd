package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/brgy-docs-api/internal/models"
	"github.com/noah-isme/brgy-docs-api/pkg/jobs"
)

type auditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditRecorder persists audit logs through a background worker queue so
// write latency never sits on the request path. It satisfies the same
// auditLogger interface the services consume; CreateAuditLog only
// enqueues.
type AuditRecorder struct {
	queue  *jobs.Queue
	store  auditStore
	logger *zap.Logger
}

// AuditRecorderConfig sizes the worker pool.
type AuditRecorderConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// NewAuditRecorder constructs the recorder. Call Start before use.
func NewAuditRecorder(store auditStore, cfg AuditRecorderConfig, logger *zap.Logger) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := &AuditRecorder{store: store, logger: logger}
	recorder.queue = jobs.NewQueue("audit", recorder.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return recorder
}

// Start launches the background workers.
func (r *AuditRecorder) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Stop drains the workers.
func (r *AuditRecorder) Stop() {
	r.queue.Stop()
}

// CreateAuditLog enqueues the log for asynchronous persistence. A full
// queue drops the entry with a warning rather than blocking the caller.
func (r *AuditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if err := r.queue.Enqueue(jobs.Job{ID: log.ID, Type: log.Action, Payload: log}); err != nil {
		r.logger.Warn("dropping audit log", zap.String("action", log.Action), zap.Error(err))
		return err
	}
	return nil
}

func (r *AuditRecorder) process(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	return r.store.CreateAuditLog(ctx, log)
}

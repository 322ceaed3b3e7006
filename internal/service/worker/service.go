package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"reelchef/internal/config"
	"reelchef/internal/domain"
)

// Queue is the queue surface the worker needs. *redis.QueueRepository
// satisfies it.
type Queue interface {
	domain.QueueRepository
	FailPermanently(ctx context.Context, jobID string, errorMsg string) error
	ProcessRetryJobs(ctx context.Context, jobType string) error
}

// WorkerService pulls extraction jobs off the queue and runs them through
// the processor
type WorkerService struct {
	config *config.Config
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	queueRepo Queue
	processor *JobProcessor

	stats WorkerStats
}

// WorkerStats tracks worker performance counters
type WorkerStats struct {
	JobsProcessed atomic.Int64
	JobsSucceeded atomic.Int64
	JobsFailed    atomic.Int64
}

// New creates a new worker service
func New(
	config *config.Config,
	logger *slog.Logger,
	queueRepo Queue,
	processor *JobProcessor,
) *WorkerService {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerService{
		config:    config,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		queueRepo: queueRepo,
		processor: processor,
	}
}

// Start begins processing jobs. Blocks until Stop is called.
func (w *WorkerService) Start() error {
	w.logger.Info("Starting worker service...")

	go w.pumpRetries()
	w.consumeJobs()

	return nil
}

// Stop gracefully shuts down the worker service
func (w *WorkerService) Stop() error {
	w.logger.Info("Stopping worker service...")
	w.cancel()
	return nil
}

// consumeJobs pulls extraction jobs off the queue with a blocking dequeue.
// The dequeue itself times out every 30s, so cancellation is observed
// promptly enough.
func (w *WorkerService) consumeJobs() {
	for {
		if w.ctx.Err() != nil {
			w.logger.Info("Job processing stopped")
			return
		}

		job, err := w.queueRepo.Dequeue(w.ctx, domain.JobTypeExtractRecipe)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to dequeue job", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			// Dequeue timed out with an empty queue
			continue
		}

		w.processJob(job)
	}
}

// pumpRetries periodically moves backed-off jobs back onto the main queue
func (w *WorkerService) pumpRetries() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if err := w.queueRepo.ProcessRetryJobs(w.ctx, domain.JobTypeExtractRecipe); err != nil {
				w.logger.Error("Failed to process retry jobs", "error", err)
			}
		}
	}
}

// processJob runs a single extraction job and records the outcome
func (w *WorkerService) processJob(job *domain.QueueJob) {
	startTime := time.Now()
	jobLogger := w.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
	)

	jobLogger.Info("Processing job")

	var processingErr error
	switch job.Type {
	case domain.JobTypeExtractRecipe:
		processingErr = w.processor.ProcessExtraction(w.ctx, job.Payload, jobLogger)
	default:
		processingErr = fmt.Errorf("unknown job type: %s", job.Type)
	}

	w.stats.JobsProcessed.Add(1)

	if processingErr != nil {
		jobLogger.Error("Job processing failed", "error", processingErr)
		w.stats.JobsFailed.Add(1)

		// A URL that did not resolve will never resolve; do not retry
		if isPermanentFailure(processingErr) {
			if err := w.queueRepo.FailPermanently(w.ctx, job.ID, processingErr.Error()); err != nil {
				jobLogger.Error("Failed to mark job as permanently failed", "error", err)
			}
			return
		}

		if err := w.queueRepo.Fail(w.ctx, job.ID, processingErr.Error()); err != nil {
			jobLogger.Error("Failed to mark job as failed", "error", err)
		}
		return
	}

	w.stats.JobsSucceeded.Add(1)
	if err := w.queueRepo.Complete(w.ctx, job.ID); err != nil {
		jobLogger.Error("Failed to mark job as completed", "error", err)
	}

	jobLogger.Info("Job processed successfully",
		"duration", time.Since(startTime),
	)
}

// HealthCheck verifies the worker can still reach its queue
func (w *WorkerService) HealthCheck() error {
	if w.ctx.Err() != nil {
		return fmt.Errorf("worker context cancelled: %w", w.ctx.Err())
	}
	if _, err := w.queueRepo.GetPendingCount(w.ctx, domain.JobTypeExtractRecipe); err != nil {
		return fmt.Errorf("queue connectivity check failed: %w", err)
	}
	return nil
}

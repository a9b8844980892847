package fraud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/agroverify/pkg/common"
	"github.com/richxcame/agroverify/pkg/events"
	"github.com/richxcame/agroverify/pkg/logger"
)

var ErrQueueFull = errors.New("evaluation queue is full")

// WorkerConfig sizes the evaluation pool
type WorkerConfig struct {
	Workers           int
	QueueSize         int
	EvaluationTimeout time.Duration
}

// Worker runs evaluations on a bounded pool. Each finished job
// publishes a completion or failure event; a panicking job is
// recovered and drives the application to FAILED.
type Worker struct {
	service   *Service
	publisher events.Publisher
	config    WorkerConfig

	jobs chan uuid.UUID
	wg   sync.WaitGroup
	once sync.Once
}

func NewWorker(service *Service, publisher events.Publisher, config WorkerConfig) *Worker {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.EvaluationTimeout <= 0 {
		config.EvaluationTimeout = 2 * time.Minute
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &Worker{
		service:   service,
		publisher: publisher,
		config:    config,
		jobs:      make(chan uuid.UUID, config.QueueSize),
	}
}

// Start launches the pool goroutines
func (w *Worker) Start() {
	for i := 0; i < w.config.Workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	logger.Info("evaluation worker started",
		zap.Int("workers", w.config.Workers),
		zap.Int("queue_size", w.config.QueueSize))
}

// Stop closes the queue and waits for in-flight jobs to finish
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.jobs) })
	w.wg.Wait()
}

// Submit queues an application for evaluation without blocking.
// Returns ErrQueueFull when the pool cannot accept more work.
func (w *Worker) Submit(ctx context.Context, id uuid.UUID) error {
	select {
	case w.jobs <- id:
		queuedEvaluations.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (w *Worker) run() {
	defer w.wg.Done()
	for id := range w.jobs {
		queuedEvaluations.Dec()
		w.process(id)
	}
}

func (w *Worker) process(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.EvaluationTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("evaluation panic: %v", r)
			logger.Error("evaluation panicked",
				zap.String("application_id", id.String()),
				zap.Any("panic", r))
			sentry.CurrentHub().Recover(r)

			if err := w.service.Fail(context.Background(), id, reason); err != nil {
				logger.Error("failed to record panicked evaluation",
					zap.String("application_id", id.String()),
					zap.Error(err))
			}
			w.publishFailed(id, reason)
		}
	}()

	analysis, err := w.service.Evaluate(ctx, id)
	if err != nil {
		// A conflicting run is already producing a result; no failure
		// event for this attempt.
		if common.IsConflict(err) {
			logger.Warn("evaluation skipped, application already processing",
				zap.String("application_id", id.String()))
			return
		}
		w.publishFailed(id, err.Error())
		return
	}

	score := analysis.Score
	event := events.EvaluationEvent{
		ApplicationID: id.String(),
		Status:        "COMPLETED",
		FraudScore:    &score,
		RiskLevel:     string(analysis.RiskLevel),
		OccurredAt:    time.Now().UTC(),
	}
	if err := w.publisher.PublishEvaluationCompleted(event); err != nil {
		logger.Warn("failed to publish completion event",
			zap.String("application_id", id.String()),
			zap.Error(err))
	}
}

func (w *Worker) publishFailed(id uuid.UUID, reason string) {
	event := events.EvaluationEvent{
		ApplicationID: id.String(),
		Status:        "FAILED",
		Error:         reason,
		OccurredAt:    time.Now().UTC(),
	}
	if err := w.publisher.PublishEvaluationFailed(event); err != nil {
		logger.Warn("failed to publish failure event",
			zap.String("application_id", id.String()),
			zap.Error(err))
	}
}

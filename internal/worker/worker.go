package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Reconciler recomputes a job's bid counter
type Reconciler interface {
	ReconcileBidCount(ctx context.Context, jobID string) (int64, error)
}

// Broker is the consuming side of the RabbitMQ client
type Broker interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger     *slog.Logger
	Reconciler Reconciler
	Broker     Broker
	WorkerID   string
	QueueName  string
	// Concurrency is the number of goroutines reconciling in parallel
	Concurrency int
	// JobTimeout bounds a single reconcile call
	JobTimeout time.Duration
}

// Worker consumes bid.placed events and repairs bid counters
type Worker struct {
	logger      *slog.Logger
	reconciler  Reconciler
	broker      Broker
	workerID    string
	queueName   string
	concurrency int
	jobTimeout  time.Duration
	jobsChan    chan *domain.BidEventMessage
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	return &Worker{
		logger:      cfg.Logger,
		reconciler:  cfg.Reconciler,
		broker:      cfg.Broker,
		workerID:    cfg.WorkerID,
		queueName:   cfg.QueueName,
		concurrency: concurrency,
		jobTimeout:  jobTimeout,
		jobsChan:    make(chan *domain.BidEventMessage, concurrency),
		stopChan:    make(chan struct{}),
	}
}

// Start consumes events until ctx is canceled. It returns ErrDeliveriesClosed
// if the broker ends the consumer first.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	return w.startMessageDispatcher(ctx, deliveries)
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobmarket-be/internal/worker/domain"
)

// spawnWorkerPool starts one reconciling goroutine per unit of concurrency
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, fmt.Sprintf("%s-%d", w.workerID, i))
	}
}

func (w *Worker) workerLoop(ctx context.Context, workerName string) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.logger.Debug("Worker goroutine stopped", slog.String("worker_name", workerName))
			return
		case <-ctx.Done():
			w.logger.Debug("Worker goroutine canceled", slog.String("worker_name", workerName))
			return
		case msg := <-w.jobsChan:
			w.handleMessage(ctx, workerName, msg)
		}
	}
}

// handleMessage reconciles one event and settles its delivery
func (w *Worker) handleMessage(ctx context.Context, workerName string, msg *domain.BidEventMessage) {
	log := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("job_id", msg.JobID),
		slog.Uint64("delivery_tag", msg.DeliveryTag),
	)

	err := w.processEvent(ctx, msg)
	if err != nil {
		log.Error("Bid event processing failed",
			slog.String("error", err.Error()),
			slog.Bool("requeue", shouldRequeue(err)),
		)
	}

	if msg.Acker == nil {
		log.Error("Message has no acknowledger")
		return
	}

	if settleErr := settle(msg, err); settleErr != nil {
		log.Error("Failed to settle delivery", slog.String("error", settleErr.Error()))
	}
}

// settle acks a processed event and nacks a failed one
func settle(msg *domain.BidEventMessage, processErr error) error {
	if processErr == nil {
		return msg.Acker.Ack(msg.DeliveryTag, false)
	}
	return msg.Acker.Nack(msg.DeliveryTag, false, shouldRequeue(processErr))
}

// shouldRequeue requeues transient failures only; malformed events and
// exhausted retries are dropped
func shouldRequeue(err error) bool {
	if errors.Is(err, domain.ErrInvalidPayload) || errors.Is(err, domain.ErrMaxRetriesExceeded) {
		return false
	}
	return domain.IsTransient(err)
}

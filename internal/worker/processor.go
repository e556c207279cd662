package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	appdomain "github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/worker/domain"
)

// processEvent reconciles the bid counter of the event's job
func (w *Worker) processEvent(ctx context.Context, msg *domain.BidEventMessage) error {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	n, err := w.reconciler.ReconcileBidCount(jobCtx, msg.JobID)
	switch {
	case err == nil:
		w.logger.Debug("Bid count reconciled",
			slog.String("job_id", msg.JobID),
			slog.String("bid_id", msg.BidID),
			slog.Int64("bid_count", n),
		)
		return nil

	case errors.Is(err, appdomain.ErrNotFound):
		// The job was deleted after the bid; nothing left to repair
		w.logger.Warn("Job for bid event no longer exists",
			slog.String("job_id", msg.JobID),
		)
		return nil

	case msg.Redelivered:
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)

	case errors.Is(err, appdomain.ErrStoreFailure), errors.Is(err, context.DeadlineExceeded):
		return domain.Transient("reconcile", err)

	default:
		return fmt.Errorf("reconcile failed: %w", err)
	}
}

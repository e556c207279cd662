// Package ledger records bids: placement with at most one bid per
// (email, job), per-user listings, status changes and bid counter repair.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/auth"
	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store"
)

// EventPublisher receives bid.placed notifications
type EventPublisher interface {
	PublishBidPlaced(ctx context.Context, event domain.BidPlacedEvent) error
}

// Service implements the bid ledger over the bids and jobs collections
type Service struct {
	bids      store.Collection[domain.Bid]
	jobs      store.Collection[domain.Job]
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates the ledger. publisher may be nil when events are disabled.
func NewService(bids store.Collection[domain.Bid], jobs store.Collection[domain.Job], publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		bids:      bids,
		jobs:      jobs,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "ledger")),
		now:       time.Now,
	}
}

// PlaceBid stores the bid and increments the job's bid counter.
// A second bid by the same email on the same job fails with domain.ErrDuplicateBid.
// A failed increment is returned as a store failure; the bid itself stays stored.
func (s *Service) PlaceBid(ctx context.Context, bid domain.Bid) (string, error) {
	_, err := s.bids.FindOne(ctx, store.Where(
		store.Eq(store.FieldEmail, bid.Email),
		store.Eq(store.FieldJobID, bid.JobID),
	))
	switch {
	case err == nil:
		return "", domain.ErrDuplicateBid
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("failed to check existing bid: %w", err)
	}

	bid.ID = ""
	if bid.Status == "" {
		bid.Status = domain.BidStatusPending
	}
	bid.CreatedAt = s.now().UTC()

	id, err := s.bids.Insert(ctx, bid)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return "", domain.ErrDuplicateBid
		}
		return "", fmt.Errorf("failed to insert bid: %w", err)
	}

	event := domain.BidPlacedEvent{
		BidID:    id,
		JobID:    bid.JobID,
		Email:    bid.Email,
		PlacedAt: bid.CreatedAt,
	}

	// The bid is stored from here on. The event is published even when the
	// increment fails so the reconciler can repair the counter.
	_, err = s.jobs.UpdateOne(ctx,
		store.Where(store.Eq(store.FieldID, bid.JobID)),
		store.Update{Inc: map[store.Field]int{store.FieldBidCount: 1}},
		store.UpdateOptions{},
	)
	s.publish(ctx, event)
	if err != nil {
		s.logger.Error("Failed to increment bid count",
			slog.String("bid_id", id),
			slog.String("job_id", bid.JobID),
			slog.Any("error", err),
		)
		return "", fmt.Errorf("bid %s stored but bid count not updated: %w", id, err)
	}

	s.logger.Info("Bid placed",
		slog.String("bid_id", id),
		slog.String("job_id", bid.JobID),
		slog.String("email", bid.Email),
	)
	return id, nil
}

func (s *Service) publish(ctx context.Context, event domain.BidPlacedEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBidPlaced(ctx, event); err != nil {
		s.logger.Warn("Failed to publish bid event",
			slog.String("bid_id", event.BidID),
			slog.Any("error", err),
		)
	}
}

// ListBidsForUser lists the bids placed by email, or with ScopeBuyer the bids
// on jobs owned by email. The caller must be email.
func (s *Service) ListBidsForUser(ctx context.Context, caller auth.Identity, email string, scope domain.BidScope) ([]domain.Bid, error) {
	if err := auth.Authorize(caller, email); err != nil {
		return nil, err
	}

	field := store.FieldEmail
	if scope == domain.ScopeBuyer {
		field = store.FieldBuyer
	}

	bids, err := s.bids.Find(ctx, store.Where(store.Eq(field, email)), store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bids, nil
}

// UpdateBidStatus sets the status of a bid. No transition is rejected.
func (s *Service) UpdateBidStatus(ctx context.Context, id string, status domain.BidStatus) (store.UpdateResult, error) {
	res, err := s.bids.UpdateOne(ctx,
		store.Where(store.Eq(store.FieldID, id)),
		store.Update{Set: map[store.Field]any{store.FieldStatus: status}},
		store.UpdateOptions{},
	)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to update bid %s: %w", id, err)
	}

	s.logger.Info("Bid status updated",
		slog.String("bid_id", id),
		slog.String("status", string(status)),
		slog.Int64("matched", res.Matched),
	)
	return res, nil
}

// maxReconcileAttempts bounds the compare-and-set loop of ReconcileBidCount
const maxReconcileAttempts = 3

// errBidCountChanged reports that every reconcile attempt raced a placement
var errBidCountChanged = errors.New("bid count changed during reconcile")

// ReconcileBidCount sets the job's bid counter to the number of stored bids
// on it. The write only lands if the counter still holds the value read
// before counting, so an increment that commits in between is never
// overwritten. It returns domain.ErrNotFound when the job no longer exists.
func (s *Service) ReconcileBidCount(ctx context.Context, jobID string) (int64, error) {
	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		job, err := s.jobs.FindOne(ctx, store.Where(store.Eq(store.FieldID, jobID)))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return 0, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
			}
			return 0, fmt.Errorf("failed to load job %s: %w", jobID, err)
		}

		n, err := s.bids.Count(ctx, store.Where(store.Eq(store.FieldJobID, jobID)))
		if err != nil {
			return 0, fmt.Errorf("failed to count bids for job %s: %w", jobID, err)
		}

		if int64(job.BidCount) == n {
			return n, nil
		}

		res, err := s.jobs.UpdateOne(ctx,
			store.Where(
				store.Eq(store.FieldID, jobID),
				store.Eq(store.FieldBidCount, job.BidCount),
			),
			store.Update{Set: map[store.Field]any{store.FieldBidCount: int(n)}},
			store.UpdateOptions{},
		)
		if err != nil {
			return 0, fmt.Errorf("failed to store bid count for job %s: %w", jobID, err)
		}
		if res.Matched > 0 {
			s.logger.Info("Bid count repaired",
				slog.String("job_id", jobID),
				slog.Int("previous", job.BidCount),
				slog.Int64("bid_count", n),
			)
			return n, nil
		}

		s.logger.Debug("Bid count moved during reconcile, retrying",
			slog.String("job_id", jobID),
			slog.Int("attempt", attempt),
		)
	}

	// Wrapped as a store failure so the worker requeues the event
	return 0, store.Fail("reconcile bid count", fmt.Errorf("job %s: %w", jobID, errBidCountChanged))
}

// Package catalog manages posted jobs: creation, lookup, replacement,
// deletion and the browse listing with search, category filter and
// deadline sort.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store"
)

// BrowseQuery narrows the browse listing. Zero values match everything.
type BrowseQuery struct {
	Filter string // exact category
	Search string // case-insensitive substring of title
	Sort   domain.SortOrder
}

// Service implements job catalog operations over a jobs collection
type Service struct {
	jobs   store.Collection[domain.Job]
	logger *slog.Logger
}

func NewService(jobs store.Collection[domain.Job], logger *slog.Logger) *Service {
	return &Service{
		jobs:   jobs,
		logger: logger.With(slog.String("component", "catalog")),
	}
}

// CreateJob stores a new job and returns its id. The bid counter always starts at zero.
func (s *Service) CreateJob(ctx context.Context, job domain.Job) (string, error) {
	job.ID = ""
	job.BidCount = 0

	id, err := s.jobs.Insert(ctx, job)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created",
		slog.String("job_id", id),
		slog.String("buyer_email", job.Buyer.Email),
	)
	return id, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (domain.Job, error) {
	job, err := s.jobs.FindOne(ctx, store.Where(store.Eq(store.FieldID, id)))
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

func (s *Service) ListJobsByBuyerEmail(ctx context.Context, email string) ([]domain.Job, error) {
	jobs, err := s.jobs.Find(ctx, store.Where(store.Eq(store.FieldBuyerEmail, email)), store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for buyer: %w", err)
	}
	return jobs, nil
}

// UpdateJob replaces the mutable fields of the job with the given id.
// A missing id creates the job under that id; bid_count is never touched.
func (s *Service) UpdateJob(ctx context.Context, id string, job domain.Job) (store.UpdateResult, error) {
	update := store.Update{
		Set: map[store.Field]any{
			store.FieldTitle:       job.Title,
			store.FieldCategory:    job.Category,
			store.FieldDescription: job.Description,
			store.FieldMinPrice:    job.MinPrice,
			store.FieldMaxPrice:    job.MaxPrice,
			store.FieldDeadline:    job.Deadline,
			store.FieldBuyerEmail:  job.Buyer.Email,
			store.FieldBuyerName:   job.Buyer.Name,
			store.FieldBuyerPhoto:  job.Buyer.Photo,
		},
	}

	res, err := s.jobs.UpdateOne(ctx, store.Where(store.Eq(store.FieldID, id)), update, store.UpdateOptions{Upsert: true})
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to update job %s: %w", id, err)
	}

	if res.UpsertedID != "" {
		s.logger.Warn("Update created a missing job", slog.String("job_id", id))
	}
	return res, nil
}

func (s *Service) DeleteJob(ctx context.Context, id string) (store.DeleteResult, error) {
	res, err := s.jobs.DeleteOne(ctx, store.Where(store.Eq(store.FieldID, id)))
	if err != nil {
		return store.DeleteResult{}, fmt.Errorf("failed to delete job %s: %w", id, err)
	}

	s.logger.Info("Job deleted",
		slog.String("job_id", id),
		slog.Int64("deleted", res.Deleted),
	)
	return res, nil
}

func (s *Service) ListAllJobs(ctx context.Context) ([]domain.Job, error) {
	jobs, err := s.jobs.Find(ctx, nil, store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (s *Service) BrowseJobs(ctx context.Context, q BrowseQuery) ([]domain.Job, error) {
	filter := store.Filter{}
	if q.Search != "" {
		filter = append(filter, store.ContainsFold(store.FieldTitle, q.Search))
	}
	if q.Filter != "" {
		filter = append(filter, store.Eq(store.FieldCategory, q.Filter))
	}

	opts := store.FindOptions{}
	switch q.Sort {
	case domain.SortAscending:
		opts = store.FindOptions{SortBy: store.FieldDeadline, Order: store.Ascending}
	case domain.SortDescending:
		opts = store.FindOptions{SortBy: store.FieldDeadline, Order: store.Descending}
	}

	jobs, err := s.jobs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to browse jobs: %w", err)
	}
	return jobs, nil
}

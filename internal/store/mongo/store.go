// Package mongo is the MongoDB store backend. Documents keep the field
// layout of the JSON API: string _id, nested buyer on jobs, jobId on bids.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store"
	"github.com/cuongbtq/jobmarket-be/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	jobsCollection = "jobs"
	bidsCollection = "bids"
)

var jobFields = map[store.Field]bool{
	store.FieldID:          true,
	store.FieldTitle:       true,
	store.FieldCategory:    true,
	store.FieldDescription: true,
	store.FieldMinPrice:    true,
	store.FieldMaxPrice:    true,
	store.FieldDeadline:    true,
	store.FieldBuyerEmail:  true,
	store.FieldBuyerName:   true,
	store.FieldBuyerPhoto:  true,
	store.FieldBidCount:    true,
}

var bidFields = map[store.Field]bool{
	store.FieldID:       true,
	store.FieldEmail:    true,
	store.FieldJobID:    true,
	store.FieldBuyer:    true,
	store.FieldStatus:   true,
	store.FieldDeadline: true,
	store.FieldTitle:    true,
	store.FieldCategory: true,
}

// Store is the MongoDB backend
type Store struct {
	client *mongodb.Client
	jobs   *collection[domain.Job]
	bids   *collection[domain.Bid]
}

var _ store.Store = (*Store)(nil)

// New binds the jobs and bids collections of the client's database
func New(client *mongodb.Client, logger *slog.Logger) *Store {
	db := client.Database()
	logger = logger.With(slog.String("store", "mongo"))

	return &Store{
		client: client,
		jobs:   newJobs(db.Collection(jobsCollection), logger),
		bids:   newBids(db.Collection(bidsCollection), logger),
	}
}

func newJobs(coll *mongo.Collection, logger *slog.Logger) *collection[domain.Job] {
	return &collection[domain.Job]{
		coll:   coll,
		logger: logger,
		getID:  func(j domain.Job) string { return j.ID },
		setID:  func(j *domain.Job, id string) { j.ID = id },
		fields: jobFields,
	}
}

func newBids(coll *mongo.Collection, logger *slog.Logger) *collection[domain.Bid] {
	return &collection[domain.Bid]{
		coll:   coll,
		logger: logger,
		getID:  func(b domain.Bid) string { return b.ID },
		setID:  func(b *domain.Bid, id string) { b.ID = id },
		fields: bidFields,
	}
}

func (s *Store) Jobs() store.Collection[domain.Job] { return s.jobs }

func (s *Store) Bids() store.Collection[domain.Bid] { return s.bids }

func (s *Store) Ping(ctx context.Context) error { return s.client.HealthCheck(ctx) }

func (s *Store) Close() error { return s.client.Close() }

// EnsureIndexes creates the unique (email, jobId) index on bids and the
// lookup indexes used by the list endpoints. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.bids.coll.Indexes().CreateMany(ctx, bidIndexes()); err != nil {
		return fmt.Errorf("failed to create bid indexes: %w", err)
	}
	if _, err := s.jobs.coll.Indexes().CreateMany(ctx, jobIndexes()); err != nil {
		return fmt.Errorf("failed to create job indexes: %w", err)
	}
	return nil
}

func bidIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: string(store.FieldEmail), Value: 1}, {Key: string(store.FieldJobID), Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_bids_email_job"),
		},
		{
			Keys:    bson.D{{Key: string(store.FieldBuyer), Value: 1}},
			Options: options.Index().SetName("idx_bids_buyer"),
		},
		{
			Keys:    bson.D{{Key: string(store.FieldJobID), Value: 1}},
			Options: options.Index().SetName("idx_bids_job"),
		},
	}
}

func jobIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: string(store.FieldBuyerEmail), Value: 1}},
			Options: options.Index().SetName("idx_jobs_buyer_email"),
		},
		{
			Keys:    bson.D{{Key: string(store.FieldCategory), Value: 1}, {Key: string(store.FieldDeadline), Value: 1}},
			Options: options.Index().SetName("idx_jobs_category_deadline"),
		},
	}
}

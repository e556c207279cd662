package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store"
	"github.com/cuongbtq/jobmarket-be/shared/postgresql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the PostgreSQL backend
type Store struct {
	client *postgresql.Client
	jobs   *collection[domain.Job, jobRow]
	bids   *collection[domain.Bid, bidRow]
}

var _ store.Store = (*Store)(nil)

type jobRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	MinPrice    float64   `db:"min_price"`
	MaxPrice    float64   `db:"max_price"`
	Deadline    time.Time `db:"deadline"`
	BuyerEmail  string    `db:"buyer_email"`
	BuyerName   string    `db:"buyer_name"`
	BuyerPhoto  string    `db:"buyer_photo"`
	BidCount    int       `db:"bid_count"`
}

type bidRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	JobID     string    `db:"job_id"`
	Buyer     string    `db:"buyer"`
	Status    string    `db:"status"`
	Price     float64   `db:"price"`
	Comment   string    `db:"comment"`
	Deadline  time.Time `db:"deadline"`
	Title     string    `db:"title"`
	Category  string    `db:"category"`
	CreatedAt time.Time `db:"created_at"`
}

var jobsTable = table[domain.Job, jobRow]{
	name: "jobs",
	columns: map[store.Field]string{
		store.FieldID:          "id",
		store.FieldTitle:       "title",
		store.FieldCategory:    "category",
		store.FieldDescription: "description",
		store.FieldMinPrice:    "min_price",
		store.FieldMaxPrice:    "max_price",
		store.FieldDeadline:    "deadline",
		store.FieldBuyerEmail:  "buyer_email",
		store.FieldBuyerName:   "buyer_name",
		store.FieldBuyerPhoto:  "buyer_photo",
		store.FieldBidCount:    "bid_count",
	},
	selected: []string{
		"id", "title", "category", "description", "min_price", "max_price",
		"deadline", "buyer_email", "buyer_name", "buyer_photo", "bid_count",
	},
	getID: func(j domain.Job) string { return j.ID },
	setID: func(j *domain.Job, id string) { j.ID = id },
	toRow: func(j domain.Job) map[string]any {
		return map[string]any{
			"id":          j.ID,
			"title":       j.Title,
			"category":    j.Category,
			"description": j.Description,
			"min_price":   j.MinPrice,
			"max_price":   j.MaxPrice,
			"deadline":    j.Deadline,
			"buyer_email": j.Buyer.Email,
			"buyer_name":  j.Buyer.Name,
			"buyer_photo": j.Buyer.Photo,
			"bid_count":   j.BidCount,
		}
	},
	fromRow: func(r jobRow) domain.Job {
		return domain.Job{
			ID:          r.ID,
			Title:       r.Title,
			Category:    r.Category,
			Description: r.Description,
			MinPrice:    r.MinPrice,
			MaxPrice:    r.MaxPrice,
			Deadline:    r.Deadline,
			Buyer: domain.Buyer{
				Email: r.BuyerEmail,
				Name:  r.BuyerName,
				Photo: r.BuyerPhoto,
			},
			BidCount: r.BidCount,
		}
	},
}

var bidsTable = table[domain.Bid, bidRow]{
	name: "bids",
	columns: map[store.Field]string{
		store.FieldID:       "id",
		store.FieldEmail:    "email",
		store.FieldJobID:    "job_id",
		store.FieldBuyer:    "buyer",
		store.FieldStatus:   "status",
		store.FieldDeadline: "deadline",
		store.FieldTitle:    "title",
		store.FieldCategory: "category",
	},
	selected: []string{
		"id", "email", "job_id", "buyer", "status", "price",
		"comment", "deadline", "title", "category", "created_at",
	},
	getID: func(b domain.Bid) string { return b.ID },
	setID: func(b *domain.Bid, id string) { b.ID = id },
	toRow: func(b domain.Bid) map[string]any {
		createdAt := b.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		return map[string]any{
			"id":         b.ID,
			"email":      b.Email,
			"job_id":     b.JobID,
			"buyer":      b.Buyer,
			"status":     string(b.Status),
			"price":      b.Price,
			"comment":    b.Comment,
			"deadline":   b.Deadline,
			"title":      b.Title,
			"category":   b.Category,
			"created_at": createdAt,
		}
	},
	fromRow: func(r bidRow) domain.Bid {
		return domain.Bid{
			ID:        r.ID,
			Email:     r.Email,
			JobID:     r.JobID,
			Buyer:     r.Buyer,
			Status:    domain.BidStatus(r.Status),
			Price:     r.Price,
			Comment:   r.Comment,
			Deadline:  r.Deadline,
			Title:     r.Title,
			Category:  r.Category,
			CreatedAt: r.CreatedAt,
		}
	},
}

// New wraps a connected client in the store contract
func New(client *postgresql.Client, logger *slog.Logger) *Store {
	builder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	logger = logger.With(slog.String("store", "postgres"))

	return &Store{
		client: client,
		jobs: &collection[domain.Job, jobRow]{
			db:      client.GetDB(),
			builder: builder,
			logger:  logger,
			table:   jobsTable,
		},
		bids: &collection[domain.Bid, bidRow]{
			db:      client.GetDB(),
			builder: builder,
			logger:  logger,
			table:   bidsTable,
		},
	}
}

func (s *Store) Jobs() store.Collection[domain.Job] { return s.jobs }

func (s *Store) Bids() store.Collection[domain.Bid] { return s.bids }

func (s *Store) Ping(ctx context.Context) error { return s.client.HealthCheck(ctx) }

func (s *Store) Close() error { return s.client.Close() }

// Migrate applies the embedded schema migrations to the database at databaseURL
func Migrate(databaseURL string, logger *slog.Logger) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("Database schema is up to date")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	default:
		logger.Info("Database migrations applied")
	}

	return nil
}

package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	return NewService(memory.New().Jobs(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, svc *Service) {
	t.Helper()
	jobs := []domain.Job{
		{Title: "Logo Design", Category: "Design", Deadline: day(10), Buyer: domain.Buyer{Email: "b@x.com"}},
		{Title: "Backend API", Category: "Web", Deadline: day(5), Buyer: domain.Buyer{Email: "b@x.com"}},
		{Title: "Banner design", Category: "Marketing", Deadline: day(20), Buyer: domain.Buyer{Email: "c@x.com"}},
		{Title: "Landing page", Category: "Web", Deadline: day(1), Buyer: domain.Buyer{Email: "c@x.com"}},
	}
	for _, j := range jobs {
		_, err := svc.CreateJob(context.Background(), j)
		require.NoError(t, err)
	}
}

func titles(jobs []domain.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Title
	}
	return out
}

func TestCreateJob_ResetsCounter(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	id, err := svc.CreateJob(ctx, domain.Job{ID: "client-chosen", Title: "Logo", BidCount: 7})
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", id)

	job, err := svc.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, job.BidCount)
	assert.Equal(t, "Logo", job.Title)
}

func TestGetJob_NotFound(t *testing.T) {
	_, err := newService().GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListJobsByBuyerEmail(t *testing.T) {
	svc := newService()
	seed(t, svc)

	jobs, err := svc.ListJobsByBuyerEmail(context.Background(), "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"Banner design", "Landing page"}, titles(jobs))

	jobs, err = svc.ListJobsByBuyerEmail(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestUpdateJob_ReplacesFieldsKeepsCounter(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	id, err := svc.CreateJob(ctx, domain.Job{Title: "Old", Category: "Web", Buyer: domain.Buyer{Email: "b@x.com"}})
	require.NoError(t, err)

	res, err := svc.UpdateJob(ctx, id, domain.Job{
		Title:    "New",
		Category: "Design",
		MaxPrice: 300,
		Deadline: day(9),
		Buyer:    domain.Buyer{Email: "b@x.com", Name: "Bea"},
		BidCount: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Equal(t, int64(1), res.Modified)
	assert.Empty(t, res.UpsertedID)

	job, err := svc.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New", job.Title)
	assert.Equal(t, "Design", job.Category)
	assert.Equal(t, 300.0, job.MaxPrice)
	assert.Equal(t, "Bea", job.Buyer.Name)
	assert.Equal(t, 0, job.BidCount)
}

func TestUpdateJob_MissingIDCreates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	res, err := svc.UpdateJob(ctx, "J9", domain.Job{Title: "Fresh", Category: "Web"})
	require.NoError(t, err)
	assert.Equal(t, "J9", res.UpsertedID)
	assert.Equal(t, int64(0), res.Matched)

	job, err := svc.GetJob(ctx, "J9")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", job.Title)
}

func TestDeleteJob(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	id, err := svc.CreateJob(ctx, domain.Job{Title: "Temp"})
	require.NoError(t, err)

	res, err := svc.DeleteJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Deleted)

	res, err = svc.DeleteJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Deleted)

	_, err = svc.GetJob(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAllJobs_StoreOrder(t *testing.T) {
	svc := newService()
	seed(t, svc)

	jobs, err := svc.ListAllJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Logo Design", "Backend API", "Banner design", "Landing page"}, titles(jobs))
}

func TestBrowseJobs(t *testing.T) {
	tests := []struct {
		name  string
		query BrowseQuery
		want  []string
	}{
		{
			name:  "empty query returns everything in store order",
			query: BrowseQuery{},
			want:  []string{"Logo Design", "Backend API", "Banner design", "Landing page"},
		},
		{
			name:  "search is case-insensitive",
			query: BrowseQuery{Search: "DESIGN"},
			want:  []string{"Logo Design", "Banner design"},
		},
		{
			name:  "category filter",
			query: BrowseQuery{Filter: "Web"},
			want:  []string{"Backend API", "Landing page"},
		},
		{
			name:  "search and filter intersect",
			query: BrowseQuery{Search: "design", Filter: "Marketing"},
			want:  []string{"Banner design"},
		},
		{
			name:  "ascending deadline",
			query: BrowseQuery{Sort: domain.SortAscending},
			want:  []string{"Landing page", "Backend API", "Logo Design", "Banner design"},
		},
		{
			name:  "descending deadline",
			query: BrowseQuery{Sort: domain.ParseSortOrder("anything")},
			want:  []string{"Banner design", "Logo Design", "Backend API", "Landing page"},
		},
		{
			name:  "no match",
			query: BrowseQuery{Search: "zzz"},
			want:  []string{},
		},
	}

	svc := newService()
	seed(t, svc)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := svc.BrowseJobs(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(jobs))
		})
	}
}

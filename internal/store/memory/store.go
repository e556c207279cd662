// Package memory is an in-process store backend. It keeps the same
// per-call atomicity as the database backends and enforces the
// (email, jobId) unique key on bids.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store"
)

// Store holds the jobs and bids collections in memory
type Store struct {
	jobs *collection[domain.Job]
	bids *collection[domain.Bid]
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		jobs: newCollection(schema[domain.Job]{
			getID:     func(j domain.Job) string { return j.ID },
			setID:     func(j *domain.Job, id string) { j.ID = id },
			field:     jobField,
			set:       setJobField,
			inc:       incJobField,
			uniqueKey: func(domain.Job) string { return "" },
		}),
		bids: newCollection(schema[domain.Bid]{
			getID:     func(b domain.Bid) string { return b.ID },
			setID:     func(b *domain.Bid, id string) { b.ID = id },
			field:     bidField,
			set:       setBidField,
			inc:       incBidField,
			uniqueKey: func(b domain.Bid) string { return b.Email + "\x00" + b.JobID },
		}),
	}
}

func (s *Store) Jobs() store.Collection[domain.Job] { return s.jobs }

func (s *Store) Bids() store.Collection[domain.Bid] { return s.bids }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func jobField(j domain.Job, f store.Field) (any, bool) {
	switch f {
	case store.FieldID:
		return j.ID, true
	case store.FieldTitle:
		return j.Title, true
	case store.FieldCategory:
		return j.Category, true
	case store.FieldDescription:
		return j.Description, true
	case store.FieldMinPrice:
		return j.MinPrice, true
	case store.FieldMaxPrice:
		return j.MaxPrice, true
	case store.FieldDeadline:
		return j.Deadline.UTC(), true
	case store.FieldBuyerEmail:
		return j.Buyer.Email, true
	case store.FieldBuyerName:
		return j.Buyer.Name, true
	case store.FieldBuyerPhoto:
		return j.Buyer.Photo, true
	case store.FieldBidCount:
		return j.BidCount, true
	}
	return nil, false
}

func setJobField(j *domain.Job, f store.Field, v any) error {
	var ok bool
	switch f {
	case store.FieldTitle:
		j.Title, ok = v.(string)
	case store.FieldCategory:
		j.Category, ok = v.(string)
	case store.FieldDescription:
		j.Description, ok = v.(string)
	case store.FieldMinPrice:
		j.MinPrice, ok = v.(float64)
	case store.FieldMaxPrice:
		j.MaxPrice, ok = v.(float64)
	case store.FieldDeadline:
		j.Deadline, ok = v.(time.Time)
	case store.FieldBuyerEmail:
		j.Buyer.Email, ok = v.(string)
	case store.FieldBuyerName:
		j.Buyer.Name, ok = v.(string)
	case store.FieldBuyerPhoto:
		j.Buyer.Photo, ok = v.(string)
	case store.FieldBidCount:
		var n int64
		n, ok = toInt64(v)
		j.BidCount = int(n)
	default:
		return fmt.Errorf("%w: cannot set job field %s", store.ErrUnsupported, f)
	}
	if !ok {
		return fmt.Errorf("%w: job field %s does not accept %T", store.ErrUnsupported, f, v)
	}
	return nil
}

func incJobField(j *domain.Job, f store.Field, delta int) error {
	if f != store.FieldBidCount {
		return fmt.Errorf("%w: cannot increment job field %s", store.ErrUnsupported, f)
	}
	j.BidCount += delta
	return nil
}

func bidField(b domain.Bid, f store.Field) (any, bool) {
	switch f {
	case store.FieldID:
		return b.ID, true
	case store.FieldEmail:
		return b.Email, true
	case store.FieldJobID:
		return b.JobID, true
	case store.FieldBuyer:
		return b.Buyer, true
	case store.FieldStatus:
		return string(b.Status), true
	case store.FieldDeadline:
		return b.Deadline.UTC(), true
	case store.FieldTitle:
		return b.Title, true
	case store.FieldCategory:
		return b.Category, true
	}
	return nil, false
}

func setBidField(b *domain.Bid, f store.Field, v any) error {
	switch f {
	case store.FieldStatus:
		switch s := v.(type) {
		case domain.BidStatus:
			b.Status = s
		case string:
			b.Status = domain.BidStatus(s)
		default:
			return fmt.Errorf("%w: bid status does not accept %T", store.ErrUnsupported, v)
		}
		return nil
	case store.FieldEmail, store.FieldJobID, store.FieldBuyer:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: bid field %s does not accept %T", store.ErrUnsupported, f, v)
		}
		switch f {
		case store.FieldEmail:
			b.Email = s
		case store.FieldJobID:
			b.JobID = s
		default:
			b.Buyer = s
		}
		return nil
	}
	return fmt.Errorf("%w: cannot set bid field %s", store.ErrUnsupported, f)
}

func incBidField(_ *domain.Bid, f store.Field, _ int) error {
	return fmt.Errorf("%w: cannot increment bid field %s", store.ErrUnsupported, f)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	}
	return 0, false
}

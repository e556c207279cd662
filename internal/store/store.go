package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
)

// Field names a document field. Values follow the document paths used on the wire.
type Field string

const (
	FieldID         Field = "_id"
	FieldTitle      Field = "title"
	FieldCategory   Field = "category"
	FieldDeadline   Field = "deadline"
	FieldBuyerEmail Field = "buyer.email"
	FieldBidCount   Field = "bid_count"

	FieldEmail  Field = "email"
	FieldJobID  Field = "jobId"
	FieldBuyer  Field = "buyer"
	FieldStatus Field = "status"

	// Job replacement fields
	FieldDescription Field = "description"
	FieldMinPrice    Field = "min_price"
	FieldMaxPrice    Field = "max_price"
	FieldBuyerName   Field = "buyer.name"
	FieldBuyerPhoto  Field = "buyer.photo"
)

var (
	// ErrDuplicateKey is returned by Insert when a unique key is already taken
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnsupported is returned when a backend cannot express a request
	ErrUnsupported = errors.New("unsupported store operation")
)

// Op is a filter comparison
type Op int

const (
	OpEq Op = iota
	// OpContainsFold matches a case-insensitive substring
	OpContainsFold
)

// Condition is a single field predicate
type Condition struct {
	Field Field
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. An empty filter matches every document.
type Filter []Condition

// Eq builds an equality condition
func Eq(field Field, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// ContainsFold builds a case-insensitive substring condition
func ContainsFold(field Field, substr string) Condition {
	return Condition{Field: field, Op: OpContainsFold, Value: substr}
}

// Where combines conditions into a filter
func Where(conds ...Condition) Filter {
	return Filter(conds)
}

// IDFilter returns the id equality value when the filter is exactly `_id == v`
func (f Filter) IDFilter() (string, bool) {
	if len(f) != 1 || f[0].Field != FieldID || f[0].Op != OpEq {
		return "", false
	}
	id, ok := f[0].Value.(string)
	return id, ok
}

// Order is a sort direction
type Order int

const (
	Ascending  Order = 1
	Descending Order = -1
)

// FindOptions controls result ordering. An empty SortBy keeps store order.
type FindOptions struct {
	SortBy Field
	Order  Order
}

// Update is a patch applied by UpdateOne
type Update struct {
	Set map[Field]any
	Inc map[Field]int
}

// UpdateOptions holds update flags
type UpdateOptions struct {
	Upsert bool
}

// UpdateResult reports the outcome of UpdateOne
type UpdateResult struct {
	Matched    int64  `json:"matchedCount"`
	Modified   int64  `json:"modifiedCount"`
	UpsertedID string `json:"upsertedId,omitempty"`
}

// DeleteResult reports the outcome of DeleteOne
type DeleteResult struct {
	Deleted int64 `json:"deletedCount"`
}

// Collection is the generic document contract. A single call is atomic;
// a sequence of calls is not.
type Collection[T any] interface {
	Insert(ctx context.Context, doc T) (string, error)
	FindOne(ctx context.Context, filter Filter) (T, error)
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	UpdateOne(ctx context.Context, filter Filter, update Update, opts UpdateOptions) (UpdateResult, error)
	DeleteOne(ctx context.Context, filter Filter) (DeleteResult, error)
}

// Store groups the two collections behind one connection
type Store interface {
	Jobs() Collection[domain.Job]
	Bids() Collection[domain.Bid]
	Ping(ctx context.Context) error
	Close() error
}

// Fail wraps a backend error so it matches domain.ErrStoreFailure
func Fail(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreFailure, op, err)
}

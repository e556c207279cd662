package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store"
	"github.com/google/uuid"
)

// schema describes how the collection reads and writes fields of T
type schema[T any] struct {
	getID func(T) string
	setID func(*T, string)
	field func(T, store.Field) (any, bool)
	set   func(*T, store.Field, any) error
	inc   func(*T, store.Field, int) error
	// uniqueKey returns "" when the document carries no unique key
	uniqueKey func(T) string
}

// collection keeps documents in insertion order behind a single lock, so
// every call is atomic with respect to every other call
type collection[T any] struct {
	mu     sync.RWMutex
	docs   []T
	keys   map[string]string
	schema schema[T]
}

func newCollection[T any](s schema[T]) *collection[T] {
	return &collection[T]{
		keys:   make(map[string]string),
		schema: s,
	}
}

func (c *collection[T]) Insert(ctx context.Context, doc T) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", store.Fail("insert", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.schema.getID(doc)
	if id == "" {
		id = uuid.NewString()
		c.schema.setID(&doc, id)
	}

	if c.indexOf(id) >= 0 {
		return "", store.ErrDuplicateKey
	}

	if err := c.claimKey(doc, id); err != nil {
		return "", err
	}

	c.docs = append(c.docs, doc)
	return id, nil
}

func (c *collection[T]) FindOne(ctx context.Context, filter store.Filter) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, store.Fail("find one", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, doc := range c.docs {
		ok, err := c.matches(doc, filter)
		if err != nil {
			return zero, err
		}
		if ok {
			return doc, nil
		}
	}

	return zero, domain.ErrNotFound
}

func (c *collection[T]) Find(ctx context.Context, filter store.Filter, opts store.FindOptions) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Fail("find", err)
	}

	c.mu.RLock()
	result := make([]T, 0, len(c.docs))
	for _, doc := range c.docs {
		ok, err := c.matches(doc, filter)
		if err != nil {
			c.mu.RUnlock()
			return nil, err
		}
		if ok {
			result = append(result, doc)
		}
	}
	c.mu.RUnlock()

	if opts.SortBy != "" {
		var sortErr error
		sort.SliceStable(result, func(i, j int) bool {
			a, _ := c.schema.field(result[i], opts.SortBy)
			b, _ := c.schema.field(result[j], opts.SortBy)
			cmp, err := compare(a, b)
			if err != nil {
				sortErr = err
				return false
			}
			if opts.Order == store.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	return result, nil
}

func (c *collection[T]) Count(ctx context.Context, filter store.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, store.Fail("count", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, doc := range c.docs {
		ok, err := c.matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (c *collection[T]) UpdateOne(ctx context.Context, filter store.Filter, update store.Update, opts store.UpdateOptions) (store.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return store.UpdateResult{}, store.Fail("update one", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.docs {
		ok, err := c.matches(doc, filter)
		if err != nil {
			return store.UpdateResult{}, err
		}
		if !ok {
			continue
		}

		updated := doc
		if err := c.apply(&updated, update); err != nil {
			return store.UpdateResult{}, err
		}

		id := c.schema.getID(doc)
		if c.schema.uniqueKey(updated) != c.schema.uniqueKey(doc) {
			if err := c.claimKey(updated, id); err != nil {
				return store.UpdateResult{}, err
			}
			delete(c.keys, c.schema.uniqueKey(doc))
		}

		result := store.UpdateResult{Matched: 1}
		if !reflect.DeepEqual(doc, updated) {
			c.docs[i] = updated
			result.Modified = 1
		}
		return result, nil
	}

	if !opts.Upsert {
		return store.UpdateResult{}, nil
	}

	// Upsert seeds the new document from the equality conditions of the filter
	var doc T
	for _, cond := range filter {
		if cond.Op != store.OpEq {
			continue
		}
		if cond.Field == store.FieldID {
			id, ok := cond.Value.(string)
			if !ok {
				return store.UpdateResult{}, fmt.Errorf("%w: id must be a string", store.ErrUnsupported)
			}
			c.schema.setID(&doc, id)
			continue
		}
		if err := c.schema.set(&doc, cond.Field, cond.Value); err != nil {
			return store.UpdateResult{}, err
		}
	}
	if err := c.apply(&doc, update); err != nil {
		return store.UpdateResult{}, err
	}

	id := c.schema.getID(doc)
	if id == "" {
		id = uuid.NewString()
		c.schema.setID(&doc, id)
	}
	if err := c.claimKey(doc, id); err != nil {
		return store.UpdateResult{}, err
	}

	c.docs = append(c.docs, doc)
	return store.UpdateResult{UpsertedID: id}, nil
}

func (c *collection[T]) DeleteOne(ctx context.Context, filter store.Filter) (store.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return store.DeleteResult{}, store.Fail("delete one", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.docs {
		ok, err := c.matches(doc, filter)
		if err != nil {
			return store.DeleteResult{}, err
		}
		if !ok {
			continue
		}

		if key := c.schema.uniqueKey(doc); key != "" {
			delete(c.keys, key)
		}
		c.docs = append(c.docs[:i], c.docs[i+1:]...)
		return store.DeleteResult{Deleted: 1}, nil
	}

	return store.DeleteResult{}, nil
}

// claimKey reserves the unique key of doc for id. Caller holds the write lock.
func (c *collection[T]) claimKey(doc T, id string) error {
	key := c.schema.uniqueKey(doc)
	if key == "" {
		return nil
	}
	if owner, taken := c.keys[key]; taken && owner != id {
		return store.ErrDuplicateKey
	}
	c.keys[key] = id
	return nil
}

func (c *collection[T]) indexOf(id string) int {
	for i, doc := range c.docs {
		if c.schema.getID(doc) == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) apply(doc *T, update store.Update) error {
	for field, value := range update.Set {
		if field == store.FieldID {
			return fmt.Errorf("%w: cannot set %s", store.ErrUnsupported, field)
		}
		if err := c.schema.set(doc, field, value); err != nil {
			return err
		}
	}
	for field, delta := range update.Inc {
		if err := c.schema.inc(doc, field, delta); err != nil {
			return err
		}
	}
	return nil
}

func (c *collection[T]) matches(doc T, filter store.Filter) (bool, error) {
	for _, cond := range filter {
		actual, ok := c.schema.field(doc, cond.Field)
		if !ok {
			return false, fmt.Errorf("%w: unknown field %s", store.ErrUnsupported, cond.Field)
		}

		switch cond.Op {
		case store.OpEq:
			if normalize(actual) != normalize(cond.Value) {
				return false, nil
			}
		case store.OpContainsFold:
			s, ok := actual.(string)
			sub, subOK := cond.Value.(string)
			if !ok || !subOK {
				return false, fmt.Errorf("%w: substring match on %s", store.ErrUnsupported, cond.Field)
			}
			if !strings.Contains(strings.ToLower(s), strings.ToLower(sub)) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: operator %d", store.ErrUnsupported, cond.Op)
		}
	}
	return true, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case domain.BidStatus:
		return string(x)
	case int64:
		return int(x)
	case int32:
		return int(x)
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

func compare(a, b any) (int, error) {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			break
		}
		return x.Compare(y), nil
	case string:
		y, ok := b.(string)
		if !ok {
			break
		}
		return strings.Compare(x, y), nil
	case int:
		y, ok := b.(int)
		if !ok {
			break
		}
		return x - y, nil
	case float64:
		y, ok := b.(float64)
		if !ok {
			break
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: cannot order %T", store.ErrUnsupported, a)
}

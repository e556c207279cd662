package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collection implements store.Collection over one mongo collection.
// Field values are used as document paths directly.
type collection[T any] struct {
	coll   *mongo.Collection
	logger *slog.Logger
	getID  func(T) string
	setID  func(*T, string)
	fields map[store.Field]bool
}

func (c *collection[T]) Insert(ctx context.Context, doc T) (string, error) {
	id := c.getID(doc)
	if id == "" {
		id = uuid.NewString()
		c.setID(&doc, id)
	}

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", store.ErrDuplicateKey
		}
		return "", store.Fail("insert into "+c.coll.Name(), err)
	}
	return id, nil
}

func (c *collection[T]) FindOne(ctx context.Context, filter store.Filter) (T, error) {
	var doc T

	f, err := c.filter(filter)
	if err != nil {
		return doc, err
	}

	if err := c.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return doc, domain.ErrNotFound
		}
		return doc, store.Fail("find one in "+c.coll.Name(), err)
	}
	return doc, nil
}

func (c *collection[T]) Find(ctx context.Context, filter store.Filter, opts store.FindOptions) ([]T, error) {
	f, err := c.filter(filter)
	if err != nil {
		return nil, err
	}

	findOpts, err := c.findOptions(opts)
	if err != nil {
		return nil, err
	}

	cur, err := c.coll.Find(ctx, f, findOpts)
	if err != nil {
		return nil, store.Fail("find in "+c.coll.Name(), err)
	}
	defer cur.Close(ctx)

	docs := []T{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, store.Fail("decode "+c.coll.Name(), err)
	}
	return docs, nil
}

func (c *collection[T]) Count(ctx context.Context, filter store.Filter) (int64, error) {
	f, err := c.filter(filter)
	if err != nil {
		return 0, err
	}

	n, err := c.coll.CountDocuments(ctx, f)
	if err != nil {
		return 0, store.Fail("count in "+c.coll.Name(), err)
	}
	return n, nil
}

func (c *collection[T]) UpdateOne(ctx context.Context, filter store.Filter, update store.Update, opts store.UpdateOptions) (store.UpdateResult, error) {
	f, err := c.filter(filter)
	if err != nil {
		return store.UpdateResult{}, err
	}

	u, err := c.update(update)
	if err != nil {
		return store.UpdateResult{}, err
	}

	res, err := c.coll.UpdateOne(ctx, f, u, options.Update().SetUpsert(opts.Upsert))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.UpdateResult{}, store.ErrDuplicateKey
		}
		return store.UpdateResult{}, store.Fail("update "+c.coll.Name(), err)
	}

	result := store.UpdateResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
	}
	if id, ok := res.UpsertedID.(string); ok {
		result.UpsertedID = id
	}
	return result, nil
}

func (c *collection[T]) DeleteOne(ctx context.Context, filter store.Filter) (store.DeleteResult, error) {
	f, err := c.filter(filter)
	if err != nil {
		return store.DeleteResult{}, err
	}

	res, err := c.coll.DeleteOne(ctx, f)
	if err != nil {
		return store.DeleteResult{}, store.Fail("delete from "+c.coll.Name(), err)
	}
	return store.DeleteResult{Deleted: res.DeletedCount}, nil
}

func (c *collection[T]) filter(filter store.Filter) (bson.D, error) {
	f := bson.D{}
	for _, cond := range filter {
		if err := c.known(cond.Field); err != nil {
			return nil, err
		}

		switch cond.Op {
		case store.OpEq:
			f = append(f, bson.E{Key: string(cond.Field), Value: cond.Value})
		case store.OpContainsFold:
			s, ok := cond.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: substring match needs a string", store.ErrUnsupported)
			}
			f = append(f, bson.E{Key: string(cond.Field), Value: bson.D{
				{Key: "$regex", Value: regexp.QuoteMeta(s)},
				{Key: "$options", Value: "i"},
			}})
		default:
			return nil, fmt.Errorf("%w: operator %d", store.ErrUnsupported, cond.Op)
		}
	}
	return f, nil
}

func (c *collection[T]) update(update store.Update) (bson.D, error) {
	if len(update.Set) == 0 && len(update.Inc) == 0 {
		return nil, fmt.Errorf("%w: empty update", store.ErrUnsupported)
	}

	u := bson.D{}

	if len(update.Set) > 0 {
		set := bson.D{}
		for _, field := range sortedFields(update.Set) {
			if field == store.FieldID {
				return nil, fmt.Errorf("%w: cannot set %s", store.ErrUnsupported, field)
			}
			if err := c.known(field); err != nil {
				return nil, err
			}
			set = append(set, bson.E{Key: string(field), Value: update.Set[field]})
		}
		u = append(u, bson.E{Key: "$set", Value: set})
	}

	if len(update.Inc) > 0 {
		inc := bson.D{}
		for _, field := range sortedFields(update.Inc) {
			if err := c.known(field); err != nil {
				return nil, err
			}
			inc = append(inc, bson.E{Key: string(field), Value: update.Inc[field]})
		}
		u = append(u, bson.E{Key: "$inc", Value: inc})
	}

	return u, nil
}

func (c *collection[T]) findOptions(opts store.FindOptions) (*options.FindOptions, error) {
	findOpts := options.Find()
	if opts.SortBy == "" {
		return findOpts, nil
	}
	if err := c.known(opts.SortBy); err != nil {
		return nil, err
	}

	order := 1
	if opts.Order == store.Descending {
		order = -1
	}
	return findOpts.SetSort(bson.D{{Key: string(opts.SortBy), Value: order}}), nil
}

func (c *collection[T]) known(field store.Field) error {
	if !c.fields[field] {
		return fmt.Errorf("%w: unknown field %s on %s", store.ErrUnsupported, field, c.name())
	}
	return nil
}

func (c *collection[T]) name() string {
	if c.coll == nil {
		return "collection"
	}
	return c.coll.Name()
}

func sortedFields[V any](m map[store.Field]V) []store.Field {
	fields := make([]store.Field, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

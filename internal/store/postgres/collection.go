package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// table maps a document type T onto a table whose rows scan into R
type table[T any, R any] struct {
	name     string
	columns  map[store.Field]string
	selected []string // every column R scans
	getID    func(T) string
	setID    func(*T, string)
	toRow    func(T) map[string]any
	fromRow  func(R) T
}

// collection implements store.Collection over one table
type collection[T any, R any] struct {
	db      *sqlx.DB
	builder squirrel.StatementBuilderType
	logger  *slog.Logger
	table   table[T, R]
}

func (c *collection[T, R]) Insert(ctx context.Context, doc T) (string, error) {
	id := c.table.getID(doc)
	if id == "" {
		id = uuid.NewString()
		c.table.setID(&doc, id)
	}

	query, args, err := c.insertQuery(doc)
	if err != nil {
		return "", err
	}

	c.logger.Debug("query", slog.String("sql", query), slog.Any("args", args))

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return "", store.ErrDuplicateKey
		}
		return "", store.Fail("insert into "+c.table.name, err)
	}

	return id, nil
}

func (c *collection[T, R]) FindOne(ctx context.Context, filter store.Filter) (T, error) {
	var zero T

	query, args, err := c.findQuery(filter, store.FindOptions{}, 1)
	if err != nil {
		return zero, err
	}

	c.logger.Debug("query", slog.String("sql", query), slog.Any("args", args))

	var row R
	if err := c.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, domain.ErrNotFound
		}
		return zero, store.Fail("find one in "+c.table.name, err)
	}

	return c.table.fromRow(row), nil
}

func (c *collection[T, R]) Find(ctx context.Context, filter store.Filter, opts store.FindOptions) ([]T, error) {
	query, args, err := c.findQuery(filter, opts, 0)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("query", slog.String("sql", query), slog.Any("args", args))

	var rows []R
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, store.Fail("find in "+c.table.name, err)
	}

	docs := make([]T, len(rows))
	for i, row := range rows {
		docs[i] = c.table.fromRow(row)
	}
	return docs, nil
}

func (c *collection[T, R]) Count(ctx context.Context, filter store.Filter) (int64, error) {
	where, err := c.where(filter)
	if err != nil {
		return 0, err
	}

	q := c.builder.Select("COUNT(*)").From(c.table.name)
	if len(where) > 0 {
		q = q.Where(where)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var n int64
	if err := c.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, store.Fail("count in "+c.table.name, err)
	}
	return n, nil
}

func (c *collection[T, R]) UpdateOne(ctx context.Context, filter store.Filter, update store.Update, opts store.UpdateOptions) (store.UpdateResult, error) {
	if opts.Upsert {
		return c.upsert(ctx, filter, update)
	}

	query, args, err := c.updateQuery(filter, update)
	if err != nil {
		return store.UpdateResult{}, err
	}

	c.logger.Debug("query", slog.String("sql", query), slog.Any("args", args))

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return store.UpdateResult{}, store.ErrDuplicateKey
		}
		return store.UpdateResult{}, store.Fail("update "+c.table.name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return store.UpdateResult{}, store.Fail("rows affected", err)
	}

	return store.UpdateResult{Matched: n, Modified: n}, nil
}

func (c *collection[T, R]) upsert(ctx context.Context, filter store.Filter, update store.Update) (store.UpdateResult, error) {
	id, ok := filter.IDFilter()
	if !ok {
		return store.UpdateResult{}, fmt.Errorf("%w: upsert requires an id filter", store.ErrUnsupported)
	}

	query, args, err := c.upsertQuery(id, update)
	if err != nil {
		return store.UpdateResult{}, err
	}

	c.logger.Debug("query", slog.String("sql", query), slog.Any("args", args))

	var inserted bool
	if err := c.db.QueryRowxContext(ctx, query, args...).Scan(&inserted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// ON CONFLICT DO NOTHING returns no row for an existing id
			return store.UpdateResult{Matched: 1}, nil
		}
		if isUniqueViolation(err) {
			return store.UpdateResult{}, store.ErrDuplicateKey
		}
		return store.UpdateResult{}, store.Fail("upsert "+c.table.name, err)
	}

	if inserted {
		return store.UpdateResult{UpsertedID: id}, nil
	}
	return store.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (c *collection[T, R]) DeleteOne(ctx context.Context, filter store.Filter) (store.DeleteResult, error) {
	query, args, err := c.deleteQuery(filter)
	if err != nil {
		return store.DeleteResult{}, err
	}

	c.logger.Debug("query", slog.String("sql", query), slog.Any("args", args))

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return store.DeleteResult{}, store.Fail("delete from "+c.table.name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return store.DeleteResult{}, store.Fail("rows affected", err)
	}
	return store.DeleteResult{Deleted: n}, nil
}

func (c *collection[T, R]) insertQuery(doc T) (string, []any, error) {
	query, args, err := c.builder.Insert(c.table.name).SetMap(c.table.toRow(doc)).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build insert query: %w", err)
	}
	return query, args, nil
}

func (c *collection[T, R]) findQuery(filter store.Filter, opts store.FindOptions, limit uint64) (string, []any, error) {
	where, err := c.where(filter)
	if err != nil {
		return "", nil, err
	}

	q := c.builder.Select(c.table.selected...).From(c.table.name)
	if len(where) > 0 {
		q = q.Where(where)
	}

	if opts.SortBy != "" {
		col, err := c.column(opts.SortBy)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if opts.Order == store.Descending {
			dir = "DESC"
		}
		q = q.OrderBy(col + " " + dir)
	}

	if limit > 0 {
		q = q.Limit(limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build select query: %w", err)
	}
	return query, args, nil
}

// updateQuery targets a single row: the first row matching the filter
func (c *collection[T, R]) updateQuery(filter store.Filter, update store.Update) (string, []any, error) {
	set, err := c.setMap(update)
	if err != nil {
		return "", nil, err
	}
	if len(set) == 0 {
		return "", nil, fmt.Errorf("%w: empty update", store.ErrUnsupported)
	}

	target, err := c.firstID(filter)
	if err != nil {
		return "", nil, err
	}

	// The filter is repeated on the outer statement so a row changed by a
	// concurrent writer is rechecked against it before being updated
	where, err := c.where(filter)
	if err != nil {
		return "", nil, err
	}

	q := c.builder.Update(c.table.name).
		SetMap(set).
		Where(squirrel.Expr("id = (?)", target))
	if len(where) > 0 {
		q = q.Where(where)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build update query: %w", err)
	}
	return query, args, nil
}

func (c *collection[T, R]) upsertQuery(id string, update store.Update) (string, []any, error) {
	if len(update.Inc) > 0 {
		return "", nil, fmt.Errorf("%w: increment in upsert", store.ErrUnsupported)
	}

	set, err := c.setMap(update)
	if err != nil {
		return "", nil, err
	}

	columns := make([]string, 0, len(set))
	for col := range set {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	values := make([]any, 0, len(columns)+1)
	values = append(values, id)
	assignments := make([]string, 0, len(columns))
	for _, col := range columns {
		values = append(values, set[col])
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	conflict := "ON CONFLICT (id) DO NOTHING"
	if len(assignments) > 0 {
		conflict = "ON CONFLICT (id) DO UPDATE SET " + strings.Join(assignments, ", ")
	}

	query, args, err := c.builder.Insert(c.table.name).
		Columns(append([]string{"id"}, columns...)...).
		Values(values...).
		Suffix(conflict + " RETURNING (xmax = 0) AS inserted").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build upsert query: %w", err)
	}
	return query, args, nil
}

func (c *collection[T, R]) deleteQuery(filter store.Filter) (string, []any, error) {
	target, err := c.firstID(filter)
	if err != nil {
		return "", nil, err
	}

	query, args, err := c.builder.Delete(c.table.name).
		Where(squirrel.Expr("id = (?)", target)).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build delete query: %w", err)
	}
	return query, args, nil
}

// firstID selects the id of the first row matching the filter
func (c *collection[T, R]) firstID(filter store.Filter) (squirrel.SelectBuilder, error) {
	where, err := c.where(filter)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	q := squirrel.Select("id").From(c.table.name)
	if len(where) > 0 {
		q = q.Where(where)
	}
	return q.Limit(1), nil
}

func (c *collection[T, R]) where(filter store.Filter) (squirrel.And, error) {
	where := squirrel.And{}
	for _, cond := range filter {
		col, err := c.column(cond.Field)
		if err != nil {
			return nil, err
		}

		switch cond.Op {
		case store.OpEq:
			where = append(where, squirrel.Eq{col: cond.Value})
		case store.OpContainsFold:
			s, ok := cond.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: substring match needs a string", store.ErrUnsupported)
			}
			where = append(where, squirrel.ILike{col: "%" + escapeLike(s) + "%"})
		default:
			return nil, fmt.Errorf("%w: operator %d", store.ErrUnsupported, cond.Op)
		}
	}
	return where, nil
}

func (c *collection[T, R]) setMap(update store.Update) (map[string]any, error) {
	set := make(map[string]any, len(update.Set)+len(update.Inc))
	for field, value := range update.Set {
		if field == store.FieldID {
			return nil, fmt.Errorf("%w: cannot set %s", store.ErrUnsupported, field)
		}
		col, err := c.column(field)
		if err != nil {
			return nil, err
		}
		set[col] = value
	}
	for field, delta := range update.Inc {
		col, err := c.column(field)
		if err != nil {
			return nil, err
		}
		set[col] = squirrel.Expr(col+" + ?", delta)
	}
	return set, nil
}

func (c *collection[T, R]) column(field store.Field) (string, error) {
	col, ok := c.table.columns[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %s on %s", store.ErrUnsupported, field, c.table.name)
	}
	return col, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}

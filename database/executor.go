package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

func (q *QueryBuilder[T]) buildSelect(model any, paged bool) *bun.SelectQuery {
	query := q.db.NewSelect().Model(model)

	for _, c := range q.where {
		query = query.Where(c.sql, c.args...)
	}

	if !paged {
		return query
	}

	for _, rel := range q.relations {
		query = query.Relation(rel)
	}
	for _, order := range q.orderBy {
		query = query.OrderExpr(order.sql, order.args...)
	}
	if q.limit > 0 {
		query = query.Limit(q.limit)
	}
	if q.offset > 0 {
		query = query.Offset(q.offset)
	}

	return query
}

func (q *QueryBuilder[T]) buildUpdate(values map[string]any) *bun.UpdateQuery {
	query := q.db.NewUpdate().Model((*T)(nil))
	for column, value := range values {
		query = query.Set("? = ?", bun.Ident(column), value)
	}
	for _, c := range q.where {
		query = query.Where(c.sql, c.args...)
	}
	return query
}

// All executes the query and returns all matching records with automatic retry
func (q *QueryBuilder[T]) All(ctx context.Context) ([]T, error) {
	start := time.Now()

	var data []T
	err := WithRetry(ctx, func() error {
		data = nil // Reset on retry
		return q.buildSelect(&data, true).Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute select query: %w (took %v)", err, time.Since(start))
	}

	if data == nil {
		data = []T{}
	}
	return data, nil
}

// First returns the first matching record, or nil when there is none
func (q *QueryBuilder[T]) First(ctx context.Context) (*T, error) {
	start := time.Now()

	data := new(T)
	err := WithRetry(ctx, func() error {
		return q.buildSelect(data, true).Limit(1).Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to execute first query: %w (took %v)", err, time.Since(start))
	}

	return data, nil
}

// Count returns the number of matching records, ignoring paging and ordering
func (q *QueryBuilder[T]) Count(ctx context.Context) (int, error) {
	start := time.Now()

	var count int
	err := WithRetry(ctx, func() error {
		var err error
		count, err = q.buildSelect((*T)(nil), false).Count(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to execute count query: %w (took %v)", err, time.Since(start))
	}

	return count, nil
}

// Exists checks if any records match the query
func (q *QueryBuilder[T]) Exists(ctx context.Context) (bool, error) {
	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert inserts a new record, filling server defaults back into data
func (q *QueryBuilder[T]) Insert(ctx context.Context, data *T) (*T, error) {
	start := time.Now()

	err := WithRetry(ctx, func() error {
		_, err := q.db.NewInsert().Model(data).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute insert query: %w (took %v)", err, time.Since(start))
	}

	return data, nil
}

// InsertMany inserts multiple records in one statement
func (q *QueryBuilder[T]) InsertMany(ctx context.Context, data []T) ([]T, error) {
	if len(data) == 0 {
		return data, nil
	}

	start := time.Now()

	err := WithRetry(ctx, func() error {
		_, err := q.db.NewInsert().Model(&data).Returning("*").Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute bulk insert query: %w (took %v)", err, time.Since(start))
	}

	return data, nil
}

// Update sets the given columns on matching records and returns the affected row count
func (q *QueryBuilder[T]) Update(ctx context.Context, values map[string]any) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}

	start := time.Now()

	var rowsAffected int64
	err := WithRetry(ctx, func() error {
		res, err := q.buildUpdate(values).Exec(ctx)
		if err != nil {
			return err
		}
		rowsAffected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to execute update query: %w (took %v)", err, time.Since(start))
	}

	return int(rowsAffected), nil
}

// Delete removes matching records and returns the affected row count
func (q *QueryBuilder[T]) Delete(ctx context.Context) (int, error) {
	start := time.Now()

	var rowsAffected int64
	err := WithRetry(ctx, func() error {
		query := q.db.NewDelete().Model((*T)(nil))
		for _, c := range q.where {
			query = query.Where(c.sql, c.args...)
		}

		res, err := query.Exec(ctx)
		if err != nil {
			return err
		}
		rowsAffected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to execute delete query: %w (took %v)", err, time.Since(start))
	}

	return int(rowsAffected), nil
}

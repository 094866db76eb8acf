package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// Transaction runs fn in a read-committed transaction. Serialization failures
// and dropped connections retry the whole transaction.
func Transaction(ctx context.Context, db bun.IDB, fn func(ctx context.Context, tx bun.Tx) error) error {
	return WithRetry(ctx, func() error {
		return db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
	})
}

// Pagination represents pagination parameters
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NormalizePage clamps page and page size into sane bounds
func NormalizePage(page, pageSize, defaultSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

// NewPagination derives page metadata from a total count
func NewPagination(page, pageSize, total int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// FindByID is a helper to find a record by ID
func FindByID[T any](ctx context.Context, db bun.IDB, id any) (*T, error) {
	return Query[T](db).Where("id", id).First(ctx)
}

// SoftDelete performs a soft delete by setting deleted_at timestamp
func SoftDelete[T any](ctx context.Context, db bun.IDB, id any) (int, error) {
	return Query[T](db).
		Where("id", id).
		WhereNull("deleted_at").
		Update(ctx, map[string]any{
			"deleted_at": time.Now().UTC(),
		})
}

// ExcludeSoftDeleted adds a WHERE clause to exclude soft-deleted records
func ExcludeSoftDeleted[T any](q *QueryBuilder[T]) *QueryBuilder[T] {
	return q.WhereNull("deleted_at")
}

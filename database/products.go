package database

import (
	"context"
	"fmt"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProductRepository is the Postgres implementation of the catalog store
type ProductRepository struct {
	db bun.IDB
}

func NewProductRepository(db bun.IDB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) filtered(opts structs.ProductListOptions) *QueryBuilder[tables.Product] {
	q := Query[tables.Product](r.db)

	if opts.Category != "" && opts.Category != structs.CategoryAll {
		q = q.Where("category", opts.Category)
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		q = q.Or().
			WhereOp("name", "ILIKE", pattern).
			WhereOp("description", "ILIKE", pattern).
			End()
	}
	if opts.MinPrice != nil {
		q = q.WhereOp("price", ">=", *opts.MinPrice)
	}
	if opts.MaxPrice != nil {
		q = q.WhereOp("price", "<=", *opts.MaxPrice)
	}
	if opts.InStock != nil {
		q = q.Where("in_stock", *opts.InStock)
	}

	return q
}

// List returns one page of products matching opts plus the total match count
func (r *ProductRepository) List(ctx context.Context, opts structs.ProductListOptions) ([]tables.Product, int, error) {
	total, err := r.filtered(opts).Count(ctx)
	if err != nil {
		return nil, 0, lib.MapPgError(err)
	}

	q := r.filtered(opts)
	switch opts.Sort {
	case structs.SortPriceAsc:
		q = q.OrderBy("price", ASC)
	case structs.SortPriceDesc:
		q = q.OrderBy("price", DESC)
	case structs.SortName:
		q = q.OrderBy("name", ASC)
	case structs.SortRating:
		q = q.OrderBy("rating", DESC)
	default:
		q = q.OrderBy("created_at", DESC)
	}
	q = q.OrderBy("id", ASC)

	if opts.PageSize > 0 {
		q = q.Limit(opts.PageSize).Offset((max(opts.Page, 1) - 1) * opts.PageSize)
	}

	products, err := q.All(ctx)
	if err != nil {
		return nil, 0, lib.MapPgError(err)
	}
	return products, total, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*tables.Product, error) {
	product, err := FindByID[tables.Product](ctx, r.db, id)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if product == nil {
		return nil, lib.ErrProductNotFound
	}
	return product, nil
}

func (r *ProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]tables.Product, error) {
	if len(ids) == 0 {
		return []tables.Product{}, nil
	}
	products, err := Query[tables.Product](r.db).WhereIn("id", ids).All(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *tables.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt, product.UpdatedAt = stamp(product.CreatedAt)
	product.SyncStock()
	if _, err := Query[tables.Product](r.db).Insert(ctx, product); err != nil {
		return lib.MapPgError(err)
	}
	return nil
}

// Update writes every editable column of product
func (r *ProductRepository) Update(ctx context.Context, product *tables.Product) error {
	product.SyncStock()
	product.UpdatedAt = time.Now().UTC()

	n, err := Query[tables.Product](r.db).Where("id", product.ID).Update(ctx, map[string]any{
		"name":        product.Name,
		"description": product.Description,
		"category":    product.Category,
		"price":       product.Price,
		"quantity":    product.Quantity,
		"in_stock":    product.InStock,
		"rating":      product.Rating,
		"image_url":   product.ImageURL,
		"image_key":   product.ImageKey,
		"updated_at":  product.UpdatedAt,
	})
	if err != nil {
		return lib.MapPgError(err)
	}
	if n == 0 {
		return lib.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := Query[tables.Product](r.db).Where("id", id).Delete(ctx)
	if err != nil {
		return lib.MapPgError(err)
	}
	if n == 0 {
		return lib.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	n, err := Query[tables.Product](r.db).Count(ctx)
	return n, lib.MapPgError(err)
}

func (r *ProductRepository) CountLowStock(ctx context.Context, threshold int) (int, error) {
	n, err := Query[tables.Product](r.db).
		WhereOp("quantity", ">", 0).
		WhereOp("quantity", "<", threshold).
		Count(ctx)
	return n, lib.MapPgError(err)
}

func (r *ProductRepository) CountByCategory(ctx context.Context) (map[structs.Category]int, error) {
	var rows []struct {
		Category structs.Category `bun:"category"`
		Count    int              `bun:"count"`
	}

	err := WithRetry(ctx, func() error {
		rows = nil
		return r.db.NewSelect().
			Model((*tables.Product)(nil)).
			Column("category").
			ColumnExpr("count(*) AS count").
			Group("category").
			Scan(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count products by category: %w", lib.MapPgError(err))
	}

	counts := make(map[structs.Category]int, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}

// adjustStock moves stock by delta inside tx. A decrement that would take
// quantity below zero fails with ErrInsufficientStock.
func adjustStock(ctx context.Context, tx bun.IDB, productID uuid.UUID, delta int) error {
	res, err := stockUpdate(tx, productID, delta).Exec(ctx)
	if err != nil {
		return lib.MapPgError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if delta < 0 {
			return lib.ErrInsufficientStock
		}
		return lib.ErrProductNotFound
	}
	return nil
}

// stockUpdate moves a product's quantity by delta and keeps in_stock in step.
// Decrements only match while enough stock is left.
func stockUpdate(db bun.IDB, productID uuid.UUID, delta int) *bun.UpdateQuery {
	query := db.NewUpdate().
		Model((*tables.Product)(nil)).
		Set("quantity = quantity + ?", delta).
		Set("in_stock = (quantity + ?) > 0", delta).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", productID)
	if delta < 0 {
		query = query.Where("quantity >= ?", -delta)
	}
	return query
}

// stamp returns creation and update times for a new row
func stamp(created time.Time) (time.Time, time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		created = now
	}
	return created, now
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

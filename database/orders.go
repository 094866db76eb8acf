package database

import (
	"context"
	"errors"
	"fmt"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrderRepository is the Postgres implementation of the order store
type OrderRepository struct {
	db bun.IDB
}

func NewOrderRepository(db bun.IDB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithStock inserts the order and its items and takes the ordered
// quantities out of stock, all in one transaction.
func (r *OrderRepository) CreateWithStock(ctx context.Context, order *tables.Order) error {
	if order.Id == uuid.Nil {
		order.Id = uuid.New()
	}
	order.CreatedAt, order.UpdatedAt = stamp(order.CreatedAt)
	for i := range order.Items {
		if order.Items[i].Id == uuid.Nil {
			order.Items[i].Id = uuid.New()
		}
		order.Items[i].OrderId = order.Id
	}

	err := Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range order.Items {
			if err := adjustStock(ctx, tx, item.ProductId, -item.Quantity); err != nil {
				if errors.Is(err, lib.ErrInsufficientStock) {
					return fmt.Errorf("%w for %s", lib.ErrInsufficientStock, item.ProductName)
				}
				return err
			}
		}

		if _, err := Query[tables.Order](tx).Insert(ctx, order); err != nil {
			return err
		}

		items, err := Query[tables.OrderItem](tx).InsertMany(ctx, order.Items)
		if err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	return lib.MapPgError(err)
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*tables.Order, error) {
	order, err := ExcludeSoftDeleted(Query[tables.Order](r.db)).
		Where("id", id).
		Relation("Items").
		First(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if order == nil {
		return nil, lib.ErrOrderNotFound
	}
	return order, nil
}

// List returns a page of orders, newest first, plus the total match count
func (r *OrderRepository) List(ctx context.Context, opts structs.OrderListOptions) ([]tables.Order, int, error) {
	filtered := func() *QueryBuilder[tables.Order] {
		q := ExcludeSoftDeleted(Query[tables.Order](r.db))
		if opts.Status != "" {
			q = q.Where("status", opts.Status)
		}
		if search := strings.TrimSpace(opts.Search); search != "" {
			pattern := "%" + escapeLike(search) + "%"
			q = q.Or().
				WhereOp("order_number", "ILIKE", pattern).
				WhereOp("customer_name", "ILIKE", pattern).
				WhereOp("customer_email", "ILIKE", pattern).
				End()
		}
		return q
	}

	total, err := filtered().Count(ctx)
	if err != nil {
		return nil, 0, lib.MapPgError(err)
	}

	q := filtered().Relation("Items").OrderBy("created_at", DESC)
	if opts.PageSize > 0 {
		q = q.Limit(opts.PageSize).Offset((max(opts.Page, 1) - 1) * opts.PageSize)
	}
	orders, err := q.All(ctx)
	if err != nil {
		return nil, 0, lib.MapPgError(err)
	}
	return orders, total, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]tables.Order, error) {
	orders, err := ExcludeSoftDeleted(Query[tables.Order](r.db)).
		Where("user_id", userID).
		Relation("Items").
		OrderBy("created_at", DESC).
		All(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	return orders, nil
}

// Transition moves order from its current status to next. The update is
// guarded on the current status so concurrent changes cannot both win.
// When restock is set the ordered quantities go back into stock.
func (r *OrderRepository) Transition(ctx context.Context, order *tables.Order, next tables.OrderStatus, restock bool) error {
	err := Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		n, err := transitionGuard(tx, order).Update(ctx, transitionValues(order, next, restock))
		if err != nil {
			return err
		}
		if n == 0 {
			return lib.ErrInvalidTransition
		}

		if !restock {
			return nil
		}
		for _, item := range order.Items {
			// deleted products simply stay deleted
			if err := adjustStock(ctx, tx, item.ProductId, item.Quantity); err != nil && !errors.Is(err, lib.ErrProductNotFound) {
				return err
			}
		}
		return nil
	})
	return lib.MapPgError(err)
}

// transitionGuard matches the order only while it still has the status it
// was read with, so concurrent transitions cannot both apply
func transitionGuard(db bun.IDB, order *tables.Order) *QueryBuilder[tables.Order] {
	return Query[tables.Order](db).
		Where("id", order.Id).
		Where("status", order.Status).
		WhereNull("deleted_at")
}

func transitionValues(order *tables.Order, next tables.OrderStatus, restock bool) map[string]any {
	values := map[string]any{
		"status":     next,
		"updated_at": time.Now().UTC(),
	}
	if restock && order.PaymentStatus == tables.PaymentStatusPaid {
		values["payment_status"] = tables.PaymentStatusRefunded
	}
	return values
}

// MarkPaid records a successful payment on a pending order
func (r *OrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, reference string) error {
	n, err := Query[tables.Order](r.db).
		Where("id", id).
		Where("status", tables.OrderStatusPending).
		WhereNull("deleted_at").
		Update(ctx, map[string]any{
			"status":            tables.OrderStatusPaid,
			"payment_status":    tables.PaymentStatusPaid,
			"payment_reference": reference,
			"updated_at":        time.Now().UTC(),
		})
	if err != nil {
		return lib.MapPgError(err)
	}
	if n == 0 {
		return lib.ErrOrderNotPayable
	}
	return nil
}

// SetPaymentReference stores a provider reference such as a Stripe intent id
func (r *OrderRepository) SetPaymentReference(ctx context.Context, id uuid.UUID, reference string) error {
	_, err := Query[tables.Order](r.db).Where("id", id).Update(ctx, map[string]any{
		"payment_reference": reference,
		"updated_at":        time.Now().UTC(),
	})
	return lib.MapPgError(err)
}

func (r *OrderRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	n, err := SoftDelete[tables.Order](ctx, r.db, id)
	if err != nil {
		return lib.MapPgError(err)
	}
	if n == 0 {
		return lib.ErrOrderNotFound
	}
	return nil
}

// Stats returns order totals for the admin dashboard. Revenue only counts
// delivered orders.
func (r *OrderRepository) Stats(ctx context.Context) (total, pending int, revenue int64, err error) {
	var row struct {
		Total   int   `bun:"total"`
		Pending int   `bun:"pending"`
		Revenue int64 `bun:"revenue"`
	}

	err = WithRetry(ctx, func() error {
		return statsQuery(r.db).Scan(ctx, &row)
	})
	if err != nil {
		return 0, 0, 0, lib.MapPgError(err)
	}
	return row.Total, row.Pending, row.Revenue, nil
}

// statsQuery counts live orders. Revenue only includes delivered orders.
func statsQuery(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().
		Model((*tables.Order)(nil)).
		ColumnExpr("count(*) AS total").
		ColumnExpr("count(*) FILTER (WHERE status = ?) AS pending", tables.OrderStatusPending).
		ColumnExpr("coalesce(sum(total_amount) FILTER (WHERE status = ?), 0) AS revenue", tables.OrderStatusDelivered).
		Where("deleted_at IS NULL")
}

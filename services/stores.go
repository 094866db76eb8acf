package services

import (
	"context"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"time"

	"github.com/google/uuid"
)

// ProductStore is the catalog persistence the services depend on.
// database.ProductRepository is the Postgres implementation.
type ProductStore interface {
	List(ctx context.Context, opts structs.ProductListOptions) ([]tables.Product, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*tables.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]tables.Product, error)
	Create(ctx context.Context, product *tables.Product) error
	Update(ctx context.Context, product *tables.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	CountLowStock(ctx context.Context, threshold int) (int, error)
	CountByCategory(ctx context.Context) (map[structs.Category]int, error)
}

type OrderStore interface {
	CreateWithStock(ctx context.Context, order *tables.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*tables.Order, error)
	List(ctx context.Context, opts structs.OrderListOptions) ([]tables.Order, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]tables.Order, error)
	Transition(ctx context.Context, order *tables.Order, next tables.OrderStatus, restock bool) error
	MarkPaid(ctx context.Context, id uuid.UUID, reference string) error
	SetPaymentReference(ctx context.Context, id uuid.UUID, reference string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (total, pending int, revenue int64, err error)
}

type UserStore interface {
	Create(ctx context.Context, user *tables.User) error
	GetByEmail(ctx context.Context, email string) (*tables.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*tables.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateCredentials(ctx context.Context, id uuid.UUID, passwordHash, role string) error
}

// ImageStore keeps product images in object storage
type ImageStore interface {
	Upload(ctx context.Context, key string, img *structs.ProductImage) (string, error)
	Remove(ctx context.Context, key string) error
}

// EventPublisher announces committed orders to downstream consumers
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *structs.OrderCreatedEvent) error
}

// Sender delivers a rendered HTML email
type Sender interface {
	Send(ctx context.Context, to []string, subject, html string) error
}

// PaymentGateway creates provider side payments for an order
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, order *tables.Order, currency string) (*PaymentIntent, error)
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type noopPublisher struct{}

func (noopPublisher) PublishOrderCreated(context.Context, *structs.OrderCreatedEvent) error {
	return nil
}

package tables

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	Id          uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	OrderNumber string     `bun:"order_number,notnull,unique" json:"order_number"`
	UserId      *uuid.UUID `bun:"user_id,type:uuid" json:"user_id,omitempty"` // nil for guest orders

	// Customer data, phone and address are AES-GCM encrypted at rest
	CustomerName    string `bun:"customer_name,notnull" json:"customer_name"`
	CustomerEmail   string `bun:"customer_email,notnull" json:"customer_email"`
	CustomerPhone   string `bun:"customer_phone,notnull" json:"customer_phone"`
	DeliveryAddress string `bun:"delivery_address,notnull" json:"delivery_address"`
	Notes           string `bun:"notes" json:"notes,omitempty"`

	// Money in cents
	Subtotal    int64 `bun:"subtotal,notnull" json:"subtotal"`
	Shipping    int64 `bun:"shipping,notnull" json:"shipping"`
	Tax         int64 `bun:"tax,notnull" json:"tax"`
	TotalAmount int64 `bun:"total_amount,notnull" json:"total_amount"`

	Status           OrderStatus   `bun:"status,notnull,default:'pending'" json:"status"`
	PaymentStatus    PaymentStatus `bun:"payment_status,notnull,default:'unpaid'" json:"payment_status"`
	PaymentReference string        `bun:"payment_reference" json:"payment_reference,omitempty"`

	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`

	Items []OrderItem `bun:"rel:has-many,join:id=order_id" json:"items"`
}

// OwnedBy reports whether the order belongs to the given user
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserId != nil && *o.UserId == userID
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	Id        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	OrderId   uuid.UUID `bun:"order_id,notnull,type:uuid" json:"order_id"`
	ProductId uuid.UUID `bun:"product_id,notnull,type:uuid" json:"product_id"`

	// Snapshot of the product at time of order
	ProductName string `bun:"product_name,notnull" json:"product_name"`
	Quantity    int    `bun:"quantity,notnull" json:"quantity"`
	Price       int64  `bun:"price,notnull" json:"price"` // unit price in cents
	Total       int64  `bun:"total,notnull" json:"total"` // quantity * price
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo reports whether s may move to next. Staying put is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return s.Valid()
	}
	return slices.Contains(orderTransitions[s], next)
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

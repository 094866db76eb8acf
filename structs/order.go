package structs

import "github.com/google/uuid"

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`

	// Sent by the storefront but recomputed server-side
	ProductName string  `json:"product_name,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Total       float64 `json:"total,omitempty"`
}

type OrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerEmail   string             `json:"customer_email" validate:"required,email"`
	CustomerPhone   string             `json:"customer_phone" validate:"required,min=6,max=20"`
	DeliveryAddress string             `json:"delivery_address" validate:"required,min=5,max=500"`
	Notes           string             `json:"notes,omitempty" validate:"omitempty,max=500"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`

	// Client-computed totals, ignored
	Subtotal    float64 `json:"subtotal,omitempty"`
	Shipping    float64 `json:"shipping,omitempty"`
	Tax         float64 `json:"tax,omitempty"`
	TotalAmount float64 `json:"total_amount,omitempty"`
	Status      string  `json:"status,omitempty"`
}

// CheckoutRequest converts the caller's server-side cart into an order
type CheckoutRequest struct {
	CustomerName    string `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	CustomerPhone   string `json:"customer_phone" validate:"required,min=6,max=20"`
	DeliveryAddress string `json:"delivery_address" validate:"required,min=5,max=500"`
	Notes           string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid delivered cancelled"`
}

type PaymentRequest struct {
	CardNumber string `json:"card_number" validate:"required,min=12,max=23"`
	CardName   string `json:"card_name" validate:"required,min=2,max=100"`
	Expiry     string `json:"expiry" validate:"required,len=5"`
	CVV        string `json:"cvv" validate:"required,min=3,max=4,numeric"`
}

type OrderListOptions struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

type OrderStats struct {
	TotalProducts int   `json:"total_products"`
	TotalOrders   int   `json:"total_orders"`
	PendingOrders int   `json:"pending_orders"`
	LowStockCount int   `json:"low_stock_count"`
	Revenue       int64 `json:"revenue"`
}

// OrderCreatedEvent is published once an order is committed
type OrderCreatedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	UserID      *uuid.UUID       `json:"user_id,omitempty"`
	Email       string           `json:"email"`
	TotalAmount int64            `json:"total_amount"`
	Items       []OrderEventItem `json:"items"`
	CreatedAt   string           `json:"created_at"`
}

type OrderEventItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

package structs

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrItemNotInCart   = errors.New("product is not in the cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// CartItem is a product snapshot plus the requested quantity.
// Quantity is always between 1 and Stock.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category,omitempty"`
	Price     int64     `json:"price"` // cents
	ImageURL  string    `json:"image_url,omitempty"`
	Stock     int       `json:"stock"`
	Quantity  int       `json:"quantity"`
}

func (i CartItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

type Cart struct {
	UserID    uuid.UUID  `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(userID uuid.UUID) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}}
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	return slices.IndexFunc(c.Items, func(i CartItem) bool {
		return i.ProductID == productID
	})
}

// Add puts qty units of the product in the cart, merging with an existing
// line. The resulting quantity is capped at the product's stock.
func (c *Cart) Add(product CartItem, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if product.Stock <= 0 {
		return ErrOutOfStock
	}

	if idx := c.indexOf(product.ProductID); idx >= 0 {
		existing := c.Items[idx]
		product.Quantity = min(existing.Quantity+qty, product.Stock)
		c.Items[idx] = product
	} else {
		product.Quantity = min(qty, product.Stock)
		c.Items = append(c.Items, product)
	}

	c.touch()
	return nil
}

// Increment raises the quantity by one unless the line is already at stock.
func (c *Cart) Increment(productID uuid.UUID) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrItemNotInCart
	}
	if c.Items[idx].Quantity < c.Items[idx].Stock {
		c.Items[idx].Quantity++
		c.touch()
	}
	return nil
}

// Decrement lowers the quantity by one while it is above 1; at 1 it is a no-op.
func (c *Cart) Decrement(productID uuid.UUID) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrItemNotInCart
	}
	if c.Items[idx].Quantity > 1 {
		c.Items[idx].Quantity--
		c.touch()
	}
	return nil
}

func (c *Cart) Remove(productID uuid.UUID) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrItemNotInCart
	}
	c.Items = slices.Delete(c.Items, idx, idx+1)
	c.touch()
	return nil
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.touch()
}

// Reconcile refreshes every line from the catalog. Lines whose product is
// gone or sold out are dropped and quantities are clamped to current stock.
// It reports whether anything changed.
func (c *Cart) Reconcile(lookup func(uuid.UUID) (CartItem, bool)) bool {
	changed := false
	kept := c.Items[:0]
	for _, item := range c.Items {
		current, ok := lookup(item.ProductID)
		if !ok || current.Stock <= 0 {
			changed = true
			continue
		}
		current.Quantity = min(item.Quantity, current.Stock)
		if current != item {
			changed = true
		}
		kept = append(kept, current)
	}
	c.Items = kept
	if changed {
		c.touch()
	}
	return changed
}

func (c *Cart) Subtotal() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// ItemCount is the number of units across all lines
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}

type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,min=1,max=1000"`
}

package tables

import (
	"perfumery_server/structs"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          uuid.UUID        `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Name        string           `bun:"name,notnull" json:"name"`
	Description string           `bun:"description,notnull" json:"description"`
	Category    structs.Category `bun:"category,notnull" json:"category"`
	Price       int64            `bun:"price,notnull" json:"price"` // stored in cents
	Quantity    int              `bun:"quantity,notnull" json:"quantity"`
	InStock     bool             `bun:"in_stock,notnull" json:"instock"`
	Rating      float64          `bun:"rating,notnull" json:"rating"`
	ImageURL    string           `bun:"image_url" json:"image,omitempty"`
	ImageKey    string           `bun:"image_key" json:"-"` // object storage key
	LowStock    bool             `bun:"-" json:"low_stock"`
	CreatedAt   time.Time        `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time        `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// SyncStock keeps InStock consistent with Quantity
func (p *Product) SyncStock() {
	if p.Quantity < 0 {
		p.Quantity = 0
	}
	p.InStock = p.Quantity > 0
}

// MarkLowStock sets LowStock for stock that is positive but under threshold
func (p *Product) MarkLowStock(threshold int) {
	p.LowStock = p.Quantity > 0 && p.Quantity < threshold
}

func (p *Product) CartItem() structs.CartItem {
	return structs.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Stock:     p.Quantity,
	}
}

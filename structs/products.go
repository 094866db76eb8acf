package structs

import "slices"

// Category is the scent family a perfume belongs to
type Category string

const (
	CategoryOceanic  Category = "oceanic"
	CategoryOriental Category = "oriental"
	CategoryFloral   Category = "floral"
	CategoryFresh    Category = "fresh"
	CategoryWoody    Category = "woody"

	// CategoryAll disables category filtering in listings
	CategoryAll Category = "all"
)

var Categories = []Category{
	CategoryOceanic,
	CategoryOriental,
	CategoryFloral,
	CategoryFresh,
	CategoryWoody,
}

func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortName      ProductSort = "name"
	SortRating    ProductSort = "rating"
)

// ProductListOptions holds the catalog filters parsed from a listing request
type ProductListOptions struct {
	Category Category    `json:"category,omitempty"`
	Search   string      `json:"search,omitempty"`
	MinPrice *int64      `json:"min_price,omitempty"`
	MaxPrice *int64      `json:"max_price,omitempty"`
	InStock  *bool       `json:"in_stock,omitempty"`
	Sort     ProductSort `json:"sort"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// ProductInput is the admin payload for creating or updating a product.
// Nil fields are left untouched on update.
type ProductInput struct {
	Name        *string   `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Category    *Category `json:"category" validate:"omitempty,oneof=oceanic oriental floral fresh woody"`
	Price       *int64    `json:"price" validate:"omitempty,gte=0"`
	Quantity    *int      `json:"quantity" validate:"omitempty,gte=0"`
	InStock     *bool     `json:"instock"`
	Rating      *float64  `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ImageURL    *string   `json:"image_url" validate:"omitempty,url"`
}

// ProductImage is an uploaded image waiting to be stored
type ProductImage struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

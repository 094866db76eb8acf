package services

import (
	"context"
	"fmt"
	"perfumery_server/database"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

type ProductService struct {
	logger        *gecho.Logger
	shop          *structs.ShopConfig
	maxImageBytes int64
	products      ProductStore
	cacheService  *CacheService
	images        ImageStore
}

// NewProductService wires the catalog. images may be nil when object storage
// is disabled; image uploads then fail with ErrStorageUnavailable.
func NewProductService(logger *gecho.Logger, cfg *structs.Config, products ProductStore, cacheService *CacheService, images ImageStore) *ProductService {
	return &ProductService{
		logger:        logger,
		shop:          cfg.Shop,
		maxImageBytes: cfg.Storage.MaxImageBytes,
		products:      products,
		cacheService:  cacheService,
		images:        images,
	}
}

// ProductListResult wraps the product list response with metadata
type ProductListResult struct {
	Products   []tables.Product           `json:"products"`
	Pagination database.Pagination        `json:"pagination"`
	Filters    structs.ProductListOptions `json:"filters"`
}

// List returns one page of the catalog. Results are cached per filter set.
func (ps *ProductService) List(ctx context.Context, opts structs.ProductListOptions) (*ProductListResult, error) {
	startTime := time.Now()

	if opts.Category != "" && opts.Category != structs.CategoryAll && !opts.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", lib.ErrInvalid, opts.Category)
	}
	if opts.MinPrice != nil && opts.MaxPrice != nil && *opts.MinPrice > *opts.MaxPrice {
		return nil, fmt.Errorf("%w: min_price is greater than max_price", lib.ErrInvalid)
	}
	if opts.Sort == "" {
		opts.Sort = structs.SortNewest
	}
	opts.Search = strings.TrimSpace(opts.Search)
	opts.Page, opts.PageSize = database.NormalizePage(opts.Page, opts.PageSize, ps.shop.DefaultPageSize, ps.shop.MaxPageSize)

	cached, err := ps.cacheService.GetProductList(ctx, opts)
	if err != nil {
		ps.logger.Warn("Failed to get product list from cache", gecho.Field("error", err))
	} else if cached != nil {
		ps.logger.Debug("Product list served from cache", gecho.Field("page", opts.Page))
		return cached, nil
	}

	products, total, err := ps.products.List(ctx, opts)
	if err != nil {
		ps.logger.Error("Failed to fetch products",
			gecho.Field("error", err),
			gecho.Field("page", opts.Page),
			gecho.Field("page_size", opts.PageSize),
			gecho.Field("duration", time.Since(startTime)),
		)
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	for i := range products {
		products[i].MarkLowStock(ps.shop.LowStockThreshold)
	}

	result := &ProductListResult{
		Products:   products,
		Pagination: database.NewPagination(opts.Page, opts.PageSize, total),
		Filters:    opts,
	}

	if err := ps.cacheService.SetProductList(ctx, opts, result); err != nil {
		ps.logger.Warn("Failed to cache product list", gecho.Field("error", err))
	}

	ps.logger.Debug("Products fetched successfully",
		gecho.Field("count", len(products)),
		gecho.Field("total", total),
		gecho.Field("duration", time.Since(startTime)),
	)
	return result, nil
}

// Get returns a single product, read through the cache
func (ps *ProductService) Get(ctx context.Context, id uuid.UUID) (*tables.Product, error) {
	cached, err := ps.cacheService.GetProduct(ctx, id)
	if err != nil {
		ps.logger.Warn("Failed to get product from cache", gecho.Field("error", err), gecho.Field("id", id))
	} else if cached != nil {
		cached.MarkLowStock(ps.shop.LowStockThreshold)
		return cached, nil
	}

	product, err := ps.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	product.MarkLowStock(ps.shop.LowStockThreshold)

	if err := ps.cacheService.SetProduct(ctx, product); err != nil {
		ps.logger.Warn("Failed to cache product", gecho.Field("error", err), gecho.Field("id", id))
	}
	return product, nil
}

// GetMany loads products by id straight from the store, keyed by id
func (ps *ProductService) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]tables.Product, error) {
	products, err := ps.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]tables.Product, len(products))
	for _, p := range products {
		p.MarkLowStock(ps.shop.LowStockThreshold)
		byID[p.ID] = p
	}
	return byID, nil
}

// Counts returns the catalog size and the number of low-stock products
func (ps *ProductService) Counts(ctx context.Context) (total, lowStock int, err error) {
	total, err = ps.products.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	lowStock, err = ps.products.CountLowStock(ctx, ps.shop.LowStockThreshold)
	if err != nil {
		return 0, 0, err
	}
	return total, lowStock, nil
}

// Categories lists every category with its product count, zero counts included
func (ps *ProductService) Categories(ctx context.Context) ([]structs.CategoryCount, error) {
	cached, err := ps.cacheService.GetCategoryCounts(ctx)
	if err != nil {
		ps.logger.Warn("Failed to get categories from cache", gecho.Field("error", err))
	} else if cached != nil {
		return cached, nil
	}

	counts, err := ps.products.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]structs.CategoryCount, 0, len(structs.Categories))
	for _, c := range structs.Categories {
		result = append(result, structs.CategoryCount{Category: c, Count: counts[c]})
	}

	if err := ps.cacheService.SetCategoryCounts(ctx, result); err != nil {
		ps.logger.Warn("Failed to cache categories", gecho.Field("error", err))
	}
	return result, nil
}

// Create adds a product. Name and price are required. A missing category
// falls back to the shop default. The image is optional and goes to object storage.
func (ps *ProductService) Create(ctx context.Context, input *structs.ProductInput, image *structs.ProductImage) (*tables.Product, error) {
	startTime := time.Now()

	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", lib.ErrInvalid)
	}
	if input.Category == nil {
		if !ps.shop.DefaultCategory.Valid() {
			return nil, fmt.Errorf("%w: category is required", lib.ErrInvalid)
		}
		category := ps.shop.DefaultCategory
		input.Category = &category
	}
	if input.Price == nil {
		return nil, fmt.Errorf("%w: price is required", lib.ErrInvalid)
	}

	product := &tables.Product{}
	applyProductInput(product, input)

	if image != nil {
		if err := ps.storeImage(ctx, product, image); err != nil {
			return nil, err
		}
	}

	if err := ps.products.Create(ctx, product); err != nil {
		ps.logger.Error("Failed to create product",
			gecho.Field("error", err),
			gecho.Field("product_name", product.Name),
			gecho.Field("duration", time.Since(startTime)),
		)
		ps.removeImage(ctx, product.ImageKey)
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	product.MarkLowStock(ps.shop.LowStockThreshold)

	ps.invalidate(ctx, product.ID)

	ps.logger.Info("Product created successfully",
		gecho.Field("id", product.ID),
		gecho.Field("duration", time.Since(startTime)),
	)
	return product, nil
}

// Update applies the non-nil fields of input. A new image replaces the old
// stored object once the row is saved.
func (ps *ProductService) Update(ctx context.Context, id uuid.UUID, input *structs.ProductInput, image *structs.ProductImage) (*tables.Product, error) {
	product, err := ps.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", lib.ErrInvalid)
	}

	oldKey := product.ImageKey
	applyProductInput(product, input)
	if image != nil {
		if err := ps.storeImage(ctx, product, image); err != nil {
			return nil, err
		}
	}

	if err := ps.products.Update(ctx, product); err != nil {
		if product.ImageKey != oldKey {
			ps.removeImage(ctx, product.ImageKey)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if product.ImageKey != oldKey {
		ps.removeImage(ctx, oldKey)
	}
	product.MarkLowStock(ps.shop.LowStockThreshold)

	ps.invalidate(ctx, id)
	ps.logger.Info("Product updated successfully", gecho.Field("id", id))
	return product, nil
}

// Delete removes the product and its stored image
func (ps *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := ps.products.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := ps.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	ps.removeImage(ctx, product.ImageKey)

	ps.invalidate(ctx, id)
	ps.logger.Info("Product deleted successfully", gecho.Field("id", id))
	return nil
}

// Invalidate drops cached entries for the given products and all listings
func (ps *ProductService) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	ps.invalidate(ctx, ids...)
}

func (ps *ProductService) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if err := ps.cacheService.InvalidateProductCaches(ctx, ids...); err != nil {
		ps.logger.Warn("Failed to invalidate product caches", gecho.Field("error", err))
	}
}

func (ps *ProductService) storeImage(ctx context.Context, product *tables.Product, image *structs.ProductImage) error {
	if ps.images == nil {
		return lib.ErrStorageUnavailable
	}
	if err := checkImage(image, ps.maxImageBytes); err != nil {
		return err
	}

	key, err := lib.ImageObjectKey(product.Name, image.Filename)
	if err != nil {
		return err
	}
	url, err := ps.images.Upload(ctx, key, image)
	if err != nil {
		ps.logger.Error("Failed to upload product image", gecho.Field("error", err), gecho.Field("key", key))
		return fmt.Errorf("failed to upload image: %w", err)
	}

	product.ImageKey = key
	product.ImageURL = url
	return nil
}

func (ps *ProductService) removeImage(ctx context.Context, key string) {
	if key == "" || ps.images == nil {
		return
	}
	if err := ps.images.Remove(ctx, key); err != nil {
		ps.logger.Warn("Failed to remove product image", gecho.Field("error", err), gecho.Field("key", key))
	}
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

func checkImage(image *structs.ProductImage, maxBytes int64) error {
	if !allowedImageTypes[image.ContentType] {
		return fmt.Errorf("%w: %s", lib.ErrUnsupportedImageType, image.ContentType)
	}
	if maxBytes > 0 && (image.Size > maxBytes || int64(len(image.Data)) > maxBytes) {
		return lib.ErrImageTooLarge
	}
	if len(image.Data) == 0 {
		return fmt.Errorf("%w: image is empty", lib.ErrInvalid)
	}
	return nil
}

// applyProductInput copies the set fields of input onto product
func applyProductInput(product *tables.Product, input *structs.ProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
	if input.Rating != nil {
		product.Rating = *input.Rating
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
		product.ImageKey = ""
	}
	// in_stock follows quantity; an explicit false hides the product from sale
	if input.InStock != nil && !*input.InStock {
		product.Quantity = 0
	}
	product.SyncStock()
}

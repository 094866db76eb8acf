package services

import (
	"context"
	"fmt"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

// CartService keeps one cart per user in Redis. Every read refreshes the
// lines against the catalog before the cart is returned or changed.
type CartService struct {
	logger         *gecho.Logger
	cfg            *structs.Config
	cacheService   *CacheService
	productService *ProductService
	orderService   *OrderService
}

func NewCartService(logger *gecho.Logger, cfg *structs.Config, cacheService *CacheService, productService *ProductService, orderService *OrderService) *CartService {
	return &CartService{
		logger:         logger,
		cfg:            cfg,
		cacheService:   cacheService,
		productService: productService,
		orderService:   orderService,
	}
}

type CartView struct {
	*structs.Cart
	ItemCount int        `json:"item_count"`
	Totals    lib.Totals `json:"totals"`
}

func (cs *CartService) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := cs.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cs.view(cart), nil
}

// Add puts quantity units of a product in the cart, capped at its stock
func (cs *CartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartView, error) {
	if quantity == 0 {
		quantity = 1
	}

	product, err := cs.productService.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	return cs.mutate(ctx, userID, func(cart *structs.Cart) error {
		return cart.Add(product.CartItem(), quantity)
	})
}

func (cs *CartService) Increment(ctx context.Context, userID, productID uuid.UUID) (*CartView, error) {
	return cs.mutate(ctx, userID, func(cart *structs.Cart) error {
		return cart.Increment(productID)
	})
}

func (cs *CartService) Decrement(ctx context.Context, userID, productID uuid.UUID) (*CartView, error) {
	return cs.mutate(ctx, userID, func(cart *structs.Cart) error {
		return cart.Decrement(productID)
	})
}

func (cs *CartService) Remove(ctx context.Context, userID, productID uuid.UUID) (*CartView, error) {
	return cs.mutate(ctx, userID, func(cart *structs.Cart) error {
		return cart.Remove(productID)
	})
}

func (cs *CartService) Clear(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart := structs.NewCart(userID)
	if err := cs.cacheService.Delete(ctx, cartKey(userID)); err != nil {
		return nil, err
	}
	return cs.view(cart), nil
}

// Checkout turns the cart into an order for the user and empties the cart
func (cs *CartService) Checkout(ctx context.Context, userID uuid.UUID, req *structs.CheckoutRequest) (*tables.Order, error) {
	cart, err := cs.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, lib.ErrEmptyCart
	}

	orderReq := &structs.OrderRequest{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}
	for _, item := range cart.Items {
		orderReq.Items = append(orderReq.Items, structs.OrderItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := cs.orderService.CreateOrder(ctx, orderReq, &userID)
	if err != nil {
		return nil, err
	}

	if err := cs.cacheService.Delete(ctx, cartKey(userID)); err != nil {
		cs.logger.Warn("Failed to clear cart after checkout", gecho.Field("error", err), gecho.Field("user_id", userID))
	}
	return order, nil
}

func (cs *CartService) mutate(ctx context.Context, userID uuid.UUID, fn func(*structs.Cart) error) (*CartView, error) {
	cart, err := cs.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	if err := cs.save(ctx, cart); err != nil {
		return nil, err
	}
	return cs.view(cart), nil
}

// load reads the cart and reconciles it with current prices and stock
func (cs *CartService) load(ctx context.Context, userID uuid.UUID) (*structs.Cart, error) {
	cart, err := getJSON[structs.Cart](ctx, cs.cacheService, cartKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return structs.NewCart(userID), nil
	}
	if cart.Items == nil {
		cart.Items = []structs.CartItem{}
	}
	if cart.IsEmpty() {
		return cart, nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := cs.productService.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	changed := cart.Reconcile(func(id uuid.UUID) (structs.CartItem, bool) {
		p, ok := products[id]
		if !ok {
			return structs.CartItem{}, false
		}
		return p.CartItem(), true
	})
	if changed {
		cs.logger.Debug("Cart reconciled with catalog", gecho.Field("user_id", userID))
		if err := cs.save(ctx, cart); err != nil {
			return nil, err
		}
	}
	return cart, nil
}

func (cs *CartService) save(ctx context.Context, cart *structs.Cart) error {
	if cart.IsEmpty() {
		return cs.cacheService.Delete(ctx, cartKey(cart.UserID))
	}
	return setJSON(ctx, cs.cacheService, cartKey(cart.UserID), cart, cs.cfg.Cache.CartTTL)
}

func (cs *CartService) view(cart *structs.Cart) *CartView {
	return &CartView{
		Cart:      cart,
		ItemCount: cart.ItemCount(),
		Totals:    lib.ComputeTotals(cart.Subtotal(), cs.cfg.Shop.ShippingFlatCents, cs.cfg.Shop.TaxRateBps),
	}
}

func cartKey(userID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", userID)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"perfumery_server/database"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const orderNumberAttempts = 3

type OrderService struct {
	logger         *gecho.Logger
	cfg            *structs.Config
	orders         OrderStore
	productService *ProductService
	emailService   *EmailService
	publisher      EventPublisher
	cipher         *lib.FieldCipher
}

func NewOrderService(
	logger *gecho.Logger,
	cfg *structs.Config,
	orders OrderStore,
	productService *ProductService,
	emailService *EmailService,
	publisher EventPublisher,
	cipher *lib.FieldCipher,
) *OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &OrderService{
		logger:         logger,
		cfg:            cfg,
		orders:         orders,
		productService: productService,
		emailService:   emailService,
		publisher:      publisher,
		cipher:         cipher,
	}
}

type OrderListResult struct {
	Orders     []tables.Order      `json:"orders"`
	Pagination database.Pagination `json:"pagination"`
}

// CreateOrder prices the request from the catalog, takes the stock and stores
// the order. Client supplied names, prices and totals are ignored.
func (os *OrderService) CreateOrder(ctx context.Context, req *structs.OrderRequest, userID *uuid.UUID) (*tables.Order, error) {
	startTime := time.Now()

	lines := mergeOrderLines(req.Items)
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	products, err := os.productService.GetMany(ctx, ids)
	if err != nil {
		os.logger.Error("Failed to fetch products for order", gecho.Field("error", err))
		return nil, err
	}

	items := make([]tables.OrderItem, 0, len(lines))
	var subtotal int64
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", lib.ErrProductNotFound, line.ProductID)
		}
		if line.Quantity > product.Quantity {
			return nil, fmt.Errorf("%w for %s: %d requested, %d available",
				lib.ErrInsufficientStock, product.Name, line.Quantity, product.Quantity)
		}

		total := product.Price * int64(line.Quantity)
		subtotal += total
		items = append(items, tables.OrderItem{
			ProductId:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Price:       product.Price,
			Total:       total,
		})
	}
	totals := lib.ComputeTotals(subtotal, os.cfg.Shop.ShippingFlatCents, os.cfg.Shop.TaxRateBps)

	address := strings.TrimSpace(req.DeliveryAddress)
	encPhone, err := os.cipher.Encrypt(strings.TrimSpace(req.CustomerPhone))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}
	encAddress, err := os.cipher.Encrypt(address)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt address: %w", err)
	}

	order := &tables.Order{
		UserId:          userID,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone:   encPhone,
		DeliveryAddress: encAddress,
		Notes:           strings.TrimSpace(req.Notes),
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		TotalAmount:     totals.Total,
		Status:          tables.OrderStatusPending,
		PaymentStatus:   tables.PaymentStatusUnpaid,
		Items:           items,
	}

	// order numbers are random, so a collision just means drawing again
	for attempt := 1; ; attempt++ {
		order.OrderNumber = lib.GenerateOrderNumber()
		err = os.orders.CreateWithStock(ctx, order)
		if err == nil || !lib.IsUniqueViolation(err) || attempt == orderNumberAttempts {
			break
		}
		os.logger.Warn("Order number collision, retrying", gecho.Field("order_number", order.OrderNumber))
	}
	if err != nil {
		if !errors.Is(err, lib.ErrInsufficientStock) {
			os.logger.Error("Failed to create order", gecho.Field("error", err))
		}
		return nil, err
	}

	os.productService.Invalidate(ctx, ids...)
	os.afterCreate(ctx, order, address)

	os.logger.Info("Order created",
		gecho.Field("order_number", order.OrderNumber),
		gecho.Field("items", len(order.Items)),
		gecho.Field("total", order.TotalAmount),
		gecho.Field("duration", time.Since(startTime)),
	)
	return os.reveal(order), nil
}

// afterCreate publishes the event and mails the confirmation in the
// background. Neither can fail the order.
func (os *OrderService) afterCreate(ctx context.Context, order *tables.Order, address string) {
	ctx, cancel := detach(ctx)

	event := &structs.OrderCreatedEvent{
		OrderID:     order.Id,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserId,
		Email:       order.CustomerEmail,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, structs.OrderEventItem{ProductID: item.ProductId, Quantity: item.Quantity})
	}
	snapshot := *order
	snapshot.Items = append([]tables.OrderItem(nil), order.Items...)

	go func() {
		defer cancel()
		if err := os.publisher.PublishOrderCreated(ctx, event); err != nil {
			os.logger.Warn("Failed to publish order event", gecho.Field("error", err), gecho.Field("order_number", event.OrderNumber))
		}
		if os.emailService == nil {
			return
		}
		if err := os.emailService.SendOrderConfirmationEmail(ctx, &snapshot, address); err != nil {
			os.logger.Warn("Failed to send order confirmation", gecho.Field("order_number", snapshot.OrderNumber))
		}
	}()
}

// GetOrder returns the order if claims may see it
func (os *OrderService) GetOrder(ctx context.Context, id uuid.UUID, claims *structs.AuthClaims) (*tables.Order, error) {
	order, err := os.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccessOrder(order, claims) {
		// same answer as a missing order so ids cannot be probed
		return nil, lib.ErrOrderNotFound
	}
	return os.reveal(order), nil
}

func (os *OrderService) ListOrders(ctx context.Context, opts structs.OrderListOptions) (*OrderListResult, error) {
	if opts.Status != "" && !tables.OrderStatus(opts.Status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", lib.ErrInvalid, opts.Status)
	}
	opts.Page, opts.PageSize = database.NormalizePage(opts.Page, opts.PageSize, os.cfg.Shop.DefaultPageSize, os.cfg.Shop.MaxPageSize)

	orders, total, err := os.orders.List(ctx, opts)
	if err != nil {
		os.logger.Error("Failed to list orders", gecho.Field("error", err))
		return nil, err
	}
	for i := range orders {
		os.reveal(&orders[i])
	}

	return &OrderListResult{
		Orders:     orders,
		Pagination: database.NewPagination(opts.Page, opts.PageSize, total),
	}, nil
}

func (os *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]tables.Order, error) {
	orders, err := os.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		os.reveal(&orders[i])
	}
	return orders, nil
}

// UpdateOrderStatus moves an order through its lifecycle. Setting the current
// status again is a no-op; cancelling puts the items back in stock.
func (os *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, next tables.OrderStatus) (*tables.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", lib.ErrInvalid, next)
	}

	order, err := os.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == next {
		return os.reveal(order), nil
	}
	if !order.Status.CanTransitionTo(next) {
		os.logger.Debug("Rejected status transition",
			gecho.Field("order_id", id),
			gecho.Field("from", order.Status),
			gecho.Field("to", next),
		)
		return nil, fmt.Errorf("%w: %s to %s", lib.ErrInvalidTransition, order.Status, next)
	}

	restock := next == tables.OrderStatusCancelled
	if err := os.orders.Transition(ctx, order, next, restock); err != nil {
		return nil, err
	}
	if restock {
		ids := make([]uuid.UUID, 0, len(order.Items))
		for _, item := range order.Items {
			ids = append(ids, item.ProductId)
		}
		os.productService.Invalidate(ctx, ids...)
	}

	os.logger.Info("Order status updated",
		gecho.Field("order_number", order.OrderNumber),
		gecho.Field("from", order.Status),
		gecho.Field("to", next),
	)

	updated, err := os.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return os.reveal(updated), nil
}

func (os *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := os.orders.SoftDelete(ctx, id); err != nil {
		return err
	}
	os.logger.Info("Order soft deleted", gecho.Field("order_id", id))
	return nil
}

// Stats gathers the admin dashboard figures
func (os *OrderService) Stats(ctx context.Context) (*structs.OrderStats, error) {
	total, pending, revenue, err := os.orders.Stats(ctx)
	if err != nil {
		return nil, err
	}
	products, lowStock, err := os.productService.Counts(ctx)
	if err != nil {
		return nil, err
	}

	return &structs.OrderStats{
		TotalProducts: products,
		TotalOrders:   total,
		PendingOrders: pending,
		LowStockCount: lowStock,
		Revenue:       revenue,
	}, nil
}

// ReceiptQR renders a PNG QR code with the order number and total
func (os *OrderService) ReceiptQR(ctx context.Context, id uuid.UUID, claims *structs.AuthClaims) ([]byte, error) {
	order, err := os.GetOrder(ctx, id, claims)
	if err != nil {
		return nil, err
	}

	content := fmt.Sprintf("%s|%s %s|%s", order.OrderNumber, lib.FormatCents(order.TotalAmount),
		strings.ToUpper(os.cfg.Shop.Currency), order.Status)
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}

// reveal decrypts the customer contact fields in place
func (os *OrderService) reveal(order *tables.Order) *tables.Order {
	if phone, err := os.cipher.Decrypt(order.CustomerPhone); err == nil {
		order.CustomerPhone = phone
	} else {
		os.logger.Warn("Failed to decrypt customer phone", gecho.Field("order_id", order.Id))
		order.CustomerPhone = ""
	}
	if address, err := os.cipher.Decrypt(order.DeliveryAddress); err == nil {
		order.DeliveryAddress = address
	} else {
		os.logger.Warn("Failed to decrypt delivery address", gecho.Field("order_id", order.Id))
		order.DeliveryAddress = ""
	}
	return order
}

// canAccessOrder lets admins see every order and users their own. Guest
// orders have no owner and are reachable by anyone holding the id.
func canAccessOrder(order *tables.Order, claims *structs.AuthClaims) bool {
	if claims.IsAdmin() {
		return true
	}
	if order.UserId == nil {
		return true
	}
	return claims != nil && order.OwnedBy(claims.Sub)
}

// mergeOrderLines folds duplicate product lines together, keeping first-seen order
func mergeOrderLines(items []structs.OrderItemRequest) []structs.OrderItemRequest {
	merged := make([]structs.OrderItemRequest, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, structs.OrderItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return merged
}

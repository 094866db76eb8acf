package services

import (
	"context"
	"fmt"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

type PaymentService struct {
	logger       *gecho.Logger
	cfg          *structs.Config
	orders       OrderStore
	orderService *OrderService
	gateway      PaymentGateway
	now          func() time.Time
}

// NewPaymentService wires payments. gateway is nil unless a real provider is
// configured, in which case payment intents are unavailable.
func NewPaymentService(logger *gecho.Logger, cfg *structs.Config, orders OrderStore, orderService *OrderService, gateway PaymentGateway) *PaymentService {
	return &PaymentService{
		logger:       logger,
		cfg:          cfg,
		orders:       orders,
		orderService: orderService,
		gateway:      gateway,
		now:          time.Now,
	}
}

// PayWithCard settles a pending order with the demo card form. The card is
// checked for format, checksum and expiry; only its masked number is kept.
func (ps *PaymentService) PayWithCard(ctx context.Context, orderID uuid.UUID, claims *structs.AuthClaims, req *structs.PaymentRequest) (*tables.Order, error) {
	order, err := ps.orderService.GetOrder(ctx, orderID, claims)
	if err != nil {
		return nil, err
	}
	if order.Status != tables.OrderStatusPending {
		return nil, lib.ErrOrderNotPayable
	}

	digits, err := lib.NormalizeCardNumber(req.CardNumber)
	if err != nil {
		return nil, err
	}
	if err := lib.ValidateExpiry(strings.TrimSpace(req.Expiry), ps.now()); err != nil {
		return nil, err
	}
	if err := lib.ValidateCVV(req.CVV); err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("card %s", lib.MaskCardNumber(digits))
	if err := ps.orders.MarkPaid(ctx, orderID, reference); err != nil {
		return nil, err
	}

	ps.logger.Info("Order paid",
		gecho.Field("order_number", order.OrderNumber),
		gecho.Field("amount", order.TotalAmount),
	)
	return ps.orderService.GetOrder(ctx, orderID, claims)
}

// CreatePaymentIntent starts a provider payment for a pending order and
// records the provider reference on it.
func (ps *PaymentService) CreatePaymentIntent(ctx context.Context, orderID uuid.UUID, claims *structs.AuthClaims) (*PaymentIntent, error) {
	if ps.gateway == nil {
		return nil, lib.ErrPaymentUnavailable
	}

	order, err := ps.orderService.GetOrder(ctx, orderID, claims)
	if err != nil {
		return nil, err
	}
	if order.Status != tables.OrderStatusPending {
		return nil, lib.ErrOrderNotPayable
	}

	intent, err := ps.gateway.CreatePaymentIntent(ctx, order, ps.cfg.Shop.Currency)
	if err != nil {
		ps.logger.Error("Failed to create payment intent", gecho.Field("error", err), gecho.Field("order_number", order.OrderNumber))
		return nil, fmt.Errorf("%w: %v", lib.ErrPaymentUnavailable, err)
	}

	if err := ps.orders.SetPaymentReference(ctx, orderID, intent.ID); err != nil {
		ps.logger.Warn("Failed to store payment reference", gecho.Field("error", err), gecho.Field("order_number", order.OrderNumber))
	}
	return intent, nil
}

// StripeGateway creates PaymentIntents through the Stripe API
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, order *tables.Order, currency string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(order.TotalAmount),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		ReceiptEmail: stripe.String(order.CustomerEmail),
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.Id.String())
	params.AddMetadata("order_number", order.OrderNumber)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}

	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
	}, nil
}

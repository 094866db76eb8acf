package services

import (
	"perfumery_server/database"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/redis/go-redis/v9"
)

type ServiceManager struct {
	AuthService    *AuthService
	EmailService   *EmailService
	CacheService   *CacheService
	HealthService  *HealthService
	ProductService *ProductService
	OrderService   *OrderService
	CartService    *CartService
	PaymentService *PaymentService
}

// Dependencies are the optional backends decided at startup. Leave a field
// nil to run without it.
type Dependencies struct {
	Images    ImageStore
	Publisher EventPublisher
	Gateway   PaymentGateway
	Sender    Sender
}

func NewServiceManager(logger *gecho.Logger, cfg *structs.Config, db *database.DB, rdb *redis.Client, cipher *lib.FieldCipher, deps Dependencies) *ServiceManager {
	products := database.NewProductRepository(db)
	orders := database.NewOrderRepository(db)
	users := database.NewUserRepository(db)

	sender := deps.Sender
	if sender == nil {
		sender = NewSender(cfg.Email, logger)
	}

	cacheService := NewCacheService(logger, cfg, rdb)
	emailService := NewEmailService(logger, cfg.Email, sender)
	healthService := NewHealthService(logger, db, cacheService)
	productService := NewProductService(logger, cfg, products, cacheService, deps.Images)
	orderService := NewOrderService(logger, cfg, orders, productService, emailService, deps.Publisher, cipher)
	cartService := NewCartService(logger, cfg, cacheService, productService, orderService)
	paymentService := NewPaymentService(logger, cfg, orders, orderService, deps.Gateway)
	authService := NewAuthService(logger, cfg, users, cacheService, emailService, cipher)

	return &ServiceManager{
		AuthService:    authService,
		EmailService:   emailService,
		CacheService:   cacheService,
		HealthService:  healthService,
		ProductService: productService,
		OrderService:   orderService,
		CartService:    cartService,
		PaymentService: paymentService,
	}
}

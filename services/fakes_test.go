package services

import (
	"context"
	"encoding/base64"
	"perfumery_server/config"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testLogger() *gecho.Logger {
	return gecho.NewLogger(gecho.NewConfig(
		gecho.WithShowCaller(false),
		gecho.WithLogLevel(gecho.ParseLogLevel("error")),
	))
}

func testConfig() *structs.Config {
	cfg := config.Load()
	cfg.Shop.ShippingFlatCents = 1000
	cfg.Shop.TaxRateBps = 800
	cfg.Shop.LowStockThreshold = 20
	cfg.Shop.DefaultPageSize = 20
	cfg.Shop.MaxPageSize = 100
	cfg.Shop.Currency = "usd"
	cfg.Storage.MaxImageBytes = 1 << 20
	cfg.Auth.AccessTokenSecret = "test-access-secret"
	cfg.Auth.RefreshTokenSecret = "test-refresh-secret"
	cfg.Auth.AccessTokenExpiry = 15 * time.Minute
	cfg.Auth.RefreshTokenExpiry = time.Hour
	cfg.Auth.AdminEmail = ""
	cfg.Auth.AdminPassword = ""
	cfg.Cache.CartTTL = time.Hour
	return cfg
}

func testCipher(t *testing.T) *lib.FieldCipher {
	t.Helper()
	c, err := lib.NewFieldCipher(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	if err != nil {
		t.Fatalf("NewFieldCipher() error: %v", err)
	}
	return c
}

func newTestCache(t *testing.T, cfg *structs.Config) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheService(testLogger(), cfg, client), mr
}

// testEnv wires every service over in-memory stores and miniredis
type testEnv struct {
	cfg       *structs.Config
	mr        *miniredis.Miniredis
	cache     *CacheService
	products  *fakeProductStore
	orders    *fakeOrderStore
	users     *fakeUserStore
	images    *fakeImageStore
	publisher *fakePublisher
	sender    *fakeSender

	productService *ProductService
	orderService   *OrderService
	cartService    *CartService
	paymentService *PaymentService
	authService    *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	cache, mr := newTestCache(t, cfg)
	cipher := testCipher(t)
	logger := testLogger()

	env := &testEnv{
		cfg:       cfg,
		mr:        mr,
		cache:     cache,
		products:  newFakeProductStore(),
		users:     newFakeUserStore(),
		images:    &fakeImageStore{objects: map[string][]byte{}},
		publisher: &fakePublisher{events: make(chan *structs.OrderCreatedEvent, 10)},
		sender:    &fakeSender{},
	}
	env.orders = newFakeOrderStore(env.products)

	email := NewEmailService(logger, cfg.Email, env.sender)
	env.productService = NewProductService(logger, cfg, env.products, cache, env.images)
	env.orderService = NewOrderService(logger, cfg, env.orders, env.productService, email, env.publisher, cipher)
	env.cartService = NewCartService(logger, cfg, cache, env.productService, env.orderService)
	env.paymentService = NewPaymentService(logger, cfg, env.orders, env.orderService, nil)
	env.authService = NewAuthService(logger, cfg, env.users, cache, email, cipher)
	env.authService.argon = &structs.ArgonParams{Memory: 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}
	return env
}

func (env *testEnv) addProduct(name string, category structs.Category, price int64, quantity int) *tables.Product {
	p := &tables.Product{
		Name:        name,
		Description: name + " eau de parfum",
		Category:    category,
		Price:       price,
		Quantity:    quantity,
		Rating:      4.5,
	}
	if err := env.products.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

type fakeProductStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]tables.Product
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: map[uuid.UUID]tables.Product{}}
}

func (s *fakeProductStore) List(_ context.Context, opts structs.ProductListOptions) ([]tables.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []tables.Product
	for _, p := range s.products {
		if opts.Category != "" && opts.Category != structs.CategoryAll && p.Category != opts.Category {
			continue
		}
		if opts.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name), strings.ToLower(opts.Search)) &&
			!strings.Contains(strings.ToLower(p.Description), strings.ToLower(opts.Search)) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b tables.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, len(out), nil
}

func (s *fakeProductStore) GetByID(_ context.Context, id uuid.UUID) (*tables.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, lib.ErrProductNotFound
	}
	return &p, nil
}

func (s *fakeProductStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]tables.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tables.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeProductStore) Create(_ context.Context, product *tables.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now().UTC()
	product.UpdatedAt = product.CreatedAt
	product.SyncStock()
	s.products[product.ID] = *product
	return nil
}

func (s *fakeProductStore) Update(_ context.Context, product *tables.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; !ok {
		return lib.ErrProductNotFound
	}
	product.SyncStock()
	s.products[product.ID] = *product
	return nil
}

func (s *fakeProductStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return lib.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *fakeProductStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products), nil
}

func (s *fakeProductStore) CountLowStock(_ context.Context, threshold int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.products {
		if p.Quantity > 0 && p.Quantity < threshold {
			n++
		}
	}
	return n, nil
}

func (s *fakeProductStore) CountByCategory(context.Context) (map[structs.Category]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[structs.Category]int{}
	for _, p := range s.products {
		counts[p.Category]++
	}
	return counts, nil
}

// adjust mirrors the guarded stock update of the Postgres store
func (s *fakeProductStore) adjust(id uuid.UUID, delta int) error {
	p, ok := s.products[id]
	if !ok {
		if delta < 0 {
			return lib.ErrInsufficientStock
		}
		return lib.ErrProductNotFound
	}
	if p.Quantity+delta < 0 {
		return lib.ErrInsufficientStock
	}
	p.Quantity += delta
	p.SyncStock()
	s.products[id] = p
	return nil
}

func (s *fakeProductStore) quantity(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

type fakeOrderStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]tables.Order
	products *fakeProductStore
}

func newFakeOrderStore(products *fakeProductStore) *fakeOrderStore {
	return &fakeOrderStore{orders: map[uuid.UUID]tables.Order{}, products: products}
}

func (s *fakeOrderStore) CreateWithStock(_ context.Context, order *tables.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products.mu.Lock()
	defer s.products.mu.Unlock()

	applied := 0
	for _, item := range order.Items {
		if err := s.products.adjust(item.ProductId, -item.Quantity); err != nil {
			for _, done := range order.Items[:applied] {
				_ = s.products.adjust(done.ProductId, done.Quantity)
			}
			return err
		}
		applied++
	}

	if order.Id == uuid.Nil {
		order.Id = uuid.New()
	}
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	for i := range order.Items {
		order.Items[i].Id = uuid.New()
		order.Items[i].OrderId = order.Id
	}
	s.orders[order.Id] = cloneOrder(*order)
	return nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, id uuid.UUID) (*tables.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.DeletedAt != nil {
		return nil, lib.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *fakeOrderStore) List(_ context.Context, opts structs.OrderListOptions) ([]tables.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tables.Order
	for _, o := range s.orders {
		if o.DeletedAt != nil || (opts.Status != "" && string(o.Status) != opts.Status) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	return out, len(out), nil
}

func (s *fakeOrderStore) ListByUser(_ context.Context, userID uuid.UUID) ([]tables.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tables.Order
	for _, o := range s.orders {
		if o.DeletedAt == nil && o.OwnedBy(userID) {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (s *fakeOrderStore) Transition(_ context.Context, order *tables.Order, next tables.OrderStatus, restock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[order.Id]
	if !ok || current.Status != order.Status {
		return lib.ErrInvalidTransition
	}
	current.Status = next
	if restock {
		if current.PaymentStatus == tables.PaymentStatusPaid {
			current.PaymentStatus = tables.PaymentStatusRefunded
		}
		s.products.mu.Lock()
		for _, item := range order.Items {
			_ = s.products.adjust(item.ProductId, item.Quantity)
		}
		s.products.mu.Unlock()
	}
	s.orders[order.Id] = current
	return nil
}

func (s *fakeOrderStore) MarkPaid(_ context.Context, id uuid.UUID, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != tables.OrderStatusPending {
		return lib.ErrOrderNotPayable
	}
	o.Status = tables.OrderStatusPaid
	o.PaymentStatus = tables.PaymentStatusPaid
	o.PaymentReference = reference
	s.orders[id] = o
	return nil
}

func (s *fakeOrderStore) SetPaymentReference(_ context.Context, id uuid.UUID, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.PaymentReference = reference
	s.orders[id] = o
	return nil
}

func (s *fakeOrderStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.DeletedAt != nil {
		return lib.ErrOrderNotFound
	}
	now := time.Now()
	o.DeletedAt = &now
	s.orders[id] = o
	return nil
}

func (s *fakeOrderStore) Stats(context.Context) (int, int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total, pending int
	var revenue int64
	for _, o := range s.orders {
		if o.DeletedAt != nil {
			continue
		}
		total++
		if o.Status == tables.OrderStatusPending {
			pending++
		}
		if o.Status == tables.OrderStatusDelivered {
			revenue += o.TotalAmount
		}
	}
	return total, pending, revenue, nil
}

func (s *fakeOrderStore) raw(id uuid.UUID) tables.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrder(s.orders[id])
}

func cloneOrder(o tables.Order) tables.Order {
	o.Items = append([]tables.OrderItem(nil), o.Items...)
	return o
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]tables.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]tables.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, user *tables.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.users {
		if u.Email == user.Email {
			return lib.ErrConflict
		}
	}
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	s.users[user.Id] = *user
	return nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*tables.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, lib.ErrNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*tables.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, lib.ErrNotFound
	}
	return &u, nil
}

func (s *fakeUserStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) UpdateCredentials(_ context.Context, id uuid.UUID, passwordHash, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.PasswordHash = passwordHash
	u.Role = role
	s.users[id] = u
	return nil
}

type fakeImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *fakeImageStore) Upload(_ context.Context, key string, img *structs.ProductImage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = img.Data
	return "http://images.test/product-images/" + key, nil
}

func (s *fakeImageStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeImageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakePublisher struct {
	events chan *structs.OrderCreatedEvent
}

func (p *fakePublisher) PublishOrderCreated(_ context.Context, event *structs.OrderCreatedEvent) error {
	p.events <- event
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string

	contexts chan context.Context // optional, receives each send's ctx
}

func (s *fakeSender) Send(ctx context.Context, to []string, subject, _ string) error {
	if s.contexts != nil {
		s.contexts <- ctx
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, subject)
	return nil
}

type fakeGateway struct {
	calls int
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, order *tables.Order, currency string) (*PaymentIntent, error) {
	g.calls++
	return &PaymentIntent{ID: "pi_test_123", ClientSecret: "pi_test_123_secret", Amount: order.TotalAmount, Currency: currency}, nil
}

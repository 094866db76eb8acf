package services

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheRetries = 3

// CacheService provides Redis caching with retry logic
type CacheService struct {
	logger *gecho.Logger
	config *structs.Config
	client *redis.Client
}

func NewCacheService(logger *gecho.Logger, cfg *structs.Config, client *redis.Client) *CacheService {
	return &CacheService{
		logger: logger,
		config: cfg,
		client: client,
	}
}

// NewRedisClient builds a pooled Redis client from config
func NewRedisClient(cfg *structs.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,

		// Connection pool settings
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		PoolTimeout:  cfg.PoolTimeout,

		// Timeouts
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,

		// Retry settings
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	})
}

func (cs *CacheService) Close() error {
	return cs.client.Close()
}

// withRetry executes a Redis operation with exponential backoff and jitter
func (cs *CacheService) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= cacheRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cacheRetries || !isRetryableRedisError(err) {
			break
		}

		backoff := min(100*(1<<attempt), 2000) // ms
		wait := time.Duration(backoff/2+jitter(backoff/2+1)) * time.Millisecond

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if !isRetryableRedisError(lastErr) {
		return lastErr
	}
	return fmt.Errorf("redis operation failed after %d retries: %w", cacheRetries, lastErr)
}

func jitter(n int) int {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return int(binary.BigEndian.Uint32(b[:]) % uint32(n))
}

// isRetryableRedisError reports whether err looks like a network failure
func isRetryableRedisError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
		return false
	}

	errStr := err.Error()
	for _, retryable := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"broken pipe",
		"no such host",
		"network is unreachable",
	} {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}

func (cs *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return cs.withRetry(ctx, func() error {
		return cs.client.Set(ctx, key, value, ttl).Err()
	})
}

// Get returns "" without error when the key does not exist
func (cs *CacheService) Get(ctx context.Context, key string) (string, error) {
	var result string
	err := cs.withRetry(ctx, func() error {
		val, err := cs.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			result = ""
			return nil
		}
		if err != nil {
			return err
		}
		result = val
		return nil
	})
	return result, err
}

func (cs *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return cs.withRetry(ctx, func() error {
		return cs.client.Del(ctx, keys...).Err()
	})
}

func (cs *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	var result bool
	err := cs.withRetry(ctx, func() error {
		count, err := cs.client.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		result = count > 0
		return nil
	})
	return result, err
}

// BlacklistToken stores a revoked jti until the token would have expired anyway
func (cs *CacheService) BlacklistToken(ctx context.Context, jti uuid.UUID, exp time.Time) error {
	ttl := cs.config.Auth.BlacklistCacheTTL
	if exp.After(time.Now()) {
		ttl = time.Until(exp)
	}
	return cs.Set(ctx, blacklistKey(jti), "true", ttl)
}

func (cs *CacheService) IsTokenBlacklisted(ctx context.Context, jti uuid.UUID) (bool, error) {
	val, err := cs.Get(ctx, blacklistKey(jti))
	if err != nil {
		return false, err
	}
	return val == "true", nil
}

func blacklistKey(jti uuid.UUID) string {
	return fmt.Sprintf("blacklist:%s", jti)
}

func (cs *CacheService) GetUser(ctx context.Context, userID uuid.UUID) (*tables.User, error) {
	return getJSON[tables.User](ctx, cs, userKey(userID))
}

func (cs *CacheService) SetUser(ctx context.Context, user *tables.User) error {
	if user == nil {
		return nil
	}
	return setJSON(ctx, cs, userKey(user.Id), user, cs.config.Cache.UserTTL)
}

func (cs *CacheService) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	return cs.Delete(ctx, userKey(userID))
}

func userKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

// IncrementRateLimit bumps the counter for a client and scope and starts the
// window on the first hit. It returns the count and the time left in the window.
func (cs *CacheService) IncrementRateLimit(ctx context.Context, client, scope string, window time.Duration) (int, time.Duration, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", scope, client)

	var count int64
	var ttl time.Duration
	err := cs.withRetry(ctx, func() error {
		val, err := cs.client.Incr(ctx, key).Result()
		if err != nil {
			return err
		}
		count = val

		if val == 1 {
			ttl = window
			return cs.client.Expire(ctx, key, window).Err()
		}

		ttl, err = cs.client.TTL(ctx, key).Result()
		if err != nil {
			return err
		}
		// a lost EXPIRE would leave the key forever
		if ttl < 0 {
			ttl = window
			return cs.client.Expire(ctx, key, window).Err()
		}
		return nil
	})

	return int(count), ttl, err
}

func (cs *CacheService) Ping(ctx context.Context) error {
	return cs.withRetry(ctx, func() error {
		return cs.client.Ping(ctx).Err()
	})
}

// GetConnectionStats returns Redis connection pool statistics
func (cs *CacheService) GetConnectionStats() map[string]any {
	stats := cs.client.PoolStats()

	return map[string]any{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}

// ============================================================================
// Product Caching Methods
// ============================================================================

func (cs *CacheService) GetProduct(ctx context.Context, id uuid.UUID) (*tables.Product, error) {
	return getJSON[tables.Product](ctx, cs, productKey(id))
}

func (cs *CacheService) SetProduct(ctx context.Context, product *tables.Product) error {
	return setJSON(ctx, cs, productKey(product.ID), product, cs.config.Cache.ProductTTL)
}

func (cs *CacheService) GetProductList(ctx context.Context, opts structs.ProductListOptions) (*ProductListResult, error) {
	return getJSON[ProductListResult](ctx, cs, productListKey(opts))
}

func (cs *CacheService) SetProductList(ctx context.Context, opts structs.ProductListOptions, result *ProductListResult) error {
	return setJSON(ctx, cs, productListKey(opts), result, cs.config.Cache.ProductListTTL)
}

func (cs *CacheService) GetCategoryCounts(ctx context.Context) ([]structs.CategoryCount, error) {
	counts, err := getJSON[[]structs.CategoryCount](ctx, cs, "products:categories")
	if err != nil || counts == nil {
		return nil, err
	}
	return *counts, nil
}

func (cs *CacheService) SetCategoryCounts(ctx context.Context, counts []structs.CategoryCount) error {
	return setJSON(ctx, cs, "products:categories", counts, cs.config.Cache.ProductListTTL)
}

func productKey(id uuid.UUID) string {
	return fmt.Sprintf("product:id:%s", id)
}

func productListKey(opts structs.ProductListOptions) string {
	var b strings.Builder
	// search is free text; escaped so it cannot fake the other segments
	fmt.Fprintf(&b, "products:list:c=%s:s=%s:q=%s:p=%d:n=%d", opts.Category, opts.Sort, url.QueryEscape(strings.ToLower(opts.Search)), opts.Page, opts.PageSize)
	if opts.MinPrice != nil {
		fmt.Fprintf(&b, ":min=%d", *opts.MinPrice)
	}
	if opts.MaxPrice != nil {
		fmt.Fprintf(&b, ":max=%d", *opts.MaxPrice)
	}
	if opts.InStock != nil {
		fmt.Fprintf(&b, ":stock=%t", *opts.InStock)
	}
	return b.String()
}

// ============================================================================
// Cache Invalidation Methods
// ============================================================================

// InvalidateProductCaches drops the product entry and every cached listing.
// Call it after any catalog write, stock changes included.
func (cs *CacheService) InvalidateProductCaches(ctx context.Context, productIDs ...uuid.UUID) error {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, productKey(id))
	}
	if err := cs.Delete(ctx, keys...); err != nil {
		cs.logger.Warn("Failed to delete product cache", gecho.Field("error", err))
		return err
	}

	if err := cs.DeletePattern(ctx, "products:*"); err != nil {
		cs.logger.Warn("Failed to delete product list caches", gecho.Field("error", err))
		return err
	}

	cs.logger.Debug("Product caches invalidated", gecho.Field("products", len(productIDs)))
	return nil
}

// DeletePattern removes all keys matching a pattern using SCAN
func (cs *CacheService) DeletePattern(ctx context.Context, pattern string) error {
	return cs.withRetry(ctx, func() error {
		var cursor uint64
		for {
			keys, next, err := cs.client.Scan(ctx, cursor, pattern, 100).Result()
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if len(keys) > 0 {
				if err := cs.client.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("delete failed: %w", err)
				}
			}

			cursor = next
			if cursor == 0 {
				return nil
			}
		}
	})
}

func (cs *CacheService) ClearAll(ctx context.Context) error {
	return cs.withRetry(ctx, func() error {
		return cs.client.FlushDB(ctx).Err()
	})
}

// ============================================================================
// Helper Methods
// ============================================================================

func setJSON[T any](ctx context.Context, cs *CacheService, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return cs.Set(ctx, key, data, ttl)
}

// getJSON returns nil, nil on a cache miss
func getJSON[T any](ctx context.Context, cs *CacheService, key string) (*T, error) {
	val, err := cs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val == "" {
		return nil, nil
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

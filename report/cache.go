package report

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/billfold-app/billfold/internal/invoices"
)

// InvoiceRenderer is the rendering dependency CachedRenderer wraps.
type InvoiceRenderer interface {
	Invoice(ctx context.Context, inv *invoices.Invoice) ([]byte, error)
}

// CachedRenderer memoizes rendered invoice documents in Redis. The cache
// key carries the status and amount paid, so recording a payment produces
// a fresh document without explicit invalidation.
type CachedRenderer struct {
	inner InvoiceRenderer
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedRenderer wraps inner with a Redis cache.
func NewCachedRenderer(inner InvoiceRenderer, cache *redis.Client, ttl time.Duration) *CachedRenderer {
	return &CachedRenderer{inner: inner, cache: cache, ttl: ttl}
}

// Invoice returns the cached document when present, rendering and storing
// it otherwise. Cache failures fall through to a plain render.
func (c *CachedRenderer) Invoice(ctx context.Context, inv *invoices.Invoice) ([]byte, error) {
	key := cacheKey(inv)
	if data, err := c.cache.Get(ctx, key).Bytes(); err == nil {
		return data, nil
	}
	data, err := c.inner.Invoice(ctx, inv)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, data, c.ttl).Err()
	return data, nil
}

func cacheKey(inv *invoices.Invoice) string {
	return fmt.Sprintf("invoice-pdf:%d:%s:%s", inv.ID, inv.Status, inv.AmountPaid.StringFixed(2))
}

package cache

import (
	"context"
	"encoding/json"
	"time"

	"slidecart/internal/storefront"
	"slidecart/pkg/logger"
	"slidecart/pkg/metrics"
)

// DefaultClearInterval is the process-wide full-clear cadence.
const DefaultClearInterval = 5 * time.Minute

// Lookups bundles the three lookup caches and the shared janitor. Negative
// results are cached the same as positive ones to avoid repeated failing
// lookups.
type Lookups struct {
	products        Store
	manualFlags     Store
	recommendations Store

	clearInterval time.Duration
	metrics       *metrics.PipelineMetrics
	logg          *logger.Logger
}

// LookupsParams groups construction inputs; nil stores default to Memory.
type LookupsParams struct {
	Products        Store
	ManualFlags     Store
	Recommendations Store
	ClearInterval   time.Duration
	Metrics         *metrics.PipelineMetrics
	Logger          *logger.Logger
}

// NewLookups builds the cache bundle.
func NewLookups(params LookupsParams) *Lookups {
	if params.Products == nil {
		params.Products = NewMemory()
	}
	if params.ManualFlags == nil {
		params.ManualFlags = NewMemory()
	}
	if params.Recommendations == nil {
		params.Recommendations = NewMemory()
	}
	if params.ClearInterval <= 0 {
		params.ClearInterval = DefaultClearInterval
	}
	return &Lookups{
		products:        params.Products,
		manualFlags:     params.ManualFlags,
		recommendations: params.Recommendations,
		clearInterval:   params.ClearInterval,
		metrics:         params.Metrics,
		logg:            params.Logger,
	}
}

// GetProduct returns the cached product for an id-or-handle key.
func (l *Lookups) GetProduct(ctx context.Context, key string) (*storefront.Product, bool) {
	var product storefront.Product
	if !l.get(ctx, l.products, NameProducts, key, &product) {
		return nil, false
	}
	return &product, true
}

// SetProduct caches a fetched product under the lookup key used to find it.
func (l *Lookups) SetProduct(ctx context.Context, key string, product *storefront.Product) {
	if product == nil {
		return
	}
	l.set(ctx, l.products, key, product)
}

// GetManualFlag returns the cached has-manual-metafields verdict.
func (l *Lookups) GetManualFlag(ctx context.Context, productID int64) (bool, bool) {
	var flag bool
	if !l.get(ctx, l.manualFlags, NameManualFlags, storefront.IDKey(productID), &flag) {
		return false, false
	}
	return flag, true
}

// SetManualFlag caches the verdict, including negative ones.
func (l *Lookups) SetManualFlag(ctx context.Context, productID int64, flag bool) {
	l.set(ctx, l.manualFlags, storefront.IDKey(productID), flag)
}

// GetRecommendations returns the cached manual candidate list for a product.
// An empty cached list is a valid hit.
func (l *Lookups) GetRecommendations(ctx context.Context, productID int64) ([]storefront.Product, bool) {
	products := []storefront.Product{}
	if !l.get(ctx, l.recommendations, NameRecommendations, storefront.IDKey(productID), &products) {
		return nil, false
	}
	return products, true
}

// SetRecommendations caches the resolved list, including empty results.
func (l *Lookups) SetRecommendations(ctx context.Context, productID int64, products []storefront.Product) {
	if products == nil {
		products = []storefront.Product{}
	}
	l.set(ctx, l.recommendations, storefront.IDKey(productID), products)
}

// InvalidateProduct drops a single product from every cache.
func (l *Lookups) InvalidateProduct(ctx context.Context, productID int64) {
	key := storefront.IDKey(productID)
	_ = l.products.Delete(ctx, key)
	_ = l.manualFlags.Delete(ctx, key)
	_ = l.recommendations.Delete(ctx, key)
}

// Clear empties all three caches. Clearing empty caches is a no-op.
func (l *Lookups) Clear(ctx context.Context) {
	_ = l.products.Clear(ctx)
	_ = l.manualFlags.Clear(ctx)
	_ = l.recommendations.Clear(ctx)
}

// StartJanitor clears all caches on the configured interval until the
// context is cancelled.
func (l *Lookups) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.clearInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Clear(ctx)
				if l.logg != nil {
					l.logg.Debug(ctx, "lookup caches cleared")
				}
			}
		}
	}()
}

func (l *Lookups) get(ctx context.Context, store Store, name, key string, dest any) bool {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		l.metrics.IncCacheMiss(name)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A corrupt entry behaves like a miss; the read path re-derives it.
		_ = store.Delete(ctx, key)
		l.metrics.IncCacheMiss(name)
		return false
	}
	l.metrics.IncCacheHit(name)
	return true
}

func (l *Lookups) set(ctx context.Context, store Store, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = store.Set(ctx, key, raw)
}

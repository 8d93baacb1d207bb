// Package cache holds the lookup caches that sit between the recommendation
// pipeline and the storefront API. Caching is an optimization only: every
// read path tolerates a miss by re-deriving the value from the storefront.
package cache

import "context"

// Store is a plain key to value byte cache with full-clear support.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Names of the three lookup caches, used as metric labels.
const (
	NameProducts        = "products"
	NameManualFlags     = "manual_flags"
	NameRecommendations = "recommendations"
)

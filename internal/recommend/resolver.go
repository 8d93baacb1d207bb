package recommend

import (
	"context"
	"fmt"
	"strings"

	"slidecart/internal/cache"
	"slidecart/internal/storefront"
	"slidecart/pkg/logger"
)

// CatalogClient is the storefront surface the resolvers depend on.
type CatalogClient interface {
	FetchProduct(ctx context.Context, idOrHandle string) (*storefront.Product, error)
	FetchProductByID(ctx context.Context, id int64) (*storefront.Product, error)
	FetchAutomaticRecommendations(ctx context.Context, productID int64, limit int) ([]storefront.Product, error)
}

// Resolver produces per-product candidate lists from the three sources:
// curated metadata, recommend-with tags, and the platform similarity
// endpoint. All failures degrade to an empty list; a single unresolvable
// product never aborts the rest of the pipeline.
type Resolver struct {
	client  CatalogClient
	lookups *cache.Lookups
	logg    *logger.Logger
	mode    Mode
	limit   int
}

// ResolverParams groups the resolver dependencies.
type ResolverParams struct {
	Client  CatalogClient
	Lookups *cache.Lookups
	Logger  *logger.Logger
	Mode    Mode
	Limit   int
}

// NewResolver builds a resolver; the client and lookups are required.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	if params.Lookups == nil {
		return nil, fmt.Errorf("lookup caches required")
	}
	if params.Mode == "" {
		params.Mode = ModeHybrid
	}
	if params.Limit <= 0 {
		params.Limit = 6
	}
	return &Resolver{
		client:  params.Client,
		lookups: params.Lookups,
		logg:    params.Logger,
		mode:    params.Mode,
		limit:   params.Limit,
	}, nil
}

// Limit exposes the configured recommendation cap.
func (r *Resolver) Limit() int {
	return r.limit
}

// ProductRecommendations resolves the candidate list for one product using
// the configured mode. In hybrid mode the manual pool is tried first, falling
// back to automatics when empty and topping up when short of the limit.
func (r *Resolver) ProductRecommendations(ctx context.Context, productID int64) ([]storefront.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch r.mode {
	case ModeManual:
		return r.ManualRecommendations(ctx, productID), nil
	case ModeAutomatic:
		return r.AutomaticRecommendations(ctx, productID), nil
	default:
		manual := r.ManualRecommendations(ctx, productID)
		if len(manual) == 0 {
			return r.AutomaticRecommendations(ctx, productID), nil
		}
		if len(manual) < r.limit {
			existing := make(map[int64]struct{}, len(manual))
			for _, p := range manual {
				existing[p.ID] = struct{}{}
			}
			for _, p := range r.AutomaticRecommendations(ctx, productID) {
				if len(manual) >= r.limit {
					break
				}
				if _, ok := existing[p.ID]; ok {
					continue
				}
				existing[p.ID] = struct{}{}
				manual = append(manual, p)
			}
		}
		return manual, nil
	}
}

// ManualRecommendations resolves the curated pool for a product: related ids
// from either metadata namespace, then recommend-with tag handles. Tag
// results ride inside the manual pool; the automatic mode never consults
// them. The result, including an empty one, is cached.
func (r *Resolver) ManualRecommendations(ctx context.Context, productID int64) []storefront.Product {
	if cached, ok := r.lookups.GetRecommendations(ctx, productID); ok {
		return cached
	}

	source, err := r.resolveProduct(ctx, storefront.IDKey(productID))
	if err != nil {
		r.warn(ctx, productID, "load source product for manual recommendations", err)
		r.lookups.SetRecommendations(ctx, productID, nil)
		return nil
	}

	var recommendations []storefront.Product
	for _, relatedID := range source.RelatedProductIDs() {
		product, err := r.resolveProduct(ctx, storefront.IDKey(relatedID))
		if err != nil {
			r.warn(ctx, relatedID, "load related product", err)
			continue
		}
		recommendations = append(recommendations, *product)
	}

	recommendations = append(recommendations, r.tagBasedRecommendations(ctx, source)...)

	r.lookups.SetRecommendations(ctx, productID, recommendations)
	return recommendations
}

// tagBasedRecommendations resolves recommend-with tag handles in tag
// encounter order, then handle list order.
func (r *Resolver) tagBasedRecommendations(ctx context.Context, source *storefront.Product) []storefront.Product {
	var recommendations []storefront.Product
	for _, list := range source.TagValues(storefront.TagPrefixRecommendWith) {
		for _, handle := range strings.Split(list, ",") {
			handle = strings.TrimSpace(handle)
			if handle == "" {
				continue
			}
			product, err := r.resolveProduct(ctx, handle)
			if err != nil {
				r.warn(ctx, source.ID, "load tag-based product "+handle, err)
				continue
			}
			recommendations = append(recommendations, *product)
		}
	}
	return recommendations
}

// AutomaticRecommendations delegates to the platform similarity endpoint,
// returning its order untouched. Failures degrade to an empty list.
func (r *Resolver) AutomaticRecommendations(ctx context.Context, productID int64) []storefront.Product {
	products, err := r.client.FetchAutomaticRecommendations(ctx, productID, r.limit)
	if err != nil {
		r.warn(ctx, productID, "fetch automatic recommendations", err)
		return nil
	}
	return products
}

// HasManualMetafields reports whether the product carries a non-empty
// related-products list under either namespace, or recommend-with tags.
// The verdict is cached; lookup failures cache false to avoid retry storms.
func (r *Resolver) HasManualMetafields(ctx context.Context, productID int64) bool {
	if flag, ok := r.lookups.GetManualFlag(ctx, productID); ok {
		return flag
	}

	product, err := r.resolveProduct(ctx, storefront.IDKey(productID))
	if err != nil {
		r.warn(ctx, productID, "load product for metafield check", err)
		r.lookups.SetManualFlag(ctx, productID, false)
		return false
	}

	flag := len(product.RelatedProductIDs()) > 0 ||
		len(product.TagValues(storefront.TagPrefixRecommendWith)) > 0
	r.lookups.SetManualFlag(ctx, productID, flag)
	return flag
}

func (r *Resolver) resolveProduct(ctx context.Context, key string) (*storefront.Product, error) {
	if product, ok := r.lookups.GetProduct(ctx, key); ok {
		return product, nil
	}
	product, err := r.client.FetchProduct(ctx, key)
	if err != nil {
		return nil, err
	}
	r.lookups.SetProduct(ctx, key, product)
	return product, nil
}

func (r *Resolver) warn(ctx context.Context, productID int64, msg string, err error) {
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithProductID(ctx, productID)
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), msg)
}

package storefront

import (
	"strconv"
	"strings"
)

// Metadata namespaces recognized on products. The discovery namespace is
// authoritative; the sliding-cart namespace is consulted only when the
// discovery one is absent or empty.
const (
	NamespaceDiscovery = "discovery-recommendation"
	NamespaceLegacy    = "sliding_cart"
)

// Tag grammar understood by the recommendation pipeline.
const (
	TagPrefixRecommendWith = "recommend-with:"
	TagPrefixPriority      = "recommend-priority:"
	TagPrefixMessage       = "recommend-message:"
	TagNoRecommend         = "no-recommend"
)

// Metafield is one namespace bag of curated recommendation configuration.
type Metafield struct {
	RelatedProducts            []int64 `json:"related_products"`
	ExcludeFromRecommendations *bool   `json:"exclude_from_recommendations"`
	RecommendationPriority     string  `json:"recommendation_priority"`
	RecommendationMessage      string  `json:"recommendation_message"`
}

// Variant is one purchasable option of a product. Price is in minor units.
type Variant struct {
	ID         int64 `json:"id"`
	PriceCents int64 `json:"price"`
}

// Product is an immutable snapshot fetched from the storefront.
type Product struct {
	ID            int64                `json:"id"`
	Handle        string               `json:"handle"`
	Title         string               `json:"title"`
	Tags          []string             `json:"tags"`
	Variants      []Variant            `json:"variants"`
	FeaturedImage string               `json:"featured_image"`
	Metafields    map[string]Metafield `json:"metafields"`
}

// Metafield returns the namespace bag and whether it is present.
func (p *Product) Metafield(namespace string) (Metafield, bool) {
	if p == nil || p.Metafields == nil {
		return Metafield{}, false
	}
	mf, ok := p.Metafields[namespace]
	return mf, ok
}

// RelatedProductIDs returns the curated related-product list, preferring the
// discovery namespace and falling back to the legacy one.
func (p *Product) RelatedProductIDs() []int64 {
	if mf, ok := p.Metafield(NamespaceDiscovery); ok && len(mf.RelatedProducts) > 0 {
		return mf.RelatedProducts
	}
	if mf, ok := p.Metafield(NamespaceLegacy); ok && len(mf.RelatedProducts) > 0 {
		return mf.RelatedProducts
	}
	return nil
}

// HasTag reports whether the product carries the exact tag.
func (p *Product) HasTag(tag string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TagValues returns the suffixes of every tag carrying the prefix, in tag
// encounter order.
func (p *Product) TagValues(prefix string) []string {
	if p == nil {
		return nil
	}
	var values []string
	for _, t := range p.Tags {
		if strings.HasPrefix(t, prefix) {
			values = append(values, strings.TrimPrefix(t, prefix))
		}
	}
	return values
}

// DefaultVariant returns the first variant, the one the widget adds to cart.
func (p *Product) DefaultVariant() (Variant, bool) {
	if p == nil || len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

// FeaturedImageRef holds the image URL shape the cart endpoint returns.
type FeaturedImageRef struct {
	URL string `json:"url"`
}

// LineItem is one distinct cart entry, keyed by an opaque string unique to
// its variant+properties combination. Owned by the remote cart; the service
// only ever holds a transient snapshot.
type LineItem struct {
	Key            string           `json:"key"`
	ProductID      int64            `json:"product_id"`
	VariantID      int64            `json:"variant_id"`
	Quantity       int              `json:"quantity"`
	Title          string           `json:"title"`
	VariantTitle   string           `json:"variant_title"`
	LinePriceCents int64            `json:"line_price"`
	FeaturedImage  FeaturedImageRef `json:"featured_image"`
}

// Cart is the remote cart snapshot.
type Cart struct {
	Items           []LineItem `json:"items"`
	TotalPriceCents int64      `json:"total_price"`
}

// ProductIDs returns the distinct product ids in the cart, in item order.
func (c *Cart) ProductIDs() []int64 {
	if c == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(c.Items))
	ids := make([]int64, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// LineByVariant returns the line holding the variant, if any.
func (c *Cart) LineByVariant(variantID int64) (LineItem, bool) {
	if c == nil {
		return LineItem{}, false
	}
	for _, item := range c.Items {
		if item.VariantID == variantID {
			return item, true
		}
	}
	return LineItem{}, false
}

// AddResult is the acknowledgement returned by the add-item endpoint.
type AddResult struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// ProductKey normalizes an id-or-handle lookup key for caching.
func ProductKey(idOrHandle string) string {
	return strings.TrimSpace(idOrHandle)
}

// IDKey renders a numeric product id as a lookup key.
func IDKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

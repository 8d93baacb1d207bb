package recommend

import (
	"strconv"
	"strings"

	"slidecart/internal/storefront"
)

// Source classifies where a candidate came from. Classification happens at
// combine time, once per cart product: every candidate resolved for a product
// with manual metafields counts as manual, regardless of which resolver
// actually produced it.
type Source string

const (
	SourceManual    Source = "manual"
	SourceAutomatic Source = "automatic"
)

// Mode selects the resolution strategy for a single product.
type Mode string

const (
	ModeManual    Mode = "manual"
	ModeAutomatic Mode = "automatic"
	ModeHybrid    Mode = "hybrid"
)

// ParseMode maps a configuration string onto a Mode, defaulting to hybrid.
func ParseMode(value string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeManual:
		return ModeManual
	case ModeAutomatic:
		return ModeAutomatic
	default:
		return ModeHybrid
	}
}

// Candidate is a product proposed as a recommendation, with its derived
// attributes. Candidates are ephemeral: recomputed on every combine pass.
type Candidate struct {
	Product  storefront.Product
	Priority int
	Message  string
	Source   Source
}

// ProductPriority derives the ranking priority: discovery namespace first,
// then the legacy namespace, then the recommend-priority tag, else zero.
func ProductPriority(p *storefront.Product) int {
	if mf, ok := p.Metafield(storefront.NamespaceDiscovery); ok {
		if v, err := strconv.Atoi(strings.TrimSpace(mf.RecommendationPriority)); err == nil {
			return v
		}
	}
	if mf, ok := p.Metafield(storefront.NamespaceLegacy); ok {
		if v, err := strconv.Atoi(strings.TrimSpace(mf.RecommendationPriority)); err == nil {
			return v
		}
	}
	for _, raw := range p.TagValues(storefront.TagPrefixPriority) {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return v
		}
		return 0
	}
	return 0
}

// RecommendationMessage derives the optional custom message shown alongside
// a candidate, with the same namespace-then-tag precedence as priority.
func RecommendationMessage(p *storefront.Product) string {
	if mf, ok := p.Metafield(storefront.NamespaceDiscovery); ok && mf.RecommendationMessage != "" {
		return mf.RecommendationMessage
	}
	if mf, ok := p.Metafield(storefront.NamespaceLegacy); ok && mf.RecommendationMessage != "" {
		return mf.RecommendationMessage
	}
	for _, raw := range p.TagValues(storefront.TagPrefixMessage) {
		return strings.TrimSpace(raw)
	}
	return ""
}

// Excluded reports whether a product opted out of being recommended, via
// either metadata namespace or the no-recommend tag.
func Excluded(p *storefront.Product) bool {
	if mf, ok := p.Metafield(storefront.NamespaceDiscovery); ok && mf.ExcludeFromRecommendations != nil {
		return *mf.ExcludeFromRecommendations
	}
	if mf, ok := p.Metafield(storefront.NamespaceLegacy); ok && mf.ExcludeFromRecommendations != nil {
		return *mf.ExcludeFromRecommendations
	}
	return p.HasTag(storefront.TagNoRecommend)
}

// dedupeByID keeps the first occurrence of each product id, preserving order.
func dedupeByID(products []storefront.Product) []storefront.Product {
	seen := make(map[int64]struct{}, len(products))
	out := make([]storefront.Product, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

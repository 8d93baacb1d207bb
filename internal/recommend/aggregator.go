package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"slidecart/internal/storefront"
	"slidecart/pkg/metrics"
)

// ManualClassifier decides whether a cart product's candidates count as
// manual. Split out so tests can inject the verdict directly.
type ManualClassifier func(ctx context.Context, productID int64) bool

// Aggregator owns the per-cart recommendation state for one drawer session:
// the per-product candidate sets and the combined, ranked list derived from
// them. One instance per session; methods are safe for concurrent use.
type Aggregator struct {
	resolver   *Resolver
	classifier ManualClassifier
	metrics    *metrics.PipelineMetrics
	limit      int

	mu           sync.Mutex
	perProduct   map[int64][]storefront.Product
	resolveOrder []int64
	combined     []Candidate
}

// AggregatorParams groups the aggregator dependencies.
type AggregatorParams struct {
	Resolver   *Resolver
	Classifier ManualClassifier
	Metrics    *metrics.PipelineMetrics
	Limit      int
}

// NewAggregator builds an aggregator; the resolver is required and supplies
// the default classifier.
func NewAggregator(params AggregatorParams) (*Aggregator, error) {
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if params.Classifier == nil {
		params.Classifier = params.Resolver.HasManualMetafields
	}
	if params.Limit <= 0 {
		params.Limit = params.Resolver.Limit()
	}
	return &Aggregator{
		resolver:   params.Resolver,
		classifier: params.Classifier,
		metrics:    params.Metrics,
		limit:      params.Limit,
		perProduct: make(map[int64][]storefront.Product),
	}, nil
}

// Combined returns the current combined list.
func (a *Aggregator) Combined() []Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Candidate, len(a.combined))
	copy(out, a.combined)
	return out
}

// Combine rebuilds the combined list for the given cart snapshot. On any
// aggregation failure it falls back to the most recently resolved product's
// candidate list rather than failing the refresh; the result is never an
// error, only possibly empty.
func (a *Aggregator) Combine(ctx context.Context, cart *storefront.Cart) []Candidate {
	start := time.Now()
	combined, err := a.combine(ctx, cart)
	if err != nil {
		combined = a.fallback(ctx)
	}

	a.mu.Lock()
	a.combined = combined
	a.mu.Unlock()

	a.metrics.ObserveAggregation(time.Since(start))
	a.metrics.ObserveCombinedSize(len(combined))
	return a.Combined()
}

func (a *Aggregator) combine(ctx context.Context, cart *storefront.Cart) ([]Candidate, error) {
	if cart == nil || len(cart.Items) == 0 {
		return nil, nil
	}

	if err := a.ensureResolved(ctx, cart); err != nil {
		return nil, err
	}

	var manualPool []Candidate
	var automaticPool []Candidate

	a.mu.Lock()
	snapshots := make(map[int64][]storefront.Product, len(a.perProduct))
	for id, products := range a.perProduct {
		snapshots[id] = products
	}
	a.mu.Unlock()

	for _, productID := range cart.ProductIDs() {
		products := snapshots[productID]
		if len(products) == 0 {
			continue
		}
		// One metafield verdict per cart product classifies all of its
		// candidates, regardless of the resolver that produced them.
		isManual := a.classifier(ctx, productID)
		for _, p := range products {
			if isManual {
				manualPool = append(manualPool, Candidate{Product: p, Source: SourceManual})
			} else {
				automaticPool = append(automaticPool, Candidate{Product: p, Source: SourceAutomatic})
			}
		}
	}

	base := dedupeCandidates(manualPool)
	if len(base) > 0 {
		if len(base) < a.limit {
			existing := make(map[int64]struct{}, len(base))
			for _, c := range base {
				existing[c.Product.ID] = struct{}{}
			}
			for _, c := range dedupeCandidates(automaticPool) {
				if len(base) >= a.limit {
					break
				}
				if _, ok := existing[c.Product.ID]; ok {
					continue
				}
				existing[c.Product.ID] = struct{}{}
				base = append(base, c)
			}
		}
	} else {
		base = dedupeCandidates(automaticPool)
	}

	return a.filterAndSort(base), nil
}

// ensureResolved fills the per-product set for every cart product that has
// no entry yet. An entry appears only after its resolution completes.
func (a *Aggregator) ensureResolved(ctx context.Context, cart *storefront.Cart) error {
	a.mu.Lock()
	var missing []int64
	for _, productID := range cart.ProductIDs() {
		if _, ok := a.perProduct[productID]; !ok {
			missing = append(missing, productID)
		}
	}
	a.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, productID := range missing {
		productID := productID
		group.Go(func() error {
			products, err := a.resolver.ProductRecommendations(groupCtx, productID)
			if err != nil {
				return err
			}
			a.mu.Lock()
			a.perProduct[productID] = products
			a.resolveOrder = append(a.resolveOrder, productID)
			a.mu.Unlock()
			return nil
		})
	}
	return group.Wait()
}

// filterAndSort drops excluded candidates, ranks the rest by descending
// priority with a stable sort, and truncates to the limit.
func (a *Aggregator) filterAndSort(candidates []Candidate) []Candidate {
	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if Excluded(&c.Product) {
			continue
		}
		c.Priority = ProductPriority(&c.Product)
		c.Message = RecommendationMessage(&c.Product)
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Priority > filtered[j].Priority
	})

	if len(filtered) > a.limit {
		filtered = filtered[:a.limit]
	}
	return filtered
}

// fallback rebuilds from the most recently resolved product's candidates.
func (a *Aggregator) fallback(ctx context.Context) []Candidate {
	a.mu.Lock()
	var last []storefront.Product
	var lastID int64
	if n := len(a.resolveOrder); n > 0 {
		lastID = a.resolveOrder[n-1]
		last = a.perProduct[lastID]
	}
	a.mu.Unlock()

	if len(last) == 0 {
		return nil
	}

	source := SourceAutomatic
	if a.classifier(ctx, lastID) {
		source = SourceManual
	}
	candidates := make([]Candidate, 0, len(last))
	for _, p := range dedupeByID(last) {
		candidates = append(candidates, Candidate{Product: p, Source: source})
	}
	return a.filterAndSort(candidates)
}

// Cleanup evicts per-product entries for products no longer in the cart.
// An empty cart clears the set and the combined list entirely.
func (a *Aggregator) Cleanup(cart *storefront.Cart) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cart == nil || len(cart.Items) == 0 {
		a.perProduct = make(map[int64][]storefront.Product)
		a.resolveOrder = nil
		a.combined = nil
		return
	}

	current := make(map[int64]struct{}, len(cart.Items))
	for _, item := range cart.Items {
		current[item.ProductID] = struct{}{}
	}
	for productID := range a.perProduct {
		if _, ok := current[productID]; !ok {
			delete(a.perProduct, productID)
		}
	}
	kept := a.resolveOrder[:0]
	for _, productID := range a.resolveOrder {
		if _, ok := current[productID]; ok {
			kept = append(kept, productID)
		}
	}
	a.resolveOrder = kept
}

// HasEntries reports whether any per-product resolution is held.
func (a *Aggregator) HasEntries() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.perProduct) > 0
}

func dedupeCandidates(candidates []Candidate) []Candidate {
	seen := make(map[int64]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Product.ID]; ok {
			continue
		}
		seen[c.Product.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

package recommend

import (
	"context"
	"testing"

	"slidecart/internal/storefront"
)

func cartWith(productIDs ...int64) *storefront.Cart {
	cart := &storefront.Cart{}
	for _, id := range productIDs {
		cart.Items = append(cart.Items, storefront.LineItem{
			Key:       storefront.IDKey(id) + ":default",
			ProductID: id,
			VariantID: id * 10,
			Quantity:  1,
		})
	}
	return cart
}

func newTestAggregator(t *testing.T, resolver *Resolver, classifier ManualClassifier) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(AggregatorParams{
		Resolver:   resolver,
		Classifier: classifier,
	})
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return agg
}

func candidateIDs(candidates []Candidate) []int64 {
	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Product.ID)
	}
	return ids
}

func TestNewAggregatorValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewAggregator(AggregatorParams{}); err == nil {
		t.Fatal("expected error without resolver")
	}
}

func TestCombineManualMetadataOrder(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "source"), 2, 3, 4))
	catalog.add(testProduct(2, "second"))
	catalog.add(testProduct(3, "third"))
	catalog.add(testProduct(4, "fourth"))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)

	got := agg.Combine(context.Background(), cartWith(1))
	wantIDs := []int64{2, 3, 4}
	if len(got) != len(wantIDs) {
		t.Fatalf("combined ids %v, want %v", candidateIDs(got), wantIDs)
	}
	for i, wantID := range wantIDs {
		if got[i].Product.ID != wantID {
			t.Fatalf("combined ids %v, want %v", candidateIDs(got), wantIDs)
		}
		if got[i].Source != SourceManual {
			t.Fatalf("candidate %d classified %q, want manual", wantID, got[i].Source)
		}
	}
}

func TestCombineManualBeforeAutomatic(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "curated"), 2, 3))
	catalog.add(testProduct(2, "second"))
	catalog.add(testProduct(3, "third"))
	catalog.add(testProduct(5, "plain"))
	catalog.automatic[5] = []storefront.Product{
		testProduct(7, "auto-a"),
		testProduct(8, "auto-b"),
	}

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)

	// The automatic candidates come later in cart order but must still rank
	// behind every manual one.
	got := agg.Combine(context.Background(), cartWith(5, 1))
	wantIDs := []int64{2, 3, 7, 8}
	if len(got) != len(wantIDs) {
		t.Fatalf("combined ids %v, want %v", candidateIDs(got), wantIDs)
	}
	for i, wantID := range wantIDs {
		if got[i].Product.ID != wantID {
			t.Fatalf("combined ids %v, want %v", candidateIDs(got), wantIDs)
		}
	}
	if got[0].Source != SourceManual || got[2].Source != SourceAutomatic {
		t.Fatalf("sources = %q, %q; want manual then automatic", got[0].Source, got[2].Source)
	}
}

func TestCombineIdempotent(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "source"), 2))
	catalog.add(testProduct(2, "second"))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)
	ctx := context.Background()
	cart := cartWith(1)

	first := agg.Combine(ctx, cart)
	callsAfterFirst := catalog.totalCalls()

	second := agg.Combine(ctx, cart)
	if got := catalog.totalCalls(); got != callsAfterFirst {
		t.Fatalf("fetch calls grew from %d to %d on identical cart", callsAfterFirst, got)
	}
	if len(first) != len(second) {
		t.Fatalf("combined size changed from %d to %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Product.ID != second[i].Product.ID {
			t.Fatalf("combined order changed at %d", i)
		}
	}
}

func TestCombineDeduplicatesAcrossProducts(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "first"), 5, 6))
	catalog.add(withRelated(testProduct(2, "second"), 6, 7))
	catalog.add(testProduct(5, "five"))
	catalog.add(testProduct(6, "six"))
	catalog.add(testProduct(7, "seven"))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)

	got := agg.Combine(context.Background(), cartWith(1, 2))
	wantIDs := []int64{5, 6, 7}
	if len(got) != len(wantIDs) {
		t.Fatalf("combined ids %v, want %v", candidateIDs(got), wantIDs)
	}
	for i, wantID := range wantIDs {
		if got[i].Product.ID != wantID {
			t.Fatalf("combined ids %v, want %v", candidateIDs(got), wantIDs)
		}
	}
}

func TestCombinePriorityOrdering(t *testing.T) {
	t.Parallel()

	low := testProduct(5, "low", "recommend-priority:1")
	high := testProduct(6, "high", "recommend-priority:9")
	unranked := testProduct(7, "unranked")

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "source"), 5, 6, 7))
	catalog.add(low)
	catalog.add(high)
	catalog.add(unranked)

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)

	got := agg.Combine(context.Background(), cartWith(1))
	wantIDs := []int64{6, 5, 7}
	if len(got) != len(wantIDs) {
		t.Fatalf("combined ids %v, want %v", candidateIDs(got), wantIDs)
	}
	for i, wantID := range wantIDs {
		if got[i].Product.ID != wantID {
			t.Fatalf("combined ids %v, want %v", candidateIDs(got), wantIDs)
		}
	}
	if got[0].Priority != 9 {
		t.Fatalf("top priority = %d, want 9", got[0].Priority)
	}
}

func TestCombineDropsExcluded(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "source"), 5, 6))
	catalog.add(testProduct(5, "optout", "no-recommend"))
	catalog.add(testProduct(6, "normal"))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)

	got := agg.Combine(context.Background(), cartWith(1))
	if len(got) != 1 || got[0].Product.ID != 6 {
		t.Fatalf("combined ids %v, want [6]", candidateIDs(got))
	}
}

func TestCombineCapsAtLimit(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	source := testProduct(1, "source")
	related := make([]int64, 0, 9)
	for id := int64(10); id < 19; id++ {
		catalog.add(testProduct(id, ""))
		related = append(related, id)
	}
	catalog.add(withRelated(source, related...))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)

	got := agg.Combine(context.Background(), cartWith(1))
	if len(got) != 6 {
		t.Fatalf("combined size = %d, want capped at 6", len(got))
	}
}

func TestCombineEmptyCart(t *testing.T) {
	t.Parallel()

	resolver := newTestResolver(t, newStubCatalog(), ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)

	if got := agg.Combine(context.Background(), &storefront.Cart{}); len(got) != 0 {
		t.Fatalf("combined size = %d for empty cart, want 0", len(got))
	}
	if agg.HasEntries() {
		t.Fatal("empty cart should leave no per-product entries")
	}
}

func TestCombineInjectedClassifier(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "source"), 2))
	catalog.add(testProduct(2, "second"))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, func(context.Context, int64) bool {
		return false
	})

	got := agg.Combine(context.Background(), cartWith(1))
	if len(got) != 1 {
		t.Fatalf("combined size = %d, want 1", len(got))
	}
	if got[0].Source != SourceAutomatic {
		t.Fatalf("source = %q, want automatic under injected classifier", got[0].Source)
	}
}

func TestCombineFallbackOnFailure(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "source"), 2))
	catalog.add(testProduct(2, "second"))
	catalog.add(withRelated(testProduct(3, "other"), 4))
	catalog.add(testProduct(4, "fourth"))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)

	first := agg.Combine(context.Background(), cartWith(1))
	if len(first) != 1 || first[0].Product.ID != 2 {
		t.Fatalf("combined ids %v, want [2]", candidateIDs(first))
	}

	// A cancelled context fails resolution of the new product; the combined
	// list falls back to the last resolved product rather than going blank.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	got := agg.Combine(cancelled, cartWith(1, 3))
	if len(got) != 1 || got[0].Product.ID != 2 {
		t.Fatalf("fallback ids %v, want [2]", candidateIDs(got))
	}
}

func TestCleanupEvictsRemovedProducts(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "first"), 5))
	catalog.add(withRelated(testProduct(2, "second"), 6))
	catalog.add(testProduct(5, "five"))
	catalog.add(testProduct(6, "six"))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)
	ctx := context.Background()

	agg.Combine(ctx, cartWith(1, 2))

	remaining := cartWith(2)
	agg.Cleanup(remaining)
	got := agg.Combine(ctx, remaining)
	if len(got) != 1 || got[0].Product.ID != 6 {
		t.Fatalf("combined ids after cleanup %v, want [6]", candidateIDs(got))
	}
}

func TestCleanupEmptyCartClearsEverything(t *testing.T) {
	t.Parallel()

	catalog := newStubCatalog()
	catalog.add(withRelated(testProduct(1, "first"), 5))
	catalog.add(testProduct(5, "five"))

	resolver := newTestResolver(t, catalog, ModeHybrid, 6)
	agg := newTestAggregator(t, resolver, nil)
	ctx := context.Background()

	agg.Combine(ctx, cartWith(1))
	if !agg.HasEntries() {
		t.Fatal("expected per-product entries after combine")
	}

	agg.Cleanup(&storefront.Cart{})
	if agg.HasEntries() {
		t.Fatal("empty cart cleanup should drop all entries")
	}
	if got := agg.Combined(); len(got) != 0 {
		t.Fatalf("combined size after cleanup = %d, want 0", len(got))
	}
}

package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"slidecart/internal/cache"
	"slidecart/internal/drawer"
	"slidecart/internal/recommend"
	"slidecart/internal/storefront"
	"slidecart/pkg/config"
	"slidecart/pkg/logger"
	"slidecart/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubCatalog struct{}

func (stubCatalog) FetchProduct(_ context.Context, idOrHandle string) (*storefront.Product, error) {
	return nil, errors.New("no catalog in routing tests: " + idOrHandle)
}

func (s stubCatalog) FetchProductByID(ctx context.Context, id int64) (*storefront.Product, error) {
	return s.FetchProduct(ctx, storefront.IDKey(id))
}

func (stubCatalog) FetchAutomaticRecommendations(context.Context, int64, int) ([]storefront.Product, error) {
	return nil, nil
}

type stubGateway struct {
	cart storefront.Cart
}

func (g *stubGateway) FetchCart(context.Context) (*storefront.Cart, error) {
	snapshot := g.cart
	return &snapshot, nil
}

func (g *stubGateway) AddToCart(_ context.Context, variantID int64, quantity int) (*storefront.AddResult, error) {
	g.cart.Items = append(g.cart.Items, storefront.LineItem{
		Key:       "line-1",
		ProductID: variantID / 10,
		VariantID: variantID,
		Quantity:  quantity,
	})
	return &storefront.AddResult{VariantID: variantID, Quantity: quantity}, nil
}

func (g *stubGateway) ChangeLineQuantity(_ context.Context, lineKey string, quantity int) (*storefront.Cart, error) {
	items := g.cart.Items[:0]
	for _, item := range g.cart.Items {
		if item.Key == lineKey {
			if quantity == 0 {
				continue
			}
			item.Quantity = quantity
		}
		items = append(items, item)
	}
	g.cart.Items = items
	snapshot := g.cart
	return &snapshot, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		Drawer: config.DrawerConfig{
			Enabled:     true,
			Position:    "right",
			Width:       450,
			Currency:    "COP",
			CheckoutURL: "/checkout",
		},
		Recommendations: config.RecommendationsConfig{Source: "hybrid", Limit: 6, Title: "Recomendados"},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	resolver, err := recommend.NewResolver(recommend.ResolverParams{
		Client:  stubCatalog{},
		Lookups: cache.NewLookups(cache.LookupsParams{}),
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	svc, err := drawer.NewService(drawer.ServiceParams{
		Gateway:         &stubGateway{},
		Registry:        drawer.NewRegistry(drawer.RegistryParams{}),
		Resolver:        resolver,
		Drawer:          cfg.Drawer,
		Recommendations: cfg.Recommendations,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics.NewPipelineMetrics(reg)
	return NewRouter(cfg, logg, svc, stubPinger{}, reg)
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for session create got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if envelope.Data.SessionID == "" {
		t.Fatal("missing session id in create response")
	}
	return envelope.Data.SessionID
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, testConfig())

	live := httptest.NewRequest(http.MethodGet, "/healthz/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, live)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for live got %d", resp.Code)
	}

	ready := httptest.NewRequest(http.MethodGet, "/healthz/ready", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, ready)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for ready got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "recommendation_aggregation_seconds") {
		t.Fatal("metrics exposition missing pipeline metrics")
	}
}

func TestSessionLifecycleRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig())
	sessionID := createSession(t, router)

	for _, action := range []string{"open", "interact", "close"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/"+action, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d: %s", action, resp.Code, resp.Body.String())
		}
	}
}

func TestUnknownSessionReturnsNotFound(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/ghost/open", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session got %d", resp.Code)
	}
}

func TestAddItemValidatesBody(t *testing.T) {
	router := newTestRouter(t, testConfig())
	sessionID := createSession(t, router)

	bad := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/items", strings.NewReader(`{"variant_id":0}`))
	bad.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d: %s", resp.Code, resp.Body.String())
	}

	good := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/items", strings.NewReader(`{"variant_id":20,"quantity":1}`))
	good.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, good)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid payload got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRecommendationsLimitQuery(t *testing.T) {
	router := newTestRouter(t, testConfig())
	sessionID := createSession(t, router)

	bad := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sessionID+"/recommendations?limit=abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit got %d", resp.Code)
	}

	good := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sessionID+"/recommendations?limit=3", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, good)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for recommendations got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDisabledDrawerRejectsSessionCreate(t *testing.T) {
	cfg := testConfig()
	cfg.Drawer.Enabled = false
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for disabled drawer got %d", resp.Code)
	}
}

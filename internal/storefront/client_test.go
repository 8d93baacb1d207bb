package storefront

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "slidecart/pkg/errors"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestClientFetchCart(t *testing.T) {
	respBody := `{"items":[{"key":"abc:1","product_id":11,"variant_id":101,"quantity":2,"title":"Collar","variant_title":"M","line_price":2400000,"featured_image":{"url":"https://cdn.example.com/collar.jpg"}}],"total_price":2400000}`

	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("http://shop.test", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	cart, err := client.FetchCart(context.Background())
	if err != nil {
		t.Fatalf("fetch cart: %v", err)
	}
	if capturedURL != "http://shop.test/cart" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if len(cart.Items) != 1 || cart.Items[0].Key != "abc:1" {
		t.Fatalf("unexpected cart %+v", cart)
	}
	if cart.Items[0].FeaturedImage.URL != "https://cdn.example.com/collar.jpg" {
		t.Fatalf("unexpected image %+v", cart.Items[0].FeaturedImage)
	}
	if cart.TotalPriceCents != 2400000 {
		t.Fatalf("unexpected total %d", cart.TotalPriceCents)
	}
}

func TestClientFetchProductParsesMetafields(t *testing.T) {
	respBody := `{
		"id": 42,
		"handle": "leather-leash",
		"title": "Leather Leash",
		"tags": ["recommend-with:collar-basic,collar-deluxe", "recommend-priority:5"],
		"variants": [{"id": 420, "price": 1890000}],
		"featured_image": "https://cdn.example.com/leash.jpg",
		"metafields": {
			"discovery-recommendation": {
				"related_products": [7, 8],
				"recommendation_priority": "5",
				"recommendation_message": "Pairs well"
			}
		}
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/42" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(respBody))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	product, err := client.FetchProductByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("fetch product: %v", err)
	}
	if product.Title != "Leather Leash" {
		t.Fatalf("unexpected title %q", product.Title)
	}
	if got := product.RelatedProductIDs(); len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Fatalf("unexpected related ids %v", got)
	}
	if got := product.TagValues(TagPrefixRecommendWith); len(got) != 1 || got[0] != "collar-basic,collar-deluxe" {
		t.Fatalf("unexpected tag values %v", got)
	}
}

func TestClientFetchProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.FetchProduct(context.Background(), "missing-handle")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestClientRemoteErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"description":"sold out"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.AddToCart(context.Background(), 99, 1)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRemote {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !strings.Contains(err.Error(), "storefront request failed") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestClientTransportError(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.FetchCart(context.Background())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestClientParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": "not-a-list"`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.FetchCart(context.Background())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeParse {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestClientAddToCartPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cart/add" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["id"] != float64(101) || payload["quantity"] != float64(3) {
			t.Fatalf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`{"product_id":11,"variant_id":101,"quantity":3}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.AddToCart(context.Background(), 101, 3)
	if err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if result.ProductID != 11 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestClientChangeLineQuantityZeroRemoves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["id"] != "abc:1" || payload["quantity"] != float64(0) {
			t.Fatalf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`{"items":[],"total_price":0}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	cart, err := client.ChangeLineQuantity(context.Background(), "abc:1", 0)
	if err != nil {
		t.Fatalf("change quantity: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalPriceCents != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestClientAutomaticRecommendationsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommendations/products" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("product_id") != "42" || r.URL.Query().Get("limit") != "6" {
			t.Fatalf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"products":[{"id":7,"title":"Bowl"},{"id":8,"title":"Mat"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	products, err := client.FetchAutomaticRecommendations(context.Background(), 42, 6)
	if err != nil {
		t.Fatalf("fetch recommendations: %v", err)
	}
	if len(products) != 2 || products[0].ID != 7 || products[1].ID != 8 {
		t.Fatalf("unexpected products %+v", products)
	}
}

func TestClientValidation(t *testing.T) {
	if _, err := NewClient("   "); err == nil {
		t.Fatal("expected error for empty base url")
	}

	client, err := NewClient("http://shop.test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.AddToCart(context.Background(), 0, 1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.ChangeLineQuantity(context.Background(), "", 1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.FetchProduct(context.Background(), "  "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

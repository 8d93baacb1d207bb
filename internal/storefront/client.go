package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	pkgerrors "slidecart/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// Client wraps the platform storefront API used for cart and product reads.
// It never retries; callers own the user-facing fallback.
type Client struct {
	httpClient *http.Client
	baseURL    string
	fetches    singleflight.Group
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a storefront client bound to the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storefront base url is required")
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return client, nil
}

// FetchCart retrieves the current cart snapshot.
func (c *Client) FetchCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.getJSON(ctx, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// FetchProduct retrieves one product by numeric id or handle. Concurrent
// fetches for the same key are collapsed into a single request.
func (c *Client) FetchProduct(ctx context.Context, idOrHandle string) (*Product, error) {
	key := ProductKey(idOrHandle)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id or handle is required")
	}

	result, err, _ := c.fetches.Do(key, func() (any, error) {
		var product Product
		if err := c.getJSON(ctx, "/products/"+url.PathEscape(key), nil, &product); err != nil {
			return nil, err
		}
		return &product, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Product), nil
}

// FetchProductByID retrieves one product by numeric id.
func (c *Client) FetchProductByID(ctx context.Context, id int64) (*Product, error) {
	return c.FetchProduct(ctx, IDKey(id))
}

// AddToCart adds quantity units of the variant to the cart.
func (c *Client) AddToCart(ctx context.Context, variantID int64, quantity int) (*AddResult, error) {
	if variantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	payload := map[string]any{"id": variantID, "quantity": quantity}
	var result AddResult
	if err := c.postJSON(ctx, "/cart/add", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChangeLineQuantity sets the quantity of the line identified by key.
// Quantity zero removes the line. Returns the updated cart.
func (c *Client) ChangeLineQuantity(ctx context.Context, lineKey string, quantity int) (*Cart, error) {
	if strings.TrimSpace(lineKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line key is required")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}

	payload := map[string]any{"id": lineKey, "quantity": quantity}
	var cart Cart
	if err := c.postJSON(ctx, "/cart/change", payload, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// FetchAutomaticRecommendations asks the platform similarity endpoint for up
// to limit products. Order is returned untouched.
func (c *Client) FetchAutomaticRecommendations(ctx context.Context, productID int64, limit int) ([]Product, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	query := url.Values{}
	query.Set("product_id", strconv.FormatInt(productID, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var payload struct {
		Products []Product `json:"products"`
	}
	if err := c.getJSON(ctx, "/recommendations/products", query, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build storefront request")
	}
	req.Header.Set("Accept", "application/json")

	return c.execute(req, path, dest)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal storefront request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build storefront request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.execute(req, path, dest)
}

func (c *Client) execute(req *http.Request, path string, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "reach storefront")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("storefront resource %s not found", path))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeRemote,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"storefront request failed",
		)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeParse, err, "decode storefront response")
	}
	return nil
}

package drawer

import (
	"slidecart/internal/recommend"
	"slidecart/internal/storefront"
	"slidecart/pkg/config"
	"slidecart/pkg/money"
)

// Snapshot is the full drawer view returned to the embedding layer after
// every operation: lifecycle state, cart contents and the combined
// recommendation list, with prices already formatted for display.
type Snapshot struct {
	SessionID       string              `json:"session_id"`
	State           State               `json:"state"`
	Interacting     bool                `json:"interacting"`
	Position        string              `json:"position"`
	Width           int                 `json:"width"`
	Cart            CartView            `json:"cart"`
	Recommendations RecommendationsView `json:"recommendations"`
}

// CartView is the display shape of the remote cart snapshot.
type CartView struct {
	Items       []LineView `json:"items"`
	ItemCount   int        `json:"item_count"`
	TotalPrice  string     `json:"total_price"`
	Currency    string     `json:"currency"`
	CheckoutURL string     `json:"checkout_url"`
}

// LineView is one cart line ready for rendering.
type LineView struct {
	Key          string `json:"key"`
	ProductID    int64  `json:"product_id"`
	VariantID    int64  `json:"variant_id"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	Quantity     int    `json:"quantity"`
	LinePrice    string `json:"line_price"`
	Image        string `json:"image"`
}

// RecommendationsView is the titled recommendation block.
type RecommendationsView struct {
	Title string               `json:"title"`
	Items []RecommendationView `json:"items"`
}

// RecommendationView is one recommendation card.
type RecommendationView struct {
	ProductID int64  `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Handle    string `json:"handle"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Message   string `json:"message,omitempty"`
	Source    string `json:"source"`
	Priority  int    `json:"priority"`
	Image     string `json:"image"`
}

func buildCartView(cart *storefront.Cart, cfg config.DrawerConfig) CartView {
	view := CartView{
		Items:       []LineView{},
		Currency:    cfg.Currency,
		CheckoutURL: cfg.CheckoutURL,
	}
	if cart == nil {
		return view
	}
	for _, item := range cart.Items {
		view.Items = append(view.Items, LineView{
			Key:          item.Key,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Title:        item.Title,
			VariantTitle: item.VariantTitle,
			Quantity:     item.Quantity,
			LinePrice:    money.Format(item.LinePriceCents, cfg.Currency),
			Image:        item.FeaturedImage.URL,
		})
		view.ItemCount += item.Quantity
	}
	view.TotalPrice = money.Format(cart.TotalPriceCents, cfg.Currency)
	return view
}

func buildRecommendationsView(candidates []recommend.Candidate, title, currency string) RecommendationsView {
	view := RecommendationsView{
		Title: title,
		Items: []RecommendationView{},
	}
	for _, c := range candidates {
		item := RecommendationView{
			ProductID: c.Product.ID,
			Handle:    c.Product.Handle,
			Title:     c.Product.Title,
			Message:   c.Message,
			Source:    string(c.Source),
			Priority:  c.Priority,
			Image:     c.Product.FeaturedImage,
		}
		if variant, ok := c.Product.DefaultVariant(); ok {
			item.VariantID = variant.ID
			item.Price = money.Format(variant.PriceCents, currency)
		}
		view.Items = append(view.Items, item)
	}
	return view
}

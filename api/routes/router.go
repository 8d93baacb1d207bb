package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slidecart/api/controllers"
	cartcontrollers "slidecart/api/controllers/cart"
	drawercontrollers "slidecart/api/controllers/drawer"
	recscontrollers "slidecart/api/controllers/recommendations"
	"slidecart/api/middleware"
	drawersvc "slidecart/internal/drawer"
	"slidecart/pkg/config"
	"slidecart/pkg/logger"
)

// NewRouter wires the drawer API surface: session lifecycle, cart
// mutations, recommendations, health and metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	drawerService drawersvc.Service,
	cachePinger controllers.Pinger,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Storefront.AllowedOrigins...),
	)

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, cachePinger))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", drawercontrollers.SessionCreate(drawerService, logg))

		r.Route("/{sessionId}", func(r chi.Router) {
			r.Post("/open", drawercontrollers.DrawerOpen(drawerService, logg))
			r.Post("/close", drawercontrollers.DrawerClose(drawerService, logg))
			r.Post("/interact", drawercontrollers.DrawerInteract(drawerService, logg))

			r.Get("/cart", cartcontrollers.CartFetch(drawerService, logg))
			r.Post("/items", cartcontrollers.CartAddItem(drawerService, logg))
			r.Post("/items/change", cartcontrollers.CartChangeLine(drawerService, logg))

			r.Get("/recommendations", recscontrollers.RecommendationsFetch(drawerService, logg))
		})
	})

	return r
}

package cart

import (
	"net/http"

	"slidecart/api/controllers/drawer"
	"slidecart/api/responses"
	"slidecart/api/validators"
	drawersvc "slidecart/internal/drawer"
	pkgerrors "slidecart/pkg/errors"
	"slidecart/pkg/logger"
)

// CartFetch returns the current cart snapshot, refreshed from the
// storefront.
func CartFetch(svc drawersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drawer service unavailable"))
			return
		}

		snapshot, err := svc.CartState(r.Context(), drawer.SessionID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// CartAddItem adds a variant to the cart and returns the refreshed
// snapshot, recommendations included.
func CartAddItem(svc drawersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drawer service unavailable"))
			return
		}

		var payload drawersvc.AddItemInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.AddItem(r.Context(), drawer.SessionID(r), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// CartChangeLine updates one line's quantity; zero removes the line.
func CartChangeLine(svc drawersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drawer service unavailable"))
			return
		}

		var payload drawersvc.ChangeQuantityInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.ChangeQuantity(r.Context(), drawer.SessionID(r), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

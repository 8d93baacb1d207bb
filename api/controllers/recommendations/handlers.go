package recommendations

import (
	"net/http"

	"slidecart/api/controllers/drawer"
	"slidecart/api/responses"
	"slidecart/api/validators"
	drawersvc "slidecart/internal/drawer"
	pkgerrors "slidecart/pkg/errors"
	"slidecart/pkg/logger"
)

const maxLimitOverride = 24

// RecommendationsFetch returns the session's combined recommendation
// list. The optional limit query trims the response without re-running
// the aggregation.
func RecommendationsFetch(svc drawersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drawer service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxLimitOverride)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Recommendations(r.Context(), drawer.SessionID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if limit > 0 && len(view.Items) > limit {
			view.Items = view.Items[:limit]
		}

		responses.WriteSuccess(w, view)
	}
}

package drawer

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"slidecart/api/responses"
	drawersvc "slidecart/internal/drawer"
	pkgerrors "slidecart/pkg/errors"
	"slidecart/pkg/logger"
)

// SessionCreate opens a new drawer session for a storefront visitor.
func SessionCreate(svc drawersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drawer service unavailable"))
			return
		}

		snapshot, err := svc.CreateSession(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, snapshot)
	}
}

// DrawerOpen transitions the drawer to open.
func DrawerOpen(svc drawersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drawer service unavailable"))
			return
		}

		snapshot, err := svc.OpenDrawer(sessionCtx(r, logg), SessionID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// DrawerClose transitions the drawer to closed.
func DrawerClose(svc drawersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drawer service unavailable"))
			return
		}

		snapshot, err := svc.CloseDrawer(sessionCtx(r, logg), SessionID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// DrawerInteract records visitor activity, suspending auto-close.
func DrawerInteract(svc drawersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drawer service unavailable"))
			return
		}

		snapshot, err := svc.MarkInteraction(sessionCtx(r, logg), SessionID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// SessionID extracts the session id path parameter.
func SessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionId")
}

func sessionCtx(r *http.Request, logg *logger.Logger) context.Context {
	ctx := r.Context()
	if logg != nil {
		if id := SessionID(r); id != "" {
			ctx = logg.WithSessionID(ctx, id)
		}
	}
	return ctx
}

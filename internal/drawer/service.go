package drawer

import (
	"context"
	"fmt"

	"slidecart/internal/recommend"
	"slidecart/internal/storefront"
	"slidecart/pkg/config"
	pkgerrors "slidecart/pkg/errors"
	"slidecart/pkg/logger"
	"slidecart/pkg/metrics"
)

// CartGateway is the storefront surface the drawer mutates carts through.
type CartGateway interface {
	FetchCart(ctx context.Context) (*storefront.Cart, error)
	AddToCart(ctx context.Context, variantID int64, quantity int) (*storefront.AddResult, error)
	ChangeLineQuantity(ctx context.Context, lineKey string, quantity int) (*storefront.Cart, error)
}

// Service exposes the drawer session operations.
type Service interface {
	CreateSession(ctx context.Context) (*Snapshot, error)
	OpenDrawer(ctx context.Context, sessionID string) (*Snapshot, error)
	CloseDrawer(ctx context.Context, sessionID string) (*Snapshot, error)
	MarkInteraction(ctx context.Context, sessionID string) (*Snapshot, error)
	CartState(ctx context.Context, sessionID string) (*Snapshot, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*Snapshot, error)
	ChangeQuantity(ctx context.Context, sessionID string, input ChangeQuantityInput) (*Snapshot, error)
	Recommendations(ctx context.Context, sessionID string) (*RecommendationsView, error)
}

type service struct {
	gateway  CartGateway
	registry *Registry
	resolver *recommend.Resolver

	drawerCfg config.DrawerConfig
	recsCfg   config.RecommendationsConfig
	hooks     Hooks
	clock     Clock
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Gateway         CartGateway
	Registry        *Registry
	Resolver        *recommend.Resolver
	Drawer          config.DrawerConfig
	Recommendations config.RecommendationsConfig
	Hooks           Hooks
	Clock           Clock
	Metrics         *metrics.PipelineMetrics
	Logger          *logger.Logger
}

// NewService builds a drawer service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("cart gateway required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("recommendation resolver required")
	}
	if params.Clock == nil {
		params.Clock = NewClock()
	}
	return &service{
		gateway:   params.Gateway,
		registry:  params.Registry,
		resolver:  params.Resolver,
		drawerCfg: params.Drawer,
		recsCfg:   params.Recommendations,
		hooks:     params.Hooks,
		clock:     params.Clock,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// AddItemInput is the add-to-cart payload.
type AddItemInput struct {
	VariantID int64 `json:"variant_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// ChangeQuantityInput is the change-line payload; quantity 0 removes.
type ChangeQuantityInput struct {
	LineKey  string `json:"line_key" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// CreateSession builds, registers and returns a fresh closed session with
// its initial cart snapshot.
func (s *service) CreateSession(ctx context.Context) (*Snapshot, error) {
	if !s.drawerCfg.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "drawer is disabled")
	}

	aggregator, err := recommend.NewAggregator(recommend.AggregatorParams{
		Resolver: s.resolver,
		Metrics:  s.metrics,
		Limit:    s.recsCfg.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building aggregator")
	}

	session, err := NewSession(SessionParams{
		Config:     s.drawerCfg,
		Hooks:      s.hooks,
		Clock:      s.clock,
		Aggregator: aggregator,
		Logger:     s.logg,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building session")
	}
	if err := s.registry.Add(session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "registering session")
	}

	cart, err := s.gateway.FetchCart(ctx)
	if err != nil {
		// The session is still usable; the cart loads on the next refresh.
		s.warn(ctx, session.ID(), "initial cart fetch failed", err)
	} else {
		session.setCart(cart)
	}

	s.info(ctx, session.ID(), "drawer session created")
	return s.snapshot(session), nil
}

// OpenDrawer opens the drawer, initializing recommendations on first open.
func (s *service) OpenDrawer(ctx context.Context, sessionID string) (*Snapshot, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.Open()

	cart := session.Cart()
	if cart == nil {
		if cart, err = s.gateway.FetchCart(ctx); err != nil {
			s.warn(ctx, sessionID, "cart fetch on open failed", err)
			return s.snapshot(session), nil
		}
		session.setCart(cart)
	}
	// First open with a non-empty cart resolves recommendations; an empty
	// cart costs no further network calls.
	if len(session.Recommendations()) == 0 {
		session.Aggregator().Combine(ctx, cart)
	}
	return s.snapshot(session), nil
}

// CloseDrawer closes the drawer.
func (s *service) CloseDrawer(_ context.Context, sessionID string) (*Snapshot, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	session.Close()
	return s.snapshot(session), nil
}

// MarkInteraction records visitor activity, suspending auto-close.
func (s *service) MarkInteraction(_ context.Context, sessionID string) (*Snapshot, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	session.MarkInteraction()
	return s.snapshot(session), nil
}

// CartState returns the current snapshot, refreshing the cart first.
func (s *service) CartState(ctx context.Context, sessionID string) (*Snapshot, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	cart, err := s.gateway.FetchCart(ctx)
	if err != nil {
		return nil, err
	}
	session.setCart(cart)
	session.Aggregator().Cleanup(cart)
	return s.snapshot(session), nil
}

// AddItem adds a variant to the cart, merging into an existing line when
// the variant is already present, then refreshes cart and
// recommendations as one serialized unit.
func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*Snapshot, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mutateMu.Lock()
	defer session.mutateMu.Unlock()

	err = s.mutate(ctx, session, "add", func(ctx context.Context) error {
		cart, err := s.gateway.FetchCart(ctx)
		if err != nil {
			return err
		}
		if line, ok := cart.LineByVariant(input.VariantID); ok {
			_, err = s.gateway.ChangeLineQuantity(ctx, line.Key, line.Quantity+input.Quantity)
			return err
		}
		_, err = s.gateway.AddToCart(ctx, input.VariantID, input.Quantity)
		return err
	})
	if err != nil {
		session.toast(ToastKindError, "No se pudo agregar el producto")
		return nil, err
	}

	session.toast(ToastKindSuccess, "Producto agregado al carrito")
	session.Open()
	return s.snapshot(session), nil
}

// ChangeQuantity updates one line's quantity; zero removes the line.
func (s *service) ChangeQuantity(ctx context.Context, sessionID string, input ChangeQuantityInput) (*Snapshot, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mutateMu.Lock()
	defer session.mutateMu.Unlock()

	op := "change"
	if input.Quantity == 0 {
		op = "remove"
	}
	err = s.mutate(ctx, session, op, func(ctx context.Context) error {
		_, err := s.gateway.ChangeLineQuantity(ctx, input.LineKey, input.Quantity)
		return err
	})
	if err != nil {
		session.toast(ToastKindError, "No se pudo actualizar el carrito")
		return nil, err
	}
	return s.snapshot(session), nil
}

// Recommendations returns the current combined list without mutating.
func (s *service) Recommendations(_ context.Context, sessionID string) (*RecommendationsView, error) {
	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	session.touch()
	view := buildRecommendationsView(session.Recommendations(), s.recsCfg.Title, s.drawerCfg.Currency)
	return &view, nil
}

// mutate runs one cart mutation followed by the refetch, eviction and
// recombination steps. The caller holds the session's mutation lock, so
// a burst of actions lands in request order. On failure the prior cart
// and recommendation state stay untouched.
func (s *service) mutate(ctx context.Context, session *Session, op string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		s.metrics.IncMutationFailure(op)
		s.warn(ctx, session.ID(), "cart mutation failed: "+op, err)
		return err
	}

	cart, err := s.gateway.FetchCart(ctx)
	if err != nil {
		s.metrics.IncMutationFailure(op)
		s.warn(ctx, session.ID(), "cart refetch failed after "+op, err)
		return err
	}

	session.setCart(cart)
	session.Aggregator().Cleanup(cart)
	session.Aggregator().Combine(ctx, cart)
	session.refreshed()

	s.metrics.IncMutationSuccess(op)
	return nil
}

func (s *service) snapshot(session *Session) *Snapshot {
	return &Snapshot{
		SessionID:       session.ID(),
		State:           session.State(),
		Interacting:     session.Interacting(),
		Position:        s.drawerCfg.Position,
		Width:           s.drawerCfg.Width,
		Cart:            buildCartView(session.Cart(), s.drawerCfg),
		Recommendations: buildRecommendationsView(session.Recommendations(), s.recsCfg.Title, s.drawerCfg.Currency),
	}
}

func (s *service) info(ctx context.Context, sessionID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithSessionID(ctx, sessionID), msg)
}

func (s *service) warn(ctx context.Context, sessionID, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

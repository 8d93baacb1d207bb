package drawer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidecart/internal/recommend"
	"slidecart/internal/storefront"
	"slidecart/pkg/config"
	"slidecart/pkg/logger"
)

// State is the drawer lifecycle state.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

// Toast is a transient user notification emitted through the hooks.
type Toast struct {
	Message  string        `json:"message"`
	Kind     string        `json:"kind"`
	Duration time.Duration `json:"duration"`
}

const (
	ToastKindSuccess = "success"
	ToastKindError   = "error"
)

// Hooks are the integration points the embedding layer subscribes to.
// All fields are optional; the session never reaches for ambient globals.
type Hooks struct {
	OnOpen    func(sessionID string)
	OnClose   func(sessionID string)
	OnToast   func(sessionID string, toast Toast)
	OnRefresh func(sessionID string)
}

// Session owns the drawer state for one storefront visitor: open/closed,
// the auto-close and interaction-idle timers, the latest cart snapshot
// and the per-cart recommendation aggregator. Methods are safe for
// concurrent use; cart mutations are additionally serialized through
// mutateMu so a rapid burst of actions cannot interleave refreshes.
type Session struct {
	id         string
	cfg        config.DrawerConfig
	hooks      Hooks
	clock      Clock
	aggregator *recommend.Aggregator
	logg       *logger.Logger

	mutateMu sync.Mutex

	mu          sync.Mutex
	state       State
	interacting bool
	autoClose   Timer
	idle        Timer
	cart        *storefront.Cart
	lastSeen    time.Time
}

// SessionParams groups session construction inputs.
type SessionParams struct {
	ID         string
	Config     config.DrawerConfig
	Hooks      Hooks
	Clock      Clock
	Aggregator *recommend.Aggregator
	Logger     *logger.Logger
}

// NewSession builds a closed session; the aggregator is required.
func NewSession(params SessionParams) (*Session, error) {
	if params.Aggregator == nil {
		return nil, fmt.Errorf("aggregator required")
	}
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	if params.Clock == nil {
		params.Clock = NewClock()
	}
	s := &Session{
		id:         params.ID,
		cfg:        params.Config,
		hooks:      params.Hooks,
		clock:      params.Clock,
		aggregator: params.Aggregator,
		logg:       params.Logger,
		state:      StateClosed,
	}
	s.lastSeen = s.clock.Now()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interacting reports whether the visitor is currently interacting.
func (s *Session) Interacting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interacting
}

// LastSeen returns the time of the most recent session activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Cart returns the latest cart snapshot, which may be nil before the
// first fetch.
func (s *Session) Cart() *storefront.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// Recommendations returns the current combined recommendation list.
func (s *Session) Recommendations() []recommend.Candidate {
	return s.aggregator.Combined()
}

// Open transitions to the open state, arming auto-close when enabled and
// the visitor is not interacting. Opening an open drawer only re-arms.
func (s *Session) Open() {
	s.mu.Lock()
	wasClosed := s.state == StateClosed
	s.state = StateOpen
	s.lastSeen = s.clock.Now()
	s.armAutoCloseLocked()
	s.mu.Unlock()

	if wasClosed && s.hooks.OnOpen != nil {
		s.hooks.OnOpen(s.id)
	}
}

// Close transitions to the closed state, disarming both timers and
// clearing the interaction flag.
func (s *Session) Close() {
	s.mu.Lock()
	wasOpen := s.state == StateOpen
	s.state = StateClosed
	s.interacting = false
	s.lastSeen = s.clock.Now()
	s.stopTimerLocked(&s.autoClose)
	s.stopTimerLocked(&s.idle)
	s.mu.Unlock()

	if wasOpen && s.hooks.OnClose != nil {
		s.hooks.OnClose(s.id)
	}
}

// MarkInteraction records visitor activity inside the drawer: auto-close
// is suspended and an idle timer re-armed; when it expires with the
// drawer still open, auto-close resumes.
func (s *Session) MarkInteraction() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.clock.Now()
	if s.state != StateOpen {
		return
	}
	s.interacting = true
	s.stopTimerLocked(&s.autoClose)
	s.stopTimerLocked(&s.idle)
	s.idle = s.clock.AfterFunc(s.cfg.InteractionIdleDelay, s.onIdle)
}

func (s *Session) onIdle() {
	s.mu.Lock()
	s.interacting = false
	s.idle = nil
	s.armAutoCloseLocked()
	s.mu.Unlock()
}

func (s *Session) onAutoClose() {
	s.mu.Lock()
	s.autoClose = nil
	fire := s.state == StateOpen && !s.interacting
	s.mu.Unlock()

	if fire {
		s.Close()
	}
}

// armAutoCloseLocked replaces any pending auto-close deadline. Never arms
// unless auto-close is enabled, the drawer is open and nobody interacts.
func (s *Session) armAutoCloseLocked() {
	s.stopTimerLocked(&s.autoClose)
	if !s.cfg.AutoCloseEnabled || s.state != StateOpen || s.interacting {
		return
	}
	s.autoClose = s.clock.AfterFunc(s.cfg.AutoCloseDelay, s.onAutoClose)
}

func (s *Session) stopTimerLocked(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// setCart swaps in a fresh cart snapshot.
func (s *Session) setCart(cart *storefront.Cart) {
	s.mu.Lock()
	s.cart = cart
	s.lastSeen = s.clock.Now()
	s.mu.Unlock()
}

// toast emits a notification when toasts are enabled.
func (s *Session) toast(kind, message string) {
	if !s.cfg.ShowToastNotifications || s.hooks.OnToast == nil {
		return
	}
	s.hooks.OnToast(s.id, Toast{
		Message:  message,
		Kind:     kind,
		Duration: s.cfg.ToastDuration,
	})
}

// refreshed signals the embedding layer that cart or recommendations
// changed.
func (s *Session) refreshed() {
	if s.hooks.OnRefresh != nil {
		s.hooks.OnRefresh(s.id)
	}
}

// Aggregator exposes the per-session aggregator.
func (s *Session) Aggregator() *recommend.Aggregator {
	return s.aggregator
}

// touch updates the activity clock without other side effects.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.clock.Now()
	s.mu.Unlock()
}

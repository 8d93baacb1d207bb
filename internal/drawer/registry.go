package drawer

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgerrors "slidecart/pkg/errors"
	"slidecart/pkg/logger"
)

// DefaultSessionTTL caps how long an idle session is retained.
const DefaultSessionTTL = 30 * time.Minute

// Registry holds the live sessions keyed by id. Sessions idle past the
// TTL are evicted by the sweeper.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl   time.Duration
	clock Clock
	logg  *logger.Logger
}

// RegistryParams groups registry construction inputs.
type RegistryParams struct {
	TTL    time.Duration
	Clock  Clock
	Logger *logger.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(params RegistryParams) *Registry {
	if params.TTL <= 0 {
		params.TTL = DefaultSessionTTL
	}
	if params.Clock == nil {
		params.Clock = NewClock()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      params.TTL,
		clock:    params.Clock,
		logg:     params.Logger,
	}
}

// Add registers a session under its id.
func (r *Registry) Add(session *Session) error {
	if session == nil {
		return fmt.Errorf("session required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID()]; ok {
		return fmt.Errorf("session %s already registered", session.ID())
	}
	r.sessions[session.ID()] = session
	return nil
}

// Get returns the session or a not-found error.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	return session, nil
}

// Remove drops a session, closing it first so its timers stop.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		session.Close()
	}
}

// Len returns the live session count.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts every session idle past the TTL and returns how many went.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, session := range r.sessions {
		if session.LastSeen().Before(cutoff) {
			expired = append(expired, session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	if len(expired) > 0 && r.logg != nil {
		r.logg.Info(r.logg.WithField(ctx, "count", len(expired)), "expired drawer sessions swept")
	}
	return len(expired)
}

// StartSweeper sweeps on the interval until the context is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}

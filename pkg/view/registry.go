package view

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matst80/securityapp/pkg/types"
)

var openViews = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "securityapp_open_views",
	Help: "The number of open screen-sessions",
})

type entry struct {
	state    *State
	lastUsed time.Time
}

// Registry keeps the open screen-sessions by id.
type Registry struct {
	mu       sync.Mutex
	fetcher  Fetcher
	sessions map[string]*entry
	now      func() time.Time
}

func NewRegistry(fetcher Fetcher) *Registry {
	return &Registry{
		fetcher:  fetcher,
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Open creates a screen-session for session and starts loading its views.
func (r *Registry) Open(ctx context.Context, session types.Session) (string, *State) {
	id := uuid.NewString()
	state := New(ctx, r.fetcher, session)
	r.mu.Lock()
	r.sessions[id] = &entry{state: state, lastUsed: r.now()}
	openViews.Set(float64(len(r.sessions)))
	r.mu.Unlock()
	return id, state
}

// Get returns the screen-session id if it belongs to session.
func (r *Registry) Get(id string, session types.Session) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.state.Session().UID != session.UID {
		return nil, types.ErrNotFound
	}
	e.lastUsed = r.now()
	return e.state, nil
}

func (r *Registry) Close(id string, session types.Session) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok || e.state.Session().UID != session.UID {
		r.mu.Unlock()
		return types.ErrNotFound
	}
	delete(r.sessions, id)
	openViews.Set(float64(len(r.sessions)))
	r.mu.Unlock()
	e.state.Close()
	return nil
}

// Sweep closes the screen-sessions not used for maxIdle and returns how many were closed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	stale := make([]*State, 0)
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.state)
			delete(r.sessions, id)
		}
	}
	openViews.Set(float64(len(r.sessions)))
	r.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*entry)
	openViews.Set(0)
	r.mu.Unlock()
	for _, e := range all {
		e.state.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

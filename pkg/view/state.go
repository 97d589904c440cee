package view

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matst80/securityapp/pkg/types"
)

// Fetcher loads one ordered view. It never fails; a failed fetch is an empty view.
type Fetcher interface {
	FetchOrdering(ctx context.Context, session types.Session, ordering types.Ordering) []types.Record
}

// State holds the five ordered views of one screen-session together with the
// filter text, and keeps the active view equal to Filter(base, filter).
type State struct {
	mu      sync.RWMutex
	session types.Session
	views   [types.OrderingCount][]types.Record
	loaded  [types.OrderingCount]bool
	base    types.Ordering
	filter  string
	active  []types.Record
	closed  bool
	done    chan struct{}
}

// Snapshot is a copy of the state at one point in time.
type Snapshot struct {
	Base    types.Ordering `json:"base"`
	Filter  string         `json:"filter"`
	Loaded  bool           `json:"loaded"`
	Records []types.Record `json:"records"`
}

// New starts fetching all five views concurrently. Each fetch fills only its
// own slot. The fetches are not cancelled with ctx, results arriving after
// Close are dropped.
func New(ctx context.Context, fetcher Fetcher, session types.Session) *State {
	s := &State{
		session: session,
		active:  []types.Record{},
		done:    make(chan struct{}),
	}
	for i := range s.views {
		s.views[i] = []types.Record{}
	}

	fetchCtx := context.WithoutCancel(ctx)
	wg := sync.WaitGroup{}
	for _, o := range types.Orderings {
		wg.Add(1)
		go func(o types.Ordering) {
			defer wg.Done()
			s.store(o, fetcher.FetchOrdering(fetchCtx, session, o))
		}(o)
	}
	go func() {
		wg.Wait()
		close(s.done)
	}()
	return s
}

func (s *State) store(o types.Ordering, records []types.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		log.WithField("uid", s.session.UID).Debugf("dropping %s view of closed session", o)
		return
	}
	if records == nil {
		records = []types.Record{}
	}
	s.views[o] = records
	s.loaded[o] = true
	if o == s.base {
		s.recompute()
	}
}

// recompute must be called with the write lock held.
func (s *State) recompute() {
	s.active = Filter(s.views[s.base], s.filter)
}

// Done is closed when all five fetches have completed.
func (s *State) Done() <-chan struct{} {
	return s.done
}

func (s *State) Wait() {
	<-s.done
}

// WaitContext waits for the fetches or until ctx is done.
func (s *State) WaitContext(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.loaded {
		if !l {
			return false
		}
	}
	return true
}

func (s *State) Session() types.Session {
	return s.session
}

// SelectBase swaps the base view and reapplies the current filter.
func (s *State) SelectBase(o types.Ordering) error {
	if !o.Valid() {
		return errors.Errorf("invalid ordering %d", o)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = o
	s.recompute()
	return nil
}

// SetFilter replaces the filter text and recomputes the active view.
func (s *State) SetFilter(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = text
	s.recompute()
}

func (s *State) Active() []types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.active)
}

func (s *State) Base() types.Ordering {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

func (s *State) Filter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// View returns the unfiltered view for o.
func (s *State) View(o types.Ordering) []types.Record {
	if !o.Valid() {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.views[o])
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loaded := true
	for _, l := range s.loaded {
		loaded = loaded && l
	}
	return Snapshot{
		Base:    s.base,
		Filter:  s.filter,
		Loaded:  loaded,
		Records: slices.Clone(s.active),
	}
}

// Close ends the screen-session. Views are released and late fetches dropped.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for i := range s.views {
		s.views[i] = []types.Record{}
	}
	s.active = []types.Record{}
}

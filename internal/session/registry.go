// Package session gives every visitor their own rating store and
// interaction context, keyed by a cookie id.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Zachkp/portfolio/internal/ratings"
)

// Session is one visitor's page session.
type Session struct {
	ID string

	mu       sync.Mutex
	store    *ratings.Store
	ctx      ratings.Context
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's store and context.
// Events of one visitor are therefore applied one at a time.
func (s *Session) Do(fn func(store *ratings.Store, ctx *ratings.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store, &s.ctx)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Config controls session lifetime.
type Config struct {
	TTL        time.Duration
	Sweep      time.Duration
	DateLayout string
	// Observer is subscribed to every store the registry creates.
	Observer ratings.Observer
	Now      func() time.Time
}

// Stats is a snapshot of live rating activity.
type Stats struct {
	Sessions int `json:"sessions"`
	Comments int `json:"comments"`
}

// Registry tracks live sessions and evicts idle ones in the background.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewRegistry creates a registry and starts its janitor. Call Close to stop it.
func NewRegistry(cfg Config) *Registry {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.Sweep <= 0 {
		cfg.Sweep = 5 * time.Minute
	}
	r := &Registry{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Reset re-initializes the session for id with the given project titles,
// creating it when id is empty or unknown. It returns the session in use.
func (r *Registry) Reset(id string, titles []string) *Session {
	s := r.lookup(id)
	if s == nil {
		s = r.create()
	}
	s.Do(func(store *ratings.Store, ctx *ratings.Context) {
		store.Initialize(titles)
		*ctx = ratings.Context{}
	})
	s.touch(r.cfg.Now())
	return s
}

// Get returns the live session for id.
func (r *Registry) Get(id string) (*Session, bool) {
	s := r.lookup(id)
	if s == nil {
		return nil, false
	}
	s.touch(r.cfg.Now())
	return s, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Stats counts sessions and the comments they currently hold.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.Unlock()

	st := Stats{Sessions: len(live)}
	for _, s := range live {
		s.Do(func(store *ratings.Store, _ *ratings.Context) {
			st.Comments += store.CommentCount()
		})
	}
	return st
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	cutoff := r.cfg.Now().Add(-r.cfg.TTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Close stops the janitor. It is safe to call more than once.
func (r *Registry) Close() {
	r.once.Do(func() {
		close(r.stop)
		<-r.done
	})
}

func (r *Registry) lookup(id string) *Session {
	if id == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

func (r *Registry) create() *Session {
	store := ratings.New(ratings.WithDateLayout(r.cfg.DateLayout))
	if r.cfg.Observer != nil {
		store.Subscribe(r.cfg.Observer)
	}
	s := &Session{
		ID:       uuid.NewString(),
		store:    store,
		lastSeen: r.cfg.Now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	log.WithField("session", s.ID).Debug("session created")
	return s
}

func (r *Registry) janitor() {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.Sweep)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.WithField("removed", n).Debug("evicted idle sessions")
			}
		}
	}
}

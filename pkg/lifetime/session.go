package lifetime

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName is the cookie Middleware keeps the session id in
const SessionCookieName = "goioc_session"

// DefaultSessionTTL is the idle time after which a session scope is closed
const DefaultSessionTTL = 20 * time.Minute

type session struct {
	scope    *Scope
	lastSeen time.Time
}

// SessionStore maps session ids to session scopes
type SessionStore struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time
}

// NewSessionStore creates a store; ttl <= 0 keeps sessions until abandoned
func NewSessionStore(ttl time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// Get returns the scope of a live session and marks it as seen
func (s *SessionStore) Get(id string) (*Scope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.scope, true
}

// GetOrOpen returns the scope for id, opening a new session when id is unknown or expired
func (s *SessionStore) GetOrOpen(id string) (string, *Scope) {
	s.sweepIfDue()

	if id != "" {
		if scope, ok := s.Get(id); ok {
			return id, scope
		}
	}
	return s.Open()
}

// Open starts a new session
func (s *SessionStore) Open() (string, *Scope) {
	id := uuid.NewString()
	scope := NewScope()

	s.mu.Lock()
	s.sessions[id] = &session{scope: scope, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Debug("Session opened", "session", id)
	return id, scope
}

// Abandon ends a session and closes its scope
func (s *SessionStore) Abandon(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	return sess.scope.Close()
}

// Sweep closes expired sessions and returns how many were removed
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if s.expired(sess) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.lastSweep = s.now()
	s.mu.Unlock()

	for _, sess := range expired {
		if err := sess.scope.Close(); err != nil {
			s.logger.Warn("Failed to close expired session scope", "scope", sess.scope.ID(), "error", err)
		}
	}
	return len(expired)
}

// Len returns the number of tracked sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close abandons every session
func (s *SessionStore) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	var errs []error
	for _, sess := range sessions {
		if err := sess.scope.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *SessionStore) expired(sess *session) bool {
	return s.ttl > 0 && s.now().Sub(sess.lastSeen) > s.ttl
}

func (s *SessionStore) sweepIfDue() {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	due := s.now().Sub(s.lastSweep) > s.ttl/2
	s.mu.Unlock()
	if due {
		s.Sweep()
	}
}

// Middleware opens a request scope for every request and, when store is not
// nil, attaches the session scope named by the session cookie
func Middleware(store *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestScope := NewScope()
			defer func() {
				if err := requestScope.Close(); err != nil {
					slog.Default().Warn("Failed to close request scope", "scope", requestScope.ID(), "error", err)
				}
			}()

			ctx := WithRequestScope(r.Context(), requestScope)
			if store != nil {
				var id string
				if cookie, err := r.Cookie(SessionCookieName); err == nil {
					id = cookie.Value
				}
				sid, sessionScope := store.GetOrOpen(id)
				if sid != id {
					http.SetCookie(w, &http.Cookie{
						Name:     SessionCookieName,
						Value:    sid,
						Path:     "/",
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				}
				ctx = WithSessionScope(ctx, sessionScope)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

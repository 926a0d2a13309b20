package lifetime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Scope caches one instance per scoped manager until it is closed
type Scope struct {
	id string

	mu     sync.Mutex
	items  map[string]any
	order  []string
	closed bool
}

// NewScope opens an empty scope with a fresh id
func NewScope() *Scope {
	return &Scope{
		id:    uuid.NewString(),
		items: make(map[string]any),
	}
}

func (s *Scope) ID() string { return s.id }

// Len returns the number of cached instances
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Scope) getOrCreate(key string, create CreateFunc) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrScopeClosed
	}
	if instance, ok := s.items[key]; ok {
		s.mu.Unlock()
		return instance, nil
	}
	s.mu.Unlock()

	// create runs unlocked: it may resolve other scoped components into this scope
	instance, err := create()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = closeInstance(instance)
		return nil, ErrScopeClosed
	}
	if existing, ok := s.items[key]; ok {
		_ = closeInstance(instance)
		return existing, nil
	}
	s.items[key] = instance
	s.order = append(s.order, key)
	return instance, nil
}

// Close closes cached io.Closer instances in reverse creation order
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	items, order := s.items, s.order
	s.items, s.order = nil, nil
	s.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if err := closeInstance(items[order[i]]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type scopeKey int

const (
	threadScopeKey scopeKey = iota
	requestScopeKey
	sessionScopeKey
)

// WithScope attaches a per-thread scope to ctx
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, threadScopeKey, s)
}

// ScopeFrom returns the per-thread scope of ctx
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	return scopeFrom(ctx, threadScopeKey)
}

// WithRequestScope attaches a per-request scope to ctx
func WithRequestScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, requestScopeKey, s)
}

// RequestScopeFrom returns the per-request scope of ctx
func RequestScopeFrom(ctx context.Context) (*Scope, bool) {
	return scopeFrom(ctx, requestScopeKey)
}

// WithSessionScope attaches a session scope to ctx
func WithSessionScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, sessionScopeKey, s)
}

// SessionScopeFrom returns the session scope of ctx
func SessionScopeFrom(ctx context.Context) (*Scope, bool) {
	return scopeFrom(ctx, sessionScopeKey)
}

func scopeFrom(ctx context.Context, key scopeKey) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(key).(*Scope)
	return s, ok && s != nil
}

// scopedManager caches instances in the scope found in the resolve context
type scopedManager struct {
	id     string
	kind   Kind
	lookup func(context.Context) (*Scope, bool)
	logger *slog.Logger
}

func newScopedManager(kind Kind, lookup func(context.Context) (*Scope, bool), logger *slog.Logger) *scopedManager {
	return &scopedManager{
		id:     uuid.NewString(),
		kind:   kind,
		lookup: lookup,
		logger: logger,
	}
}

func (m *scopedManager) ID() string { return m.id }

func (m *scopedManager) Kind() Kind { return m.kind }

func (m *scopedManager) Get(ctx context.Context, create CreateFunc) (any, error) {
	scope, ok := m.lookup(ctx)
	if !ok {
		m.logger.Debug("No scope in context, creating a transient instance", "lifetime", m.kind.String())
		return create()
	}
	return scope.getOrCreate(m.id, create)
}

// Release is a no-op: scoped instances live until their scope closes
func (m *scopedManager) Release(any) bool { return false }

func (m *scopedManager) Shutdown() error { return nil }

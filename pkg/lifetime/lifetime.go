package lifetime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Kind identifies how instances of a component are cached
type Kind int

const (
	KindTransient Kind = iota
	KindSingleton
	KindPerScope
	KindPerWebRequest
	KindPerSession
	KindPooled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindSingleton:
		return "singleton"
	case KindPerScope:
		return "per-scope"
	case KindPerWebRequest:
		return "per-web-request"
	case KindPerSession:
		return "per-session"
	case KindPooled:
		return "pooled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Definition describes the lifetime a component is registered with
type Definition interface {
	Kind() Kind
}

// Transient creates a new instance on every resolve
type Transient struct{}

func (Transient) Kind() Kind { return KindTransient }

// Singleton shares one instance per container
type Singleton struct{}

func (Singleton) Kind() Kind { return KindSingleton }

// PerThread shares one instance per Scope carried by the resolve context.
// Goroutines have no identity, so the scope plays the role a thread plays elsewhere.
type PerThread struct{}

func (PerThread) Kind() Kind { return KindPerScope }

// PerWebRequest shares one instance per HTTP request handled by Middleware
type PerWebRequest struct{}

func (PerWebRequest) Kind() Kind { return KindPerWebRequest }

// PerSession shares one instance per HTTP session handled by Middleware
type PerSession struct{}

func (PerSession) Kind() Kind { return KindPerSession }

// Pool keeps up to MaxSize released instances for reuse
type Pool struct {
	InitialSize int `validate:"gte=0,ltefield=MaxSize"`
	MaxSize     int `validate:"gte=1"`
}

// NewPool returns a pool definition
func NewPool(initialSize, maxSize int) Pool {
	return Pool{InitialSize: initialSize, MaxSize: maxSize}
}

func (Pool) Kind() Kind { return KindPooled }

var (
	// ErrScopeClosed is returned when an instance is requested from a closed scope
	ErrScopeClosed = errors.New("lifetime: scope closed")
	// ErrManagerClosed is returned by a pool after Shutdown
	ErrManagerClosed = errors.New("lifetime: manager closed")
	// ErrInvalidDefinition is returned for definitions that cannot back a manager
	ErrInvalidDefinition = errors.New("lifetime: invalid definition")
)

var validate = validator.New()

// Validate checks a definition before it is used for a registration
func Validate(def Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}

	switch d := def.(type) {
	case Pool:
		return validatePool(d)
	case *Pool:
		if d == nil {
			return fmt.Errorf("%w: nil pool", ErrInvalidDefinition)
		}
		return validatePool(*d)
	}

	if def.Kind() == KindPooled {
		return fmt.Errorf("%w: pooled lifetime %T must be a lifetime.Pool", ErrInvalidDefinition, def)
	}
	return nil
}

func validatePool(p Pool) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: pool(%d, %d): %v", ErrInvalidDefinition, p.InitialSize, p.MaxSize, err)
	}
	return nil
}

// CreateFunc builds a new instance for a manager
type CreateFunc func() (any, error)

// Manager caches instances for lifetimes the wrapped container has no notion of.
// Shutdown matches the shutdown hook of github.com/samber/do.
type Manager interface {
	ID() string
	Kind() Kind
	Get(ctx context.Context, create CreateFunc) (any, error)
	// Release hands an instance back; false when the manager does not own it
	Release(instance any) bool
	Shutdown() error
}

// NewManager builds the manager for a definition.
// Transient and Singleton are served by the wrapped container, so they yield nil.
func NewManager(def Definition, logger *slog.Logger) (Manager, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch d := def.(type) {
	case Pool:
		return newPoolManager(d, logger), nil
	case *Pool:
		return newPoolManager(*d, logger), nil
	}

	switch def.Kind() {
	case KindPerScope:
		return newScopedManager(KindPerScope, ScopeFrom, logger), nil
	case KindPerWebRequest:
		return newScopedManager(KindPerWebRequest, RequestScopeFrom, logger), nil
	case KindPerSession:
		return newScopedManager(KindPerSession, SessionScopeFrom, logger), nil
	default:
		return nil, nil
	}
}

func closeInstance(instance any) error {
	if c, ok := instance.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

package lifetime

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// poolManager never blocks: an empty pool creates, a full pool drops released instances
type poolManager struct {
	id     string
	def    Pool
	logger *slog.Logger

	mu     sync.Mutex
	idle   []any
	leased map[any]struct{}
	warmed bool
	closed bool
}

func newPoolManager(def Pool, logger *slog.Logger) *poolManager {
	return &poolManager{
		id:     uuid.NewString(),
		def:    def,
		logger: logger,
		leased: make(map[any]struct{}),
	}
}

func (p *poolManager) ID() string { return p.id }

func (p *poolManager) Kind() Kind { return KindPooled }

func (p *poolManager) Get(_ context.Context, create CreateFunc) (any, error) {
	if err := p.warm(create); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if n := len(p.idle); n > 0 {
		instance := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.track(instance)
		p.mu.Unlock()
		return instance, nil
	}
	p.mu.Unlock()

	instance, err := create()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = closeInstance(instance)
		return nil, ErrManagerClosed
	}
	p.track(instance)
	return instance, nil
}

// warm fills the pool with InitialSize instances on first use
func (p *poolManager) warm(create CreateFunc) error {
	p.mu.Lock()
	if p.warmed || p.closed {
		p.mu.Unlock()
		return nil
	}
	p.warmed = true
	p.mu.Unlock()

	created := make([]any, 0, p.def.InitialSize)
	for i := 0; i < p.def.InitialSize; i++ {
		instance, err := create()
		if err != nil {
			p.mu.Lock()
			p.warmed = false
			p.mu.Unlock()
			for _, c := range created {
				_ = closeInstance(c)
			}
			return err
		}
		created = append(created, instance)
	}

	p.mu.Lock()
	p.idle = append(p.idle, created...)
	p.mu.Unlock()

	p.logger.Debug("Pool warmed", "pool", p.id, "size", len(created))
	return nil
}

// track records an outstanding instance. Only pointer-like values have a
// stable identity, other values cannot be handed back.
func (p *poolManager) track(instance any) {
	if key, ok := identity(instance); ok {
		p.leased[key] = struct{}{}
	}
}

func (p *poolManager) Release(instance any) bool {
	key, ok := identity(instance)
	if !ok {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, leased := p.leased[key]; !leased {
		return false
	}
	delete(p.leased, key)

	if p.closed || len(p.idle) >= p.def.MaxSize {
		if err := closeInstance(instance); err != nil {
			p.logger.Warn("Failed to close dropped pool instance", "pool", p.id, "error", err)
		}
		return true
	}
	p.idle = append(p.idle, instance)
	return true
}

// Idle reports how many instances wait in the pool
func (p *poolManager) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *poolManager) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, instance := range idle {
		if err := closeInstance(instance); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func identity(instance any) (any, bool) {
	if instance == nil {
		return nil, false
	}
	switch reflect.TypeOf(instance).Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return instance, true
	default:
		return nil, false
	}
}

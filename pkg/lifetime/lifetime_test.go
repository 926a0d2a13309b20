package lifetime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	id     int64
	closed bool
}

func (w *widget) Close() error {
	w.closed = true
	return nil
}

func counter() (CreateFunc, *atomic.Int64) {
	var n atomic.Int64
	return func() (any, error) {
		return &widget{id: n.Add(1)}, nil
	}, &n
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{name: "transient", def: Transient{}},
		{name: "singleton", def: Singleton{}},
		{name: "pool", def: NewPool(2, 3)},
		{name: "pool pointer", def: &Pool{InitialSize: 0, MaxSize: 1}},
		{name: "nil", def: nil, wantErr: true},
		{name: "negative initial size", def: NewPool(-1, 3), wantErr: true},
		{name: "zero max size", def: NewPool(0, 0), wantErr: true},
		{name: "initial above max", def: NewPool(4, 3), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.def)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidDefinition)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewManager_ByKind(t *testing.T) {
	m, err := NewManager(Transient{}, nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = NewManager(Singleton{}, nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	for _, def := range []Definition{PerThread{}, PerWebRequest{}, PerSession{}, NewPool(1, 2)} {
		m, err := NewManager(def, slog.Default())
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, def.Kind(), m.Kind())
		assert.NotEmpty(t, m.ID())
	}
}

func TestPool_ReusesReleasedInstances(t *testing.T) {
	m, err := NewManager(NewPool(2, 3), nil)
	require.NoError(t, err)
	create, created := counter()

	first, err := m.Get(context.Background(), create)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.Load(), "initial size is created on first use")

	assert.True(t, m.Release(first))
	again, err := m.Get(context.Background(), create)
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestPool_NeverBlocksAndCapsIdle(t *testing.T) {
	m, err := NewManager(NewPool(2, 3), nil)
	require.NoError(t, err)
	create, created := counter()

	var leased []any
	for i := 0; i < 6; i++ {
		v, err := m.Get(context.Background(), create)
		require.NoError(t, err)
		leased = append(leased, v)
	}
	assert.Equal(t, int64(6), created.Load())

	for _, v := range leased {
		assert.True(t, m.Release(v))
	}
	assert.Equal(t, 3, m.(*poolManager).Idle())

	dropped := 0
	for _, v := range leased {
		if v.(*widget).closed {
			dropped++
		}
	}
	assert.Equal(t, 3, dropped)
}

func TestPool_ReleaseUnknownInstance(t *testing.T) {
	m, err := NewManager(NewPool(0, 1), nil)
	require.NoError(t, err)

	assert.False(t, m.Release(&widget{}))
	assert.False(t, m.Release("not a pointer"))
	assert.False(t, m.Release(nil))
}

func TestPool_Shutdown(t *testing.T) {
	m, err := NewManager(NewPool(1, 1), nil)
	require.NoError(t, err)
	create, _ := counter()

	v, err := m.Get(context.Background(), create)
	require.NoError(t, err)
	require.True(t, m.Release(v))

	require.NoError(t, m.Shutdown())
	assert.True(t, v.(*widget).closed)

	_, err = m.Get(context.Background(), create)
	assert.ErrorIs(t, err, ErrManagerClosed)
	require.NoError(t, m.Shutdown())
}

func TestPool_WarmFailure(t *testing.T) {
	m, err := NewManager(NewPool(2, 2), nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = m.Get(context.Background(), func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	create, created := counter()
	_, err = m.Get(context.Background(), create)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.Load())
}

func TestScopedManager_SameInstancePerScope(t *testing.T) {
	m, err := NewManager(PerThread{}, nil)
	require.NoError(t, err)
	create, _ := counter()

	scopeA := NewScope()
	ctxA := WithScope(context.Background(), scopeA)
	a1, err := m.Get(ctxA, create)
	require.NoError(t, err)
	a2, err := m.Get(ctxA, create)
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	ctxB := WithScope(context.Background(), NewScope())
	b, err := m.Get(ctxB, create)
	require.NoError(t, err)
	assert.NotSame(t, a1, b)

	require.NoError(t, scopeA.Close())
	assert.True(t, a1.(*widget).closed)

	_, err = m.Get(ctxA, create)
	assert.ErrorIs(t, err, ErrScopeClosed)
}

func TestScopedManager_NoScopeFallsBackToTransient(t *testing.T) {
	m, err := NewManager(PerSession{}, nil)
	require.NoError(t, err)
	create, _ := counter()

	v1, err := m.Get(context.Background(), create)
	require.NoError(t, err)
	v2, err := m.Get(context.Background(), create)
	require.NoError(t, err)
	assert.NotSame(t, v1, v2)
	assert.False(t, m.Release(v1))
}

func TestScopeKindsAreIndependent(t *testing.T) {
	ctx := WithRequestScope(context.Background(), NewScope())

	_, ok := ScopeFrom(ctx)
	assert.False(t, ok)
	_, ok = SessionScopeFrom(ctx)
	assert.False(t, ok)
	_, ok = RequestScopeFrom(ctx)
	assert.True(t, ok)
}

func TestSessionStore_Expiry(t *testing.T) {
	store := NewSessionStore(time.Minute, nil)
	now := time.Now()
	store.now = func() time.Time { return now }

	id, scope := store.Open()
	got, ok := store.Get(id)
	require.True(t, ok)
	assert.Same(t, scope, got)

	now = now.Add(2 * time.Minute)
	_, ok = store.Get(id)
	assert.False(t, ok)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())

	newID, newScope := store.GetOrOpen(id)
	assert.NotEqual(t, id, newID)
	assert.NotSame(t, scope, newScope)
}

func TestSessionStore_Abandon(t *testing.T) {
	store := NewSessionStore(0, nil)
	id, scope := store.Open()

	m, err := NewManager(PerSession{}, nil)
	require.NoError(t, err)
	create, _ := counter()
	v, err := m.Get(WithSessionScope(context.Background(), scope), create)
	require.NoError(t, err)

	require.NoError(t, store.Abandon(id))
	assert.True(t, v.(*widget).closed)
	require.NoError(t, store.Abandon(id))
}

func TestMiddleware_RequestAndSessionScopes(t *testing.T) {
	store := NewSessionStore(DefaultSessionTTL, nil)
	perRequest, err := NewManager(PerWebRequest{}, nil)
	require.NoError(t, err)
	perSession, err := NewManager(PerSession{}, nil)
	require.NoError(t, err)
	create, _ := counter()

	var requestIDs, sessionIDs []int64
	r := chi.NewRouter()
	r.Use(Middleware(store))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		a, err := perRequest.Get(r.Context(), create)
		require.NoError(t, err)
		b, err := perRequest.Get(r.Context(), create)
		require.NoError(t, err)
		assert.Same(t, a, b)

		s, err := perSession.Get(r.Context(), create)
		require.NoError(t, err)

		requestIDs = append(requestIDs, a.(*widget).id)
		sessionIDs = append(sessionIDs, s.(*widget).id)
		w.WriteHeader(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, first.Code)

	cookies := first.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)

	second := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	r.ServeHTTP(second, req)
	require.Equal(t, http.StatusNoContent, second.Code)
	assert.Empty(t, second.Result().Cookies())

	require.Len(t, requestIDs, 2)
	assert.NotEqual(t, requestIDs[0], requestIDs[1])
	assert.Equal(t, sessionIDs[0], sessionIDs[1])
	assert.Equal(t, 1, store.Len())
}

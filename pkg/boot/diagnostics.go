package boot

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/01fortes/goioc/pkg/container"
	"github.com/01fortes/goioc/pkg/lifetime"
)

// NewDiagnosticsRouter serves the container state:
//
//	GET /ioc/components        registered components
//	GET /ioc/components/{key}  one component
//	GET /ioc/health            health checks, 503 when one fails
//	GET /ioc/metrics           per-component resolve counters
//	GET /metrics               prometheus exposition of gatherer
//
// Every request runs in a request scope and a session scope from sessions.
func NewDiagnosticsRouter(core *container.Core, gatherer prometheus.Gatherer, sessions *lifetime.SessionStore) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(lifetime.Middleware(sessions))

	router.Route("/ioc", func(r chi.Router) {
		r.Get("/components", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, core.Components())
		})
		r.Get("/components/{key}", func(w http.ResponseWriter, req *http.Request) {
			key := chi.URLParam(req, "key")
			for _, info := range core.Components() {
				if info.Key == key {
					writeJSON(w, http.StatusOK, info)
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"error": container.ComponentNotFoundError(key).Error()})
		})
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			status := http.StatusOK
			checks := make(map[string]string)
			for name, err := range core.HealthCheck() {
				if err != nil {
					status = http.StatusServiceUnavailable
					checks[name] = err.Error()
					continue
				}
				checks[name] = "ok"
			}
			writeJSON(w, status, map[string]any{"container": core.Name(), "checks": checks})
		})
		r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, core.Metrics())
		})
	})

	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return router
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write diagnostics response", "error", err)
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// NewRouter mounts the API under /v1 together with the /healthz and /metrics
// monitoring endpoints. Every ping must succeed for /healthz to report OK.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, pings map[string]PingFunc) http.Handler {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/fence", h.GetFence)
		r.Get("/events", h.GetEvents)
		r.Get("/center", h.GetCenter)

		r.Group(func(r chi.Router) {
			r.Use(h.limitEdits)

			r.Put("/fence", h.PutFence)
			r.Delete("/fence", h.DeleteFence)
		})
	})

	r.Get("/healthz", h.healthz(pings))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

func (h *Handler) healthz(pings map[string]PingFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		h.log.DebugContext(ctx, "Performing health checks...")

		status, body := http.StatusOK, "OK"
		for name, ping := range pings {
			if err := ping(ctx); err != nil {
				h.log.WarnContext(ctx, "Health check failed", "dependency", name, "error", err)
				status, body = http.StatusServiceUnavailable, name+" ping failed"
				break
			}
		}

		w.WriteHeader(status)
		if _, err := w.Write([]byte(body)); err != nil {
			h.log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		h.log.DebugContext(ctx, "Health checks completed", "status", status)
	}
}

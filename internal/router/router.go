package router

import (
	"net/http"

	"github.com/IntelliTect/Coalesce-sub010/internal/auth"
	"github.com/IntelliTect/Coalesce-sub010/internal/config"
	"github.com/IntelliTect/Coalesce-sub010/internal/handler"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options are the pieces the router wires together.
type Options struct {
	Config    *config.Config
	API       *handler.API
	Validator *auth.JWTValidator // nil when auth is disabled
	Gatherer  prometheus.Gatherer
}

// New builds the HTTP routes for the API.
func New(opts Options) http.Handler {
	cfg := opts.Config
	r := chi.NewRouter()
	r.Use(
		withRequestID,
		withLogging,
		withRecovery,
	)

	r.Get("/healthz", opts.API.HealthHandler)
	if cfg.Metrics.Enabled && opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(apiCORSPolicy(cfg.CORS).handler, withAuth(cfg.Auth, opts.Validator))
		r.Post("/bulkSave", opts.API.BulkSaveHandler)
		r.Post("/{type}/bulkSave", opts.API.BulkSaveHandler)
		r.Get("/{type}/get/{id}", opts.API.GetHandler)
	})
	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		level := "info"
		if sw.status >= 500 {
			level = "error"
		} else if sw.status >= 400 {
			level = "warn"
		}
		fields := logger.Fields(r.Context(), map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": sw.status,
		})
		switch level {
		case "error":
			logger.Error("response", fields)
		case "warn":
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}

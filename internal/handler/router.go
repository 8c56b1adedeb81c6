// Package handler serves the read-only HTTP status API of both sides.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/stocksim/internal/metrics"
)

// NewMarketRouter creates the market side's router. The fills route is
// only registered when fills is non-nil.
func NewMarketRouter(instruments InstrumentSource, fills FillSource, m *metrics.Metrics, logger *slog.Logger) chi.Router {
	r := newRouter(m, logger)
	h := NewMarketHandler(instruments, fills)

	r.Get("/instruments", h.ListInstruments)
	r.Get("/instruments/{ticker}", h.GetInstrument)
	if fills != nil {
		r.Get("/instruments/{ticker}/fills", h.ListFills)
	}
	return r
}

// NewTradingRouter creates the trading side's router.
func NewTradingRouter(brokers BrokerSource, replica ReplicaSource, session string, m *metrics.Metrics, logger *slog.Logger) chi.Router {
	r := newRouter(m, logger)
	h := NewTradingHandler(brokers, replica, session)

	r.Get("/brokers", h.ListBrokers)
	r.Get("/brokers/{broker_id}", h.GetBroker)
	r.Get("/replica", h.GetReplica)
	return r
}

// newRouter registers the middleware and the routes both sides share.
func newRouter(m *metrics.Metrics, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogging(logger))
	if m != nil {
		r.Use(instrument(m))
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is supported")
	})
	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// instrument records request counts and latency by route pattern, so
// path parameters do not explode label cardinality.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).Inc()
			m.HTTPRequestLength.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

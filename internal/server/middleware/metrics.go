package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/iudanet/docsync/internal/server/metrics"
)

// MetricsMiddleware records request count and latency per route
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			routeLabel := route(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, routeLabel, strconv.Itoa(wrapped.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, routeLabel).Observe(time.Since(start).Seconds())
		})
	}
}

// Chain applies middlewares so that the first one is outermost
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

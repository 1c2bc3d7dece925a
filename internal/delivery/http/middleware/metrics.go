package middleware

import (
	"net/http"
	"time"

	"festregistration/internal/metrics"
)

// unmatchedRoute labels requests the mux did not route, keeping label cardinality bounded.
const unmatchedRoute = "unmatched"

// Metrics records request count and latency per route pattern. It must wrap the
// ServeMux directly so the matched pattern is visible after the request is served.
func Metrics(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)
		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}
		m.ObserveHTTP(r.Method, route, wrapped.status, time.Since(start))
	})
}

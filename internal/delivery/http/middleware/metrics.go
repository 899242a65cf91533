package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder observes finished HTTP requests. Implemented by metrics.Metrics.
type RequestRecorder interface {
	RequestObserved(method string, status int, d time.Duration)
}

// Metrics records method, status and latency of every request.
func Metrics(recorder RequestRecorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)
		recorder.RequestObserved(r.Method, wrapped.status, time.Since(start))
	})
}

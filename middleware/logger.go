package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"spotapi-go/stats"
)

// ResponseRecorder wraps http.ResponseWriter to capture the status code and
// body size for the access log
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
	BodySize   int
}

// NewResponseRecorder creates a recorder with a default 200 status
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

func (r *ResponseRecorder) WriteHeader(statusCode int) {
	r.StatusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *ResponseRecorder) Write(data []byte) (int, error) {
	n, err := r.ResponseWriter.Write(data)
	r.BodySize += n
	return n, err
}

// getStatusColor returns the ANSI color for a status code class
func getStatusColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "\033[32m" // green
	case statusCode >= 300 && statusCode < 400:
		return "\033[36m" // cyan
	case statusCode >= 400 && statusCode < 500:
		return "\033[33m" // yellow
	case statusCode >= 500:
		return "\033[31m" // red
	default:
		return "\033[0m"
	}
}

// LoggingMiddleware logs one line per request with method, path, status,
// size and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := NewResponseRecorder(w)

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		stats.Get().RecordStatusCode(recorder.StatusCode)
		stats.Get().RecordResponseTime(duration)

		statusColor := getStatusColor(recorder.StatusCode)

		log.Infof("%s %s %s%d\033[0m %dB %v from %s",
			r.Method,
			r.URL.Path,
			statusColor,
			recorder.StatusCode,
			recorder.BodySize,
			duration.Round(time.Millisecond),
			ClientIP(r),
		)
	})
}

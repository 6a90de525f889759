package middleware

import (
	"net/http"
)

// Default body size limits.
const (
	// DefaultMaxBodySize is the default maximum request body size (1MB).
	DefaultMaxBodySize = 1 << 20

	// MaxAnswerBodySize bounds a single chat answer or edit request (64KB).
	MaxAnswerBodySize = 64 << 10
)

// BodySizeLimiter limits the size of request bodies.
func BodySizeLimiter(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}

			// Covers chunked bodies without a Content-Length.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}

// BodySizeLimiterAnswers returns a middleware sized for conversation turns.
func BodySizeLimiterAnswers() func(http.Handler) http.Handler {
	return BodySizeLimiter(MaxAnswerBodySize)
}

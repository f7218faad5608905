package middleware

import (
	"net/http"
)

// MaxJSONBodySize is the maximum allowed size for JSON request bodies (1 MB).
// Every route on this server takes JSON or no body at all — there is no
// file-upload surface that would need a larger limit.
const MaxJSONBodySize int64 = 1 << 20 // 1 MB

// BodyLimitMiddleware restricts the size of request bodies to prevent
// denial-of-service attacks via excessively large JSON payloads.
func BodyLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)
		}

		next.ServeHTTP(w, r)
	})
}

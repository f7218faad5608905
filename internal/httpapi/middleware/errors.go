package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse mirrors httpapi.ErrorResponse but is defined here to avoid
// an import cycle between middleware and httpapi (httpapi imports
// middleware to build its handler chain).
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response. This is a self-contained helper
// so that middleware does not need to import the parent httpapi package.
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{
		Code:    code,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode middleware error response", "error", err)
	}
}

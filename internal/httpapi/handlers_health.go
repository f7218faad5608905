package httpapi

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthHandler returns a handler reporting liveness. It intentionally
// does not probe Postgres or Redis: a slow dependency should not make the
// process itself look unhealthy to an orchestrator's liveness check.
func NewHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/alexmorten/rconsole/internal/auth"
	"github.com/alexmorten/rconsole/internal/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// NewLoginHandler authenticates {username, password} against
// UserRepository.GetWithPassword and, on success, issues a bearer token.
// It deliberately returns the same 401 for "unknown user", "disabled
// account", and "wrong password" so the response never discloses which
// of those applies.
func NewLoginHandler(users domain.UserRepository, issuer *auth.TokenIssuer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
			return
		}

		user, err := users.GetWithPassword(r.Context(), req.Username)
		if err != nil {
			Error(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password")
			return
		}
		if user.Disabled || !auth.VerifyPassword(user.PasswordHash, req.Password) {
			Error(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password")
			return
		}

		token, _, err := issuer.Issue(user.Username)
		if err != nil {
			Error(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to issue token")
			return
		}

		JSON(w, http.StatusOK, loginResponse{Token: token})
	})
}

// NewLogoutHandler revokes the caller's bearer token for the remainder of
// its natural lifetime. The route sits behind AuthMiddleware, so the token
// has already been verified as well-formed and unrevoked by the time this
// handler runs; it re-parses the token only to recover the jti and expiry
// Revoke needs.
func NewLogoutHandler(issuer *auth.TokenIssuer, revocation *auth.RevocationCache) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 {
			Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, "missing bearer token")
			return
		}

		claims, err := issuer.Verify(parts[1])
		if err != nil {
			Error(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid token")
			return
		}

		var ttl time.Duration
		if claims.ExpiresAt != nil {
			ttl = time.Until(claims.ExpiresAt.Time)
		}

		if err := revocation.Revoke(r.Context(), claims.ID, ttl); err != nil {
			Error(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to revoke token")
			return
		}

		JSON(w, http.StatusNoContent, nil)
	})
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/alexmorten/rconsole/internal/auth"
)

// contextKey is an unexported type used for context keys to avoid collisions.
type contextKey string

// UserIDKey is the context key for the authenticated operator's username.
const UserIDKey contextKey = "username"

// Error codes used within middleware responses.
const (
	errCodeUnauthorized = "unauthorized"
)

// GetUserID extracts the authenticated username from the request context.
// It returns "" if the request was never authenticated.
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

// WithUserID returns a copy of ctx carrying username under UserIDKey.
func WithUserID(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UserIDKey, username)
}

// RevocationChecker reports whether a token's jti has been revoked (e.g.
// by logout). internal/auth.RevocationCache satisfies this.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenVerifier validates a bearer token and returns its claims.
// internal/auth.TokenIssuer satisfies this.
type TokenVerifier interface {
	Verify(token string) (*auth.AccessClaims, error)
}

// AuthMiddleware validates JWT bearer tokens issued by internal/auth and
// rejects tokens revoked via logout.
type AuthMiddleware struct {
	verifier   TokenVerifier
	revocation RevocationChecker
	devMode    bool
}

// NewAuthMiddleware creates a new AuthMiddleware. When devMode is true and
// the process is not running with APP_ENV=production, requests carrying an
// X-Dev-User-ID header bypass token verification entirely — a convenience
// for local development against a seeded database.
func NewAuthMiddleware(verifier TokenVerifier, revocation RevocationChecker, devMode bool) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, revocation: revocation, devMode: devMode}
}

// Authenticate returns an http.Handler middleware that validates JWT bearer
// tokens and injects the authenticated username into the request context.
func (am *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if am.devMode && os.Getenv("APP_ENV") != "production" {
			if devUser := r.Header.Get("X-Dev-User-ID"); devUser != "" {
				ctx := context.WithValue(r.Context(), UserIDKey, devUser)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := am.verifier.Verify(parts[1])
		if err != nil {
			slog.Warn("JWT verification failed", "error", err, "remote_addr", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid or expired token")
			return
		}

		revoked, err := am.revocation.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			slog.Error("revocation check failed", "error", err)
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "could not verify token")
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "token has been revoked")
			return
		}

		username := claims.Subject
		if username == "" {
			writeError(w, http.StatusUnauthorized, errCodeUnauthorized, "token missing subject claim")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthenticateUsername is like Authenticate but never writes an HTTP error
// response on failure: the caller (a WebSocket upgrade handler) is
// responsible for closing the connection with the appropriate close code
// once it has already upgraded. It returns the username and true on
// success, or "" and false on any failure.
func AuthenticateUsername(verifier TokenVerifier, revocation RevocationChecker, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	token := ""
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		token = r.URL.Query().Get("access_token")
	}
	if token == "" {
		return "", false
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		return "", false
	}

	if revoked, err := revocation.IsRevoked(r.Context(), claims.ID); err != nil || revoked {
		return "", false
	}

	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alexmorten/rconsole/internal/httpapi/middleware"
)

// RouterConfig holds every dependency the HTTP surface needs to build its
// route table and middleware chain. Handler fields left nil receive a 501
// stub, letting the router be assembled incrementally.
type RouterConfig struct {
	// AllowedOrigins for CORS. Use ["*"] during development.
	AllowedOrigins []string

	// DevMode enables the X-Dev-User-ID auth bypass header.
	DevMode bool

	TokenVerifier     middleware.TokenVerifier
	RevocationChecker middleware.RevocationChecker

	HealthHandler http.Handler

	LoginHandler  http.Handler
	LogoutHandler http.Handler

	ListServersHandler  http.Handler
	GetServerHandler    http.Handler
	CreateServerHandler http.Handler
	UpdateServerHandler http.Handler
	DeleteServerHandler http.Handler

	ListUsersHandler       http.Handler
	CreateUserHandler      http.Handler
	SetUserDisabledHandler http.Handler

	// WebSocket upgrade handlers. These sit outside the AuthMiddleware
	// chain — a browser WebSocket client cannot set an Authorization
	// header on the upgrade request — and instead perform their own
	// token check via middleware.AuthenticateUsername before invoking a
	// wsproc.Processor.
	HeartbeatWSHandler     http.Handler
	NotificationsWSHandler http.Handler
	ServerListWSHandler    http.Handler
	ServerDetailWSHandler  http.Handler
	RconWSHandler          http.Handler
}

// NewRouter builds a fully configured *mux.Router: the global middleware
// chain, the public and JWT-authenticated REST routes, and the five
// WebSocket upgrade routes from spec §6.
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.BodyLimitMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	api.Handle("/health", handlerOrStub(cfg.HealthHandler)).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/login", handlerOrStub(cfg.LoginHandler)).Methods(http.MethodPost, http.MethodOptions)

	authMW := middleware.NewAuthMiddleware(cfg.TokenVerifier, cfg.RevocationChecker, cfg.DevMode)
	authed := api.NewRoute().Subrouter()
	authed.Use(authMW.Authenticate)

	authed.Handle("/logout", handlerOrStub(cfg.LogoutHandler)).Methods(http.MethodPost, http.MethodOptions)

	authed.Handle("/servers", handlerOrStub(cfg.ListServersHandler)).Methods(http.MethodGet, http.MethodOptions)
	authed.Handle("/servers", handlerOrStub(cfg.CreateServerHandler)).Methods(http.MethodPost, http.MethodOptions)
	authed.Handle("/servers/{uid}", handlerOrStub(cfg.GetServerHandler)).Methods(http.MethodGet, http.MethodOptions)
	authed.Handle("/servers/{uid}", handlerOrStub(cfg.UpdateServerHandler)).Methods(http.MethodPut, http.MethodOptions)
	authed.Handle("/servers/{uid}", handlerOrStub(cfg.DeleteServerHandler)).Methods(http.MethodDelete, http.MethodOptions)

	authed.Handle("/users", handlerOrStub(cfg.ListUsersHandler)).Methods(http.MethodGet, http.MethodOptions)
	authed.Handle("/users", handlerOrStub(cfg.CreateUserHandler)).Methods(http.MethodPost, http.MethodOptions)
	authed.Handle("/users/{username}/disabled", handlerOrStub(cfg.SetUserDisabledHandler)).Methods(http.MethodPut, http.MethodOptions)

	r.Handle("/heartbeat", handlerOrStub(cfg.HeartbeatWSHandler)).Methods(http.MethodGet)
	r.Handle("/notifications", handlerOrStub(cfg.NotificationsWSHandler)).Methods(http.MethodGet)
	r.Handle("/servers/updates", handlerOrStub(cfg.ServerListWSHandler)).Methods(http.MethodGet)
	r.Handle("/servers/updates/{uid}", handlerOrStub(cfg.ServerDetailWSHandler)).Methods(http.MethodGet)
	r.Handle("/rcon/{uid}", handlerOrStub(cfg.RconWSHandler)).Methods(http.MethodGet)

	return r
}

// handlerOrStub returns the provided handler if non-nil, otherwise a stub
// that responds with 501 Not Implemented.
func handlerOrStub(h http.Handler) http.Handler {
	if h != nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusNotImplemented, "not_implemented", "this endpoint is not yet implemented")
	})
}

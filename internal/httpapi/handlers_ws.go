package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/alexmorten/rconsole/internal/domain"
	"github.com/alexmorten/rconsole/internal/httpapi/middleware"
	"github.com/alexmorten/rconsole/internal/messages"
	"github.com/alexmorten/rconsole/internal/pubsub"
	"github.com/alexmorten/rconsole/internal/render"
	"github.com/alexmorten/rconsole/internal/services"
	"github.com/alexmorten/rconsole/internal/wsproc"
)

// closeWriteWait bounds how long writing the policy-violation close frame
// may take before giving up.
const closeWriteWait = 5 * time.Second

// policyViolationCloseMessage is written before closing a WebSocket
// connection that never produced an authenticated, authorized user —
// close code 1008 (policy violation) per RFC 6455.
var policyViolationCloseMessage = websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized")

func closeDeadline() time.Time {
	return time.Now().Add(closeWriteWait)
}

// WSHandlerConfig bundles the collaborators every WebSocket upgrade
// handler needs: the bus to bridge, the renderer to produce fragments, the
// auth collaborators to resolve the connecting user, and the repositories
// needed to authorize access to a specific server.
type WSHandlerConfig struct {
	Bus        *pubsub.Bus
	Renderer   render.HtmlRenderer
	Aggregator *services.StatusAggregatorService

	TokenVerifier     middleware.TokenVerifier
	RevocationChecker middleware.RevocationChecker

	Servers domain.ServerRepository
	Users   domain.UserRepository

	Logger *slog.Logger

	// AllowedOrigins restricts which Origin header values the upgrader
	// will accept; pass ["*"] to accept any origin during development.
	AllowedOrigins []string
}

func (cfg WSHandlerConfig) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range cfg.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

func (cfg WSHandlerConfig) logger() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}

// authenticateUpgrade authenticates the upgrade request and, on failure,
// closes conn with a policy-violation frame without ever constructing a
// Processor. It returns the resolved username and true on success.
func authenticateUpgrade(cfg WSHandlerConfig, conn *websocket.Conn, r *http.Request) (string, bool) {
	username, ok := middleware.AuthenticateUsername(cfg.TokenVerifier, cfg.RevocationChecker, r)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage, policyViolationCloseMessage, closeDeadline())
		_ = conn.Close()
		return "", false
	}
	return username, true
}

// authorizeServerAccess reports whether username may operate the server
// identified by uid: an admin may operate any server, everyone else needs
// an explicit grant in ServerRepository.GetUserServers.
func authorizeServerAccess(cfg WSHandlerConfig, r *http.Request, username string, uid uuid.UUID) bool {
	user, err := cfg.Users.GetByUsername(r.Context(), username)
	if err != nil {
		return false
	}
	if user.IsAdmin {
		return true
	}

	granted, err := cfg.Servers.GetUserServers(r.Context(), user.ID)
	if err != nil {
		return false
	}
	for _, s := range granted {
		if s.UID == uid {
			return true
		}
	}
	return false
}

// NewHeartbeatWSHandler streams the shared heartbeat tick to every
// authenticated connection. Read-only: the browser never publishes on
// this endpoint.
func NewHeartbeatWSHandler(cfg WSHandlerConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := cfg.upgrader().Upgrade(w, r, nil)
		if err != nil {
			cfg.logger().Warn("heartbeat upgrade failed", "error", err)
			return
		}
		if _, ok := authenticateUpgrade(cfg, conn, r); !ok {
			return
		}

		proc := wsproc.New(wsproc.WebsocketPubSub{
			Bus:             cfg.Bus,
			SubscribeTopic:  messages.HeartbeatTopic.Topic,
			SubscribeFilter: nil,
			HasSubscribe:    true,
		}, newHeartbeatConverter(cfg.Renderer), decodeNoop, cfg.logger())
		proc.Process(r.Context(), conn)
	})
}

// NewNotificationsWSHandler streams NotificationMessage events addressed to
// the connecting user. Read-only.
func NewNotificationsWSHandler(cfg WSHandlerConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := cfg.upgrader().Upgrade(w, r, nil)
		if err != nil {
			cfg.logger().Warn("notifications upgrade failed", "error", err)
			return
		}
		username, ok := authenticateUpgrade(cfg, conn, r)
		if !ok {
			return
		}

		proc := wsproc.New(wsproc.WebsocketPubSub{
			Bus:             cfg.Bus,
			SubscribeTopic:  messages.NotificationTopic.Topic,
			SubscribeFilter: messages.AudienceFilter(username),
			HasSubscribe:    true,
		}, newNotificationConverter(cfg.Renderer), decodeNoop, cfg.logger())
		proc.Process(r.Context(), conn)
	})
}

// NewServerListWSHandler streams connect/disconnect status updates for
// every server; events are not filtered by the user's server access.
// Read-only.
func NewServerListWSHandler(cfg WSHandlerConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := cfg.upgrader().Upgrade(w, r, nil)
		if err != nil {
			cfg.logger().Warn("server list upgrade failed", "error", err)
			return
		}
		if _, ok := authenticateUpgrade(cfg, conn, r); !ok {
			return
		}

		proc := wsproc.New(wsproc.WebsocketPubSub{
			Bus:             cfg.Bus,
			SubscribeTopic:  messages.ServerStatusTopic.Topic,
			SubscribeFilter: nil,
			HasSubscribe:    true,
		}, newServerListConverter(cfg.Renderer, cfg.Aggregator), decodeNoop, cfg.logger())
		proc.Process(r.Context(), conn)
	})
}

// NewServerDetailWSHandler streams connect/disconnect status updates for a
// single server, named by the {uid} path variable. Read-only.
func NewServerDetailWSHandler(cfg WSHandlerConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := uuid.Parse(mux.Vars(r)["uid"])
		if err != nil {
			http.Error(w, "invalid server uid", http.StatusBadRequest)
			return
		}

		conn, err := cfg.upgrader().Upgrade(w, r, nil)
		if err != nil {
			cfg.logger().Warn("server detail upgrade failed", "error", err)
			return
		}
		username, ok := authenticateUpgrade(cfg, conn, r)
		if !ok {
			return
		}
		if !authorizeServerAccess(cfg, r, username, uid) {
			_ = conn.WriteControl(websocket.CloseMessage, policyViolationCloseMessage, closeDeadline())
			_ = conn.Close()
			return
		}

		proc := wsproc.New(wsproc.WebsocketPubSub{
			Bus:             cfg.Bus,
			SubscribeTopic:  messages.ServerStatusTopic.Topic,
			SubscribeFilter: serverUIDFilter(uid),
			HasSubscribe:    true,
		}, newServerDetailConverter(cfg.Renderer, cfg.Aggregator, uid), decodeNoop, cfg.logger())
		proc.Process(r.Context(), conn)
	})
}

// NewRconWSHandler bridges a single server's RCON console: operator
// commands published in, reassembled responses rendered out. Read-write.
func NewRconWSHandler(cfg WSHandlerConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := uuid.Parse(mux.Vars(r)["uid"])
		if err != nil {
			http.Error(w, "invalid server uid", http.StatusBadRequest)
			return
		}

		conn, err := cfg.upgrader().Upgrade(w, r, nil)
		if err != nil {
			cfg.logger().Warn("rcon upgrade failed", "error", err)
			return
		}
		username, ok := authenticateUpgrade(cfg, conn, r)
		if !ok {
			return
		}
		if !authorizeServerAccess(cfg, r, username, uid) {
			_ = conn.WriteControl(websocket.CloseMessage, policyViolationCloseMessage, closeDeadline())
			_ = conn.Close()
			return
		}

		serverUID := uid.String()
		proc := wsproc.New(wsproc.WebsocketPubSub{
			Bus:            cfg.Bus,
			PublishTopic:   messages.RconCommandTopic(serverUID).Topic,
			HasPublish:     true,
			SubscribeTopic: messages.RconResponseTopic(serverUID).Topic,
			HasSubscribe:   true,
		}, newRconConverter(cfg.Renderer, username), decodeRconCommandFrame, cfg.logger())
		proc.Process(r.Context(), conn)
	})
}

// serverUIDFilter accepts a server-status event iff it concerns uid.
func serverUIDFilter(uid uuid.UUID) pubsub.Filter {
	target := uid.String()
	return func(m any) bool {
		got, ok := serverUIDOf(m)
		return ok && got == target
	}
}


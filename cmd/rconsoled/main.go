// Command rconsoled runs the RCON console daemon: it loads configuration,
// connects to PostgreSQL and Redis, starts the reactive core (bus,
// supervisor, status aggregator, heartbeat publisher, one RconService per
// registered server), and serves the HTTP/WebSocket API until signalled
// to shut down.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/alexmorten/rconsole/internal/auth"
	"github.com/alexmorten/rconsole/internal/config"
	"github.com/alexmorten/rconsole/internal/domain"
	"github.com/alexmorten/rconsole/internal/httpapi"
	"github.com/alexmorten/rconsole/internal/pubsub"
	"github.com/alexmorten/rconsole/internal/render"
	"github.com/alexmorten/rconsole/internal/retrypolicy"
	"github.com/alexmorten/rconsole/internal/services"
	"github.com/alexmorten/rconsole/internal/storage"
	"github.com/alexmorten/rconsole/internal/supervisor"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("rconsoled exited with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := storage.Migrate(cfg.PostgresURL); err != nil {
		return err
	}

	pg, err := storage.NewPostgresClient(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	redisClient, err := storage.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	servers := storage.NewServerRepository(pg)
	users := storage.NewUserRepository(pg)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	revocation := auth.NewRevocationCache(redisClient)

	renderer, err := render.NewTemplateRenderer()
	if err != nil {
		return err
	}

	bus := pubsub.NewBus()
	sup := supervisor.New(logger)

	aggregator := services.NewStatusAggregatorService(bus)
	if err := sup.Launch(aggregator, true); err != nil {
		return err
	}

	heartbeat := services.NewHeartbeatPublisher(bus, cfg.HeartbeatInterval)
	if err := sup.Launch(heartbeat, true); err != nil {
		return err
	}

	if err := launchRconServices(ctx, sup, bus, servers, cfg, logger); err != nil {
		return err
	}

	router := httpapi.NewRouter(buildRouterConfig(cfg, bus, renderer, aggregator, servers, users, issuer, revocation, logger))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	sup.Stop()
	return nil
}

// launchRconServices starts one supervised RconService per server
// currently registered in storage. Servers added later through the admin
// API get no RconService until the process restarts.
func launchRconServices(ctx context.Context, sup *supervisor.Supervisor, bus *pubsub.Bus, servers domain.ServerRepository, cfg *config.Config, logger *slog.Logger) error {
	all, err := servers.GetAll(ctx)
	if err != nil {
		return err
	}

	retry := retrypolicy.Config{
		BaseBackoff: time.Duration(cfg.RconRetryBaseBackoffMs) * time.Millisecond,
		Jitter:      time.Duration(cfg.RconRetryJitterMs) * time.Millisecond,
		MaxBackoff:  time.Duration(cfg.RconRetryMaxBackoffMs) * time.Millisecond,
		MaxTries:    cfg.RconRetryMaxTries,
	}

	for _, server := range all {
		svc := services.NewRconService(bus, server.UID, servers.GetByUID, cfg.RconConnectTimeout, retry, logger)
		if err := sup.Launch(svc, true); err != nil {
			return err
		}
	}
	return nil
}

func buildRouterConfig(
	cfg *config.Config,
	bus *pubsub.Bus,
	renderer render.HtmlRenderer,
	aggregator *services.StatusAggregatorService,
	servers domain.ServerRepository,
	users domain.UserRepository,
	issuer *auth.TokenIssuer,
	revocation *auth.RevocationCache,
	logger *slog.Logger,
) httpapi.RouterConfig {
	wsCfg := httpapi.WSHandlerConfig{
		Bus:               bus,
		Renderer:          renderer,
		Aggregator:        aggregator,
		TokenVerifier:     issuer,
		RevocationChecker: revocation,
		Servers:           servers,
		Users:             users,
		Logger:            logger,
		AllowedOrigins:    []string{"*"},
	}

	return httpapi.RouterConfig{
		AllowedOrigins:    []string{"*"},
		DevMode:           cfg.IsDevelopment(),
		TokenVerifier:     issuer,
		RevocationChecker: revocation,

		HealthHandler: httpapi.NewHealthHandler(),
		LoginHandler:  httpapi.NewLoginHandler(users, issuer),
		LogoutHandler: httpapi.NewLogoutHandler(issuer, revocation),

		ListServersHandler:  httpapi.NewListServersHandler(servers),
		GetServerHandler:    httpapi.NewGetServerHandler(servers),
		CreateServerHandler: httpapi.NewCreateServerHandler(servers),
		UpdateServerHandler: httpapi.NewUpdateServerHandler(servers),
		DeleteServerHandler: httpapi.NewDeleteServerHandler(servers),

		ListUsersHandler:       httpapi.NewListUsersHandler(users),
		CreateUserHandler:      httpapi.NewCreateUserHandler(users),
		SetUserDisabledHandler: httpapi.NewSetUserDisabledHandler(users),

		HeartbeatWSHandler:     httpapi.NewHeartbeatWSHandler(wsCfg),
		NotificationsWSHandler: httpapi.NewNotificationsWSHandler(wsCfg),
		ServerListWSHandler:    httpapi.NewServerListWSHandler(wsCfg),
		ServerDetailWSHandler:  httpapi.NewServerDetailWSHandler(wsCfg),
		RconWSHandler:          httpapi.NewRconWSHandler(wsCfg),
	}
}

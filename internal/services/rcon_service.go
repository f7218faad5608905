// Package services hosts the concrete supervised units: the per-server
// RCON actor, the status aggregator, and the heartbeat publisher.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexmorten/rconsole/internal/domain"
	"github.com/alexmorten/rconsole/internal/messages"
	"github.com/alexmorten/rconsole/internal/pubsub"
	"github.com/alexmorten/rconsole/internal/rcon"
	"github.com/alexmorten/rconsole/internal/retrypolicy"
	"github.com/alexmorten/rconsole/internal/supervisor"
)

// ServerSupplier refetches a server's current descriptor from storage.
// RconService calls it at the start of every connect attempt so that an
// operator's edit to host/port/password takes effect on the next retry
// cycle without a process restart.
type ServerSupplier func(ctx context.Context, uid uuid.UUID) (*domain.Server, error)

// RconServiceName returns the supervised name an RconService for the
// given server registers itself under.
func RconServiceName(uid uuid.UUID) string {
	return fmt.Sprintf("rcon_service_%s", uid)
}

// RconService is the per-server actor: it owns one RCON client, bridges
// the bus and the client in both directions, and emits connection status
// and notification events.
type RconService struct {
	bus            *pubsub.Bus
	uid            uuid.UUID
	supplier       ServerSupplier
	connectTimeout time.Duration
	retry          retrypolicy.Config
	logger         *slog.Logger

	manager *rcon.ClientManager
}

// NewRconService constructs an RconService for server uid. connectTimeout
// bounds the TCP dial on every connect attempt; zero falls back to
// rcon.DefaultConnectTimeout.
func NewRconService(bus *pubsub.Bus, uid uuid.UUID, supplier ServerSupplier, connectTimeout time.Duration, retry retrypolicy.Config, logger *slog.Logger) *RconService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RconService{
		bus:            bus,
		uid:            uid,
		supplier:       supplier,
		connectTimeout: connectTimeout,
		retry:          retry,
		logger:         logger.With("service", RconServiceName(uid)),
	}
}

// Name implements supervisor.Service.
func (s *RconService) Name() string { return RconServiceName(s.uid) }

// Launch implements supervisor.Service. It acquires a client (retrying
// connect/login per retrypolicy), bridges bus↔client until either the
// read or write loop exits, then tears down and reports status.
func (s *RconService) Launch(ctx context.Context) error {
	s.manager = rcon.NewClientManager(
		s.uid, rcon.ServerSupplier(s.supplier), s.connectTimeout,
		s.retry, s.notifyConnectionFailure,
	)

	client, server, err := s.manager.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.manager.Release() }()

	return s.process(ctx, client, server)
}

func (s *RconService) process(ctx context.Context, client *rcon.RconClient, server *domain.Server) error {
	pubsub.Publish(s.bus, messages.ServerStatusTopic, messages.RconConnected{ServerUID: s.uid.String()})
	pubsub.Publish(s.bus, messages.NotificationTopic, messages.NotificationMessage{
		Audience: messages.AllAudience(),
		Body:     fmt.Sprintf("Connected to RCON of %s", server.Name),
		Severity: messages.SeveritySuccess,
	})

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- s.write(loopCtx, client)
	}()
	go func() {
		defer wg.Done()
		errs <- s.read(loopCtx, client)
	}()

	firstErr := <-errs
	cancel()
	wg.Wait()
	close(errs)

	pubsub.Publish(s.bus, messages.ServerStatusTopic, messages.RconDisconnected{ServerUID: s.uid.String()})
	pubsub.Publish(s.bus, messages.NotificationTopic, messages.NotificationMessage{
		Audience: messages.AllAudience(),
		Body:     fmt.Sprintf("Disconnected from RCON of %s", server.Name),
		Severity: messages.SeverityError,
	})

	var incomplete *rcon.IncompleteReadError
	if errors.As(firstErr, &incomplete) {
		return &supervisor.RecoverableError{Inner: firstErr, RecoveryDelay: 5 * time.Second}
	}
	return firstErr
}

func (s *RconService) write(ctx context.Context, client *rcon.RconClient) error {
	sub, err := pubsub.Subscribe(s.bus, messages.RconCommandTopic(s.uid.String()), messages.CommandLengthAtLeast(1))
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.Inbound():
			if !ok {
				return nil
			}
			cmd, ok := msg.(messages.RconCommand)
			if !ok {
				continue
			}
			if err := client.SendCommand(cmd); err != nil {
				return err
			}
		}
	}
}

func (s *RconService) read(ctx context.Context, client *rcon.RconClient) error {
	responseTopic := messages.RconResponseTopic(s.uid.String())

	readErr := make(chan error, 1)
	go func() {
		readErr <- client.Read(
			func(resp messages.RconResponse) {
				pubsub.Publish(s.bus, responseTopic, resp)
			},
			func(errMsg string) {
				pubsub.Publish(s.bus, messages.NotificationTopic, messages.NotificationMessage{
					Audience: messages.AllAudience(),
					Body:     errMsg,
					Severity: messages.SeverityError,
				})
			},
		)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-readErr:
		return err
	}
}

func (s *RconService) notifyConnectionFailure(server *domain.Server, err error) {
	pubsub.Publish(s.bus, messages.NotificationTopic, messages.NotificationMessage{
		Audience: messages.AllAudience(),
		Body:     fmt.Sprintf("Failed to connect to %s:%d (%s)", server.Host, server.RconPort, err),
		Severity: messages.SeverityWarning,
	})
}

// Stop implements supervisor.Service. Teardown already happens in
// Launch's finally-equivalent in process(); Stop only needs to release
// the transport if Launch is still mid-acquire when cancelled.
func (s *RconService) Stop(ctx context.Context) error {
	if s.manager != nil {
		return s.manager.Release()
	}
	return nil
}


package rcon

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/alexmorten/rconsole/internal/domain"
	"github.com/alexmorten/rconsole/internal/messages"
	"github.com/alexmorten/rconsole/internal/retrypolicy"
)

// DefaultConnectTimeout is used when a caller constructs a ClientManager
// without an explicit timeout (config.Config.RconConnectTimeout is the
// production source of this value).
const DefaultConnectTimeout = 5 * time.Second

// ServerSupplier refetches a server's current descriptor from storage.
// ClientManager calls it at the start of every connect attempt — not just
// once before the first attempt — so that an operator's edit to
// host/port/password takes effect on the very next retry cycle rather
// than only after a process restart.
type ServerSupplier func(ctx context.Context, uid uuid.UUID) (*domain.Server, error)

// ClientManager is a scoped resource whose Acquire performs
// connect→login→verify, retrying on the enumerated transient error set
// until success, an unrecoverable error, or MaxTries is exhausted.
type ClientManager struct {
	uid            uuid.UUID
	supplier       ServerSupplier
	connectTimeout time.Duration
	retry          retrypolicy.Config
	onFailure      func(*domain.Server, error)

	connection *RconConnection
}

// NewClientManager constructs a manager for one server's RCON endpoint.
// connectTimeout bounds the TCP dial; zero falls back to
// DefaultConnectTimeout.
func NewClientManager(uid uuid.UUID, supplier ServerSupplier, connectTimeout time.Duration, retry retrypolicy.Config, onFailure func(*domain.Server, error)) *ClientManager {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &ClientManager{
		uid:            uid,
		supplier:       supplier,
		connectTimeout: connectTimeout,
		retry:          retry,
		onFailure:      onFailure,
	}
}

// Acquire performs connect→login→verify with retry and returns a Ready
// RconClient on success, along with the server descriptor the successful
// attempt connected with. The caller must call Release when done with the
// client to close the transport deterministically.
func (m *ClientManager) Acquire(ctx context.Context) (*RconClient, *domain.Server, error) {
	ids := NewRequestIDProvider()

	var client *RconClient
	var server *domain.Server
	op := func(ctx context.Context) error {
		s, err := m.supplier(ctx, m.uid)
		if err != nil {
			return err
		}
		server = s

		c, err := m.connectAndLogin(ctx, s, ids)
		if err != nil {
			return err
		}
		client = c
		return nil
	}

	notify := func(err error) {
		if m.onFailure != nil {
			m.onFailure(server, err)
		}
	}

	if err := retrypolicy.Run(ctx, m.retry, IsRetryable, notify, op); err != nil {
		return nil, nil, err
	}
	return client, server, nil
}

func (m *ClientManager) connectAndLogin(ctx context.Context, server *domain.Server, ids *RequestIDProvider) (*RconClient, error) {
	dialer := net.Dialer{Timeout: m.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(server.Host, portString(server.RconPort)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Inner: err}
		}
		return nil, &ConnectionRefusedError{Inner: err}
	}

	encoding := Encoding(server.Type)
	connection := NewRconConnection(conn, encoding)

	requestID := ids.Next()
	if err := connection.Write(LoginPacket(server.RconPassword, requestID)); err != nil {
		_ = connection.Close()
		return nil, &ConnectionRefusedError{Inner: err}
	}

	if server.Type == messages.ServerTypeSource {
		preamble, err := connection.Read()
		if err != nil {
			_ = connection.Close()
			return nil, err
		}
		if preamble.Kind != ResponseCommand || preamble.RequestID != requestID {
			_ = connection.Close()
			return nil, &InvalidPacketError{Reason: "unexpected Source login preamble"}
		}
	}

	loginResp, err := connection.Read()
	if err != nil {
		_ = connection.Close()
		return nil, err
	}

	switch loginResp.Kind {
	case ResponseLoginSuccess:
		if loginResp.RequestID != requestID {
			_ = connection.Close()
			return nil, &RequestIdMismatchError{RequestID: loginResp.RequestID}
		}
	case ResponseLoginFailed:
		_ = connection.Close()
		return nil, &InvalidPasswordError{}
	default:
		_ = connection.Close()
		return nil, &InvalidPacketError{Reason: "expected login response"}
	}

	m.connection = connection
	return NewRconClient(connection, ids, server.Type, encoding), nil
}

func portString(port int) string {
	return strconv.Itoa(port)
}

// Release closes the manager's active transport.
func (m *ClientManager) Release() error {
	if m.connection == nil {
		return nil
	}
	err := m.connection.Close()
	m.connection = nil
	return err
}

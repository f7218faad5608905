package rcon_test

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmorten/rconsole/internal/domain"
	"github.com/alexmorten/rconsole/internal/messages"
	"github.com/alexmorten/rconsole/internal/rcon"
	"github.com/alexmorten/rconsole/internal/retrypolicy"
)

// fakeLoginServer accepts connections on a loopback listener and acks
// whatever login id it receives. Each accepted connection is closed right
// after the ack, which is enough to drive ClientManager.Acquire to a
// successful login without modeling the rest of the wire protocol.
func fakeLoginServer(t *testing.T) (addr string, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				login, err := rcon.ReadFrame(conn)
				if err != nil {
					return
				}
				ack, _ := (rcon.OutgoingPacket{RequestID: login.RequestID, Type: rcon.TypeLoginAck}).Encode("utf-8")
				conn.Write(ack)
				time.Sleep(50 * time.Millisecond)
			}()
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func serverAt(t *testing.T, addr string) *domain.Server {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return &domain.Server{
		UID:          uuid.New(),
		Type:         messages.ServerTypeMinecraft,
		Host:         host,
		RconPort:     port,
		RconPassword: "secret",
		Name:         "test-server",
	}
}

func TestClientManager_Acquire_RefetchesDescriptorOnEveryAttempt(t *testing.T) {
	goodAddr, closeGood := fakeLoginServer(t)
	defer closeGood()

	uid := uuid.New()
	goodServer := serverAt(t, goodAddr)
	goodServer.UID = uid

	// badServer points at a closed port: the first attempt must fail to
	// connect. The supplier switches to goodServer afterward, simulating
	// an operator fixing the host/port mid-retry-loop.
	badServer := &domain.Server{
		UID: uid, Type: messages.ServerTypeMinecraft,
		Host: "127.0.0.1", RconPort: 1, RconPassword: "secret", Name: "bad",
	}

	var calls int32
	supplier := func(ctx context.Context, id uuid.UUID) (*domain.Server, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return badServer, nil
		}
		return goodServer, nil
	}

	mgr := rcon.NewClientManager(uid, supplier, time.Second, retrypolicy.Config{
		BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, MaxTries: 5,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, server, err := mgr.Acquire(ctx)
	require.NoError(t, err)
	defer mgr.Release()

	assert.NotNil(t, client)
	assert.Equal(t, goodAddr, net.JoinHostPort(server.Host, strconv.Itoa(server.RconPort)))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestClientManager_Acquire_UsesDefaultConnectTimeoutWhenUnset(t *testing.T) {
	addr, closeFn := fakeLoginServer(t)
	defer closeFn()

	uid := uuid.New()
	server := serverAt(t, addr)
	server.UID = uid

	supplier := func(ctx context.Context, id uuid.UUID) (*domain.Server, error) {
		return server, nil
	}

	mgr := rcon.NewClientManager(uid, supplier, 0, retrypolicy.Config{MaxTries: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), rcon.DefaultConnectTimeout+time.Second)
	defer cancel()

	client, _, err := mgr.Acquire(ctx)
	require.NoError(t, err)
	defer mgr.Release()
	assert.NotNil(t, client)
}

func TestClientManager_Acquire_SupplierErrorIsRetried(t *testing.T) {
	addr, closeFn := fakeLoginServer(t)
	defer closeFn()

	uid := uuid.New()
	server := serverAt(t, addr)
	server.UID = uid

	var calls int32
	supplier := func(ctx context.Context, id uuid.UUID) (*domain.Server, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, &rcon.ConnectionRefusedError{Inner: errors.New("storage hiccup")}
		}
		return server, nil
	}

	var failures int32
	onFailure := func(s *domain.Server, err error) { atomic.AddInt32(&failures, 1) }

	mgr := rcon.NewClientManager(uid, supplier, time.Second, retrypolicy.Config{
		BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, MaxTries: 5,
	}, onFailure)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, _, err := mgr.Acquire(ctx)
	require.NoError(t, err)
	defer mgr.Release()
	assert.NotNil(t, client)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&failures), int32(1))
}

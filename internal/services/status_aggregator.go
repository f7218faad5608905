package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/alexmorten/rconsole/internal/messages"
	"github.com/alexmorten/rconsole/internal/pubsub"
)

// ServerStatus is the latest known connection state for one server.
type ServerStatus struct {
	RconConnected bool
}

// StatusAggregatorServiceName is the fixed supervised name for the single
// process-wide status aggregator.
const StatusAggregatorServiceName = "server_status_service"

// StatusAggregatorService subscribes to the server-status topic and
// maintains the latest RconConnected/RconDisconnected state per server. It
// is the single source of truth read by HTTP handlers rendering server
// lists and detail pages.
type StatusAggregatorService struct {
	bus *pubsub.Bus

	mu     sync.RWMutex
	states map[uuid.UUID]*ServerStatus
}

// NewStatusAggregatorService constructs an aggregator bound to bus.
func NewStatusAggregatorService(bus *pubsub.Bus) *StatusAggregatorService {
	return &StatusAggregatorService{
		bus:    bus,
		states: make(map[uuid.UUID]*ServerStatus),
	}
}

// Name implements supervisor.Service.
func (a *StatusAggregatorService) Name() string { return StatusAggregatorServiceName }

// Launch implements supervisor.Service.
func (a *StatusAggregatorService) Launch(ctx context.Context) error {
	sub, err := a.bus.Subscribe(messages.ServerStatusTopic.Topic, nil)
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
			a.processMessage(msg)
		}
	}
}

func (a *StatusAggregatorService) processMessage(msg any) {
	switch m := msg.(type) {
	case messages.RconConnected:
		a.setConnected(m.ServerUID, true)
	case messages.RconDisconnected:
		a.setConnected(m.ServerUID, false)
	}
}

func (a *StatusAggregatorService) setConnected(serverUID string, connected bool) {
	uid, err := uuid.Parse(serverUID)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.states[uid]
	if !ok {
		state = &ServerStatus{}
		a.states[uid] = state
	}
	state.RconConnected = connected
}

// GetState returns the current status for uid, defaulting to
// {RconConnected: false} if no status has been observed yet.
func (a *StatusAggregatorService) GetState(uid uuid.UUID) ServerStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if state, ok := a.states[uid]; ok {
		return *state
	}
	return ServerStatus{}
}

// GetStates returns the current status for each of ids.
func (a *StatusAggregatorService) GetStates(ids []uuid.UUID) map[uuid.UUID]ServerStatus {
	result := make(map[uuid.UUID]ServerStatus, len(ids))
	for _, id := range ids {
		result[id] = a.GetState(id)
	}
	return result
}

// Stop implements supervisor.Service; the aggregator holds no external
// resources to release.
func (a *StatusAggregatorService) Stop(ctx context.Context) error { return nil }

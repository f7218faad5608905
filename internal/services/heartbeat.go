package services

import (
	"context"
	"time"

	"github.com/alexmorten/rconsole/internal/messages"
	"github.com/alexmorten/rconsole/internal/pubsub"
)

// HeartbeatServiceName is the fixed supervised name for the heartbeat
// publisher.
const HeartbeatServiceName = "heartbeat_publisher"

// HeartbeatPublisher emits a HeartbeatMessage on a fixed cadence so
// connected browsers can tell the server process is alive.
type HeartbeatPublisher struct {
	bus      *pubsub.Bus
	interval time.Duration
	now      func() time.Time
}

// NewHeartbeatPublisher constructs a publisher ticking every interval.
func NewHeartbeatPublisher(bus *pubsub.Bus, interval time.Duration) *HeartbeatPublisher {
	return &HeartbeatPublisher{bus: bus, interval: interval, now: time.Now}
}

// Name implements supervisor.Service.
func (h *HeartbeatPublisher) Name() string { return HeartbeatServiceName }

// Launch implements supervisor.Service.
func (h *HeartbeatPublisher) Launch(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pubsub.Publish(h.bus, messages.HeartbeatTopic, messages.HeartbeatMessage{Timestamp: h.now()})
		}
	}
}

// Stop implements supervisor.Service; the publisher holds no external
// resources to release.
func (h *HeartbeatPublisher) Stop(ctx context.Context) error { return nil }

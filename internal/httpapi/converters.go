package httpapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexmorten/rconsole/internal/messages"
	"github.com/alexmorten/rconsole/internal/render"
	"github.com/alexmorten/rconsole/internal/services"
	"github.com/alexmorten/rconsole/internal/wsproc"
)

// decodeNoop accepts and discards any inbound frame body. Read-only
// endpoints (heartbeat, notifications, the two status feeds) never expect
// the browser to publish anything, so the processor's decode step is a
// placeholder that is never exercised by wsproc.Converter.ConvertIn.
func decodeNoop(raw []byte) (struct{}, error) {
	return struct{}{}, nil
}

// newHeartbeatConverter renders HeartbeatMessage ticks to the hx-swap-oob
// fragment connected browsers use to show the server is alive.
func newHeartbeatConverter(renderer render.HtmlRenderer) wsproc.Converter[struct{}, struct{}, messages.HeartbeatMessage] {
	return wsproc.ConverterFuncs[struct{}, struct{}, messages.HeartbeatMessage]{
		In: func(struct{}) (struct{}, error) { return struct{}{}, nil },
		Out: func(m messages.HeartbeatMessage) (string, error) {
			return renderer.Render("heartbeat", struct{ Timestamp time.Time }{Timestamp: m.Timestamp})
		},
	}
}

// newNotificationConverter renders NotificationMessage events addressed to
// the connecting user into an appended notification fragment.
func newNotificationConverter(renderer render.HtmlRenderer) wsproc.Converter[struct{}, struct{}, messages.NotificationMessage] {
	return wsproc.ConverterFuncs[struct{}, struct{}, messages.NotificationMessage]{
		In: func(struct{}) (struct{}, error) { return struct{}{}, nil },
		Out: func(m messages.NotificationMessage) (string, error) {
			return renderer.Render("notifications/notification", struct {
				Severity           messages.Severity
				Body               string
				AutoDismissSeconds *int
			}{Severity: m.Severity, Body: m.Body, AutoDismissSeconds: m.AutoDismissSeconds})
		},
	}
}

// newServerListConverter renders each RconConnected/RconDisconnected event
// on the server-status topic, consulting the aggregator for the
// authoritative current state rather than trusting the event's polarity
// directly — a burst of reconnect/disconnect events can otherwise race the
// fragment actually sent.
func newServerListConverter(renderer render.HtmlRenderer, aggregator *services.StatusAggregatorService) wsproc.Converter[struct{}, struct{}, any] {
	return wsproc.ConverterFuncs[struct{}, struct{}, any]{
		In: func(struct{}) (struct{}, error) { return struct{}{}, nil },
		Out: func(m any) (string, error) {
			serverUID, ok := serverUIDOf(m)
			if !ok {
				return "", fmt.Errorf("httpapi: unexpected server status event %T", m)
			}
			uid, err := uuid.Parse(serverUID)
			if err != nil {
				return "", fmt.Errorf("httpapi: malformed server uid %q: %w", serverUID, err)
			}
			state := aggregator.GetState(uid)
			return renderer.Render("servers/list_update", struct {
				ServerUID string
				Connected bool
			}{ServerUID: serverUID, Connected: state.RconConnected})
		},
	}
}

// newServerDetailConverter is newServerListConverter's counterpart for a
// single server's detail page; the processor's SubscribeFilter already
// restricts delivery to that one server's events.
func newServerDetailConverter(renderer render.HtmlRenderer, aggregator *services.StatusAggregatorService, uid uuid.UUID) wsproc.Converter[struct{}, struct{}, any] {
	return wsproc.ConverterFuncs[struct{}, struct{}, any]{
		In: func(struct{}) (struct{}, error) { return struct{}{}, nil },
		Out: func(any) (string, error) {
			state := aggregator.GetState(uid)
			return renderer.Render("servers/detail_update", struct{ Connected bool }{Connected: state.RconConnected})
		},
	}
}

func serverUIDOf(m any) (string, bool) {
	switch v := m.(type) {
	case messages.RconConnected:
		return v.ServerUID, true
	case messages.RconDisconnected:
		return v.ServerUID, true
	default:
		return "", false
	}
}

// rconCommandFrame is the JSON shape a browser's RCON console sends over
// its WebSocket connection: one line of operator input per frame.
type rconCommandFrame struct {
	Command string `json:"command"`
}

func decodeRconCommandFrame(raw []byte) (rconCommandFrame, error) {
	var f rconCommandFrame
	err := json.Unmarshal(raw, &f)
	return f, err
}

// newRconConverter publishes operator-issued commands as messages.RconCommand
// (stamped with the authenticated username) and renders reassembled
// RconResponse replies into the console's appended-line fragment.
func newRconConverter(renderer render.HtmlRenderer, username string) wsproc.Converter[rconCommandFrame, messages.RconCommand, messages.RconResponse] {
	return wsproc.ConverterFuncs[rconCommandFrame, messages.RconCommand, messages.RconResponse]{
		In: func(f rconCommandFrame) (messages.RconCommand, error) {
			return messages.RconCommand{IssuingUser: username, Command: f.Command}, nil
		},
		Out: func(m messages.RconResponse) (string, error) {
			return renderer.Render("rcon/response", struct{ Command, Response string }{
				Command:  m.Command,
				Response: m.Response,
			})
		},
	}
}

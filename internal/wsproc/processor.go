package wsproc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alexmorten/rconsole/internal/pubsub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer at this interval. Must be less than pongWait.
	pingPeriod = 30 * time.Second

	// Maximum message size accepted from the peer.
	maxMessageSize = 16 * 1024
)

// Session is the subset of *websocket.Conn a Processor needs. Narrowing it
// to an interface keeps processor_test.go free of a real network socket.
type Session interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// WebsocketPubSub configures the bus side of a Processor. PublishTopic is
// the topic incoming frames are forwarded to, decoded by Converter.ConvertIn
// — left as the zero Topic if the endpoint is read-only. SubscribeTopic and
// SubscribeFilter select what gets written back to the browser — left zero
// if the endpoint is write-only.
type WebsocketPubSub struct {
	Bus             *pubsub.Bus
	PublishTopic    pubsub.Topic
	HasPublish      bool
	SubscribeTopic  pubsub.Topic
	SubscribeFilter pubsub.Filter
	HasSubscribe    bool
}

// Processor bridges one WebSocket session to the bus, translating wire data
// through a Converter. TDataIn is the shape decoded from each inbound JSON
// frame; TMessageIn is what gets published; TMessageOut is what arrives off
// the bus subscription and gets rendered back to the browser.
type Processor[TDataIn any, TMessageIn any, TMessageOut any] struct {
	pubsub    WebsocketPubSub
	converter Converter[TDataIn, TMessageIn, TMessageOut]
	decode    func([]byte) (TDataIn, error)
	logger    *slog.Logger
}

// New returns a Processor wired to ps and converter. decode parses a raw
// inbound frame into the shape converter.ConvertIn expects (typically
// json.Unmarshal into a TDataIn).
func New[TDataIn any, TMessageIn any, TMessageOut any](
	ps WebsocketPubSub,
	converter Converter[TDataIn, TMessageIn, TMessageOut],
	decode func([]byte) (TDataIn, error),
	logger *slog.Logger,
) *Processor[TDataIn, TMessageIn, TMessageOut] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor[TDataIn, TMessageIn, TMessageOut]{
		pubsub:    ps,
		converter: converter,
		decode:    decode,
		logger:    logger.With("component", "wsproc"),
	}
}

// Process runs the read and write loops for session until either exits,
// then cancels the other and closes the session. It blocks until both
// loops have returned.
func (p *Processor[TDataIn, TMessageIn, TMessageOut]) Process(ctx context.Context, session Session) {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		p.readLoop(ctx, session)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		p.writeLoop(ctx, session)
	}()

	wg.Wait()
	_ = session.Close()
}

// readLoop pumps inbound frames off the session, converts them, and
// publishes them. It returns (and so ends the Process call) when the
// session errors or ctx is cancelled. Without a publish topic it reads no
// frames and only waits for ctx.
func (p *Processor[TDataIn, TMessageIn, TMessageOut]) readLoop(ctx context.Context, session Session) {
	if !p.pubsub.HasPublish {
		<-ctx.Done()
		return
	}

	session.SetReadLimit(maxMessageSize)
	_ = session.SetReadDeadline(time.Now().Add(pongWait))
	session.SetPongHandler(func(string) error {
		_ = session.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}

		_, raw, err := session.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Warn("unexpected close reading frame", "error", err)
			}
			return
		}

		data, err := p.decode(raw)
		if err != nil {
			p.logger.Warn("dropping unparseable frame", "error", err)
			continue
		}

		message, err := p.converter.ConvertIn(data)
		if err != nil {
			p.logger.Warn("rejecting frame", "error", err)
			continue
		}

		p.pubsub.Bus.Publish(p.pubsub.PublishTopic, message)
	}
}

// writeLoop subscribes to the bus and renders each accepted message to a
// text frame, also sending periodic pings to keep the connection alive. It
// returns when a write to the session fails or ctx is cancelled. Without a
// subscribe topic it only sends the periodic pings.
func (p *Processor[TDataIn, TMessageIn, TMessageOut]) writeLoop(ctx context.Context, session Session) {
	if !p.pubsub.HasSubscribe {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = session.SetWriteDeadline(time.Now().Add(writeWait))
				if err := session.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}

	sub, err := p.pubsub.Bus.Subscribe(p.pubsub.SubscribeTopic, p.pubsub.SubscribeFilter)
	if err != nil {
		p.logger.Error("failed to subscribe", "error", err)
		return
	}
	defer sub.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case raw, ok := <-sub.Inbound():
			if !ok {
				return
			}
			typed, ok := raw.(TMessageOut)
			if !ok {
				continue
			}
			text, err := p.converter.ConvertOut(typed)
			if err != nil {
				p.logger.Warn("dropping unrenderable message", "error", err)
				continue
			}

			_ = session.SetWriteDeadline(time.Now().Add(writeWait))
			if err := session.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				return
			}

		case <-ticker.C:
			_ = session.SetWriteDeadline(time.Now().Add(writeWait))
			if err := session.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

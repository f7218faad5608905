package wsproc_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmorten/rconsole/internal/pubsub"
	"github.com/alexmorten/rconsole/internal/wsproc"
)

// fakeSession is an in-memory stand-in for *websocket.Conn. Inbound frames
// are fed through the in channel; outbound frames (and pings) written by
// the processor land on the out channel. Closing in simulates the peer
// hanging up.
type fakeSession struct {
	in  chan []byte
	out chan []byte
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		in:  make(chan []byte, 8),
		out: make(chan []byte, 8),
	}
}

func (f *fakeSession) ReadMessage() (int, []byte, error) {
	msg, ok := <-f.in
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, msg, nil
}

func (f *fakeSession) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.PingMessage {
		return nil
	}
	select {
	case f.out <- data:
		return nil
	default:
		return errors.New("fakeSession: out buffer full")
	}
}

func (f *fakeSession) SetReadLimit(int64)                {}
func (f *fakeSession) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeSession) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeSession) SetPongHandler(func(string) error) {}
func (f *fakeSession) Close() error                      { return nil }

type echoData struct {
	Text string `json:"text"`
}

func TestProcessor_PublishOnlyForwardsDecodedFrames(t *testing.T) {
	bus := pubsub.NewBus()
	topic := pubsub.NewTopic("test/publish-only")

	sub, err := bus.Subscribe(topic, nil)
	require.NoError(t, err)
	defer sub.Close()

	converter := wsproc.ConverterFuncs[echoData, string, any]{
		In: func(d echoData) (string, error) { return d.Text, nil },
	}
	proc := wsproc.New[echoData, string, any](
		wsproc.WebsocketPubSub{Bus: bus, PublishTopic: topic, HasPublish: true},
		converter,
		func(raw []byte) (echoData, error) {
			var d echoData
			err := json.Unmarshal(raw, &d)
			return d, err
		},
		nil,
	)

	session := newFakeSession()
	frame, _ := json.Marshal(echoData{Text: "hello"})
	session.in <- frame
	close(session.in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		proc.Process(ctx, session)
		close(done)
	}()

	select {
	case msg := <-sub.Inbound():
		assert.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}

	<-done
}

func TestProcessor_SubscribeOnlyRendersMessagesToFrames(t *testing.T) {
	bus := pubsub.NewBus()
	topic := pubsub.NewTopic("test/subscribe-only")

	converter := wsproc.ConverterFuncs[echoData, any, string]{
		Out: func(m string) (string, error) { return "rendered:" + m, nil },
	}
	proc := wsproc.New[echoData, any, string](
		wsproc.WebsocketPubSub{Bus: bus, SubscribeTopic: topic, HasSubscribe: true},
		converter,
		func(raw []byte) (echoData, error) { return echoData{}, nil },
		nil,
	)

	session := newFakeSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		proc.Process(ctx, session)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return bus.SubscriberCount(topic) == 1
	}, time.Second, 5*time.Millisecond)

	bus.Publish(topic, "ping")

	select {
	case frame := <-session.out:
		assert.Equal(t, "rendered:ping", string(frame))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for rendered frame")
	}

	cancel()
	<-done
}

func TestProcessor_ReadLoopExitCancelsWriteLoop(t *testing.T) {
	bus := pubsub.NewBus()
	pubTopic := pubsub.NewTopic("test/read-cancels-write/pub")
	subTopic := pubsub.NewTopic("test/read-cancels-write/sub")

	converter := wsproc.ConverterFuncs[echoData, string, string]{
		In:  func(d echoData) (string, error) { return d.Text, nil },
		Out: func(m string) (string, error) { return m, nil },
	}
	proc := wsproc.New[echoData, string, string](
		wsproc.WebsocketPubSub{
			Bus: bus, PublishTopic: pubTopic, HasPublish: true,
			SubscribeTopic: subTopic, HasSubscribe: true,
		},
		converter,
		func(raw []byte) (echoData, error) {
			var d echoData
			err := json.Unmarshal(raw, &d)
			return d, err
		},
		nil,
	)

	session := newFakeSession()
	close(session.in) // peer hangs up immediately

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		proc.Process(ctx, session)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Process did not return after the read loop exited")
	}
}

package pubsub_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmorten/rconsole/internal/pubsub"
)

func recv(t *testing.T, sub *pubsub.Subscription, timeout time.Duration) (any, bool) {
	t.Helper()
	select {
	case msg, ok := <-sub.Inbound():
		return msg, ok
	case <-time.After(timeout):
		return nil, false
	}
}

func TestBus_FanoutToAllSubscribers(t *testing.T) {
	bus := pubsub.NewBus()
	topic := pubsub.NewTopic("greeting")

	a, err := bus.Subscribe(topic, nil)
	require.NoError(t, err)
	b, err := bus.Subscribe(topic, nil)
	require.NoError(t, err)

	bus.Publish(topic, "hello")

	gotA, ok := recv(t, a, time.Second)
	require.True(t, ok)
	assert.Equal(t, "hello", gotA)

	gotB, ok := recv(t, b, time.Second)
	require.True(t, ok)
	assert.Equal(t, "hello", gotB)
}

func TestBus_TopicIsolation(t *testing.T) {
	bus := pubsub.NewBus()
	topicA := pubsub.NewTopic("a")
	topicB := pubsub.NewTopic("b")

	subA, err := bus.Subscribe(topicA, nil)
	require.NoError(t, err)

	bus.Publish(topicB, "noise")

	select {
	case msg := <-subA.Inbound():
		t.Fatalf("subscriber on topic a should not receive topic b traffic, got %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_FilterSoundness(t *testing.T) {
	bus := pubsub.NewBus()
	topic := pubsub.NewTopic("numbers")

	isEven := pubsub.Filter(func(m any) bool {
		n, ok := m.(int)
		return ok && n%2 == 0
	})

	sub, err := bus.Subscribe(topic, isEven)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		bus.Publish(topic, i)
	}

	var got []int
	for i := 0; i < 3; i++ {
		msg, ok := recv(t, sub, time.Second)
		require.True(t, ok)
		got = append(got, msg.(int))
	}
	assert.Equal(t, []int{0, 2, 4}, got)

	select {
	case msg := <-sub.Inbound():
		t.Fatalf("expected no further deliveries, got %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_CloseIsIdempotentAndUnlinks(t *testing.T) {
	bus := pubsub.NewBus()
	topic := pubsub.NewTopic("closing")

	sub, err := bus.Subscribe(topic, nil)
	require.NoError(t, err)
	require.Equal(t, 1, bus.SubscriberCount(topic))

	sub.Close()
	sub.Close() // must not panic

	assert.Equal(t, 0, bus.SubscriberCount(topic))

	_, ok := <-sub.Inbound()
	assert.False(t, ok, "channel should be closed")

	// publishing after close must not panic or deliver anywhere
	bus.Publish(topic, "ghost")
}

func TestBus_FilterAlgebraLaws(t *testing.T) {
	isString := pubsub.TypeIs[string]()
	isLongEnough := pubsub.FieldLength(func(s string) string { return s }, 3, pubsub.LengthMin)

	and := pubsub.And(isString, isLongEnough)
	or := pubsub.Or(isString, isLongEnough)
	not := pubsub.Not(isString)

	assert.True(t, and("hello"))
	assert.False(t, and("hi"))
	assert.False(t, and(42))

	assert.True(t, or("hi"))
	assert.False(t, or(42))
	assert.False(t, not("x"))
	assert.True(t, not(42))
}

func TestBus_InvalidTopic(t *testing.T) {
	bus := pubsub.NewBus()
	_, err := bus.Subscribe(pubsub.NewTopic(""), nil)
	assert.ErrorIs(t, err, pubsub.ErrInvalidTopic)
}

func TestBus_DropsOldestWhenSubscriberQueueIsFull(t *testing.T) {
	bus := pubsub.NewBus()
	topic := pubsub.NewTopic("firehose")

	sub, err := bus.SubscribeWithQueueSize(topic, nil, 2)
	require.NoError(t, err)

	bus.Publish(topic, 1)
	bus.Publish(topic, 2)
	bus.Publish(topic, 3) // queue full at this point, should drop "1"

	first, ok := recv(t, sub, time.Second)
	require.True(t, ok)
	second, ok := recv(t, sub, time.Second)
	require.True(t, ok)

	assert.Equal(t, []any{2, 3}, []any{first, second})
	assert.Equal(t, uint64(1), sub.Dropped())
}

func TestBus_ConcurrentPublishAndSubscribeIsRaceFree(t *testing.T) {
	bus := pubsub.NewBus()
	topic := pubsub.NewTopic("concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sub, err := bus.Subscribe(topic, nil)
			if err != nil {
				return
			}
			go func() {
				for range sub.Inbound() {
				}
			}()
			bus.Publish(topic, n)
			sub.Close()
		}(i)
	}
	wg.Wait()
}

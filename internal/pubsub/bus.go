package pubsub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidTopic is returned by Subscribe when the given topic's name is
// empty.
var ErrInvalidTopic = errors.New("pubsub: invalid topic")

// DefaultQueueSize is the channel capacity given to a Subscription when the
// caller does not request a specific size via SubscribeWithQueueSize.
const DefaultQueueSize = 64

// Subscription is a live registration on a Bus. Inbound() yields every
// message published to the subscribed topic that passes the subscription's
// filter, in publish order, until Close is called or the Bus itself is
// closed.
//
// A Subscription's channel is bounded. If a consumer falls behind, the Bus
// drops the oldest buffered message to make room for the newest one rather
// than blocking the publisher — publishers must never stall because one
// subscriber is slow.
type Subscription struct {
	id     uuid.UUID
	topic  Topic
	filter Filter
	ch     chan any

	bus *Bus

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// Inbound returns the channel a subscriber should range over to receive
// messages. The channel is closed when the Subscription is closed.
func (s *Subscription) Inbound() <-chan any {
	return s.ch
}

// Dropped returns the number of messages this subscription has had to drop
// because its queue was full when a new message arrived.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close unlinks the subscription from its Bus and closes its channel. Close
// is idempotent and safe to call concurrently with delivery.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.bus.unsubscribe(s)
	close(s.ch)
}

// deliver attempts a non-blocking send of message into the subscription's
// queue. If the queue is full, the oldest queued message is discarded to
// make room — publishers never block on a slow subscriber.
func (s *Subscription) deliver(message any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- message:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped++
		default:
			// Raced with a concurrent receive that drained the channel;
			// retry the send.
		}
	}
}

// Bus is an in-process publish/subscribe hub. A Bus must not be copied
// after first use; the zero value is not usable, construct one with
// NewBus.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic]map[uuid.UUID]*Subscription
}

// NewBus returns an empty, ready-to-use Bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[Topic]map[uuid.UUID]*Subscription),
	}
}

// Publish delivers message to every live subscription on topic whose filter
// accepts it. Publish never blocks on a subscriber and never returns an
// error: an unsubscribed topic simply has no listeners.
func (b *Bus) Publish(topic Topic, message any) {
	b.mu.RLock()
	topicSubs := b.subs[topic]
	targets := make([]*Subscription, 0, len(topicSubs))
	for _, sub := range topicSubs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if sub.filter != nil && !sub.filter(message) {
			continue
		}
		sub.deliver(message)
	}
}

// Subscribe registers a new Subscription on topic. filter may be nil to
// accept every message published to the topic. The returned Subscription's
// queue has DefaultQueueSize capacity; use SubscribeWithQueueSize to
// override it.
func (b *Bus) Subscribe(topic Topic, filter Filter) (*Subscription, error) {
	return b.SubscribeWithQueueSize(topic, filter, DefaultQueueSize)
}

// SubscribeWithQueueSize is Subscribe with an explicit bounded-channel
// capacity.
func (b *Bus) SubscribeWithQueueSize(topic Topic, filter Filter, queueSize int) (*Subscription, error) {
	if topic.name == "" {
		return nil, ErrInvalidTopic
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	sub := &Subscription{
		id:     uuid.New(),
		topic:  topic,
		filter: filter,
		ch:     make(chan any, queueSize),
		bus:    b,
	}

	b.mu.Lock()
	topicSubs, ok := b.subs[topic]
	if !ok {
		topicSubs = make(map[uuid.UUID]*Subscription)
		b.subs[topic] = topicSubs
	}
	topicSubs[sub.id] = sub
	b.mu.Unlock()

	return sub, nil
}

// unsubscribe removes sub from its topic's subscriber index. It is called
// exactly once, from Subscription.Close.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	topicSubs, ok := b.subs[sub.topic]
	if !ok {
		return
	}
	delete(topicSubs, sub.id)
	if len(topicSubs) == 0 {
		delete(b.subs, sub.topic)
	}
}

// SubscriberCount reports how many live subscriptions exist on topic. It
// exists mainly for tests and diagnostics.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

package pubsub

// Publish is the type-safe counterpart to Bus.Publish: it publishes message
// to desc's topic so that callers never have to spell out the underlying
// Topic or risk publishing the wrong payload shape.
func Publish[TMessage any](b *Bus, desc TopicDescriptor[TMessage], message TMessage) {
	b.Publish(desc.Topic, message)
}

// Subscribe is the type-safe counterpart to Bus.Subscribe. filter still
// operates on the untyped message (it runs before the type assertion a
// consumer would otherwise need), which lets callers compose filters with
// And/Or/Not across topics of different message types.
func Subscribe[TMessage any](b *Bus, desc TopicDescriptor[TMessage], filter Filter) (*Subscription, error) {
	return b.Subscribe(desc.Topic, filter)
}

// SubscribeWithQueueSize is Subscribe with an explicit bounded-channel
// capacity.
func SubscribeWithQueueSize[TMessage any](b *Bus, desc TopicDescriptor[TMessage], filter Filter, queueSize int) (*Subscription, error) {
	return b.SubscribeWithQueueSize(desc.Topic, filter, queueSize)
}

// Package bus decouples chat channels from the check-in core: channels
// publish inbound replies, the reply router consumes them, and outbound
// acknowledgements are dispatched back per channel.
package bus

import (
	"sync"

	"go.uber.org/zap"
)

// MessageBus carries inbound and outbound traffic between channels and the
// core.
type MessageBus struct {
	inbound             chan InboundMessage
	outbound            chan OutboundMessage
	outboundSubscribers map[string][]func(OutboundMessage)
	subscribersMu       sync.RWMutex
	stopChan            chan struct{}
	log                 *zap.SugaredLogger
}

// NewMessageBus creates a new MessageBus.
func NewMessageBus(log *zap.SugaredLogger) *MessageBus {
	return &MessageBus{
		inbound:             make(chan InboundMessage, 100),
		outbound:            make(chan OutboundMessage, 100),
		outboundSubscribers: make(map[string][]func(OutboundMessage)),
		stopChan:            make(chan struct{}),
		log:                 log,
	}
}

// PublishInbound hands a message from a channel to the core.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.inbound <- msg
}

// ConsumeInbound returns the channel the reply router reads.
func (b *MessageBus) ConsumeInbound() <-chan InboundMessage {
	return b.inbound
}

// PublishOutbound queues a message for delivery by a channel subscriber.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.outbound <- msg
}

// SubscribeOutbound registers a delivery callback for one channel name.
func (b *MessageBus) SubscribeOutbound(channel string, callback func(OutboundMessage)) {
	b.subscribersMu.Lock()
	defer b.subscribersMu.Unlock()
	b.outboundSubscribers[channel] = append(b.outboundSubscribers[channel], callback)
}

// DispatchOutbound delivers outbound messages to subscribers. A panicking
// subscriber is logged and never takes down the dispatcher. Run in a
// goroutine.
func (b *MessageBus) DispatchOutbound() {
	for {
		select {
		case msg := <-b.outbound:
			b.subscribersMu.RLock()
			subscribers := b.outboundSubscribers[msg.Channel]
			b.subscribersMu.RUnlock()

			for _, cb := range subscribers {
				go func(callback func(OutboundMessage), message OutboundMessage) {
					defer func() {
						if r := recover(); r != nil {
							b.log.Errorw("Outbound subscriber panicked", "channel", message.Channel, "panic", r)
						}
					}()
					callback(message)
				}(cb, msg)
			}
		case <-b.stopChan:
			return
		}
	}
}

// Stop stops the dispatcher loop.
func (b *MessageBus) Stop() {
	close(b.stopChan)
}

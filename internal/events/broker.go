// Package events fans conversation events out to realtime subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Broker publishes messages on named channels. cache.RedisClient satisfies it.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe returns a channel of raw payloads and a function that ends
	// the subscription. The payload channel is closed once it ends.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// MemoryBroker is an in-process Broker. Slow subscribers drop messages
// rather than block publishers.
type MemoryBroker struct {
	buffer int

	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
}

type memorySub struct {
	ch   chan []byte
	once sync.Once
}

// NewMemoryBroker creates a broker whose subscriptions buffer up to buffer
// messages.
func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryBroker{
		buffer: buffer,
		subs:   make(map[string]map[*memorySub]struct{}),
	}
}

// Publish delivers message to every current subscriber of channel. []byte
// payloads are sent as is; anything else is JSON encoded.
func (b *MemoryBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := encode(message)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[channel] {
		select {
		case sub.ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscription that ends on unsubscribe or when ctx
// is done.
func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := &memorySub{ch: make(chan []byte, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, fmt.Errorf("memory broker: closed")
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySub]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.remove(channel, sub)
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return sub.ch, unsubscribe, nil
}

// Subscribers returns the number of live subscriptions on channel.
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for channel, subs := range b.subs {
		for sub := range subs {
			b.remove(channel, sub)
		}
	}
	return nil
}

// remove must be called with mu held.
func (b *MemoryBroker) remove(channel string, sub *memorySub) {
	if subs, ok := b.subs[channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, channel)
		}
	}
	sub.once.Do(func() { close(sub.ch) })
}

func encode(message interface{}) ([]byte, error) {
	if raw, ok := message.([]byte); ok {
		return raw, nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

package transport

import (
	"context"
	"sync"

	"github.com/miradorstack/netpulse/internal/models"
)

// ChannelBus is an in-process transport backed by a buffered channel. It serves as
// both Publisher and Consumer for single-binary deployments and tests.
type ChannelBus struct {
	ch        chan Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelBus creates a bus holding up to capacity undelivered messages.
func NewChannelBus(capacity int) *ChannelBus {
	if capacity <= 0 {
		capacity = 1
	}
	return &ChannelBus{
		ch:   make(chan Message, capacity),
		done: make(chan struct{}),
	}
}

// Publish encodes the sample and blocks until it is buffered, ctx ends or the bus closes.
func (b *ChannelBus) Publish(ctx context.Context, sample models.PerformanceSample) error {
	payload, err := Encode(sample)
	if err != nil {
		return err
	}
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.ch <- Message{Key: nodeKey(sample), Value: payload, Source: "memory"}:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume hands buffered messages to handler until ctx ends or the bus closes.
func (b *ChannelBus) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return nil
		case msg := <-b.ch:
			_ = handler(ctx, msg)
		}
	}
}

// Len reports the number of undelivered messages.
func (b *ChannelBus) Len() int { return len(b.ch) }

// Close stops publishing and consumption. Safe to call multiple times.
func (b *ChannelBus) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}

var (
	_ Publisher = (*ChannelBus)(nil)
	_ Consumer  = (*ChannelBus)(nil)
)

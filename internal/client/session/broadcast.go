package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Broadcaster tells other Managers sharing a Store that the snapshot
// changed. The payload is the origin id of the publishing Manager; the
// receivers re-read the Store themselves.
type Broadcaster interface {
	Publish(ctx context.Context, origin string) error
	// Listen calls fn for every notification until ctx is done.
	Listen(ctx context.Context, fn func(origin string)) error
}

// Hub is an in-process Broadcaster.
type Hub struct {
	mu        sync.Mutex
	listeners map[int]chan string
	next      int
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[int]chan string)}
}

func (h *Hub) Publish(_ context.Context, origin string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.listeners {
		select {
		case ch <- origin:
		default:
			// A listener that is behind already has a re-read pending.
		}
	}
	return nil
}

func (h *Hub) Listen(ctx context.Context, fn func(origin string)) error {
	ch := make(chan string, 16)
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case origin := <-ch:
			fn(origin)
		}
	}
}

// RedisBroadcaster publishes notifications on a Redis pub/sub channel.
type RedisBroadcaster struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBroadcaster(rdb *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, origin string) error {
	if err := b.rdb.Publish(ctx, b.channel, origin).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroadcaster) Listen(ctx context.Context, fn func(origin string)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}

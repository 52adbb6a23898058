// Package notifications delivers cache invalidation events to connected
// pages over Redis pub/sub and websockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// InvalidationChannel is the Redis channel carrying cache.Event payloads.
const InvalidationChannel = "inkwell:invalidate"

// LocalSink receives events directly when there is no Redis to fan out through.
type LocalSink interface {
	BroadcastAll(message string)
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb   *redis.Client
	local LocalSink
}

// NewNotifier creates a Notifier. With a nil client, events go straight
// to local (which may also be nil).
func NewNotifier(rdb *redis.Client, local LocalSink) *Notifier {
	return &Notifier{rdb: rdb, local: local}
}

// PublishInvalidation implements cache.Publisher.
func (n *Notifier) PublishInvalidation(ctx context.Context, ev cache.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if n.rdb == nil {
		if n.local != nil {
			n.local.BroadcastAll(string(payload))
		}
		return nil
	}
	return n.rdb.Publish(ctx, InvalidationChannel, payload).Err()
}

// StartInvalidationSubscriber subscribes to InvalidationChannel and calls
// onMessage for each payload until ctx is cancelled.
func (n *Notifier) StartInvalidationSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, InvalidationChannel)
	// Wait for the subscription to be confirmed so no event published after
	// this call returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", InvalidationChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in invalidation subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// Package notifications delivers publication notices to subscribers over Redis and mail.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"bloh/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
)

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a notification payload to every listener.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// Subscribe listens on every user channel and the broadcast channel until ctx is done.
// onMessage receives channel and payload; a panic in it is logged and the loop continues.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
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
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a user channel name.
func ParseUserChannel(channel string) (uint, error) {
	if len(channel) <= len(userChannelPrefix) || channel[:len(userChannelPrefix)] != userChannelPrefix {
		return 0, fmt.Errorf("not a user channel: %q", channel)
	}
	id, err := strconv.ParseUint(channel[len(userChannelPrefix):], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse user channel %q: %w", channel, err)
	}
	return uint(id), nil
}

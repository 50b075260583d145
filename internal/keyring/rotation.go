package keyring

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RotationChannel is the pub/sub channel the secret-rotation job publishes to
// after writing new material. Any payload on the channel invalidates the
// cache; the next encryption call fetches the rotated material.
const RotationChannel = "veil.keys.rotated"

// WatchRotation blocks on the rotation channel and invalidates the cache on
// every message. Returns when ctx is cancelled or the subscription dies.
func WatchRotation(ctx context.Context, rdb *redis.Client, cache *Cached, log zerolog.Logger) error {
	sub := rdb.Subscribe(ctx, RotationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ErrSecretUnavailable
			}
			cache.Invalidate()
			log.Info().
				Str("channel", msg.Channel).
				Msg("key material cache invalidated by rotation signal")
		}
	}
}

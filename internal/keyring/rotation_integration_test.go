//go:build integration

package keyring_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"veil/internal/keyring"
	"veil/pkg/testutil/containers"
)

// swappable hands out whichever material is current, standing in for Vault
// after a rotation job ran.
type swappable struct {
	mu      sync.Mutex
	current *keyring.Static
}

func (s *swappable) Material(ctx context.Context) (keyring.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Material(ctx)
}

func (s *swappable) swap(next *keyring.Static) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
}

func TestRotationSignalInvalidatesCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &swappable{current: keyring.NewStatic(1)}
	cache := keyring.NewCached(provider, keyring.WithTTL(time.Hour))

	go func() {
		_ = keyring.WatchRotation(ctx, rc.Client, cache, zerolog.Nop())
	}()

	// Subscription is established asynchronously; wait until the channel has
	// a subscriber before publishing.
	require.Eventually(t, func() bool {
		n, err := rc.Client.PubSubNumSub(ctx, keyring.RotationChannel).Result()
		return err == nil && n[keyring.RotationChannel] > 0
	}, 5*time.Second, 50*time.Millisecond)

	before, err := cache.Material(ctx)
	require.NoError(t, err)

	provider.swap(keyring.NewStatic(2))
	require.NoError(rc.Client.Publish(ctx, keyring.RotationChannel, "rotated").Err())

	// The watcher invalidates shortly after the publish lands.
	require.Eventually(t, func() bool {
		after, err := cache.Material(ctx)
		return err == nil && string(after.EncryptionKey) != string(before.EncryptionKey)
	}, 5*time.Second, 50*time.Millisecond)
}

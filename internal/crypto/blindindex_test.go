package crypto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/keyring"
)

func TestBlindIndexNormalizesBeforeDigest(t *testing.T) {
	secret := []byte("index-secret")

	assert.Equal(t,
		BlindIndex(secret, "Ana@X.com "),
		BlindIndex(secret, "ana@x.com"),
		"case and whitespace variants must collide")

	assert.NotEqual(t,
		BlindIndex(secret, "ana@x.com"),
		BlindIndex(secret, "bea@x.com"))
}

func TestBlindIndexIsKeyed(t *testing.T) {
	assert.NotEqual(t,
		BlindIndex([]byte("secret-a"), "ana@x.com"),
		BlindIndex([]byte("secret-b"), "ana@x.com"),
		"different signing secrets must produce unrelated indexes")
}

func TestEngineBlindIndexUsesSigningSecret(t *testing.T) {
	provider := keyring.NewStatic(3)
	engine := NewEngine(provider)

	got, err := engine.BlindIndex(context.Background(), "123456789")
	require.NoError(t, err)
	assert.Equal(t, BlindIndex(provider.Secret, "123456789"), got)
	assert.Len(t, got, 64)
}

package keyring

import (
	"bytes"
	"context"
)

// Static serves fixed key material from memory. For tests and local dev.
type Static struct {
	Key    []byte
	IV     []byte
	Secret []byte
}

// NewStatic builds a Static provider from deterministic test material. The
// key is 32 bytes, the IV 16, both derived from the seed so distinct seeds
// give distinct keys.
func NewStatic(seed byte) *Static {
	return &Static{
		Key:    bytes.Repeat([]byte{seed}, 32),
		IV:     bytes.Repeat([]byte{seed ^ 0xff}, 16),
		Secret: bytes.Repeat([]byte{seed ^ 0x55}, 32),
	}
}

func (s *Static) Material(_ context.Context) (Material, error) {
	return Material{
		EncryptionKey: s.Key,
		IV:            s.IV,
		SigningSecret: s.Secret,
	}, nil
}

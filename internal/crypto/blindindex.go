package crypto

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BlindIndex derives a deterministic, keyed digest of value for equality
// search and uniqueness constraints over fields whose ciphertext column is
// randomized and therefore unsearchable. The digest is HMAC-SHA256 under the
// signing secret, never the encryption key, so a compromised index key cannot
// decrypt anything.
//
// Values are normalized (trimmed, lowercased) first so "Ana@x.com " and
// "ana@x.com" collide, which is exactly what uniqueness wants.
func BlindIndex(secret []byte, value string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(normalize(value)))
	return hex.EncodeToString(mac.Sum(nil))
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// BlindIndex computes the keyed digest using the engine's signing secret.
func (e *Engine) BlindIndex(ctx context.Context, value string) (string, error) {
	mat, err := e.keys.Material(ctx)
	if err != nil {
		return "", err
	}
	return BlindIndex(mat.SigningSecret, value), nil
}

// Package crypto implements the dual-mode field encryption used across the
// three stores.
//
// Deterministic mode runs AES-256-CBC under a fixed IV so equal plaintexts
// produce equal ciphertexts, which makes a ciphertext column searchable by
// equality. That property leaks cross-row equality, so deterministic mode is
// reserved for high-entropy opaque values (pseudonyms, row ids) and must
// never hold guessable data. Randomized mode draws a fresh IV per call and
// prepends it to the output; it is semantically secure and not searchable.
package crypto

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"veil/internal/keyring"
)

// ErrCryptoFailure marks malformed key or IV material, truncated or corrupted
// ciphertext, and padding errors. Callers must surface it, never fold it into
// a not-found result.
var ErrCryptoFailure = errors.New("crypto failure")

// Mode selects which transform a field goes through. Callers pick per field
// based on whether equality search over the ciphertext is required.
type Mode int

const (
	// Deterministic: fixed IV, equal plaintext gives equal ciphertext.
	Deterministic Mode = iota
	// Randomized: fresh IV per call, prefixed to the output.
	Randomized
)

func (m Mode) String() string {
	switch m {
	case Deterministic:
		return "deterministic"
	case Randomized:
		return "randomized"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	keySize = 32
	ivSize  = aes.BlockSize
	// ivHexLen is the width of the hex-encoded IV prefix on randomized output.
	ivHexLen = ivSize * 2
)

// EncryptDeterministic encrypts plaintext under the fixed IV. Output is hex.
func EncryptDeterministic(plaintext string, key, iv []byte) (string, error) {
	block, err := newBlock(key)
	if err != nil {
		return "", err
	}
	if len(iv) != ivSize {
		return "", fmt.Errorf("iv is %d bytes, want %d: %w", len(iv), ivSize, ErrCryptoFailure)
	}
	return hex.EncodeToString(encryptCBC(block, iv, []byte(plaintext))), nil
}

// DecryptDeterministic reverses EncryptDeterministic.
func DecryptDeterministic(ciphertextHex string, key, iv []byte) (string, error) {
	block, err := newBlock(key)
	if err != nil {
		return "", err
	}
	if len(iv) != ivSize {
		return "", fmt.Errorf("iv is %d bytes, want %d: %w", len(iv), ivSize, ErrCryptoFailure)
	}
	return decryptCBC(block, iv, ciphertextHex)
}

// EncryptRandom encrypts plaintext under a fresh random IV. The IV is hex
// encoded and prepended so the blob is self-contained: ivHex || cipherHex.
func EncryptRandom(plaintext string, key []byte) (string, error) {
	block, err := newBlock(key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("draw iv: %v: %w", err, ErrCryptoFailure)
	}
	return hex.EncodeToString(iv) + hex.EncodeToString(encryptCBC(block, iv, []byte(plaintext))), nil
}

// DecryptRandom splits the fixed-width IV prefix off blob and decrypts the
// remainder.
func DecryptRandom(blob string, key []byte) (string, error) {
	block, err := newBlock(key)
	if err != nil {
		return "", err
	}
	if len(blob) < ivHexLen {
		return "", fmt.Errorf("blob shorter than iv prefix: %w", ErrCryptoFailure)
	}
	iv, err := hex.DecodeString(blob[:ivHexLen])
	if err != nil {
		return "", fmt.Errorf("iv prefix not hex: %w", ErrCryptoFailure)
	}
	return decryptCBC(block, iv, blob[ivHexLen:])
}

func newBlock(key []byte) (cipher.Block, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("key is %d bytes, want %d: %w", len(key), keySize, ErrCryptoFailure)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %v: %w", err, ErrCryptoFailure)
	}
	return block, nil
}

func encryptCBC(block cipher.Block, iv, plaintext []byte) []byte {
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

func decryptCBC(block cipher.Block, iv []byte, cipherHex string) (string, error) {
	raw, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("ciphertext not hex: %w", ErrCryptoFailure)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d not a block multiple: %w", len(raw), ErrCryptoFailure)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) (string, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return "", fmt.Errorf("bad padding: %w", ErrCryptoFailure)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return "", fmt.Errorf("bad padding: %w", ErrCryptoFailure)
		}
	}
	return string(data[:len(data)-n]), nil
}

// Engine binds the pure transforms to a key material provider so callers
// select a mode per field without handling raw keys.
type Engine struct {
	keys keyring.Provider
}

func NewEngine(keys keyring.Provider) *Engine {
	return &Engine{keys: keys}
}

// Encrypt runs plaintext through the selected mode.
func (e *Engine) Encrypt(ctx context.Context, mode Mode, plaintext string) (string, error) {
	mat, err := e.keys.Material(ctx)
	if err != nil {
		return "", err
	}
	switch mode {
	case Deterministic:
		return EncryptDeterministic(plaintext, mat.EncryptionKey, mat.IV)
	case Randomized:
		return EncryptRandom(plaintext, mat.EncryptionKey)
	default:
		return "", fmt.Errorf("unknown mode %v: %w", mode, ErrCryptoFailure)
	}
}

// Decrypt reverses Encrypt for the selected mode.
func (e *Engine) Decrypt(ctx context.Context, mode Mode, blob string) (string, error) {
	mat, err := e.keys.Material(ctx)
	if err != nil {
		return "", err
	}
	switch mode {
	case Deterministic:
		return DecryptDeterministic(blob, mat.EncryptionKey, mat.IV)
	case Randomized:
		return DecryptRandom(blob, mat.EncryptionKey)
	default:
		return "", fmt.Errorf("unknown mode %v: %w", mode, ErrCryptoFailure)
	}
}

package keyring

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultRequestTimeout = 5 * time.Second

	fieldSuperKey      = "super_key"
	fieldIV            = "iv"
	fieldSigningSecret = "signing_secret"
)

// VaultClient reads key material from a Vault KV v2 secret. The secret holds
// super_key (hex, 32 bytes), iv (base64, 16 bytes) and signing_secret
// (base64) under one path so a single read returns a consistent snapshot.
type VaultClient struct {
	addr   string
	token  string
	path   string // KV v2 read path, e.g. "kv/data/keys"
	client *http.Client
}

// VaultOption configures a VaultClient.
type VaultOption func(*VaultClient)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) VaultOption {
	return func(v *VaultClient) {
		if c != nil {
			v.client = c
		}
	}
}

// NewVaultClient constructs a client for the given Vault address and token.
func NewVaultClient(addr, token, path string, opts ...VaultOption) *VaultClient {
	v := &VaultClient{
		addr:   addr,
		token:  token,
		path:   path,
		client: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// kvResponse mirrors the KV v2 read envelope: {"data":{"data":{...}}}.
type kvResponse struct {
	Data struct {
		Data map[string]string `json:"data"`
	} `json:"data"`
}

// Material fetches and decodes the key material snapshot.
func (v *VaultClient) Material(ctx context.Context) (Material, error) {
	url := fmt.Sprintf("%s/v1/%s", v.addr, v.path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Material{}, fmt.Errorf("build vault request: %w", ErrSecretUnavailable)
	}
	req.Header.Set("X-Vault-Token", v.token)

	resp, err := v.client.Do(req)
	if err != nil {
		return Material{}, fmt.Errorf("read %s: %v: %w", v.path, err, ErrSecretUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Material{}, fmt.Errorf("read %s: status %d: %w", v.path, resp.StatusCode, ErrSecretUnavailable)
	}

	var envelope kvResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Material{}, fmt.Errorf("decode vault response: %v: %w", err, ErrSecretUnavailable)
	}

	return decodeMaterial(envelope.Data.Data)
}

func decodeMaterial(fields map[string]string) (Material, error) {
	keyHex, ok := fields[fieldSuperKey]
	if !ok {
		return Material{}, fmt.Errorf("field %s missing: %w", fieldSuperKey, ErrSecretUnavailable)
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return Material{}, fmt.Errorf("field %s not hex: %w", fieldSuperKey, ErrSecretUnavailable)
	}
	if len(key) != 32 {
		return Material{}, fmt.Errorf("field %s is %d bytes, want 32: %w", fieldSuperKey, len(key), ErrSecretUnavailable)
	}

	ivB64, ok := fields[fieldIV]
	if !ok {
		return Material{}, fmt.Errorf("field %s missing: %w", fieldIV, ErrSecretUnavailable)
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return Material{}, fmt.Errorf("field %s not base64: %w", fieldIV, ErrSecretUnavailable)
	}
	if len(iv) != 16 {
		return Material{}, fmt.Errorf("field %s is %d bytes, want 16: %w", fieldIV, len(iv), ErrSecretUnavailable)
	}

	secretB64, ok := fields[fieldSigningSecret]
	if !ok {
		return Material{}, fmt.Errorf("field %s missing: %w", fieldSigningSecret, ErrSecretUnavailable)
	}
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return Material{}, fmt.Errorf("field %s not base64: %w", fieldSigningSecret, ErrSecretUnavailable)
	}
	if len(secret) == 0 {
		return Material{}, fmt.Errorf("field %s empty: %w", fieldSigningSecret, ErrSecretUnavailable)
	}

	return Material{EncryptionKey: key, IV: iv, SigningSecret: secret}, nil
}

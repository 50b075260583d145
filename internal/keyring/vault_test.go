package keyring

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kvBody(fields map[string]string) string {
	body := `{"data":{"data":{`
	first := true
	for k, v := range fields {
		if !first {
			body += ","
		}
		body += fmt.Sprintf("%q:%q", k, v)
		first = false
	}
	return body + `}}}`
}

func validFields() map[string]string {
	key := make([]byte, 32)
	iv := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	for i := range iv {
		iv[i] = byte(i * 3)
	}
	return map[string]string{
		"super_key":      hex.EncodeToString(key),
		"iv":             base64.StdEncoding.EncodeToString(iv),
		"signing_secret": base64.StdEncoding.EncodeToString([]byte("signing-secret-material")),
	}
}

func TestVaultClientReadsMaterial(t *testing.T) {
	var gotPath, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Vault-Token")
		_, _ = w.Write([]byte(kvBody(validFields())))
	}))
	defer srv.Close()

	client := NewVaultClient(srv.URL, "test-token", "kv/data/keys")
	mat, err := client.Material(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/v1/kv/data/keys", gotPath)
	assert.Equal(t, "test-token", gotToken)
	assert.Len(t, mat.EncryptionKey, 32)
	assert.Len(t, mat.IV, 16)
	assert.Equal(t, []byte("signing-secret-material"), mat.SigningSecret)
}

func TestVaultClientUnreachable(t *testing.T) {
	client := NewVaultClient("http://127.0.0.1:1", "t", "kv/data/keys")
	_, err := client.Material(context.Background())
	require.ErrorIs(t, err, ErrSecretUnavailable)
}

func TestVaultClientNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewVaultClient(srv.URL, "bad-token", "kv/data/keys")
	_, err := client.Material(context.Background())
	require.ErrorIs(t, err, ErrSecretUnavailable)
}

func TestVaultClientFieldValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing key", func(f map[string]string) { delete(f, "super_key") }},
		{"key not hex", func(f map[string]string) { f["super_key"] = "zz" }},
		{"key wrong length", func(f map[string]string) { f["super_key"] = "abcd" }},
		{"missing iv", func(f map[string]string) { delete(f, "iv") }},
		{"iv wrong length", func(f map[string]string) { f["iv"] = base64.StdEncoding.EncodeToString([]byte("short")) }},
		{"missing signing secret", func(f map[string]string) { delete(f, "signing_secret") }},
		{"empty signing secret", func(f map[string]string) { f["signing_secret"] = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := validFields()
			tc.mutate(fields)
			_, err := decodeMaterial(fields)
			require.ErrorIs(t, err, ErrSecretUnavailable)
		})
	}
}

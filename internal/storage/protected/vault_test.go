package protected

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarker/internal/config"
	"bookmarker/internal/storage"
)

const clientToken = "s.approle-token"

func newVaultServer(t *testing.T, secret map[string]any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/approle/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["role_id"] != "role" || body["secret_id"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors":["invalid role or secret id"]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"request_id":     "9b4c2a40-0d3a-4f0e-a1a5-0c6f3e1d2b7a",
			"lease_id":       "",
			"renewable":      false,
			"lease_duration": 0,
			"data":           nil,
			"wrap_info":      nil,
			"warnings":       nil,
			"auth": map[string]any{
				"client_token":   clientToken,
				"accessor":       "accessor-1",
				"policies":       []string{"default", "bookmarker"},
				"token_policies": []string{"default", "bookmarker"},
				"metadata":       map[string]string{"role_name": "bookmarker"},
				"lease_duration": 3600,
				"renewable":      true,
				"entity_id":      "entity-1",
				"token_type":     "service",
				"orphan":         true,
			},
		})
	})
	mux.HandleFunc("/v1/secret/data/bookmarker", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != clientToken {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		if secret == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"data": secret, "metadata": map[string]any{"version": 1}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewVaultClient_AppRoleAndApply(t *testing.T) {
	srv := newVaultServer(t, map[string]any{
		KeySessionSecret: "from-vault",
		KeyMailPassword:  "smtp-pass",
	})

	v, err := NewVaultClient(context.Background(), discard(), &config.VaultConfig{
		Address:  srv.URL,
		RoleID:   "role",
		SecretID: "secret",
		Mount:    "secret",
		Path:     "bookmarker",
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Session.Secret = "from-file"
	cfg.S3.SecretKey = "keep-me"

	require.NoError(t, v.Apply(context.Background(), cfg))
	assert.Equal(t, "from-vault", cfg.Session.Secret)
	assert.Equal(t, "smtp-pass", cfg.Mail.Password)
	assert.Equal(t, "keep-me", cfg.S3.SecretKey)
}

func TestNewVaultClient_StaticToken(t *testing.T) {
	srv := newVaultServer(t, map[string]any{KeyS3SecretKey: "s3"})

	v, err := NewVaultClient(context.Background(), discard(), &config.VaultConfig{
		Address: srv.URL,
		Token:   clientToken,
		Mount:   "secret",
		Path:    "bookmarker",
	})
	require.NoError(t, err)

	secrets, err := v.Secrets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyS3SecretKey: "s3"}, secrets)
}

func TestNewVaultClient_BadAppRole(t *testing.T) {
	srv := newVaultServer(t, nil)

	_, err := NewVaultClient(context.Background(), discard(), &config.VaultConfig{
		Address:  srv.URL,
		RoleID:   "role",
		SecretID: "wrong",
	})
	assert.Error(t, err)
}

func TestSecrets_NotFound(t *testing.T) {
	srv := newVaultServer(t, nil)

	v, err := NewVaultClient(context.Background(), discard(), &config.VaultConfig{
		Address: srv.URL,
		Token:   clientToken,
		Mount:   "secret",
		Path:    "bookmarker",
	})
	require.NoError(t, err)

	_, err = v.Secrets(context.Background())
	assert.ErrorIs(t, err, storage.ErrSecretNotFound)
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarker/internal/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Env: "local",
		HTTPServer: config.HTTPServerConfig{
			Address:        "127.0.0.1:0",
			Timeout:        5 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Storage: config.StorageConfig{Backend: config.StorageMemory},
		Session: config.SessionConfig{Algorithm: config.AlgHS256, Secret: "app-test-secret", TTL: time.Hour},
		Verification: config.VerificationConfig{
			TokenTTL:     time.Hour,
			URL:          "http://localhost:3000/verify-email",
			ReapInterval: time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Backend:       config.LimiterMemory,
			Verification:  config.LimitRule{Max: 2, Window: 20 * time.Second},
			PasswordReset: config.LimitRule{Max: 1, Window: 10 * time.Second},
		},
		Mail: config.MailConfig{
			Host:         "127.0.0.1",
			Port:         1,
			From:         "no-reply@bookmarker.local",
			TemplatePath: "../../mail/template.json",
		},
		S3: config.S3Config{
			Region:     "us-east-1",
			Bucket:     "avatars",
			AccessKey:  "test",
			SecretKey:  "test",
			PresignTTL: time.Minute,
		},
	}
}

type graphqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

func post(t *testing.T, h http.Handler, token string, query string, vars map[string]interface{}) graphqlResponse {
	t.Helper()

	return postWithHeaders(t, h, token, query, vars, nil)
}

func postWithHeaders(t *testing.T, h http.Handler, token string, query string, vars map[string]interface{}, headers http.Header) graphqlResponse {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range headers {
		req.Header[key] = values
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp graphqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()

	application, err := New(ctx, discard(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { application.Stop(ctx) })

	h := application.HTTPSrv.Handler()

	signup := post(t, h, "", `mutation { addUser(username: "reader", email: "reader@example.com", password: "secret-pass") { token user { username } } }`, nil)
	require.Empty(t, signup.Errors)

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(signup.Data["addUser"], &auth))
	require.NotEmpty(t, auth.Token)

	me := post(t, h, auth.Token, `{ me { username email } }`, nil)
	require.Empty(t, me.Errors)
	assert.JSONEq(t, `{"username":"reader","email":"reader@example.com"}`, string(me.Data["me"]))

	upload := post(t, h, auth.Token, `mutation { getS3Url { key url } }`, nil)
	require.Empty(t, upload.Errors)
	assert.Contains(t, string(upload.Data["getS3Url"]), "X-Amz-Signature")

	reset := post(t, h, "", `mutation { forgotPassword(email: "reader@example.com") { message } }`, nil)
	require.Len(t, reset.Errors, 1)
	assert.Equal(t, "EMAIL_DELIVERY_FAILED", reset.Errors[0].Extensions["code"])

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bookmarker_emails_sent_total{kind="password_reset",outcome="error"} 1`)
	assert.Contains(t, rec.Body.String(), `bookmarker_graphql_operations_total{operation="addUser",outcome="ok"} 1`)
}

func TestNew_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.Storage.Backend = "sqlite"
	_, err := New(ctx, discard(), cfg)
	assert.ErrorContains(t, err, `unknown storage backend "sqlite"`)

	cfg = testConfig()
	cfg.Session.Secret = ""
	_, err = New(ctx, discard(), cfg)
	assert.ErrorContains(t, err, "session secret is empty")

	cfg = testConfig()
	cfg.RateLimit.Backend = "memcached"
	_, err = New(ctx, discard(), cfg)
	assert.ErrorContains(t, err, `unknown rate limit backend "memcached"`)

	cfg = testConfig()
	cfg.HTTPServer.TrustedProxies = []string{"not-an-address"}
	_, err = New(ctx, discard(), cfg)
	assert.ErrorContains(t, err, "interceptors.ParseTrustedProxies")
}

func forgotPasswordFrom(t *testing.T, h http.Handler, forwardedFor string) graphqlResponse {
	t.Helper()

	headers := http.Header{}
	headers.Set("X-Real-IP", forwardedFor)
	headers.Set("X-Forwarded-For", forwardedFor)
	return postWithHeaders(t, h, "", `mutation { forgotPassword(email: "nobody@example.com") { message } }`, nil, headers)
}

func TestNew_ForwardingHeadersDoNotResetRateLimit(t *testing.T) {
	ctx := context.Background()

	application, err := New(ctx, discard(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { application.Stop(ctx) })
	h := application.HTTPSrv.Handler()

	limited := 0
	for i := 1; i <= 5; i++ {
		resp := forgotPasswordFrom(t, h, fmt.Sprintf("203.0.113.%d", i))
		if i == 1 {
			require.Empty(t, resp.Errors)
			continue
		}
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "RATE_LIMITED", resp.Errors[0].Extensions["code"])
		limited++
	}
	assert.Equal(t, 4, limited)
}

func TestNew_TrustedProxyForwardsClientAddress(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	// httptest requests arrive from 192.0.2.1
	cfg.HTTPServer.TrustedProxies = []string{"192.0.2.0/24"}
	application, err := New(ctx, discard(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { application.Stop(ctx) })
	h := application.HTTPSrv.Handler()

	for i := 1; i <= 3; i++ {
		resp := forgotPasswordFrom(t, h, fmt.Sprintf("203.0.113.%d", i))
		assert.Empty(t, resp.Errors)
	}
	resp := forgotPasswordFrom(t, h, "203.0.113.1")
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "RATE_LIMITED", resp.Errors[0].Extensions["code"])
}

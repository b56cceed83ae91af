package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tasknest/auth-service/internal/auth"
	"github.com/tasknest/auth-service/internal/cache"
	"github.com/tasknest/auth-service/internal/config"
	"github.com/tasknest/auth-service/internal/health"
	"github.com/tasknest/auth-service/internal/identity"
	"github.com/tasknest/auth-service/internal/password"
	"github.com/tasknest/auth-service/internal/session"
	"github.com/tasknest/auth-service/internal/token"
	"github.com/tasknest/auth-service/internal/web"
	"github.com/tasknest/auth-service/internal/web/handler"
	"github.com/tasknest/auth-service/internal/web/middleware"
	"github.com/tasknest/auth-service/internal/web/response"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Config{}
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.RateLimit.Enabled = false

	users := identity.NewMemoryStore()
	cacheService := cache.NewMemoryService(logger)
	sessions := session.NewManager(cacheService, logger, time.Hour)
	issuer := token.NewIssuer([]byte("handler-test-secret"), 15*time.Minute)
	hasher := password.NewHasher(bcrypt.MinCost)
	service := auth.NewService(users, sessions, issuer, hasher, logger)

	rateLimiter := middleware.NewInMemoryRateLimiter()
	t.Cleanup(func() { rateLimiter.Close() })

	authHandler := handler.NewAuthHandler(service, logger)
	healthHandler := handler.NewHealthHandler(health.NewChecker(nil, cacheService, logger), logger)

	return web.NewHandler(&cfg, logger, issuer, rateLimiter, authHandler, healthHandler)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)

	var envelope response.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))

	return recorder, envelope
}

func dataField(t *testing.T, envelope response.APIResponse, field string) string {
	t.Helper()

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok, "expected data object in envelope")
	value, ok := data[field].(string)
	require.True(t, ok, "expected string field %q in data", field)
	return value
}

func TestHandleRegister(t *testing.T) {
	t.Run("creates user and returns token pair", func(t *testing.T) {
		srv := newTestServer(t)

		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "alice",
			"password": "password123",
			"role":     "User",
		}, nil)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, envelope.Success)
		assert.NotEmpty(t, dataField(t, envelope, "accessToken"))
		assert.NotEmpty(t, dataField(t, envelope, "refreshToken"))

		user, ok := envelope.Data.(map[string]any)["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "alice", user["username"])
		assert.Equal(t, "User", user["role"])
		assert.NotContains(t, user, "passwordHash")
		assert.NotContains(t, user, "password_hash")
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		srv := newTestServer(t)

		payload := map[string]string{"username": "alice", "password": "password123"}
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/auth/register", payload, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/register", payload, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, envelope.Success)
	})

	t.Run("rejects invalid input with field details", func(t *testing.T) {
		srv := newTestServer(t)

		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/register", map[string]string{
			"username": "a!",
			"password": "short",
			"role":     "Overlord",
		}, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, envelope.Success)

		data, ok := envelope.Data.(map[string]any)
		require.True(t, ok)
		details, ok := data["details"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, details, "username")
		assert.Contains(t, details, "password")
		assert.Contains(t, details, "role")
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		srv := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleLogin(t *testing.T) {
	srv := newTestServer(t)

	_, _ = doJSON(t, srv, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "bob",
		"password": "password123",
	}, nil)

	t.Run("returns tokens for valid credentials", func(t *testing.T) {
		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/login", map[string]string{
			"username": "bob",
			"password": "password123",
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
		assert.NotEmpty(t, dataField(t, envelope, "accessToken"))
		assert.NotEmpty(t, dataField(t, envelope, "refreshToken"))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/login", map[string]string{
			"username": "bob",
			"password": "wrong-password",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, envelope.Success)
	})

	t.Run("unknown user fails identically to wrong password", func(t *testing.T) {
		rec1, envelope1 := doJSON(t, srv, http.MethodPost, "/api/auth/login", map[string]string{
			"username": "bob",
			"password": "wrong-password",
		}, nil)
		rec2, envelope2 := doJSON(t, srv, http.MethodPost, "/api/auth/login", map[string]string{
			"username": "nobody",
			"password": "wrong-password",
		}, nil)

		assert.Equal(t, rec1.Code, rec2.Code)
		assert.Equal(t, envelope1.Message, envelope2.Message)
		assert.Equal(t, envelope1.ErrorCode, envelope2.ErrorCode)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/auth/login", map[string]string{}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleRefresh(t *testing.T) {
	srv := newTestServer(t)

	_, registered := doJSON(t, srv, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "carol",
		"password": "password123",
	}, nil)
	refreshToken := dataField(t, registered, "refreshToken")

	t.Run("rotates the refresh token", func(t *testing.T) {
		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": refreshToken,
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		rotated := dataField(t, envelope, "refreshToken")
		assert.NotEqual(t, refreshToken, rotated)

		// The consumed token must be rejected on replay.
		rec, _ = doJSON(t, srv, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": refreshToken,
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		// The rotated token is live.
		rec, _ = doJSON(t, srv, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": rotated,
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/refresh", map[string]string{}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Refresh token is required", envelope.Message)
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleLogout(t *testing.T) {
	srv := newTestServer(t)

	_, registered := doJSON(t, srv, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "dave",
		"password": "password123",
	}, nil)
	refreshToken := dataField(t, registered, "refreshToken")

	t.Run("invalidates the session", func(t *testing.T) {
		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/logout", map[string]string{
			"refreshToken": refreshToken,
		}, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)

		rec, _ = doJSON(t, srv, http.MethodPost, "/api/auth/refresh", map[string]string{
			"refreshToken": refreshToken,
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("succeeds for unknown token", func(t *testing.T) {
		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/logout", map[string]string{
			"refreshToken": "never-issued",
		}, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
	})
}

func TestHandleLogoutAll(t *testing.T) {
	srv := newTestServer(t)

	_, registered := doJSON(t, srv, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "erin",
		"password": "password123",
	}, nil)
	accessToken := dataField(t, registered, "accessToken")
	firstRefresh := dataField(t, registered, "refreshToken")

	_, secondLogin := doJSON(t, srv, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "erin",
		"password": "password123",
	}, nil)
	secondRefresh := dataField(t, secondLogin, "refreshToken")

	t.Run("requires a bearer token", func(t *testing.T) {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/auth/logout-all", map[string]string{}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("revokes every session of the identity", func(t *testing.T) {
		rec, envelope := doJSON(t, srv, http.MethodPost, "/api/auth/logout-all", map[string]string{}, map[string]string{
			"Authorization": "Bearer " + accessToken,
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)

		for _, refreshToken := range []string{firstRefresh, secondRefresh} {
			rec, _ := doJSON(t, srv, http.MethodPost, "/api/auth/refresh", map[string]string{
				"refreshToken": refreshToken,
			}, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("liveness is always healthy", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness reports missing database", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

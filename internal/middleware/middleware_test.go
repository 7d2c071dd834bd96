package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "test-secret-key-that-is-long-enough"
	testIssuer = "roundup-vault-test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func echoUser(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	c.String(http.StatusOK, userID)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(testSecret, testIssuer), echoUser)

	valid, err := signToken("user-1", testSecret, time.Hour, testIssuer)
	require.NoError(t, err)
	expired, err := signToken("user-1", testSecret, -time.Minute, testIssuer)
	require.NoError(t, err)
	otherIssuer, err := signToken("user-1", testSecret, time.Hour, "someone-else")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "Bearer {token}"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token has expired"},
		{"wrong issuer", "Bearer " + otherIssuer, http.StatusUnauthorized, "Invalid token"},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestInternalAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-key"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		secret   string
		hash     string
		provided string
		wantCode int
	}{
		{"plain match", "plain-key", "", "plain-key", http.StatusOK},
		{"plain mismatch", "plain-key", "", "nope", http.StatusUnauthorized},
		{"missing header", "plain-key", "", "", http.StatusUnauthorized},
		{"nothing configured", "", "", "anything", http.StatusUnauthorized},
		{"hash match", "", string(hash), "hashed-key", http.StatusOK},
		{"hash mismatch", "", string(hash), "plain-key", http.StatusUnauthorized},
		{"hash wins over plain", "plain-key", string(hash), "plain-key", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/internal/ping", middleware.InternalAuth(tt.secret, tt.hash), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodPost, "/internal/ping", nil)
			if tt.provided != "" {
				req.Header.Set(middleware.InternalAPIKeyHeader, tt.provided)
			}
			assert.Equal(t, tt.wantCode, serve(r, req).Code)
		})
	}
}

func TestRateLimit_PerUser(t *testing.T) {
	lim := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 2})

	r := gin.New()
	r.POST("/withdrawals", middleware.AuthMiddleware(testSecret, testIssuer), middleware.RateLimit(lim), echoUser)

	request := func(userID string) int {
		token, err := signToken(userID, testSecret, time.Hour, testIssuer)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/withdrawals", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusOK, request("user-1"))
	assert.Equal(t, http.StatusOK, request("user-1"))
	assert.Equal(t, http.StatusTooManyRequests, request("user-1"))
	// Limits are per user.
	assert.Equal(t, http.StatusOK, request("user-2"))
}

func TestStructuredLoggingMiddleware_RequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.GET("/ping", func(c *gin.Context) {
		assert.NotNil(t, middleware.GetLoggerFromCtx(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := serve(r, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

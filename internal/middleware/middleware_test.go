package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"satonic/internal/backend"
	"satonic/internal/common"
	"satonic/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyToken(ctx context.Context, token string) (*backend.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.User), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(v TokenVerifier) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(v, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":   common.GetUserIDFromContext(c),
			"wallet": common.GetWalletAddressFromContext(c),
			"token":  c.GetString(common.TokenKey),
		})
	})
	return r
}

func get(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware_VerifiesAndCaches(t *testing.T) {
	v := new(MockVerifier)
	user := &backend.User{ID: "user-1", Wallets: []backend.Wallet{{Address: "tb1qseller"}}}
	v.On("VerifyToken", mock.Anything, "good").Return(user, nil).Once()

	r := authRouter(v)
	for i := 0; i < 2; i++ {
		rec := get(r, "/me", "Bearer good")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":"user-1","wallet":"tb1qseller","token":"good"}`, rec.Body.String())
	}
	v.AssertExpectations(t)
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	v := new(MockVerifier)
	rec := get(authRouter(v), "/me", "Basic abc")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var res common.LegacyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
	v.AssertNotCalled(t, "VerifyToken", mock.Anything, mock.Anything)
}

func TestAuthMiddleware_Rejected(t *testing.T) {
	v := new(MockVerifier)
	v.On("VerifyToken", mock.Anything, "stale").Return(nil, backend.ErrAuthRequired)

	rec := get(authRouter(v), "/me", "Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication required")
}

func TestAuthMiddleware_BackendDown(t *testing.T) {
	v := new(MockVerifier)
	v.On("VerifyToken", mock.Anything, "tok").Return(nil, errors.New("connection refused"))

	rec := get(authRouter(v), "/me", "Bearer tok")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBackendVerifier_ForwardsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/profile", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"u1","wallets":[{"address":"bc1qxyz"}]}}`))
	}))
	defer srv.Close()

	v := NewBackendVerifier(backend.NewClient(srv.URL, time.Second, zap.NewNop()))
	u, err := v.VerifyToken(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "bc1qxyz", u.PrimaryWallet())

	_, err = v.VerifyToken(context.Background(), "other")
	assert.ErrorIs(t, err, backend.ErrAuthRequired)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(common.ErrConflict.WithDetails("taken"))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})

	rec := get(r, "/conflict", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "taken")

	rec = get(r, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(r, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestZapLogger_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(ZapLogger(zap.NewNop(), &config.Config{GinMode: "test"}))
	r.GET("/ping", func(c *gin.Context) {
		_, ok := c.Get(common.LoggerKey)
		assert.True(t, ok)
		c.String(http.StatusOK, c.GetString(RequestIDContextKey))
	})

	rec := get(r, "/ping", "")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, rec.Header().Get(RequestIDHeader), rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Body.String())
}

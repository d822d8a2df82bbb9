package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/jwt"
	"github.com/xiebiao/bookorder/pkg/logger"
)

func newEngine(jwtManager *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(logger.Discard()), Logger(logger.Discard()))
	r.GET("/me", NewAuthMiddleware(jwtManager).RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": MustGetUserID(c), "email": GetEmail(c)})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func code(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var b struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b.Code
}

func TestRequireAuth(t *testing.T) {
	manager := jwt.NewManager("test-secret", time.Hour)
	r := newEngine(manager)

	token, err := manager.GenerateToken(7, "buyer@example.com", "buyer")
	require.NoError(t, err)

	t.Run("有效Token", func(t *testing.T) {
		w := do(r, "/me", "Bearer "+token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":7,"email":"buyer@example.com"}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("未携带Token", func(t *testing.T) {
		w := do(r, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperrors.ErrCodeUnauthorized, code(t, w))
	})

	t.Run("格式错误", func(t *testing.T) {
		w := do(r, "/me", "Token "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, code(t, w))
	})

	t.Run("签名不匹配", func(t *testing.T) {
		other, err := jwt.NewManager("other-secret", time.Hour).GenerateToken(7, "buyer@example.com", "buyer")
		require.NoError(t, err)
		w := do(r, "/me", "Bearer "+other)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, code(t, w))
	})

	t.Run("已过期", func(t *testing.T) {
		expired, err := jwt.NewManager("test-secret", -time.Minute).GenerateToken(7, "buyer@example.com", "buyer")
		require.NoError(t, err)
		w := do(r, "/me", "Bearer "+expired)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, code(t, w))
	})
}

func TestLogger_KeepsClientRequestID(t *testing.T) {
	r := newEngine(jwt.NewManager("test-secret", time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := newEngine(jwt.NewManager("test-secret", time.Hour))
	w := do(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.ErrCodeInternal, code(t, w))
}

func TestGetUserID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Zero(t, GetUserID(c))
	assert.Panics(t, func() { MustGetUserID(c) })
}

package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/utils"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, 1)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, rl.allow("10.0.0.1", now))
	assert.True(t, rl.allow("10.0.0.1", now.Add(100*time.Millisecond)))
	assert.False(t, rl.allow("10.0.0.1", now.Add(200*time.Millisecond)))
	assert.True(t, rl.allow("10.0.0.2", now.Add(200*time.Millisecond)))
	assert.True(t, rl.allow("10.0.0.1", now.Add(1500*time.Millisecond)))
}

func TestLoginLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", NewLoginLimiter(time.Hour, 2).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := utils.NewTokenManager("mw-secret", time.Hour)
	r := gin.New()
	r.GET("/kitchen", AuthMiddleware(tokens), RequireRoles(models.RoleKitchen), func(c *gin.Context) {
		claims, ok := Claims(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Username)
	})

	tests := []struct {
		role string
		want int
	}{
		{models.RoleKitchen, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
		{models.RoleCashier, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			tok, err := tokens.GenerateToken(3, "kofi", tt.role, "")
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/kitchen", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/kitchen", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := utils.NewTokenManager("mw-secret", time.Hour)
	r := gin.New()
	r.GET("/ws", WebSocketAuthMiddleware(tokens), func(c *gin.Context) {
		role, _ := c.Get("role")
		c.String(http.StatusOK, role.(string))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := tokens.GenerateToken(3, "kofi", models.RoleKitchen, "")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleKitchen, w.Body.String())
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://till.local", "https://kds.local"}, ParseOrigins(" http://till.local/ , https://kds.local,,"))
	assert.Nil(t, ParseOrigins(""))
	assert.True(t, OriginAllowed([]string{"*"}, "http://anything"))
	assert.False(t, OriginAllowed(nil, "http://till.local"))
}

func TestCORSMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddlewares(ParseOrigins("http://till.local,http://kds.local")))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed origin is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "http://kds.local")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://kds.local", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("other origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "http://till.local")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HUI135/gc-endoscopy-room-sub001/config"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestManager(ttl time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-middleware",
		Issuer:         "gc-roster",
		AccessTokenTTL: ttl,
	})
}

func authRouter(mgr *jwt.Manager, roles ...string) *gin.Engine {
	r := gin.New()
	chain := []gin.HandlerFunc{JWTAuth(mgr)}
	if len(roles) > 0 {
		chain = append(chain, RoleAuth(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserID),
			"name":    c.GetString(CtxName),
			"role":    c.GetString(CtxRole),
		})
	})
	r.GET("/p", chain...)
	return r
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_InjectsClaims(t *testing.T) {
	mgr := newTestManager(time.Minute)
	token, err := mgr.GenerateAccessToken("u-1", "Kim", "staff")
	require.NoError(t, err)

	w := get(authRouter(mgr), "Bearer "+token)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"name":"Kim"`)
	assert.Contains(t, body, `"role":"staff"`)
}

func TestJWTAuth_Rejects(t *testing.T) {
	mgr := newTestManager(time.Minute)
	expired, err := newTestManager(-time.Minute).GenerateAccessToken("u-1", "Kim", "staff")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"missing", "", "缺少认证头"},
		{"malformed", "Token abc", "认证头格式无效"},
		{"garbage", "Bearer abc.def.ghi", "Token 无效"},
		{"expired", "Bearer " + expired, "Token 已过期"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(authRouter(mgr), tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
		})
	}
}

func TestRoleAuth(t *testing.T) {
	mgr := newTestManager(time.Minute)
	staff, _ := mgr.GenerateAccessToken("u-1", "Kim", "staff")
	admin, _ := mgr.GenerateAccessToken("u-2", "Admin", "admin")

	r := authRouter(mgr, "admin")
	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+staff).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+admin).Code)
}

func TestRateLimit_NilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 100))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Body.String(), 36)
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/p", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

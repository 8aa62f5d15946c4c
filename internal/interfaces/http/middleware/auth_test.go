package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"novelforge-api/pkg/utils"
)

const (
	testSecret = "test-jwt-secret"
	testIssuer = "novelforge"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Auth(AuthConfig{Secret: testSecret, Issuer: testIssuer, Enabled: true}))
	r.GET("/v1/users/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	r.POST("/v1/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signToken(t *testing.T, tokenType string, ttl time.Duration) string {
	t.Helper()
	token, err := utils.NewJWTManager(testSecret, testIssuer).GenerateToken("user-1", "a@b.com", "alice", tokenType, ttl)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func TestAuthValidToken(t *testing.T) {
	r := newAuthRouter(t)
	token := signToken(t, "access", time.Minute)

	w := doRequest(r, http.MethodGet, "/v1/users/me", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAuthMissingHeader(t *testing.T) {
	r := newAuthRouter(t)

	w := doRequest(r, http.MethodGet, "/v1/users/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthBadFormat(t *testing.T) {
	r := newAuthRouter(t)
	token := signToken(t, "access", time.Minute)

	for _, header := range []string{token, "Basic " + token, "bearer"} {
		w := doRequest(r, http.MethodGet, "/v1/users/me", header)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, w.Code)
		}
	}
}

func TestAuthExpiredToken(t *testing.T) {
	r := newAuthRouter(t)
	token := signToken(t, "access", -time.Minute)

	w := doRequest(r, http.MethodGet, "/v1/users/me", "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthRejectsRefreshToken(t *testing.T) {
	// RefreshToken 只能用于刷新接口，不能当 AccessToken 使用
	r := newAuthRouter(t)
	token := signToken(t, "refresh", time.Hour)

	w := doRequest(r, http.MethodGet, "/v1/users/me", "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthSkipPaths(t *testing.T) {
	r := newAuthRouter(t)

	w := doRequest(r, http.MethodPost, "/v1/auth/login", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for skip path", w.Code)
	}
}

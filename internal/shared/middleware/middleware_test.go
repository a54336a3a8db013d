package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cinetix/internal/shared/config"
	"cinetix/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-test-secret"
	return cfg
}

func signToken(t *testing.T, cfg *config.Config, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)
	return token
}

func accessToken(t *testing.T, cfg *config.Config, userID, role string) string {
	return signToken(t, cfg, jwt.MapClaims{
		"user_id": userID,
		"email":   "ana@example.com",
		"role":    role,
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
}

func TestValidateAccessToken(t *testing.T) {
	cfg := testConfig()

	claims, err := ValidateAccessToken(cfg, accessToken(t, cfg, "u1", "customer"))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["user_id"])

	// Refresh tokens never pass the access gate.
	refresh := signToken(t, cfg, jwt.MapClaims{
		"user_id": "u1",
		"type":    "refresh",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	_, err = ValidateAccessToken(cfg, refresh)
	assert.Error(t, err)

	// Expired tokens are rejected.
	expired := signToken(t, cfg, jwt.MapClaims{
		"user_id": "u1",
		"type":    "access",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	_, err = ValidateAccessToken(cfg, expired)
	assert.Error(t, err)

	// A token signed with another secret is rejected.
	other := testConfig()
	other.JWT.Secret = "someone-else"
	_, err = ValidateAccessToken(cfg, accessToken(t, other, "u1", "customer"))
	assert.Error(t, err)

	_, err = ValidateAccessToken(cfg, "garbage")
	assert.Error(t, err)
}

func authTestRouter(cfg *config.Config, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuthWithConfig(cfg)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	router.GET("/protected", handlers...)
	return router
}

func TestJWTAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	router := authTestRouter(cfg)

	// No header.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong scheme.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid bearer token reaches the handler with claims in context.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, cfg, "u1", "customer"))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1")
}

func TestRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := authTestRouter(cfg, RequireAdmin())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, cfg, "u1", "customer"))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, cfg, "u1", string(users.RoleAdmin)))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	cfg := testConfig()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/open", OptionalAuthWithConfig(cfg), func(c *gin.Context) {
		if userID, ok := c.Get("user_id"); ok {
			c.JSON(http.StatusOK, gin.H{"user_id": userID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": nil})
	})

	// Anonymous passes through.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// A bad token is ignored rather than rejected.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// A good token attaches the identity.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, cfg, "u7", "customer"))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u7")
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth())
	router.OPTIONS("/api/v1/documents/current", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents/current", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func newIdentityRouter() (*gin.Engine, *Identity) {
	gin.SetMode(gin.TestMode)
	seen := &Identity{}
	router := gin.New()
	router.Use(Auth())
	router.GET("/whoami", func(c *gin.Context) {
		id, _ := IdentityFromContext(c)
		*seen = id
		c.Status(http.StatusOK)
	})
	return router, seen
}

func signedToken(t *testing.T, sub, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthResolvesIdentity(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		want    Identity
	}{
		{
			name:    "bearer token",
			headers: map[string]string{"Authorization": "Bearer " + signedToken(t, "user-1", "jane@example.com")},
			status:  http.StatusOK,
			want:    Identity{OwnerID: "user-1", Email: "jane@example.com"},
		},
		{
			name:    "guest header",
			headers: map[string]string{"X-Guest-Id": " g-42 "},
			status:  http.StatusOK,
			want:    Identity{OwnerID: "guest:g-42", Guest: true},
		},
		{
			name: "bad token does not fall back to guest",
			headers: map[string]string{
				"Authorization": "Bearer not-a-jwt",
				"X-Guest-Id":    "g-42",
			},
			status: http.StatusUnauthorized,
		},
		{
			name:    "non bearer scheme",
			headers: map[string]string{"Authorization": "Basic abc"},
			status:  http.StatusUnauthorized,
		},
		{
			name:   "no identity",
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, seen := newIdentityRouter()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
			if *seen != tt.want {
				t.Fatalf("unexpected identity %+v", *seen)
			}
		})
	}
}

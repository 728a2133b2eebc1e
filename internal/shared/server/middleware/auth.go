package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobapplier-backend/internal/shared/auth"
	"jobapplier-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	isGuestKey  = "isGuest"
	identityKey = "identity"

	guestHeader = "X-Guest-Id"
	guestPrefix = "guest:"
)

// Identity is the caller resolved by Auth. Owner ids for guests carry the
// "guest:" prefix so they never collide with token subjects.
type Identity struct {
	OwnerID string
	Guest   bool
	Email   string
	Name    string
	Picture string
}

// Auth resolves the caller from a bearer token or, failing that, the
// X-Guest-Id header. A malformed or unverifiable token is rejected outright
// rather than falling back to the guest header.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		id, ok := resolveIdentity(c.Request)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid identity", nil)
			return
		}
		c.Set(identityKey, id)
		c.Set(userIDKey, id.OwnerID)
		c.Set(isGuestKey, id.Guest)
		c.Next()
	}
}

func resolveIdentity(r *http.Request) (Identity, bool) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			return Identity{}, false
		}
		claims, err := auth.VerifyJWT(token)
		if err != nil {
			return Identity{}, false
		}
		return Identity{
			OwnerID: claims.Sub,
			Email:   claims.Email,
			Name:    claims.Name,
			Picture: claims.Picture,
		}, true
	}

	guestID := strings.TrimSpace(r.Header.Get(guestHeader))
	if guestID == "" {
		return Identity{}, false
	}
	return Identity{OwnerID: guestPrefix + guestID, Guest: true}, true
}

// IdentityFromContext returns the identity stored by Auth.
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	if c == nil {
		return Identity{}, false
	}
	val, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := val.(Identity)
	return id, ok
}

// UserIDFromContext returns the owner id set by Auth, or "".
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

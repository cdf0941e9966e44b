// README: Bearer-token auth middleware; stores the caller identity on the gin context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"prestige/internal/infra"
	"prestige/internal/types"
)

const identityKey = "prestige.identity"

// Auth rejects requests without a decodable bearer token.
func Auth(decoder infra.TokenDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		id, err := decoder.Decode(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// OptionalAuth records the identity when a valid token is present and
// never rejects the request.
func OptionalAuth(decoder infra.TokenDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearer(c); ok {
			if id, err := decoder.Decode(c.Request.Context(), raw); err == nil {
				c.Set(identityKey, id)
			}
		}
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return raw, raw != ""
}

// CallerIdentity returns the identity set by Auth or OptionalAuth.
func CallerIdentity(c *gin.Context) (types.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return types.Identity{}, false
	}
	id, ok := v.(types.Identity)
	return id, ok
}

func CallerUID(c *gin.Context) string {
	id, _ := CallerIdentity(c)
	return string(id.ID)
}

// CallerRole is empty when the request carried no identity.
func CallerRole(c *gin.Context) string {
	id, ok := CallerIdentity(c)
	if !ok {
		return ""
	}
	return id.RoleOrDefault()
}

// README: Firebase bearer-token auth. Verified callers are stored on the gin
// context for handlers to read.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gohappygo/internal/infra"
)

const (
	callerUIDKey  = "caller_uid"
	callerRoleKey = "caller_role"
)

// RoleOps marks platform operators; they may retry any stuck fund release.
const RoleOps = "ops"

func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerUIDKey, token.UID)
		if role, ok := token.Claims["role"].(string); ok {
			c.Set(callerRoleKey, role)
		}
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(callerUIDKey)
}

// CallerRole is empty for ordinary users.
func CallerRole(c *gin.Context) string {
	return c.GetString(callerRoleKey)
}

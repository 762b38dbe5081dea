package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ownerKey = "owner_id"

// RequireAuth rejects requests without a valid bearer token and stores the
// token subject as the request owner.
func RequireAuth(svc *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		claims, err := svc.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}
		c.Set(ownerKey, claims.Subject)
		c.Next()
	}
}

// OwnerID returns the authenticated owner set by RequireAuth.
func OwnerID(c *gin.Context) string {
	return c.GetString(ownerKey)
}

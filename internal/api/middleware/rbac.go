package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

var roleRank = map[string]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

// RequireRole lets through any role at or above min. Admin overrides
// everything. It MUST be used AFTER RequireAuth.
func RequireRole(min string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Role context missing"})
			return
		}

		roleStr, _ := userRole.(string)
		if roleStr == RoleAdmin || roleRank[roleStr] >= roleRank[min] && roleRank[roleStr] > 0 {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Forbidden: You lack the required permissions.",
		})
	}
}

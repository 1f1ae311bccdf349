package middleware

import (
	"net/http"

	"soothe/models"
	"soothe/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// adminOperator is the principal recorded for static admin token access.
const adminOperator = "admin-token"

// JWTAuthAdminMiddleware admits an admin bearer JWT, or the static operator
// token whose bcrypt hash is adminTokenHash (disabled when the hash is empty).
func JWTAuthAdminMiddleware(adminTokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		if principal, err := utils.ParsePrincipal(tokenString); err == nil {
			if principal.Role != models.RoleAdmin {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized admin access"})
				return
			}
			SetPrincipal(c, principal)
			c.Next()
			return
		}

		if adminTokenHash == "" || bcrypt.CompareHashAndPassword([]byte(adminTokenHash), []byte(tokenString)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized admin access"})
			return
		}
		SetPrincipal(c, models.Principal{ID: adminOperator, Role: models.RoleAdmin})
		c.Next()
	}
}

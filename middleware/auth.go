package middleware

import (
	"net/http"
	"strings"

	"soothe/models"
	"soothe/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

// bearerToken reads the Authorization header. Browsers cannot set headers on a
// websocket handshake, so those requests may pass access_token instead.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" && c.GetHeader("Upgrade") == "websocket" {
		token := c.Query("access_token")
		return token, token != ""
	}
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// JWTAuthMiddleware admits callers holding a valid bearer token for one of roles.
// An empty roles list admits every role.
func JWTAuthMiddleware(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		principal, err := utils.ParsePrincipal(tokenString)
		if err != nil {
			zap.L().Debug("Rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if !hasRole(principal, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not allowed for this endpoint"})
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

func hasRole(p models.Principal, roles []models.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func SetPrincipal(c *gin.Context, p models.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the caller set by the auth middleware.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

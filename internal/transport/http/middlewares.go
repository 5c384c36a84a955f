package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/pkg/auth"
)

func JWTAuth(tm *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims, err := tm.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("sub", claims.Sub)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		v, _ := c.Get("role")
		role, _ := v.(string)
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// actorFrom rebuilds the trusted principal set by JWTAuth.
func actorFrom(c *gin.Context) domain.Actor {
	sub, _ := c.Get("sub")
	role, _ := c.Get("role")
	id, _ := sub.(string)
	r, _ := role.(string)
	return domain.Actor{ID: id, Role: r}
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stage-intake/internal/constants"
	"github.com/yukikurage/stage-intake/internal/models"
)

// RequireRole sends users of any other role back to their own home page.
// It must run after RequireAuth.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Redirect(http.StatusFound, constants.RouteLogin)
			c.Abort()
			return
		}

		if user.Role != role {
			c.Redirect(http.StatusFound, user.HomeRoute())
			c.Abort()
			return
		}

		c.Next()
	}
}

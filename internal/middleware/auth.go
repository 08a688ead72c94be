package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stage-intake/internal/constants"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/services"
)

// UserLoader resolves the user stored in a session.
type UserLoader interface {
	GetUser(ctx context.Context, id uint64) (*models.User, error)
}

// RequireAuth loads the session user or redirects to the login page. A
// session whose user no longer exists is cleared.
func RequireAuth(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUserID(session.Get(constants.ContextKeyUserID))
		if !ok {
			c.Redirect(http.StatusFound, constants.RouteLogin)
			c.Abort()
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if !errors.Is(err, services.ErrUserNotFound) {
				apierrors.InternalError(c, err)
				return
			}
			session.Clear()
			if err := session.Save(); err != nil {
				log.Printf("Failed to clear stale session: %v", err)
			}
			c.Redirect(http.StatusFound, constants.RouteLogin)
			c.Abort()
			return
		}

		// Store user ID and user in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUserID(userID)
}

// CurrentUser retrieves the user loaded by RequireAuth
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

func toUserID(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stage-intake/internal/constants"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
	"github.com/yukikurage/stage-intake/internal/middleware"
)

// render fills the values every page layout expects and renders name.
func render(c *gin.Context, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Flashes"] = apierrors.Flashes(c)
	data["MinPasswordLength"] = constants.MinPasswordLength
	if user, ok := middleware.CurrentUser(c); ok {
		data["User"] = user
	}
	c.HTML(http.StatusOK, name, data)
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid ID")
		return 0, false
	}
	return id, true
}

func currentUserOrLogin(c *gin.Context) (uint64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, constants.RouteLogin)
		return 0, false
	}
	return userID, true
}

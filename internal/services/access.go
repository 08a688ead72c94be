package services

import (
	"net/mail"
	"strings"

	"github.com/yukikurage/stage-intake/internal/models"
)

// CanAccessStage reports whether user may view or submit the forms of a stage.
// Admins see every stage; staff only the stage they are scoped to.
func CanAccessStage(user *models.User, stageID uint64) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	return user.Role == models.RoleStaff && user.StageAccess != nil && *user.StageAccess == stageID
}

// ContactAddress returns where mail for user goes: the email column, or the
// username when it is itself an address.
func ContactAddress(user *models.User) (string, bool) {
	if user.Email != nil && strings.TrimSpace(*user.Email) != "" {
		return strings.TrimSpace(*user.Email), true
	}
	addr, err := mail.ParseAddress(user.Username)
	if err != nil || addr.Address != user.Username {
		return "", false
	}
	return addr.Address, true
}

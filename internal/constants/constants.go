package constants

import "time"

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "intake_session"

	// ContextKeyUserID is the session and gin context key holding the user id
	ContextKeyUserID = "user_id"

	// ContextKeyUser is the gin context key holding the loaded *models.User
	ContextKeyUser = "current_user"

	// MinPasswordLength is the minimum accepted password length
	MinPasswordLength = 8

	// ResetTokenBytes is the number of random bytes in a password reset token
	ResetTokenBytes = 32
)

// Pagination limits
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Routes used for redirects
const (
	RouteLogin = "/login"
	RouteAdmin = "/admin"
	RouteStaff = "/staff"
	RouteForms = "/admin/forms"

	RouteResetPassword = "/reset_password"
)

// DefaultResetTokenTTL is used when RESET_TOKEN_TTL is not configured
const DefaultResetTokenTTL = time.Hour

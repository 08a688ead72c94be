package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stage-intake/internal/constants"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
	"github.com/yukikurage/stage-intake/internal/metrics"
	"github.com/yukikurage/stage-intake/internal/services"
)

// Notices shown after authentication actions
const (
	NoticeInvalidCredentials = "Invalid credentials"
	NoticeResetSent          = "If the account exists, a reset link has been sent"
	NoticeResetUnavailable   = "Password reset is unavailable"
	NoticeInvalidToken       = "Invalid or expired token"
	NoticePasswordReset      = "Password reset successfully"
	NoticePasswordMismatch   = "Passwords do not match"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	metrics     *metrics.Metrics
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		metrics:     m,
	}
}

// Index sends visitors to the login page.
func (h *AuthHandler) Index(c *gin.Context) {
	c.Redirect(http.StatusFound, constants.RouteLogin)
}

// LoginPage renders the login form.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	render(c, "login.html", "Log in", nil)
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username string `form:"username"`
		Password string `form:"password"`
	}

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		apierrors.RedirectWithFlash(c, constants.RouteLogin, NoticeInvalidCredentials)
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.metrics.LoginAttempt(false)
			apierrors.RedirectWithFlash(c, constants.RouteLogin, NoticeInvalidCredentials)
			return
		}
		apierrors.InternalError(c, err)
		return
	}
	h.metrics.LoginAttempt(true)

	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, fmt.Errorf("failed to save session: %w", err))
		return
	}

	c.Redirect(http.StatusFound, user.HomeRoute())
}

// Logout records the logout and removes the session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if userID, ok := session.Get(constants.ContextKeyUserID).(uint64); ok {
		if err := h.authService.Logout(c.Request.Context(), userID); err != nil {
			log.Printf("Failed to record logout for user %d: %v", userID, err)
		}
	}

	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, fmt.Errorf("failed to clear session: %w", err))
		return
	}

	c.Redirect(http.StatusFound, constants.RouteLogin)
}

// ResetRequestPage renders the reset request form.
func (h *AuthHandler) ResetRequestPage(c *gin.Context) {
	render(c, "reset_request.html", "Reset password", nil)
}

// RequestReset emails a reset link. The notice never reveals whether the
// account exists.
func (h *AuthHandler) RequestReset(c *gin.Context) {
	identifier := c.PostForm("identifier")
	if identifier == "" {
		identifier = c.PostForm("email")
	}

	err := h.authService.RequestPasswordReset(c.Request.Context(), identifier)
	switch {
	case err == nil:
		apierrors.RedirectWithFlash(c, constants.RouteLogin, NoticeResetSent)
	case errors.Is(err, services.ErrResetUnavailable):
		apierrors.RedirectWithFlash(c, constants.RouteResetPassword, NoticeResetUnavailable)
	default:
		apierrors.InternalError(c, err)
	}
}

// ResetPage renders the new password form for a token.
func (h *AuthHandler) ResetPage(c *gin.Context) {
	render(c, "reset_password.html", "Choose a new password", gin.H{
		"Token": c.Param("token"),
	})
}

// ResetPassword redeems a reset token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.Param("token")
	back := constants.RouteResetPassword + "/" + token

	password := c.PostForm("password")
	if confirm, ok := c.GetPostForm("confirm_password"); ok && confirm != "" && confirm != password {
		apierrors.RedirectWithFlash(c, back, NoticePasswordMismatch)
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), token, password)
	switch {
	case err == nil:
		apierrors.RedirectWithFlash(c, constants.RouteLogin, NoticePasswordReset)
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.RedirectWithFlash(c, back, passwordTooShortNotice())
	case errors.Is(err, services.ErrInvalidResetToken):
		apierrors.RedirectWithFlash(c, constants.RouteResetPassword, NoticeInvalidToken)
	default:
		apierrors.InternalError(c, err)
	}
}

func passwordTooShortNotice() string {
	return fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength)
}

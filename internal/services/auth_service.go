package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/stage-intake/internal/constants"
	"github.com/yukikurage/stage-intake/internal/mailer"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrInvalidResetToken    = errors.New("invalid or expired token")
	ErrResetUnavailable     = errors.New("password reset is unavailable")
)

// AuthOptions configures password reset links and expiry.
type AuthOptions struct {
	BaseURL  string
	TokenTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// AuthService handles login, logout and password reset.
type AuthService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.ResetTokenRepository
	auditRepo repository.AuditLogRepository
	mailer    mailer.Mailer
	baseURL   string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.ResetTokenRepository,
	auditRepo repository.AuditLogRepository,
	m mailer.Mailer,
	opts AuthOptions,
) *AuthService {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = constants.DefaultResetTokenTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		auditRepo: auditRepo,
		mailer:    m,
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		tokenTTL:  ttl,
		now:       now,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and records the login. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.auditRepo.Append(ctx, models.NewAuditLog(user.ID, "Logged in")); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return user, nil
}

// Logout records the end of a session.
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	if err := s.auditRepo.Append(ctx, models.NewAuditLog(userID, "Logged out")); err != nil {
		return fmt.Errorf("failed to record logout: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// RequestPasswordReset emails a reset link when identifier names a user with
// a known address. It returns nil for unknown users so callers cannot tell
// the cases apart.
func (s *AuthService) RequestPasswordReset(ctx context.Context, identifier string) error {
	if _, disabled := s.mailer.(mailer.Disabled); disabled {
		return ErrResetUnavailable
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	to, ok := ContactAddress(user)
	if !ok {
		return nil
	}

	token, err := utils.GenerateToken(constants.ResetTokenBytes)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	expiry := s.now().UTC().Add(s.tokenTTL)
	if err := s.tokenRepo.Issue(ctx, user.ID, utils.HashToken(token), expiry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	msg := mailer.Message{
		To:      to,
		Subject: "Password reset",
		Body: fmt.Sprintf(
			"A password reset was requested for %s.\n\nOpen this link to choose a new password:\n%s/reset_password/%s\n\nThe link expires at %s.\n",
			user.Username, s.baseURL, token, expiry.Format(time.RFC1123),
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, identifier)
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) || !strings.Contains(identifier, "@") {
		return user, err
	}
	return s.userRepo.FindByEmail(ctx, strings.ToLower(identifier))
}

// ResetPassword redeems token and sets a new password. A token is accepted
// once, and only strictly before its expiry.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	userID, err := s.tokenRepo.Consume(ctx, utils.HashToken(token), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashedPassword), models.NewAuditLog(userID, "Reset password")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

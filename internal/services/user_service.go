package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yukikurage/stage-intake/internal/constants"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrEmailTaken           = errors.New("email already in use")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidRole          = errors.New("role must be admin or staff")
	ErrStageRequired        = errors.New("staff users must be assigned a stage")
	ErrCannotDeleteYourself = errors.New("cannot delete yourself")
)

// UserService manages accounts on behalf of admins.
type UserService struct {
	userRepo  repository.UserRepository
	stageRepo repository.StageRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, stageRepo repository.StageRepository) *UserService {
	return &UserService{
		userRepo:  userRepo,
		stageRepo: stageRepo,
	}
}

// CreateUserInput represents the fields of the add-user form.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
	StageID  *uint64
}

// CreateUser validates input and creates the user. The audit entry is
// attributed to actorID; zero attributes it to the new user.
func (s *UserService) CreateUser(ctx context.Context, actorID uint64, input CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}

	var email *string
	if raw := strings.TrimSpace(input.Email); raw != "" {
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, ErrInvalidEmail
		}
		normalized := strings.ToLower(addr.Address)
		email = &normalized
	}

	// Admins are never scoped to a stage.
	var stageAccess *uint64
	if input.Role == models.RoleStaff {
		if input.StageID == nil {
			return nil, ErrStageRequired
		}
		if _, err := s.stageRepo.FindByID(ctx, *input.StageID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrStageNotFound
			}
			return nil, fmt.Errorf("failed to find stage: %w", err)
		}
		stageID := *input.StageID
		stageAccess = &stageID
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if email != nil {
		if _, err := s.userRepo.FindByEmail(ctx, *email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         input.Role,
		StageAccess:  stageAccess,
	}

	entry := models.NewAuditLog(actorID, "Added user: "+username)
	if err := s.userRepo.Create(ctx, user, entry); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user other than the actor.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID uint64) error {
	if actorID == userID {
		return ErrCannotDeleteYourself
	}

	entry := models.NewAuditLog(actorID, fmt.Sprintf("Deleted user ID: %d", userID))
	if err := s.userRepo.Delete(ctx, userID, entry); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ListUsers returns every user with their stage.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/stage-intake/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user and records who added it.
func (r *GormUserRepository) Create(ctx context.Context, user *models.User, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if entry != nil && entry.UserID == 0 {
			entry.UserID = user.ID
		}
		return appendAudit(tx, entry)
	})
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Stage").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns all users with their stage
func (r *GormUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Preload("Stage").Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Delete deletes a user; gorm.ErrRecordNotFound when nothing matched.
func (r *GormUserRepository) Delete(ctx context.Context, id uint64, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete user id %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return appendAudit(tx, entry)
	})
}

// UpdatePassword sets a new password hash and clears any pending reset token.
func (r *GormUserRepository) UpdatePassword(ctx context.Context, id uint64, passwordHash string, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
			"password_hash":    passwordHash,
			"reset_token_hash": nil,
			"reset_expiry":     nil,
		})
		if result.Error != nil {
			return fmt.Errorf("failed to update password for user id %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return appendAudit(tx, entry)
	})
}

func appendAudit(tx *gorm.DB, entry *models.AuditLog) error {
	if entry == nil {
		return nil
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/stage-intake/internal/models"
	"gorm.io/gorm"
)

// GormResetTokenRepository keeps the token digest on the user row.
type GormResetTokenRepository struct {
	db *gorm.DB
}

// NewResetTokenRepository creates a ResetTokenRepository backed by the users table
func NewResetTokenRepository(db *gorm.DB) ResetTokenRepository {
	return &GormResetTokenRepository{db: db}
}

// Issue stores the digest of a freshly issued token
func (r *GormResetTokenRepository) Issue(ctx context.Context, userID uint64, tokenHash string, expiry time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"reset_token_hash": tokenHash,
		"reset_expiry":     expiry,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Consume clears the token with a conditional update so that only one
// concurrent redemption wins.
func (r *GormResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	var userID uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("reset_token_hash = ? AND reset_expiry > ?", tokenHash, now).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenNotFound
			}
			return err
		}

		result := tx.Model(&models.User{}).
			Where("id = ? AND reset_token_hash = ?", user.ID, tokenHash).
			Updates(map[string]interface{}{
				"reset_token_hash": nil,
				"reset_expiry":     nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTokenNotFound
		}

		userID = user.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/stage-intake/internal/models"
	"gorm.io/gorm"
)

// GormStageRepository is a GORM implementation of StageRepository
type GormStageRepository struct {
	db *gorm.DB
}

// NewStageRepository creates a new StageRepository
func NewStageRepository(db *gorm.DB) StageRepository {
	return &GormStageRepository{db: db}
}

// Create creates a new stage
func (r *GormStageRepository) Create(ctx context.Context, stage *models.Stage, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(stage).Error; err != nil {
			return fmt.Errorf("failed to create stage: %w", err)
		}
		return appendAudit(tx, entry)
	})
}

// FindByID finds a stage by ID
func (r *GormStageRepository) FindByID(ctx context.Context, id uint64) (*models.Stage, error) {
	var stage models.Stage
	if err := r.db.WithContext(ctx).First(&stage, id).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// FindByNumber finds a stage by stage number
func (r *GormStageRepository) FindByNumber(ctx context.Context, number int) (*models.Stage, error) {
	var stage models.Stage
	if err := r.db.WithContext(ctx).Where("stage_number = ?", number).First(&stage).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// List returns stages in pipeline order
func (r *GormStageRepository) List(ctx context.Context) ([]models.Stage, error) {
	var stages []models.Stage
	if err := r.db.WithContext(ctx).Order("stage_number ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

// Delete deletes a stage and its forms in a transaction
func (r *GormStageRepository) Delete(ctx context.Context, id uint64, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stage models.Stage
		if err := tx.First(&stage, id).Error; err != nil {
			return err
		}

		var records int64
		if err := tx.Model(&models.Record{}).Where("stage_id = ?", id).Count(&records).Error; err != nil {
			return err
		}
		var scoped int64
		if err := tx.Model(&models.User{}).Where("stage_access = ?", id).Count(&scoped).Error; err != nil {
			return err
		}
		if records > 0 || scoped > 0 {
			return ErrStageInUse
		}

		// Delete all forms of the stage
		if err := tx.Where("stage_id = ?", id).Delete(&models.Form{}).Error; err != nil {
			return err
		}

		// Delete stage
		if err := tx.Delete(&models.Stage{}, id).Error; err != nil {
			return err
		}

		return appendAudit(tx, entry)
	})
}

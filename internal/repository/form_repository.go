package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/stage-intake/internal/models"
	"gorm.io/gorm"
)

// GormFormRepository is a GORM implementation of FormRepository
type GormFormRepository struct {
	db *gorm.DB
}

// NewFormRepository creates a new FormRepository
func NewFormRepository(db *gorm.DB) FormRepository {
	return &GormFormRepository{db: db}
}

// Create creates a new form
func (r *GormFormRepository) Create(ctx context.Context, form *models.Form, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(form).Error; err != nil {
			return fmt.Errorf("failed to create form: %w", err)
		}
		return appendAudit(tx, entry)
	})
}

// ListByStage lists the forms of a stage
func (r *GormFormRepository) ListByStage(ctx context.Context, stageID uint64) ([]models.Form, error) {
	var forms []models.Form
	if err := r.db.WithContext(ctx).
		Where("stage_id = ?", stageID).
		Order("id ASC").
		Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

// ListAll lists every form together with its stage
func (r *GormFormRepository) ListAll(ctx context.Context) ([]models.Form, error) {
	var forms []models.Form
	if err := r.db.WithContext(ctx).
		Preload("Stage").
		Joins("JOIN stages ON stages.id = forms.stage_id").
		Order("stages.stage_number ASC, forms.id ASC").
		Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/stage-intake/internal/database"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/utils"
	"gorm.io/gorm"
)

// GormRecordRepository is a GORM implementation of RecordRepository
type GormRecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &GormRecordRepository{db: db}
}

// CreateWithResponses creates a record with its responses and the audit entry atomically
func (r *GormRecordRepository) CreateWithResponses(ctx context.Context, record *models.Record, responses []models.Response, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}

		if len(responses) > 0 {
			for i := range responses {
				responses[i].RecordID = record.ID
			}
			if err := tx.Create(&responses).Error; err != nil {
				return fmt.Errorf("failed to create responses: %w", err)
			}
			record.Responses = responses
		}

		return appendAudit(tx, entry)
	})
}

// FindByID finds a record with its stage and responses
func (r *GormRecordRepository) FindByID(ctx context.Context, id uint64) (*models.Record, error) {
	var record models.Record
	if err := r.withDetails(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindLatestByName finds the most recently created record with the given name
func (r *GormRecordRepository) FindLatestByName(ctx context.Context, name string) (*models.Record, error) {
	var record models.Record
	if err := r.withDetails(ctx).
		Where("name = ?", name).
		Order("created_at DESC").
		Order("id DESC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormRecordRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Stage").
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("responses.id ASC")
		}).
		Preload("Responses.Form")
}

// List retrieves records with filtering and pagination
func (r *GormRecordRepository) List(ctx context.Context, filter RecordFilter, page utils.PaginationParams) ([]models.Record, int64, error) {
	filtered := func(db *gorm.DB) *gorm.DB {
		if filter.StageID != nil {
			db = db.Where("stage_id = ?", *filter.StageID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Record{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := r.db.WithContext(ctx).Scopes(filtered).Preload("Stage").Order("created_at DESC").Order("id DESC")
	if page.Limit > 0 {
		listQuery = listQuery.Scopes(database.Paginate(page))
	}

	var records []models.Record
	if err := listQuery.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListResponseRows flattens every response for export
func (r *GormRecordRepository) ListResponseRows(ctx context.Context) ([]ResponseRow, error) {
	var rows []ResponseRow
	err := r.db.WithContext(ctx).
		Table("responses").
		Select(`records.id AS record_id, records.name AS record_name, stages.stage_name AS stage_name,
			forms.question AS question, responses.answer AS answer, responses.file_url AS file_url,
			records.created_at AS submitted_at`).
		Joins("JOIN records ON records.id = responses.record_id").
		Joins("JOIN forms ON forms.id = responses.form_id").
		Joins("JOIN stages ON stages.id = records.stage_id").
		Order("records.id ASC, responses.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

package repository

import (
	"context"

	"github.com/yukikurage/stage-intake/internal/database"
	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/utils"
	"gorm.io/gorm"
)

// GormAuditLogRepository is a GORM implementation of AuditLogRepository
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append inserts an audit entry
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns entries joined to usernames, newest first
func (r *GormAuditLogRepository) List(ctx context.Context, page utils.PaginationParams) ([]AuditLogRow, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []AuditLogRow
	err := r.db.WithContext(ctx).
		Table("audit_logs").
		Select("audit_logs.id, audit_logs.user_id, users.username, audit_logs.action, audit_logs.created_at").
		Joins("LEFT JOIN users ON users.id = audit_logs.user_id").
		Order("audit_logs.id DESC").
		Scopes(database.Paginate(page)).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

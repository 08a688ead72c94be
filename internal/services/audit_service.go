package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/utils"
)

// AuditService reads the audit trail. Entries are written by the services
// that perform each action.
type AuditService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(auditRepo repository.AuditLogRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// List returns one page of entries, newest first.
func (s *AuditService) List(ctx context.Context, page utils.PaginationParams) ([]repository.AuditLogRow, int64, error) {
	rows, total, err := s.auditRepo.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return rows, total, nil
}

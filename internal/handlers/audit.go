package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stage-intake/internal/dto"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
	"github.com/yukikurage/stage-intake/internal/services"
	"github.com/yukikurage/stage-intake/internal/utils"
)

// AuditHandler renders the audit log.
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Logs lists audit entries, newest first.
func (h *AuditHandler) Logs(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	rows, total, err := h.audit.List(c.Request.Context(), params)
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}

	render(c, "logs.html", "Audit log", gin.H{
		"Logs": dto.ToAuditLogDTOs(rows),
		"Page": dto.NewPageDTO(params, total),
	})
}

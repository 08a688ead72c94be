package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stage-intake/internal/dto"
	apierrors "github.com/yukikurage/stage-intake/internal/errors"
	"github.com/yukikurage/stage-intake/internal/metrics"
	"github.com/yukikurage/stage-intake/internal/services"
	"github.com/yukikurage/stage-intake/internal/utils"
)

// RecordHandler serves record listings and reports to admins.
type RecordHandler struct {
	reports *services.ReportService
	catalog *services.CatalogService
	metrics *metrics.Metrics
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(reports *services.ReportService, catalog *services.CatalogService, m *metrics.Metrics) *RecordHandler {
	return &RecordHandler{
		reports: reports,
		catalog: catalog,
		metrics: m,
	}
}

// Parents lists records, optionally limited to one stage.
func (h *RecordHandler) Parents(c *gin.Context) {
	var stageFilter *uint64
	var selected uint64
	if raw := strings.TrimSpace(c.Query("stage_id")); raw != "" {
		stageID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid stage")
			return
		}
		stageFilter = &stageID
		selected = stageID
	}

	params := utils.GetPaginationParams(c)
	records, total, err := h.reports.ListRecords(c.Request.Context(), stageFilter, params)
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}
	stages, err := h.catalog.ListStages(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}

	render(c, "parents.html", "Parents", gin.H{
		"Stages":  dto.ToStageDTOs(stages),
		"StageID": selected,
		"Records": dto.ToRecordListItemDTOs(records),
		"Page":    dto.NewPageDTO(params, total),
	})
}

// Parent shows one record with its responses.
func (h *RecordHandler) Parent(c *gin.Context) {
	record, err := h.reports.FindRecord(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondRecordError(c, err)
		return
	}

	render(c, "parent.html", record.Name, gin.H{
		"Record": dto.ToRecordDetailDTO(*record),
	})
}

// Reports lists records with links to their PDF reports.
func (h *RecordHandler) Reports(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	records, total, err := h.reports.ListRecords(c.Request.Context(), nil, params)
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}

	render(c, "reports.html", "Reports", gin.H{
		"Records": dto.ToRecordListItemDTOs(records),
		"Page":    dto.NewPageDTO(params, total),
	})
}

// ReportLookup resolves the report search form and redirects to the report
// by record ID, so names never have to survive a path segment.
func (h *RecordHandler) ReportLookup(c *gin.Context) {
	ref := strings.TrimSpace(c.Query("ref"))
	if ref == "" {
		apierrors.RedirectWithFlash(c, "/admin/reports", "Enter a record ID or name")
		return
	}
	record, err := h.reports.FindRecord(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			apierrors.RedirectWithFlash(c, "/admin/reports", "Record not found")
			return
		}
		apierrors.InternalError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/admin/generate_report/"+strconv.FormatUint(record.ID, 10))
}

// GeneratePDF sends the report for a record as a PDF download.
func (h *RecordHandler) GeneratePDF(c *gin.Context) {
	record, err := h.reports.FindRecord(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondRecordError(c, err)
		return
	}

	// Render fully before writing so a failure still yields an error page.
	var buf bytes.Buffer
	if err := h.reports.WritePDF(&buf, record); err != nil {
		apierrors.InternalError(c, fmt.Errorf("failed to render report for record %d: %w", record.ID, err))
		return
	}
	h.metrics.ReportGenerated("pdf")

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%d.pdf"`, record.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// ExportCSV sends every stored response as one CSV file.
func (h *RecordHandler) ExportCSV(c *gin.Context) {
	data, err := h.reports.ExportCSV(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}
	h.metrics.ReportGenerated("csv")

	c.Header("Content-Disposition", `attachment; filename="responses.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func respondRecordError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrRecordNotFound) {
		apierrors.NotFound(c, "Record not found")
		return
	}
	apierrors.InternalError(c, err)
}

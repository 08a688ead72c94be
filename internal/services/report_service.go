package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/report"
	"github.com/yukikurage/stage-intake/internal/repository"
	"github.com/yukikurage/stage-intake/internal/utils"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("record not found")

// ReportService looks up records and renders their reports.
type ReportService struct {
	recordRepo repository.RecordRepository
}

// NewReportService creates a new ReportService.
func NewReportService(recordRepo repository.RecordRepository) *ReportService {
	return &ReportService{recordRepo: recordRepo}
}

// ListRecords returns one page of records, newest first.
func (s *ReportService) ListRecords(ctx context.Context, stageID *uint64, page utils.PaginationParams) ([]models.Record, int64, error) {
	records, total, err := s.recordRepo.List(ctx, repository.RecordFilter{StageID: stageID}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}
	return records, total, nil
}

// FindRecord resolves ref as a record ID when numeric, otherwise as the
// newest record with that name. A numeric ref that matches no ID is tried
// as a name too.
func (s *ReportService) FindRecord(ctx context.Context, ref string) (*models.Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrRecordNotFound
	}

	var (
		record *models.Record
		err    error
	)
	if id, parseErr := strconv.ParseUint(ref, 10, 64); parseErr == nil {
		record, err = s.recordRepo.FindByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record, err = s.recordRepo.FindLatestByName(ctx, ref)
		}
	} else {
		record, err = s.recordRepo.FindLatestByName(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find record: %w", err)
	}
	return record, nil
}

// Document converts a loaded record into report content, one row per
// response in stored order.
func Document(record *models.Record) report.Document {
	rows := make([]report.Row, 0, len(record.Responses))
	for _, response := range record.Responses {
		rows = append(rows, report.Row{
			Question: response.Form.Question,
			Answer:   response.Display(),
		})
	}
	return report.Document{
		RecordName:  record.Name,
		StageName:   record.Stage.StageName,
		SubmittedAt: record.CreatedAt,
		Rows:        rows,
	}
}

// WritePDF renders the record report to w.
func (s *ReportService) WritePDF(w io.Writer, record *models.Record) error {
	return report.WritePDF(w, Document(record))
}

// ExportCSV renders every response as long-format CSV.
func (s *ReportService) ExportCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.recordRepo.ListResponseRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	exportRows := make([]report.ExportRow, 0, len(rows))
	for _, row := range rows {
		exportRows = append(exportRows, report.ExportRow{
			RecordID:    row.RecordID,
			RecordName:  row.RecordName,
			StageName:   row.StageName,
			Question:    row.Question,
			Answer:      deref(row.Answer),
			FileURL:     deref(row.FileURL),
			SubmittedAt: row.SubmittedAt,
		})
	}
	return report.ExportCSV(exportRows)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportRow is one response in the long-format export.
type ExportRow struct {
	RecordID    uint64
	RecordName  string
	StageName   string
	Question    string
	Answer      string
	FileURL     string
	SubmittedAt time.Time
}

var exportHeader = []string{"record_id", "record_name", "stage", "question", "answer", "file_url", "submitted_at"}

// ExportCSV renders one line per response.
func ExportCSV(rows []ExportRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteCSV(buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the header and one line per response to w.
func WriteCSV(out io.Writer, rows []ExportRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatUint(r.RecordID, 10),
			r.RecordName,
			r.StageName,
			r.Question,
			r.Answer,
			r.FileURL,
			r.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Package report renders record reports and response exports.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-pdf/fpdf"
)

// Document is the content of one record report.
type Document struct {
	RecordName  string
	StageName   string
	SubmittedAt time.Time
	Rows        []Row
}

// Row is one question and its answer, or the file URL when no answer was given.
type Row struct {
	Question string
	Answer   string
}

const (
	pageMargin      = 15.0
	lineHeight      = 5.5
	cellPadding     = 1.5
	questionWidth   = 75.0
	headerFontSize  = 10.0
	headerRowHeight = 8.0
	bodyFontSize    = 10.0
)

// WritePDF renders doc as a Letter portrait PDF.
func WritePDF(w io.Writer, doc Document) error {
	pdf, err := render(doc)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func render(doc Document) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	// Rows are broken manually so the table header can be repeated.
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle("Report: "+doc.RecordName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr("Parent: "+doc.RecordName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr("Stage: "+doc.StageName), "", 1, "L", false, 0, "")
	if !doc.SubmittedAt.IsZero() {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, "Submitted: "+doc.SubmittedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pageWidth, pageHeight := pdf.GetPageSize()
	answerWidth := pageWidth - 2*pageMargin - questionWidth
	bottom := pageHeight - pageMargin

	drawTableHeader(pdf, answerWidth)

	// Lines a row can hold directly under a repeated table header.
	pageCapacity := linesBetween(pageMargin+headerRowHeight, bottom)

	pdf.SetFont("Helvetica", "", bodyFontSize)
	for _, row := range doc.Rows {
		qLines := pdf.SplitLines([]byte(tr(row.Question)), questionWidth-2*cellPadding)
		aLines := pdf.SplitLines([]byte(tr(row.Answer)), answerWidth-2*cellPadding)
		lines := max(len(qLines), len(aLines), 1)

		// Rows that fit on a fresh page are kept whole.
		if fit := linesBetween(pdf.GetY(), bottom); lines > fit && (lines <= pageCapacity || fit < 1) {
			newTablePage(pdf, answerWidth)
		}

		for {
			n := min(lines, linesBetween(pdf.GetY(), bottom))
			height := float64(n)*lineHeight + 2*cellPadding
			x, y := pdf.GetXY()
			drawCell(pdf, x, y, questionWidth, height, take(&qLines, n))
			drawCell(pdf, x+questionWidth, y, answerWidth, height, take(&aLines, n))
			pdf.SetXY(x, y+height)

			lines -= n
			if lines == 0 {
				break
			}
			newTablePage(pdf, answerWidth)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf, nil
}

func drawTableHeader(pdf *fpdf.Fpdf, answerWidth float64) {
	pdf.SetFont("Helvetica", "B", headerFontSize)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(questionWidth, headerRowHeight, "Question", "1", 0, "L", true, 0, "")
	pdf.CellFormat(answerWidth, headerRowHeight, "Answer", "1", 1, "L", true, 0, "")
}

func newTablePage(pdf *fpdf.Fpdf, answerWidth float64) {
	pdf.AddPage()
	drawTableHeader(pdf, answerWidth)
	pdf.SetFont("Helvetica", "", bodyFontSize)
}

// linesBetween is how many text lines of a padded cell fit from top to bottom.
func linesBetween(top, bottom float64) int {
	return max(int(math.Floor((bottom-top-2*cellPadding)/lineHeight)), 0)
}

// take removes and returns up to n leading lines.
func take(lines *[][]byte, n int) [][]byte {
	n = min(n, len(*lines))
	head := (*lines)[:n]
	*lines = (*lines)[n:]
	return head
}

func drawCell(pdf *fpdf.Fpdf, x, y, width, height float64, lines [][]byte) {
	pdf.Rect(x, y, width, height, "D")
	for i, line := range lines {
		pdf.SetXY(x+cellPadding, y+cellPadding+float64(i)*lineHeight)
		pdf.CellFormat(width-2*cellPadding, lineHeight, string(line), "", 0, "L", false, 0, "")
	}
}

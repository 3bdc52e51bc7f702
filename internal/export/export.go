// Package export flattens contribution lists into downloadable reports.
// Exporters are pure over their input: the caller supplies the exact entry
// set (normally the page it just displayed) and the same input always yields
// byte-identical output.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"kanisa/internal/core"
)

// Format selects the report encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat validates a format string from a request.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for download responses.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

var columns = []string{
	"Date", "Scope", "Contributor", "Amount", "Currency",
	"Normalized (KES)", "Method", "Reference",
}

// Export renders the entries in the requested format.
func Export(entries []core.Contribution, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return exportCSV(entries)
	case FormatPDF:
		return exportPDF(entries)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func row(c core.Contribution) []string {
	return []string{
		c.PaymentDate.Format("2006-01-02"),
		c.ScopeName,
		c.DisplayContributor(),
		c.Amount.String(),
		string(c.Currency),
		c.NormalizedAmount.String(),
		c.PaymentMethod,
		c.Reference,
	}
}

func exportCSV(entries []core.Contribution) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range entries {
		if err := w.Write(row(c)); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", c.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

var pdfColumnWidths = []float64{22, 40, 40, 25, 18, 30, 25, 35}

var pdfEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func exportPDF(entries []core.Contribution) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	// A fixed creation date keeps the output byte-identical for identical
	// input; fpdf substitutes the current time for a zero value.
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetTitle("Contribution Report", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Contribution Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range columns {
			pdf.CellFormat(pdfColumnWidths[i], 8, col, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
	writeHeader()

	pdf.SetFont("Helvetica", "", 9)
	for _, c := range entries {
		if pdf.GetY() > 180 {
			pdf.AddPage()
			writeHeader()
			pdf.SetFont("Helvetica", "", 9)
		}
		for i, cell := range row(c) {
			pdf.CellFormat(pdfColumnWidths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

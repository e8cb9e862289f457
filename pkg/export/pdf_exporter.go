package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders receipts and tabular datasets into PDF documents.
type PDFExporter struct {
	issuer string
}

// NewPDFExporter constructs a PDF exporter. issuer is printed in every document header.
func NewPDFExporter(issuer string) *PDFExporter {
	return &PDFExporter{issuer: issuer}
}

// RenderDocument creates a single-page document of labelled lines, e.g. a payment receipt.
func (e *PDFExporter) RenderDocument(title string, lines []KeyValue, footer string) ([]byte, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("pdf document requires at least one line")
	}
	pdf := e.newPage(title)

	for _, line := range lines {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 8, line.Label, "B", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, line.Value, "B", 1, "", false, 0, "")
	}

	if footer != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 5, footer, "", "L", false)
	}
	return output(pdf)
}

// RenderTable creates a PDF document with an optional title and table body.
func (e *PDFExporter) RenderTable(data Dataset, title string) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}
	pdf := e.newPage(title)

	pdf.SetFont("Arial", "B", 9)
	colWidth := 190.0 / float64(len(data.Columns))
	for _, col := range data.Columns {
		pdf.CellFormat(colWidth, 8, col.header(), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, col := range data.Columns {
			pdf.CellFormat(colWidth, 7, row[col.Key], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return output(pdf)
}

func (e *PDFExporter) newPage(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if e.issuer != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, e.issuer, "", 1, "R", false, 0, "")
	}
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}
	return pdf
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

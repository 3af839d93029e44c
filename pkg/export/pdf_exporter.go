package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Document describes a single-record export: a title, labelled fields and
// free-form text sections rendered below them.
type Document struct {
	Title    string
	Fields   []Field
	Sections []Section
}

// Field is one labelled value on a document card.
type Field struct {
	Label string
	Value string
}

// Section is a headed block of wrapped body text.
type Section struct {
	Heading string
	Body    string
}

// PDFExporter renders datasets and documents into PDF bytes.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderDocument creates a PDF card for a single record with labelled fields
// followed by wrapped text sections.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf document requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, field := range doc.Fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 7, field.Label, "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(140, 7, field.Value, "1", 1, "", false, 0, "")
	}

	for _, section := range doc.Sections {
		pdf.Ln(4)
		if section.Heading != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, section.Heading, "", 1, "", false, 0, "")
		}
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(190, 6, section.Body, "", "", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf document: %w", err)
	}
	return buf.Bytes(), nil
}

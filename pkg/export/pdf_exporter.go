package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0 // A4 landscape minus margins
	rowHeight  = 7.0
	headHeight = 8.0
)

// PDFExporter renders a Dataset as a landscape A4 table.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render draws the dataset under an optional title. Long datasets flow
// onto extra pages with the header row repeated.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}

	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetMargins(10, 15, 10)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Arial", "I", 8)
		footer := fmt.Sprintf("Generated %s  |  page %d/{nb}",
			time.Now().Format("2006-01-02 15:04"), doc.PageNo())
		doc.CellFormat(0, 8, footer, "", 0, "C", false, 0, "")
	})

	colWidth := pageWidth / float64(len(data.Headers))
	writeHeader := func() {
		doc.SetFont("Arial", "B", 10)
		doc.SetFillColor(230, 230, 230)
		for _, h := range data.Headers {
			doc.CellFormat(colWidth, headHeight, h, "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont("Arial", "", 9)
	}

	doc.AddPage()
	if title != "" {
		doc.SetFont("Arial", "B", 14)
		doc.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		doc.Ln(4)
	}
	writeHeader()

	_, pageHeight := doc.GetPageSize()
	for _, row := range data.Rows {
		if doc.GetY()+rowHeight > pageHeight-20 {
			doc.AddPage()
			writeHeader()
		}
		for i := range data.Headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			doc.CellFormat(colWidth, rowHeight, cell, "1", 0, "", false, 0, "")
		}
		doc.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := doc.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Package pdf renders the discharge documents and splices scanned external
// pages into them.
package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry. A4 portrait in millimeters.
const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginTop    = 15.0
	marginRight  = 15.0
	contentWidth = pageWidth - marginLeft - marginRight

	lineHeight  = 5.5
	labelWidth  = 52.0
	headerLineY = 30.0
)

// Doc wraps the underlying generator with the layout vocabulary every page
// builder uses: header banner, labeled fields, bounded text blocks, fixed
// capacity tables and gated signature blocks.
type Doc struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	clinic string
}

// NewDoc creates an empty A4 portrait document carrying the clinic name for
// the page headers.
func NewDoc(clinicName string) *Doc {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetMargins(marginLeft, marginTop, marginRight)
	p.SetAutoPageBreak(false, 15)
	return &Doc{
		pdf:    p,
		tr:     p.UnicodeTranslatorFromDescriptor(""),
		clinic: clinicName,
	}
}

// AddPage opens a new page and draws the header banner: clinic name, the
// document title and a rule under both.
func (d *Doc) AddPage(title string) {
	d.pdf.AddPage()
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.SetXY(marginLeft, marginTop)
	d.pdf.CellFormat(contentWidth, 7, d.tr(d.clinic), "", 1, "C", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.CellFormat(contentWidth, 6, d.tr(title), "", 1, "C", false, 0, "")
	d.pdf.Line(marginLeft, headerLineY, pageWidth-marginRight, headerLineY)
	d.pdf.SetY(headerLineY + 6)
}

// Label draws one "label: value" pair at the current Y, the value starting
// at a fixed offset so columns line up down the page.
func (d *Doc) Label(label, value string) {
	d.pdf.SetX(marginLeft)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.CellFormat(labelWidth, lineHeight, d.tr(label+":"), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.CellFormat(contentWidth-labelWidth, lineHeight, d.tr(value), "", 1, "L", false, 0, "")
}

// Checkbox draws a label with a marked or empty box.
func (d *Doc) Checkbox(label string, checked bool) {
	mark := "[  ]"
	if checked {
		mark = "[X]"
	}
	d.Label(label, mark)
}

// Centered draws a label and value pair centered as a unit, used for the
// discharge summary headline.
func (d *Doc) Centered(label, value string) {
	text := label + ": " + value
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.SetX(marginLeft)
	d.pdf.CellFormat(contentWidth, lineHeight+1, d.tr(text), "", 1, "C", false, 0, "")
}

// TextBlock draws a titled free-text block wrapped to the content width and
// capped at maxLines; overflow is silently dropped. The forms are fixed
// paper layouts, so text never pushes later content off its slot.
func (d *Doc) TextBlock(title, text string, maxLines int) {
	d.pdf.SetX(marginLeft)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.CellFormat(contentWidth, lineHeight, d.tr(title), "", 1, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)

	lines := d.pdf.SplitText(d.tr(text), contentWidth)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	for _, line := range lines {
		d.pdf.SetX(marginLeft)
		d.pdf.CellFormat(contentWidth, lineHeight, line, "", 1, "L", false, 0, "")
	}
	for i := len(lines); i < maxLines; i++ {
		d.pdf.SetX(marginLeft)
		d.pdf.CellFormat(contentWidth, lineHeight, "", "B", 1, "L", false, 0, "")
	}
	d.Space(2)
}

// Table draws a bordered table with the given column headers and relative
// widths, capped at capacity rows. It returns how many rows were drawn;
// excess rows are dropped, and missing rows leave ruled empty lines so the
// printed form always shows the full grid.
func (d *Doc) Table(headers []string, relWidths []float64, rows [][]string, capacity int) int {
	var totalRel float64
	for _, w := range relWidths {
		totalRel += w
	}
	widths := make([]float64, len(relWidths))
	for i, w := range relWidths {
		widths[i] = contentWidth * w / totalRel
	}

	d.pdf.SetX(marginLeft)
	d.pdf.SetFont("Helvetica", "B", 8)
	d.pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		d.pdf.CellFormat(widths[i], lineHeight, d.tr(h), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont("Helvetica", "", 8)
	drawn := len(rows)
	if drawn > capacity {
		drawn = capacity
	}
	for r := 0; r < capacity; r++ {
		d.pdf.SetX(marginLeft)
		for i := range headers {
			cell := ""
			if r < drawn && i < len(rows[r]) {
				cell = rows[r][i]
			}
			d.pdf.CellFormat(widths[i], lineHeight, d.tr(cell), "1", 0, "L", false, 0, "")
		}
		d.pdf.Ln(-1)
	}
	d.Space(2)
	return drawn
}

// SignatureBlock draws the signer's handwritten signature image (base64
// PNG) above a rule with the name and license caption. A broken image
// degrades to the bare rule rather than failing the render.
func (d *Doc) SignatureBlock(caption, firmaB64 string) {
	y := d.pdf.GetY()
	if firmaB64 != "" {
		if img, err := base64.StdEncoding.DecodeString(firmaB64); err == nil {
			name := fmt.Sprintf("firma-%d-%0.f", d.pdf.PageNo(), y)
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
			if d.pdf.Ok() {
				d.pdf.ImageOptions(name, pageWidth-marginRight-55, y, 45, 18, false, opts, 0, "")
			}
		}
	}
	d.pdf.SetY(y + 20)
	d.SignatureLine(caption)
}

// SignatureLine draws the unsigned variant: the rule and caption alone.
func (d *Doc) SignatureLine(caption string) {
	x := pageWidth - marginRight - 60
	y := d.pdf.GetY()
	d.pdf.Line(x, y, pageWidth-marginRight, y)
	d.pdf.SetXY(x, y+1)
	d.pdf.SetFont("Helvetica", "", 8)
	d.pdf.CellFormat(60, 4, d.tr(caption), "", 1, "C", false, 0, "")
	d.pdf.SetY(y + 8)
}

// Space moves the cursor down by h millimeters.
func (d *Doc) Space(h float64) {
	d.pdf.SetY(d.pdf.GetY() + h)
}

// SectionTitle draws a bold section heading with a little air above it.
func (d *Doc) SectionTitle(title string) {
	d.Space(2)
	d.pdf.SetX(marginLeft)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(contentWidth, 6, d.tr(title), "", 1, "L", false, 0, "")
}

// Output finalizes the document and returns its bytes.
func (d *Doc) Output() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

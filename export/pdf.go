package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/edumerge/mail-merge/types"
)

const pointToMillimetre = 0.3528

// PdfEncoder lays the document out paragraph by paragraph with the fpdf core fonts,
// applying the bold, italic, underline, font and size of every run.
type PdfEncoder struct {
	PageSize    string
	Orientation string
	FontSize    float64
	Margin      float64
}

func NewPdfEncoder() *PdfEncoder {
	return &PdfEncoder{
		PageSize:    "A4",
		Orientation: "P",
		FontSize:    12,
		Margin:      20,
	}
}

func (encoder *PdfEncoder) Extension() string {
	return string(types.ExportFormatPdf)
}

func (encoder *PdfEncoder) Encode(document *types.Document) ([]byte, error) {
	pdf := fpdf.New(encoder.Orientation, "mm", encoder.PageSize, "")
	pdf.SetTitle(document.Name, true)
	pdf.SetMargins(encoder.Margin, encoder.Margin, encoder.Margin)
	pdf.SetAutoPageBreak(true, encoder.Margin)
	pdf.AddPage()

	translate := pdf.UnicodeTranslatorFromDescriptor("")

	for _, paragraph := range document.Paragraphs() {
		lineHeight := encoder.lineHeight(encoder.FontSize)
		for _, run := range paragraph {
			size := run.Style.Size
			if size <= 0 {
				size = encoder.FontSize
			}
			pdf.SetFont(coreFont(run.Style.Font), fontStyle(run.Style), size)
			lineHeight = max(lineHeight, encoder.lineHeight(size))
			pdf.Write(encoder.lineHeight(size), translate(run.Text))
		}
		pdf.Ln(lineHeight)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("encoding pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (encoder *PdfEncoder) lineHeight(size float64) float64 {
	return size * pointToMillimetre * 1.4
}

// coreFont maps a document font onto one of the PDF core font families.
func coreFont(font string) string {
	name := strings.ToLower(font)
	switch {
	case strings.Contains(name, "times"), strings.Contains(name, "serif") && !strings.Contains(name, "sans"):
		return "Times"
	case strings.Contains(name, "courier"), strings.Contains(name, "mono"):
		return "Courier"
	default:
		return "Helvetica"
	}
}

func fontStyle(style types.Style) string {
	result := ""
	if style.Bold {
		result += "B"
	}
	if style.Italic {
		result += "I"
	}
	if style.Underline {
		result += "U"
	}
	return result
}

package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/edumerge/mail-merge/types"
)

const documentPart = "word/document.xml"

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const relationshipsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr></w:body></w:document>`

// DocxEncoder writes Word documents. Documents rendered from a DOCX template keep every
// package part of the template; text templates get a minimal package.
type DocxEncoder struct{}

func (encoder *DocxEncoder) Extension() string {
	return string(types.ExportFormatDocx)
}

func (encoder *DocxEncoder) Encode(document *types.Document) ([]byte, error) {
	if document.Source == types.SourceKindDocx {
		return encoder.encodeFromTemplate(document)
	}
	return encoder.encodeMinimal(document)
}

func (encoder *DocxEncoder) encodeFromTemplate(document *types.Document) ([]byte, error) {
	documentXML, err := markupDocument(document)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	zipWriter := zip.NewWriter(buf)

	for _, name := range document.PartOrder {
		content := document.Parts[name]
		if name == documentPart {
			content = documentXML
		}
		if err := writePart(zipWriter, name, content); err != nil {
			return nil, err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

// markupDocument rebuilds word/document.xml: markup is copied verbatim and text is
// escaped, so substituted values can never inject markup.
func markupDocument(document *types.Document) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, segment := range document.Segments {
		switch segment.Kind {
		case types.SegmentMarkup:
			buf.WriteString(segment.Text)
		case types.SegmentText:
			if err := xml.EscapeText(buf, []byte(segment.Text)); err != nil {
				return nil, fmt.Errorf("escaping document text: %w", err)
			}
		}
	}
	return buf.Bytes(), nil
}

func (encoder *DocxEncoder) encodeMinimal(document *types.Document) ([]byte, error) {
	body := new(bytes.Buffer)
	body.WriteString(documentHead)
	for _, paragraph := range document.Paragraphs() {
		body.WriteString("<w:p>")
		for _, run := range paragraph {
			body.WriteString("<w:r>")
			body.WriteString(runProperties(run.Style))
			body.WriteString(`<w:t xml:space="preserve">`)
			if err := xml.EscapeText(body, []byte(run.Text)); err != nil {
				return nil, fmt.Errorf("escaping document text: %w", err)
			}
			body.WriteString("</w:t></w:r>")
		}
		body.WriteString("</w:p>")
	}
	body.WriteString(documentTail)

	buf := new(bytes.Buffer)
	zipWriter := zip.NewWriter(buf)
	parts := []struct {
		name    string
		content []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relationshipsXML)},
		{documentPart, body.Bytes()},
	}
	for _, part := range parts {
		if err := writePart(zipWriter, part.name, part.content); err != nil {
			return nil, err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("closing docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

func runProperties(style types.Style) string {
	if style == (types.Style{}) {
		return ""
	}
	props := "<w:rPr>"
	if style.Font != "" {
		font := new(bytes.Buffer)
		xml.EscapeText(font, []byte(style.Font))
		props += fmt.Sprintf(`<w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s"/>`, font.String())
	}
	if style.Bold {
		props += "<w:b/>"
	}
	if style.Italic {
		props += "<w:i/>"
	}
	if style.Underline {
		props += `<w:u w:val="single"/>`
	}
	if style.Size > 0 {
		props += `<w:sz w:val="` + strconv.Itoa(int(style.Size*2)) + `"/>`
	}
	return props + "</w:rPr>"
}

func writePart(zipWriter *zip.Writer, name string, content []byte) error {
	writer, err := zipWriter.Create(name)
	if err != nil {
		return fmt.Errorf("creating docx part %s: %w", name, err)
	}
	if _, err := writer.Write(content); err != nil {
		return fmt.Errorf("writing docx part %s: %w", name, err)
	}
	return nil
}

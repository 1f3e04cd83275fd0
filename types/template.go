package types

type SourceKind string

const (
	SourceKindText SourceKind = "text"
	SourceKindDocx SourceKind = "docx"
)

type SegmentKind int

const (
	SegmentMarkup SegmentKind = iota
	SegmentText
	SegmentPlaceholder
	SegmentParagraph
)

// Style holds the run formatting a text or placeholder segment sits in.
type Style struct {
	Bold      bool
	Italic    bool
	Underline bool
	Font      string
	Size      float64
}

// Segment is one piece of a template or rendered document. Markup segments hold raw
// document markup, Text segments literal text and Placeholder segments a field name.
type Segment struct {
	Kind     SegmentKind
	Text     string
	Name     string
	Style    Style
	Position int
}

type Template struct {
	Name     string
	Source   SourceKind
	Segments []Segment
	// Parts holds every DOCX package part other than word/document.xml.
	Parts     map[string][]byte
	PartOrder []string
}

// Placeholders returns the distinct placeholder names in order of first occurrence.
func (template *Template) Placeholders() []string {
	seen := map[string]bool{}
	names := []string{}
	for _, segment := range template.Segments {
		if segment.Kind != SegmentPlaceholder || seen[segment.Name] {
			continue
		}
		seen[segment.Name] = true
		names = append(names, segment.Name)
	}
	return names
}

// Document is a template with every placeholder substituted.
type Document struct {
	Name      string
	Source    SourceKind
	Segments  []Segment
	Parts     map[string][]byte
	PartOrder []string
}

// Text returns the document text with one newline per paragraph boundary.
func (document *Document) Text() string {
	text := []byte{}
	for _, segment := range document.Segments {
		switch segment.Kind {
		case SegmentText:
			text = append(text, segment.Text...)
		case SegmentParagraph:
			text = append(text, '\n')
		}
	}
	return string(text)
}

// Paragraphs groups the text segments of the document by paragraph boundary.
func (document *Document) Paragraphs() [][]Segment {
	paragraphs := [][]Segment{}
	current := []Segment{}
	for _, segment := range document.Segments {
		switch segment.Kind {
		case SegmentText:
			current = append(current, segment)
		case SegmentParagraph:
			paragraphs = append(paragraphs, current)
			current = []Segment{}
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, current)
	}
	return paragraphs
}

package templateparser

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edumerge/mail-merge/fileio"
	"github.com/edumerge/mail-merge/types"
)

const (
	openDelimiter    = "{{"
	closeDelimiter   = "}}"
	escapedDelimiter = `\{{`
)

type ITemplateClient interface {
	Load(ctx context.Context, path string) (*types.Template, error)
}

type TemplateClient struct {
	IOTimeout time.Duration
	Logger    *logrus.Logger
}

func NewTemplateClient(ioTimeout time.Duration, logger *logrus.Logger) *TemplateClient {
	return &TemplateClient{
		IOTimeout: ioTimeout,
		Logger:    logger,
	}
}

// Load reads and parses the template at path. Files ending in .docx are parsed as
// Word documents, everything else as plain text.
func (templateClient *TemplateClient) Load(ctx context.Context, path string) (*types.Template, error) {
	content, err := fileio.ReadFile(ctx, path, templateClient.IOTimeout)
	if err != nil {
		return nil, err
	}

	name := TemplateName(path)
	var template *types.Template
	if strings.EqualFold(filepath.Ext(path), ".docx") {
		templateClient.Logger.Debugf("Parsing DOCX template %s", path)
		template, err = ParseDocx(name, content)
	} else {
		templateClient.Logger.Debugf("Parsing text template %s", path)
		template, err = ParseText(name, string(content))
	}
	if err != nil {
		return nil, err
	}

	templateClient.Logger.Infof("Template %s loaded with %d placeholders", name, len(template.Placeholders()))
	return template, nil
}

// TemplateName is the file name of path without its extension.
func TemplateName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseText parses a plain text template. Every newline becomes a paragraph boundary.
func ParseText(name string, content string) (*types.Template, error) {
	template := &types.Template{
		Name:   name,
		Source: types.SourceKindText,
	}

	offset := 0
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			template.Segments = append(template.Segments, types.Segment{Kind: types.SegmentParagraph, Position: offset - 1})
		}
		segments, err := tokenize(line, offset, types.Style{})
		if err != nil {
			return nil, err
		}
		template.Segments = append(template.Segments, segments...)
		offset += len(line) + 1
	}

	return template, nil
}

// tokenize splits text into literal and placeholder segments. offset is the position of
// text within the whole template and is only used for error reporting.
func tokenize(text string, offset int, style types.Style) ([]types.Segment, error) {
	segments := []types.Segment{}
	literal := strings.Builder{}
	literalStart := 0

	flush := func() {
		if literal.Len() == 0 {
			return
		}
		segments = append(segments, types.Segment{
			Kind:     types.SegmentText,
			Text:     literal.String(),
			Style:    style,
			Position: offset + literalStart,
		})
		literal.Reset()
	}

	i := 0
	for i < len(text) {
		if strings.HasPrefix(text[i:], escapedDelimiter) {
			if literal.Len() == 0 {
				literalStart = i
			}
			literal.WriteString(openDelimiter)
			i += len(escapedDelimiter)
			continue
		}

		if strings.HasPrefix(text[i:], openDelimiter) {
			end := strings.Index(text[i+len(openDelimiter):], closeDelimiter)
			if end < 0 {
				return nil, types.NewParseError("unterminated placeholder", snippet(text[i:]), offset+i)
			}
			raw := text[i+len(openDelimiter) : i+len(openDelimiter)+end]
			if strings.Contains(raw, openDelimiter) {
				return nil, types.NewParseError("unterminated placeholder", snippet(text[i:]), offset+i)
			}
			name := strings.TrimSpace(raw)
			if name == "" {
				return nil, types.NewParseError("empty placeholder", snippet(text[i:]), offset+i)
			}

			flush()
			segments = append(segments, types.Segment{
				Kind:     types.SegmentPlaceholder,
				Name:     name,
				Style:    style,
				Position: offset + i,
			})
			i += len(openDelimiter) + end + len(closeDelimiter)
			continue
		}

		if literal.Len() == 0 {
			literalStart = i
		}
		literal.WriteByte(text[i])
		i++
	}
	flush()

	return segments, nil
}

// openPlaceholderIndex returns the index of a "{{" in text that has no closing "}}",
// or -1 when every placeholder in text is complete.
func openPlaceholderIndex(text string) int {
	i := 0
	for i < len(text) {
		if strings.HasPrefix(text[i:], escapedDelimiter) {
			i += len(escapedDelimiter)
			continue
		}
		if strings.HasPrefix(text[i:], openDelimiter) {
			end := strings.Index(text[i+len(openDelimiter):], closeDelimiter)
			if end < 0 {
				return i
			}
			i += len(openDelimiter) + end + len(closeDelimiter)
			continue
		}
		i++
	}
	return -1
}

func snippet(text string) string {
	const limit = 20
	if len(text) > limit {
		return text[:limit]
	}
	return text
}

package render

import (
	"github.com/sirupsen/logrus"

	"github.com/edumerge/mail-merge/types"
)

type IRenderEngine interface {
	Render(template *types.Template, binding *types.Binding, record *types.RecipientRecord) (*types.Document, []string)
}

// TextRenderEngine substitutes placeholder segments with record values in a single pass.
// Values are inserted as plain text and never scanned for placeholders again.
type TextRenderEngine struct {
	Logger *logrus.Logger
}

func NewTextRenderEngine(logger *logrus.Logger) *TextRenderEngine {
	return &TextRenderEngine{
		Logger: logger,
	}
}

// Render returns the substituted document and the placeholders that had no value,
// in order of first occurrence. Unmatched placeholders render as empty text.
func (engine *TextRenderEngine) Render(template *types.Template, binding *types.Binding, record *types.RecipientRecord) (*types.Document, []string) {
	document := &types.Document{
		Name:      template.Name,
		Source:    template.Source,
		Segments:  make([]types.Segment, 0, len(template.Segments)),
		Parts:     template.Parts,
		PartOrder: template.PartOrder,
	}

	unmatched := []string{}
	flagged := map[string]bool{}

	for _, segment := range template.Segments {
		if segment.Kind != types.SegmentPlaceholder {
			document.Segments = append(document.Segments, segment)
			continue
		}

		value, ok := lookup(binding, record, segment.Name)
		if !ok && !flagged[segment.Name] {
			flagged[segment.Name] = true
			unmatched = append(unmatched, segment.Name)
		}

		document.Segments = append(document.Segments, types.Segment{
			Kind:     types.SegmentText,
			Text:     value,
			Style:    segment.Style,
			Position: segment.Position,
		})
	}

	if len(unmatched) > 0 {
		engine.Logger.Debugf("Recipient %d rendered with unmatched placeholders %v", record.Index, unmatched)
	}
	return document, unmatched
}

func lookup(binding *types.Binding, record *types.RecipientRecord, placeholder string) (string, bool) {
	field := placeholder
	if binding != nil {
		resolved, ok := binding.Resolved[placeholder]
		if !ok {
			return "", false
		}
		field = resolved
	}
	return record.Get(field)
}

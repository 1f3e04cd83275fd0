package templateparser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumerge/mail-merge/types"
)

func TestParseText_Placeholders(t *testing.T) {
	template, err := ParseText("letter", "Dear {{Name}}, your grade is {{ Grade }}.")
	require.NoError(t, err)

	assert.Equal(t, "letter", template.Name)
	assert.Equal(t, types.SourceKindText, template.Source)
	assert.Equal(t, []string{"Name", "Grade"}, template.Placeholders())
	require.Len(t, template.Segments, 5)
	assert.Equal(t, types.Segment{Kind: types.SegmentText, Text: "Dear ", Position: 0}, template.Segments[0])
	assert.Equal(t, types.Segment{Kind: types.SegmentPlaceholder, Name: "Name", Position: 5}, template.Segments[1])
	assert.Equal(t, ".", template.Segments[4].Text)
}

func TestParseText_MultipleLines(t *testing.T) {
	template, err := ParseText("multi", "Hello {{Name}}\nBye {{Name}}")
	require.NoError(t, err)

	kinds := []types.SegmentKind{}
	for _, segment := range template.Segments {
		kinds = append(kinds, segment.Kind)
	}
	assert.Equal(t, []types.SegmentKind{
		types.SegmentText, types.SegmentPlaceholder, types.SegmentParagraph, types.SegmentText, types.SegmentPlaceholder,
	}, kinds)
	assert.Equal(t, 19, template.Segments[4].Position)
	assert.Equal(t, []string{"Name"}, template.Placeholders())
}

func TestParseText_Unterminated(t *testing.T) {
	_, err := ParseText("broken", "Dear {{Name, hello")

	var parseErr *types.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 5, parseErr.Position)
	assert.Equal(t, "unterminated placeholder", parseErr.Message)
}

func TestParseText_UnterminatedBeforeNextPlaceholder(t *testing.T) {
	_, err := ParseText("broken", "{{First {{Last}}")

	var parseErr *types.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 0, parseErr.Position)
}

func TestParseText_EmptyPlaceholder(t *testing.T) {
	_, err := ParseText("empty", "Hello {{  }}")

	var parseErr *types.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "empty placeholder", parseErr.Message)
}

func TestParseText_EscapedDelimiter(t *testing.T) {
	template, err := ParseText("escaped", `Use \{{Name}} to insert {{Name}}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name"}, template.Placeholders())
	assert.Equal(t, "Use {{Name}} to insert ", template.Segments[0].Text)
}

func TestParseText_NoPlaceholders(t *testing.T) {
	template, err := ParseText("plain", "Nothing to merge here } {")
	require.NoError(t, err)

	assert.Empty(t, template.Placeholders())
	require.Len(t, template.Segments, 1)
	assert.Equal(t, "Nothing to merge here } {", template.Segments[0].Text)
}

func TestTemplateClient_Load(t *testing.T) {
	folder := t.TempDir()
	path := filepath.Join(folder, "grades.txt")
	require.NoError(t, os.WriteFile(path, []byte("Dear {{Name}}"), 0644))

	client := NewTemplateClient(time.Second, logrus.New())
	template, err := client.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "grades", template.Name)
	assert.Equal(t, []string{"Name"}, template.Placeholders())
}

func TestTemplateClient_Load_MissingFile(t *testing.T) {
	client := NewTemplateClient(time.Second, logrus.New())
	_, err := client.Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))

	var ioErr *types.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestTemplateName(t *testing.T) {
	assert.Equal(t, "letter", TemplateName("/tmp/templates/letter.docx"))
	assert.Equal(t, "report.final", TemplateName("report.final.txt"))
}

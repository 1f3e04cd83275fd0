package templateparser

import (
	"archive/zip"
	"bytes"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/edumerge/mail-merge/types"
)

const MainDocumentPart = "word/document.xml"

var (
	textElementRegex  = regexp.MustCompile(`(?s)(<w:t(?:\s[^>]*)?>)(.*?)(</w:t>)`)
	runPropsRegex     = regexp.MustCompile(`(?s)<w:rPr>(.*?)</w:rPr>`)
	boldRegex         = regexp.MustCompile(`<w:b(\s+w:val="([^"]*)")?\s*/>`)
	italicRegex       = regexp.MustCompile(`<w:i(\s+w:val="([^"]*)")?\s*/>`)
	underlineRegex    = regexp.MustCompile(`<w:u\s+w:val="([^"]*)"`)
	fontRegex         = regexp.MustCompile(`<w:rFonts[^>]*\sw:ascii="([^"]*)"`)
	sizeRegex         = regexp.MustCompile(`<w:sz\s+w:val="(\d+)"`)
	paragraphEndRegex = regexp.MustCompile(`</w:p>|<w:p(?:\s[^>]*)?/>`)
)

// textNode is one <w:t> element of the main document.
type textNode struct {
	start     int // start of the opening tag
	end       int // end of the closing tag
	openTag   string
	text      string
	paragraph int
	style     types.Style
}

// ParseDocx parses a Word document package. Placeholders may only appear in the text
// of word/document.xml; a placeholder split over several runs of one paragraph is moved
// into the run where it starts.
func ParseDocx(name string, content []byte) (*types.Template, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, types.NewParseError("not a valid DOCX package: "+err.Error(), "", 0)
	}

	template := &types.Template{
		Name:   name,
		Source: types.SourceKindDocx,
		Parts:  map[string][]byte{},
	}

	var documentXML string
	for _, file := range zipReader.File {
		partContent, err := readPart(file)
		if err != nil {
			return nil, types.NewParseError("unreadable DOCX part "+file.Name+": "+err.Error(), "", 0)
		}
		template.PartOrder = append(template.PartOrder, file.Name)
		if file.Name == MainDocumentPart {
			documentXML = string(partContent)
			continue
		}
		template.Parts[file.Name] = partContent
	}
	if documentXML == "" {
		return nil, types.NewParseError("mandatory [ "+MainDocumentPart+" ] not found", "", 0)
	}

	nodes := collectTextNodes(documentXML)
	if err := joinSplitPlaceholders(nodes); err != nil {
		return nil, err
	}

	segments, err := buildSegments(documentXML, nodes)
	if err != nil {
		return nil, err
	}
	template.Segments = segments

	return template, nil
}

func readPart(file *zip.File) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func collectTextNodes(documentXML string) []*textNode {
	nodes := []*textNode{}
	paragraph := 0
	lastEnd := 0

	for _, match := range textElementRegex.FindAllStringSubmatchIndex(documentXML, -1) {
		paragraph += len(paragraphEndRegex.FindAllStringIndex(documentXML[lastEnd:match[0]], -1))
		lastEnd = match[0]

		nodes = append(nodes, &textNode{
			start:     match[0],
			end:       match[1],
			openTag:   documentXML[match[2]:match[3]],
			text:      html.UnescapeString(documentXML[match[4]:match[5]]),
			paragraph: paragraph,
			style:     runStyle(documentXML[:match[0]]),
		})
	}
	return nodes
}

// runStyle reads the run properties of the run enclosing the text element that
// starts at the end of prefix.
func runStyle(prefix string) types.Style {
	style := types.Style{}
	runStart := max(strings.LastIndex(prefix, "<w:r>"), strings.LastIndex(prefix, "<w:r "))
	if runStart < 0 {
		return style
	}
	run := prefix[runStart:]

	props := runPropsRegex.FindStringSubmatch(run)
	if props == nil {
		return style
	}

	style.Bold = toggleOn(boldRegex.FindStringSubmatch(props[1]))
	style.Italic = toggleOn(italicRegex.FindStringSubmatch(props[1]))
	if underline := underlineRegex.FindStringSubmatch(props[1]); underline != nil {
		style.Underline = underline[1] != "none"
	}
	if font := fontRegex.FindStringSubmatch(props[1]); font != nil {
		style.Font = font[1]
	}
	if size := sizeRegex.FindStringSubmatch(props[1]); size != nil {
		halfPoints, err := strconv.Atoi(size[1])
		if err == nil {
			style.Size = float64(halfPoints) / 2
		}
	}
	return style
}

func toggleOn(match []string) bool {
	if match == nil {
		return false
	}
	switch match[2] {
	case "", "1", "true", "on":
		return true
	}
	return false
}

func joinSplitPlaceholders(nodes []*textNode) error {
	for k, node := range nodes {
		for {
			next := nextTextNode(nodes, k)
			if next >= 0 && endsWithSplitEscape(node.text) && strings.HasPrefix(nodes[next].text, "{") {
				node.text += "{"
				nodes[next].text = nodes[next].text[1:]
				continue
			}

			open := openPlaceholderIndex(node.text)
			if open < 0 {
				// Word may split the opening delimiter itself: "{" then "{Name}}".
				open = trailingBraceIndex(node.text)
				if open < 0 || next < 0 || !strings.HasPrefix(nodes[next].text, "{") {
					break
				}
			} else if next < 0 {
				return types.NewParseError("unterminated placeholder", snippet(node.text[open:]), node.start)
			}

			following := nodes[next]
			combined := node.text + following.text
			closing := strings.Index(combined[open+len(openDelimiter):], closeDelimiter)
			if closing < 0 {
				node.text = combined
				following.text = ""
				continue
			}

			take := open + len(openDelimiter) + closing + len(closeDelimiter) - len(node.text)
			node.text = combined[:len(node.text)+take]
			following.text = following.text[take:]
		}
	}
	return nil
}

// nextTextNode returns the index of the next non-empty node in the same paragraph as
// nodes[k], or -1.
func nextTextNode(nodes []*textNode, k int) int {
	for next := k + 1; next < len(nodes) && nodes[next].paragraph == nodes[k].paragraph; next++ {
		if nodes[next].text != "" {
			return next
		}
	}
	return -1
}

// trailingBraceIndex returns the index of a single unescaped "{" ending text, or -1.
func trailingBraceIndex(text string) int {
	if !strings.HasSuffix(text, "{") || strings.HasSuffix(text, `\{`) || strings.HasSuffix(text, escapedDelimiter) {
		return -1
	}
	return len(text) - 1
}

// endsWithSplitEscape reports whether text ends in the first half of an escaped "\{{".
func endsWithSplitEscape(text string) bool {
	return strings.HasSuffix(text, `\{`) && !strings.HasSuffix(text, escapedDelimiter)
}

func buildSegments(documentXML string, nodes []*textNode) ([]types.Segment, error) {
	segments := []types.Segment{}
	position := 0

	for _, node := range nodes {
		segments = appendMarkup(segments, documentXML[position:node.start], position)

		textSegments, err := tokenize(node.text, node.start, node.style)
		if err != nil {
			return nil, err
		}

		openTag := node.openTag
		if hasPlaceholder(textSegments) && !strings.Contains(openTag, "xml:space") {
			openTag = `<w:t xml:space="preserve">`
		}
		segments = append(segments, types.Segment{Kind: types.SegmentMarkup, Text: openTag, Position: node.start})
		segments = append(segments, textSegments...)
		segments = append(segments, types.Segment{Kind: types.SegmentMarkup, Text: "</w:t>", Position: node.end - len("</w:t>")})

		position = node.end
	}
	segments = appendMarkup(segments, documentXML[position:], position)

	return segments, nil
}

// appendMarkup adds raw markup, emitting a paragraph boundary after every </w:p> and
// every empty <w:p/>.
func appendMarkup(segments []types.Segment, markup string, position int) []types.Segment {
	for markup != "" {
		loc := paragraphEndRegex.FindStringIndex(markup)
		if loc == nil {
			return append(segments, types.Segment{Kind: types.SegmentMarkup, Text: markup, Position: position})
		}
		end := loc[1]
		segments = append(segments,
			types.Segment{Kind: types.SegmentMarkup, Text: markup[:end], Position: position},
			types.Segment{Kind: types.SegmentParagraph, Position: position + end},
		)
		markup = markup[end:]
		position += end
	}
	return segments
}

func hasPlaceholder(segments []types.Segment) bool {
	for _, segment := range segments {
		if segment.Kind == types.SegmentPlaceholder {
			return true
		}
	}
	return false
}

package export

import "github.com/edumerge/mail-merge/types"

type TextEncoder struct{}

func (encoder *TextEncoder) Extension() string {
	return string(types.ExportFormatText)
}

func (encoder *TextEncoder) Encode(document *types.Document) ([]byte, error) {
	return []byte(document.Text()), nil
}

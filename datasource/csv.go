package datasource

import (
	"bytes"
	csvreader "encoding/csv"
	"errors"
	"io"

	"github.com/edumerge/mail-merge/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCsv(path string, content []byte, delimiter rune) ([]string, []row, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csvreader.NewReader(bytes.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, types.NewFormatError(path, 0, "missing header row", nil)
	}
	if err != nil {
		return nil, nil, types.NewFormatError(path, 0, "malformed header", err)
	}

	rows := []row{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, types.NewFormatError(path, 0, "malformed CSV", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, row{number: line, cells: record})
	}

	return header, rows, nil
}

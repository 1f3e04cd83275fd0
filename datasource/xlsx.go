package datasource

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/edumerge/mail-merge/types"
)

// readXlsx reads the named sheet, or the first sheet when sheet is empty. Trailing
// empty cells are trimmed by excelize, so shorter rows are padded to the header width.
func readXlsx(path string, content []byte, sheet string) ([]string, []row, error) {
	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, types.NewFormatError(path, 0, "not a valid spreadsheet", err)
	}
	defer file.Close()

	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, types.NewFormatError(path, 0, "spreadsheet has no sheets", nil)
		}
		sheet = sheets[0]
	}

	cells, err := file.GetRows(sheet)
	if err != nil {
		return nil, nil, types.NewFormatError(path, 0, fmt.Sprintf("cannot read sheet %q", sheet), err)
	}
	if len(cells) == 0 {
		return nil, nil, types.NewFormatError(path, 0, "missing header row", nil)
	}

	header := cells[0]
	rows := []row{}
	for i, cellRow := range cells[1:] {
		if isEmptyRow(cellRow) {
			continue
		}
		if len(cellRow) < len(header) {
			padded := make([]string, len(header))
			copy(padded, cellRow)
			cellRow = padded
		}
		rows = append(rows, row{number: i + 2, cells: cellRow})
	}

	return header, rows, nil
}

func isEmptyRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

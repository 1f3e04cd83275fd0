package datasource

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edumerge/mail-merge/fileio"
	"github.com/edumerge/mail-merge/types"
)

type IDataSourceClient interface {
	Read(ctx context.Context, path string, format types.DataSourceFormat) (*types.DataSet, error)
}

type DataSourceClient struct {
	Delimiter rune
	Sheet     string
	IOTimeout time.Duration
	Logger    *logrus.Logger
}

func NewDataSourceClient(delimiter rune, sheet string, ioTimeout time.Duration, logger *logrus.Logger) *DataSourceClient {
	return &DataSourceClient{
		Delimiter: delimiter,
		Sheet:     sheet,
		IOTimeout: ioTimeout,
		Logger:    logger,
	}
}

// Read loads the recipient list at path. An empty format is resolved from the file
// extension.
func (dataSourceClient *DataSourceClient) Read(ctx context.Context, path string, format types.DataSourceFormat) (*types.DataSet, error) {
	if format == types.DataSourceFormatAuto {
		format = FormatFromPath(path)
	}
	if !format.IsValidDataSourceFormat() {
		return nil, types.NewFormatError(path, 0, fmt.Sprintf("unsupported data source format %q", format), nil)
	}

	content, err := fileio.ReadFile(ctx, path, dataSourceClient.IOTimeout)
	if err != nil {
		return nil, err
	}

	var header []string
	var rows []row
	switch format {
	case types.DataSourceFormatXlsx:
		dataSourceClient.Logger.Debugf("Reading spreadsheet data source %s", path)
		header, rows, err = readXlsx(path, content, dataSourceClient.Sheet)
	default:
		delimiter := dataSourceClient.Delimiter
		if delimiter == 0 {
			delimiter = delimiterFromPath(path)
		}
		dataSourceClient.Logger.Debugf("Reading CSV data source %s with delimiter %q", path, delimiter)
		header, rows, err = readCsv(path, content, delimiter)
	}
	if err != nil {
		return nil, err
	}

	dataSet, err := buildDataSet(path, header, rows)
	if err != nil {
		return nil, err
	}

	dataSourceClient.Logger.Infof("Data source %s loaded with %d fields and %d recipients", path, len(dataSet.Fields), len(dataSet.Records))
	return dataSet, nil
}

// row is one data row with the 1-based line or row number it came from.
type row struct {
	number int
	cells  []string
}

func FormatFromPath(path string) types.DataSourceFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return types.DataSourceFormatXlsx
	default:
		return types.DataSourceFormatCsv
	}
}

func delimiterFromPath(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func buildDataSet(path string, header []string, rows []row) (*types.DataSet, error) {
	if len(header) == 0 {
		return nil, types.NewFormatError(path, 0, "missing header row", nil)
	}

	fields := make([]string, len(header))
	seen := map[string]bool{}
	duplicates := []string{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, types.NewSchemaError(fmt.Sprintf("empty header name in column %d", i+1))
		}
		if seen[name] {
			duplicates = append(duplicates, name)
		}
		seen[name] = true
		fields[i] = name
	}
	if len(duplicates) > 0 {
		return nil, types.NewSchemaError("duplicate header names", duplicates...)
	}

	dataSet := &types.DataSet{
		Path:    path,
		Fields:  fields,
		Records: make([]*types.RecipientRecord, 0, len(rows)),
	}
	for _, dataRow := range rows {
		if len(dataRow.cells) != len(fields) {
			return nil, types.NewFormatError(path, dataRow.number, fmt.Sprintf("expected %d columns, got %d", len(fields), len(dataRow.cells)), nil)
		}
		record := &types.RecipientRecord{
			Index:  len(dataSet.Records),
			Values: make(map[string]string, len(fields)),
		}
		for i, field := range fields {
			record.Values[field] = dataRow.cells[i]
		}
		dataSet.Records = append(dataSet.Records, record)
	}

	return dataSet, nil
}

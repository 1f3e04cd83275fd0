package types

type RecipientRecord struct {
	Index  int
	Values map[string]string
}

func (record *RecipientRecord) Get(field string) (string, bool) {
	value, ok := record.Values[field]
	return value, ok
}

// DataSet is the loaded recipient list. Fields is the schema in header order.
type DataSet struct {
	Path    string
	Fields  []string
	Records []*RecipientRecord
}

type DataSourceFormat string

const (
	DataSourceFormatAuto DataSourceFormat = ""
	DataSourceFormatCsv  DataSourceFormat = "csv"
	DataSourceFormatXlsx DataSourceFormat = "xlsx"
)

func (format DataSourceFormat) IsValidDataSourceFormat() bool {
	switch format {
	case DataSourceFormatAuto,
		DataSourceFormatCsv,
		DataSourceFormatXlsx:
		return true
	default:
		return false
	}
}

package csv

import (
	"bytes"
	"context"
	csvwriter "encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edumerge/mail-merge/fileio"
	"github.com/edumerge/mail-merge/types"
)

type IReportCsvClient interface {
	Export(report *types.MergeReport) error
}

type ReportCsvClient struct {
	FilePath  string
	IOTimeout time.Duration
	ReportCsv *ReportCsv
	Logger    *logrus.Logger
}

type ReportCsv struct {
	Header []string
	Rows   []*ReportCsvRow
}

func NewReportCsvClient(filePath string, ioTimeout time.Duration, logger *logrus.Logger) *ReportCsvClient {
	return &ReportCsvClient{
		FilePath:  filePath,
		IOTimeout: ioTimeout,
		ReportCsv: &ReportCsv{Header: []string{"Recipient Index", "Status", "Output Path", "Bytes", "Unmatched", "Reason"}},
		Logger:    logger,
	}
}

func (csv *ReportCsv) AddRow(row *ReportCsvRow) {
	csv.Rows = append(csv.Rows, row)
}

type ReportCsvRow struct {
	RecipientIndex int
	Status         types.ResultStatus
	OutputPath     string
	BytesWritten   int64
	Unmatched      []string
	Reason         string
}

// Export writes one row per report entry, in recipient order. Indexes are written
// 1-based to match the output file names.
func (csvClient *ReportCsvClient) Export(report *types.MergeReport) error {
	csvClient.ReportCsv.Rows = nil
	for _, entry := range report.Entries {
		csvClient.ReportCsv.AddRow(&ReportCsvRow{
			RecipientIndex: entry.RecipientIndex,
			Status:         entry.Status,
			OutputPath:     entry.OutputPath,
			BytesWritten:   entry.BytesWritten,
			Unmatched:      entry.Unmatched,
			Reason:         entry.Reason,
		})
	}

	return csvClient.writeCsv()
}

func (csvClient *ReportCsvClient) writeCsv() error {
	csvData := [][]string{csvClient.ReportCsv.Header}
	for _, row := range csvClient.ReportCsv.Rows {
		csvData = append(csvData, []string{
			strconv.Itoa(row.RecipientIndex + 1),
			string(row.Status),
			row.OutputPath,
			strconv.FormatInt(row.BytesWritten, 10),
			strings.Join(row.Unmatched, ";"),
			row.Reason,
		})
	}

	buffer := new(bytes.Buffer)
	csvWriter := csvwriter.NewWriter(buffer)
	if err := csvWriter.WriteAll(csvData); err != nil {
		return err
	}
	if err := fileio.WriteFile(context.Background(), csvClient.FilePath, buffer.Bytes(), csvClient.IOTimeout); err != nil {
		return err
	}
	csvClient.Logger.Infof("Merge report written to %s", csvClient.FilePath)
	return nil
}

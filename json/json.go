package json

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edumerge/mail-merge/fileio"
	"github.com/edumerge/mail-merge/types"
)

type IJsonClient interface {
	Export(report *types.MergeReport, fileName string) error
	Import(fileName string) (*types.MergeReport, error)
}

type JsonClient struct {
	WorkingFolderPath string
	IOTimeout         time.Duration
	Logger            *logrus.Logger
}

func NewJsonClient(workingFolderPath string, ioTimeout time.Duration, logger *logrus.Logger) *JsonClient {
	return &JsonClient{
		WorkingFolderPath: workingFolderPath,
		IOTimeout:         ioTimeout,
		Logger:            logger,
	}
}

func (jsonClient *JsonClient) Export(report *types.MergeReport, fileName string) error {
	jsonReport, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	jsonFilePath := filepath.Join(jsonClient.WorkingFolderPath, fileName)
	if err := fileio.WriteFile(context.Background(), jsonFilePath, jsonReport, jsonClient.IOTimeout); err != nil {
		return err
	}
	jsonClient.Logger.Infof("Merge report written to %s", jsonFilePath)
	return nil
}

func (jsonClient *JsonClient) Import(fileName string) (*types.MergeReport, error) {
	jsonFilePath := filepath.Join(jsonClient.WorkingFolderPath, fileName)

	content, err := fileio.ReadFile(context.Background(), jsonFilePath, jsonClient.IOTimeout)
	if err != nil {
		return nil, err
	}

	var report types.MergeReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, types.NewFormatError(jsonFilePath, 0, "invalid merge report", err)
	}
	return &report, nil
}

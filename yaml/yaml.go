package yaml

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/edumerge/mail-merge/fileio"
	"github.com/edumerge/mail-merge/types"
)

type IYamlClient interface {
	Export(report *types.MergeReport, fileName string) error
	Import(fileName string) (*types.MergeReport, error)
}

type YamlClient struct {
	WorkingFolderPath string
	IOTimeout         time.Duration
	Logger            *logrus.Logger
}

func NewYamlClient(workingFolderPath string, ioTimeout time.Duration, logger *logrus.Logger) *YamlClient {
	return &YamlClient{
		WorkingFolderPath: workingFolderPath,
		IOTimeout:         ioTimeout,
		Logger:            logger,
	}
}

func (yamlClient *YamlClient) Export(report *types.MergeReport, fileName string) error {
	yamlReport, err := yamlv3.Marshal(report)
	if err != nil {
		return err
	}
	yamlFilePath := filepath.Join(yamlClient.WorkingFolderPath, fileName)
	if err := fileio.WriteFile(context.Background(), yamlFilePath, yamlReport, yamlClient.IOTimeout); err != nil {
		return err
	}
	yamlClient.Logger.Infof("Merge report written to %s", yamlFilePath)
	return nil
}

func (yamlClient *YamlClient) Import(fileName string) (*types.MergeReport, error) {
	yamlFilePath := filepath.Join(yamlClient.WorkingFolderPath, fileName)

	content, err := fileio.ReadFile(context.Background(), yamlFilePath, yamlClient.IOTimeout)
	if err != nil {
		return nil, err
	}

	var report types.MergeReport
	if err := yamlv3.Unmarshal(content, &report); err != nil {
		return nil, types.NewFormatError(yamlFilePath, 0, "invalid merge report", err)
	}
	return &report, nil
}

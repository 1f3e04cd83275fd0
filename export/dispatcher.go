package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edumerge/mail-merge/fileio"
	"github.com/edumerge/mail-merge/types"
)

// Encoder turns a rendered document into the bytes of one output format.
type Encoder interface {
	Extension() string
	Encode(document *types.Document) ([]byte, error)
}

type IExportClient interface {
	Export(ctx context.Context, document *types.Document, format types.ExportFormat, recipientIndex int, recipientCount int) (string, int64, error)
}

type ExportClient struct {
	OutputPath string
	OnExisting types.ExistingFilePolicy
	IOTimeout  time.Duration
	Encoders   map[types.ExportFormat]Encoder
	Logger     *logrus.Logger
}

func NewExportClient(outputPath string, onExisting types.ExistingFilePolicy, ioTimeout time.Duration, logger *logrus.Logger) *ExportClient {
	if onExisting == "" {
		onExisting = types.ExistingFileSuffix
	}
	return &ExportClient{
		OutputPath: outputPath,
		OnExisting: onExisting,
		IOTimeout:  ioTimeout,
		Encoders: map[types.ExportFormat]Encoder{
			types.ExportFormatDocx: &DocxEncoder{},
			types.ExportFormatPdf:  NewPdfEncoder(),
			types.ExportFormatText: &TextEncoder{},
		},
		Logger: logger,
	}
}

// Register adds or replaces the encoder used for format.
func (exportClient *ExportClient) Register(format types.ExportFormat, encoder Encoder) {
	exportClient.Encoders[format] = encoder
}

// Export encodes document and writes it to OutputName. Every failure is returned as
// an ExportError.
func (exportClient *ExportClient) Export(ctx context.Context, document *types.Document, format types.ExportFormat, recipientIndex int, recipientCount int) (string, int64, error) {
	encoder, ok := exportClient.Encoders[format]
	if !ok {
		return "", 0, types.NewExportError(format, "", recipientIndex, fmt.Errorf("no encoder registered for format %q", format))
	}

	filePath := filepath.Join(exportClient.OutputPath, OutputName(document.Name, recipientIndex, recipientCount, encoder.Extension()))
	filePath, err := exportClient.availablePath(filePath)
	if err != nil {
		return "", 0, types.NewExportError(format, filePath, recipientIndex, err)
	}

	content, err := encoder.Encode(document)
	if err != nil {
		return "", 0, types.NewExportError(format, filePath, recipientIndex, err)
	}

	if err := fileio.WriteFile(ctx, filePath, content, exportClient.IOTimeout); err != nil {
		return "", 0, types.NewExportError(format, filePath, recipientIndex, err)
	}

	exportClient.Logger.Debugf("Recipient %d exported to %s (%d bytes)", recipientIndex, filePath, len(content))
	return filePath, int64(len(content)), nil
}

// availablePath applies the existing file policy to filePath. With the suffix policy
// the first free "name(n).ext" is used.
func (exportClient *ExportClient) availablePath(filePath string) (string, error) {
	if !fileio.Exists(filePath) {
		return filePath, nil
	}

	switch exportClient.OnExisting {
	case types.ExistingFileOverwrite:
		exportClient.Logger.Debugf("Overwriting existing file %s", filePath)
		return filePath, nil
	case types.ExistingFileRefuse:
		return filePath, fmt.Errorf("output file already exists: %w", os.ErrExist)
	}

	extension := filepath.Ext(filePath)
	stem := strings.TrimSuffix(filePath, extension)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", stem, n, extension)
		if !fileio.Exists(candidate) {
			exportClient.Logger.Debugf("File %s already exists, writing %s instead", filePath, candidate)
			return candidate, nil
		}
	}
}

// OutputName builds <template-name>_<index>.<ext> with a 1-based index zero-padded to
// the width of recipientCount, so names are unique and sort in recipient order.
func OutputName(templateName string, recipientIndex int, recipientCount int, extension string) string {
	width := len(strconv.Itoa(recipientCount))
	return fmt.Sprintf("%s_%0*d.%s", templateName, width, recipientIndex+1, extension)
}

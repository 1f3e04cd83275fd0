package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/sirupsen/logrus"
	"github.com/zclconf/go-cty/cty"

	"github.com/edumerge/mail-merge/fileio"
	"github.com/edumerge/mail-merge/types"
)

type IHclClient interface {
	LoadJob(ctx context.Context, path string) (*types.MergeJob, error)
	WriteJob(job types.MergeJob, path string) error
}

type HclClient struct {
	IOTimeout time.Duration
	Logger    *logrus.Logger
}

func NewHclClient(ioTimeout time.Duration, logger *logrus.Logger) *HclClient {
	return &HclClient{
		IOTimeout: ioTimeout,
		Logger:    logger,
	}
}

// JobFile is the HCL form of a merge job:
//
//	template = "grades.docx"
//	data {
//	  path  = "students.xlsx"
//	  sheet = "Term 1"
//	}
//	output {
//	  path   = "out"
//	  format = "pdf"
//	}
//	options {
//	  workers      = 4
//	  io_timeout   = "30s"
//	  on_unmatched = "empty"
//	  on_existing  = "suffix"
//	}
type JobFile struct {
	Template string         `hcl:"template"`
	Data     JobFileData    `hcl:"data,block"`
	Output   JobFileOutput  `hcl:"output,block"`
	Options  *JobFileOption `hcl:"options,block"`
}

type JobFileData struct {
	Path      string `hcl:"path"`
	Format    string `hcl:"format,optional"`
	Sheet     string `hcl:"sheet,optional"`
	Delimiter string `hcl:"delimiter,optional"`
}

type JobFileOutput struct {
	Path   string `hcl:"path"`
	Format string `hcl:"format"`
}

type JobFileOption struct {
	Workers     int    `hcl:"workers,optional"`
	IOTimeout   string `hcl:"io_timeout,optional"`
	OnUnmatched string `hcl:"on_unmatched,optional"`
	OnExisting  string `hcl:"on_existing,optional"`
	StrictCase  bool   `hcl:"strict_case,optional"`
}

// LoadJob decodes a job file. Relative paths inside the file are resolved against the
// folder holding it.
func (hclClient *HclClient) LoadJob(ctx context.Context, path string) (*types.MergeJob, error) {
	content, err := fileio.ReadFile(ctx, path, hclClient.IOTimeout)
	if err != nil {
		return nil, err
	}

	var jobFile JobFile
	if err := hclsimple.Decode(filepath.Base(path), content, nil, &jobFile); err != nil {
		return nil, types.NewFormatError(path, 0, "invalid job file", err)
	}

	job, err := jobFile.toMergeJob(filepath.Dir(path))
	if err != nil {
		return nil, types.NewFormatError(path, 0, err.Error(), nil)
	}

	hclClient.Logger.Infof("Job file %s loaded", path)
	return job, nil
}

func (jobFile *JobFile) toMergeJob(folder string) (*types.MergeJob, error) {
	job := &types.MergeJob{
		TemplatePath: resolve(folder, jobFile.Template),
		DataPath:     resolve(folder, jobFile.Data.Path),
		DataFormat:   types.DataSourceFormat(jobFile.Data.Format),
		Sheet:        jobFile.Data.Sheet,
		Format:       types.ExportFormat(jobFile.Output.Format),
		OutputPath:   resolve(folder, jobFile.Output.Path),
		Workers:      1,
		OnUnmatched:  types.UnmatchedPolicyEmpty,
		OnExisting:   types.ExistingFileSuffix,
	}

	if !job.DataFormat.IsValidDataSourceFormat() {
		return nil, fmt.Errorf("unsupported data format %q", jobFile.Data.Format)
	}
	if !job.Format.IsValidExportFormat() {
		return nil, fmt.Errorf("unsupported output format %q", jobFile.Output.Format)
	}
	if jobFile.Data.Delimiter != "" {
		delimiter, size := utf8.DecodeRuneInString(jobFile.Data.Delimiter)
		if size != len(jobFile.Data.Delimiter) {
			return nil, fmt.Errorf("delimiter %q must be a single character", jobFile.Data.Delimiter)
		}
		job.Delimiter = delimiter
	}

	if jobFile.Options == nil {
		return job, nil
	}
	if jobFile.Options.Workers > 0 {
		job.Workers = jobFile.Options.Workers
	}
	if jobFile.Options.IOTimeout != "" {
		timeout, err := time.ParseDuration(jobFile.Options.IOTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid io_timeout %q: %v", jobFile.Options.IOTimeout, err)
		}
		job.IOTimeout = timeout
	}
	if jobFile.Options.OnUnmatched != "" {
		job.OnUnmatched = types.UnmatchedPolicy(jobFile.Options.OnUnmatched)
		if !job.OnUnmatched.IsValidUnmatchedPolicy() {
			return nil, fmt.Errorf("unsupported on_unmatched policy %q", jobFile.Options.OnUnmatched)
		}
	}
	if jobFile.Options.OnExisting != "" {
		job.OnExisting = types.ExistingFilePolicy(jobFile.Options.OnExisting)
		if !job.OnExisting.IsValidExistingFilePolicy() {
			return nil, fmt.Errorf("unsupported on_existing policy %q", jobFile.Options.OnExisting)
		}
	}
	job.StrictFieldCase = jobFile.Options.StrictCase
	return job, nil
}

func resolve(folder string, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(folder, path)
}

// WriteJob writes job as an HCL job file that LoadJob can read back.
func (hclClient *HclClient) WriteJob(job types.MergeJob, path string) error {
	hclFile := hclwrite.NewEmptyFile()
	body := hclFile.Body()

	body.SetAttributeValue("template", cty.StringVal(job.TemplatePath))
	body.AppendNewline()

	dataBlock := body.AppendNewBlock("data", nil)
	dataBlock.Body().SetAttributeValue("path", cty.StringVal(job.DataPath))
	if job.DataFormat != types.DataSourceFormatAuto {
		dataBlock.Body().SetAttributeValue("format", cty.StringVal(string(job.DataFormat)))
	}
	if job.Sheet != "" {
		dataBlock.Body().SetAttributeValue("sheet", cty.StringVal(job.Sheet))
	}
	if job.Delimiter != 0 {
		dataBlock.Body().SetAttributeValue("delimiter", cty.StringVal(string(job.Delimiter)))
	}
	body.AppendNewline()

	outputBlock := body.AppendNewBlock("output", nil)
	outputBlock.Body().SetAttributeValue("path", cty.StringVal(job.OutputPath))
	outputBlock.Body().SetAttributeValue("format", cty.StringVal(string(job.Format)))
	body.AppendNewline()

	optionsBlock := body.AppendNewBlock("options", nil)
	workers := job.Workers
	if workers < 1 {
		workers = 1
	}
	optionsBlock.Body().SetAttributeValue("workers", cty.NumberIntVal(int64(workers)))
	if job.IOTimeout > 0 {
		optionsBlock.Body().SetAttributeValue("io_timeout", cty.StringVal(job.IOTimeout.String()))
	}
	onUnmatched := job.OnUnmatched
	if onUnmatched == "" {
		onUnmatched = types.UnmatchedPolicyEmpty
	}
	optionsBlock.Body().SetAttributeValue("on_unmatched", cty.StringVal(string(onUnmatched)))
	onExisting := job.OnExisting
	if onExisting == "" {
		onExisting = types.ExistingFileSuffix
	}
	optionsBlock.Body().SetAttributeValue("on_existing", cty.StringVal(string(onExisting)))
	optionsBlock.Body().SetAttributeValue("strict_case", cty.BoolVal(job.StrictFieldCase))

	if _, err := os.Stat(path); err == nil {
		hclClient.Logger.Debugf("File %s already exists, it will be overwritten", path)
	}
	if err := fileio.WriteFile(context.Background(), path, hclFile.Bytes(), hclClient.IOTimeout); err != nil {
		return err
	}

	hclClient.Logger.Infof("Job file written to: %s", path)
	return nil
}

package types

import "time"

type ExportFormat string

const (
	ExportFormatDocx ExportFormat = "docx"
	ExportFormatPdf  ExportFormat = "pdf"
	ExportFormatText ExportFormat = "txt"
)

func (format ExportFormat) IsValidExportFormat() bool {
	switch format {
	case ExportFormatDocx,
		ExportFormatPdf,
		ExportFormatText:
		return true
	default:
		return false
	}
}

type UnmatchedPolicy string

const (
	UnmatchedPolicyEmpty UnmatchedPolicy = "empty"
	UnmatchedPolicyAbort UnmatchedPolicy = "abort"
)

func (policy UnmatchedPolicy) IsValidUnmatchedPolicy() bool {
	switch policy {
	case UnmatchedPolicyEmpty,
		UnmatchedPolicyAbort:
		return true
	default:
		return false
	}
}

// ExistingFilePolicy decides what happens when an output file is already on disk.
type ExistingFilePolicy string

const (
	ExistingFileSuffix    ExistingFilePolicy = "suffix"
	ExistingFileRefuse    ExistingFilePolicy = "refuse"
	ExistingFileOverwrite ExistingFilePolicy = "overwrite"
)

func (policy ExistingFilePolicy) IsValidExistingFilePolicy() bool {
	switch policy {
	case ExistingFileSuffix,
		ExistingFileRefuse,
		ExistingFileOverwrite:
		return true
	default:
		return false
	}
}

type JobState string

const (
	JobStateIdle      JobState = "Idle"
	JobStateLoading   JobState = "Loading"
	JobStateRendering JobState = "Rendering"
	JobStateExporting JobState = "Exporting"
	JobStateDone      JobState = "Done"
	JobStateFailed    JobState = "Failed"
)

// MergeJob describes one execution of a template against a recipient list.
type MergeJob struct {
	TemplatePath    string
	DataPath        string
	DataFormat      DataSourceFormat
	Sheet           string
	Delimiter       rune
	Format          ExportFormat
	OutputPath      string
	Workers         int
	IOTimeout       time.Duration
	OnUnmatched     UnmatchedPolicy
	OnExisting      ExistingFilePolicy
	StrictFieldCase bool
}

// LoadedJob is a job whose template and data source have been loaded and bound.
type LoadedJob struct {
	Job       MergeJob
	Template  *Template
	DataSet   *DataSet
	Binding   *Binding
	Unmatched []string
}

// Binding maps template placeholders onto data source fields.
type Binding struct {
	Resolved  map[string]string
	Unmatched []string
}

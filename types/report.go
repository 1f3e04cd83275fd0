package types

import "time"

type ResultStatus string

const (
	ResultStatusSuccess   ResultStatus = "success"
	ResultStatusFailed    ResultStatus = "failed"
	ResultStatusCancelled ResultStatus = "cancelled"
)

type RenderResult struct {
	RecipientIndex int          `json:"recipientIndex" yaml:"recipientIndex"`
	Status         ResultStatus `json:"status" yaml:"status"`
	OutputPath     string       `json:"outputPath,omitempty" yaml:"outputPath,omitempty"`
	BytesWritten   int64        `json:"bytesWritten" yaml:"bytesWritten"`
	Unmatched      []string     `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	Reason         string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Err            error        `json:"-" yaml:"-"`
}

type MergeReport struct {
	RunID        string         `json:"runId" yaml:"runId"`
	TemplatePath string         `json:"templatePath" yaml:"templatePath"`
	DataPath     string         `json:"dataPath" yaml:"dataPath"`
	Format       ExportFormat   `json:"format" yaml:"format"`
	OutputPath   string         `json:"outputPath" yaml:"outputPath"`
	StartedAt    time.Time      `json:"startedAt" yaml:"startedAt"`
	FinishedAt   time.Time      `json:"finishedAt" yaml:"finishedAt"`
	Entries      []RenderResult `json:"entries" yaml:"entries"`
}

type ReportCounts struct {
	Success   int `json:"success" yaml:"success"`
	Failed    int `json:"failed" yaml:"failed"`
	Cancelled int `json:"cancelled" yaml:"cancelled"`
}

func (report *MergeReport) Counts() ReportCounts {
	counts := ReportCounts{}
	for _, entry := range report.Entries {
		switch entry.Status {
		case ResultStatusSuccess:
			counts.Success++
		case ResultStatusFailed:
			counts.Failed++
		case ResultStatusCancelled:
			counts.Cancelled++
		}
	}
	return counts
}

func (report *MergeReport) Failures() []RenderResult {
	failures := []RenderResult{}
	for _, entry := range report.Entries {
		if entry.Status == ResultStatusFailed {
			failures = append(failures, entry)
		}
	}
	return failures
}

package merge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/edumerge/mail-merge/binder"
	"github.com/edumerge/mail-merge/datasource"
	"github.com/edumerge/mail-merge/export"
	"github.com/edumerge/mail-merge/render"
	"github.com/edumerge/mail-merge/templateparser"
	"github.com/edumerge/mail-merge/types"
)

const cancelledReason = "merge cancelled before this recipient was processed"

type MergeClient struct {
	Job              types.MergeJob
	TemplateClient   templateparser.ITemplateClient
	DataSourceClient datasource.IDataSourceClient
	BinderClient     binder.IBinderClient
	RenderEngine     render.IRenderEngine
	ExportClient     export.IExportClient
	Logger           *logrus.Logger

	mutex  sync.Mutex
	state  types.JobState
	loaded *types.LoadedJob
}

func NewMergeClient(job types.MergeJob, templateClient templateparser.ITemplateClient, dataSourceClient datasource.IDataSourceClient, binderClient binder.IBinderClient, renderEngine render.IRenderEngine, exportClient export.IExportClient, logger *logrus.Logger) *MergeClient {
	return &MergeClient{
		Job:              job,
		TemplateClient:   templateClient,
		DataSourceClient: dataSourceClient,
		BinderClient:     binderClient,
		RenderEngine:     renderEngine,
		ExportClient:     exportClient,
		Logger:           logger,
		state:            types.JobStateIdle,
	}
}

func (mergeClient *MergeClient) State() types.JobState {
	mergeClient.mutex.Lock()
	defer mergeClient.mutex.Unlock()
	if mergeClient.state == "" {
		return types.JobStateIdle
	}
	return mergeClient.state
}

func (mergeClient *MergeClient) setState(state types.JobState) {
	mergeClient.mutex.Lock()
	defer mergeClient.mutex.Unlock()
	if mergeClient.state == state {
		return
	}
	mergeClient.Logger.Debugf("Merge job state %s -> %s", mergeClient.state, state)
	mergeClient.state = state
}

// advanceState moves from one state to the next only if the job is still in from.
func (mergeClient *MergeClient) advanceState(from types.JobState, to types.JobState) {
	mergeClient.mutex.Lock()
	defer mergeClient.mutex.Unlock()
	if mergeClient.state != from {
		return
	}
	mergeClient.Logger.Debugf("Merge job state %s -> %s", from, to)
	mergeClient.state = to
}

// Load parses the template, reads the data source and binds the placeholders. Any
// error is fatal for the job, which then ends in the Failed state.
func (mergeClient *MergeClient) Load(ctx context.Context) (*types.LoadedJob, error) {
	mergeClient.setState(types.JobStateLoading)

	template, err := mergeClient.TemplateClient.Load(ctx, mergeClient.Job.TemplatePath)
	if err != nil {
		return nil, mergeClient.fail("Error loading template", err)
	}

	if len(template.Placeholders()) == 0 {
		if mergeClient.Job.OnUnmatched == types.UnmatchedPolicyAbort {
			return nil, mergeClient.fail("Error loading template", types.NewSchemaError("template "+template.Name+" has no placeholders"))
		}
		mergeClient.Logger.Warnf("Template %s has no placeholders, every recipient gets the same document", template.Name)
	}

	dataSet, err := mergeClient.DataSourceClient.Read(ctx, mergeClient.Job.DataPath, mergeClient.Job.DataFormat)
	if err != nil {
		return nil, mergeClient.fail("Error loading data source", err)
	}

	binding := mergeClient.BinderClient.Bind(template, dataSet.Fields)
	if len(binding.Unmatched) > 0 {
		if mergeClient.Job.OnUnmatched == types.UnmatchedPolicyAbort {
			return nil, mergeClient.fail("Error binding fields", types.NewSchemaError("template placeholders missing from data source", binding.Unmatched...))
		}
		mergeClient.Logger.Warnf("Found %d placeholders without a matching field, they will render empty: %v", len(binding.Unmatched), binding.Unmatched)
	}

	loaded := &types.LoadedJob{
		Job:       mergeClient.Job,
		Template:  template,
		DataSet:   dataSet,
		Binding:   binding,
		Unmatched: binding.Unmatched,
	}
	mergeClient.mutex.Lock()
	mergeClient.loaded = loaded
	mergeClient.mutex.Unlock()

	return loaded, nil
}

func (mergeClient *MergeClient) fail(message string, err error) error {
	mergeClient.Logger.Errorf("%s: %v", message, err)
	mergeClient.setState(types.JobStateFailed)
	return err
}

// Run loads the job if needed and processes every recipient once. Only loading errors
// are returned; per-recipient failures and cancellations are recorded in the report,
// which always holds one entry per recipient in recipient order.
func (mergeClient *MergeClient) Run(ctx context.Context) (*types.MergeReport, error) {
	report := &types.MergeReport{
		RunID:        uuid.NewString(),
		TemplatePath: mergeClient.Job.TemplatePath,
		DataPath:     mergeClient.Job.DataPath,
		Format:       mergeClient.Job.Format,
		OutputPath:   mergeClient.Job.OutputPath,
		StartedAt:    time.Now(),
	}

	mergeClient.mutex.Lock()
	loaded := mergeClient.loaded
	mergeClient.mutex.Unlock()
	if loaded == nil {
		var err error
		if loaded, err = mergeClient.Load(ctx); err != nil {
			return nil, err
		}
	}

	records := loaded.DataSet.Records
	report.Entries = make([]types.RenderResult, len(records))
	for i := range report.Entries {
		report.Entries[i] = types.RenderResult{
			RecipientIndex: i,
			Status:         types.ResultStatusCancelled,
			Reason:         cancelledReason,
		}
	}

	mergeClient.setState(types.JobStateRendering)
	mergeClient.Logger.Infof("Merging %d recipients into %s documents with %d workers", len(records), mergeClient.Job.Format, mergeClient.workers())

	if mergeClient.workers() == 1 {
		for i, record := range records {
			if ctx.Err() != nil {
				break
			}
			report.Entries[i] = mergeClient.process(ctx, loaded, i, record, len(records))
		}
	} else {
		var group errgroup.Group
		group.SetLimit(mergeClient.workers())
		for i, record := range records {
			if ctx.Err() != nil {
				break
			}
			i, record := i, record
			group.Go(func() error {
				report.Entries[i] = mergeClient.process(ctx, loaded, i, record, len(records))
				return nil
			})
		}
		group.Wait()
	}

	report.FinishedAt = time.Now()
	mergeClient.setState(types.JobStateDone)
	mergeClient.logSummary(report)

	return report, nil
}

// process renders and exports one recipient. An export that has started is allowed to
// finish even if ctx is cancelled meanwhile.
func (mergeClient *MergeClient) process(ctx context.Context, loaded *types.LoadedJob, index int, record *types.RecipientRecord, recipientCount int) types.RenderResult {
	if ctx.Err() != nil {
		return types.RenderResult{RecipientIndex: index, Status: types.ResultStatusCancelled, Reason: cancelledReason}
	}

	document, unmatched := mergeClient.RenderEngine.Render(loaded.Template, loaded.Binding, record)
	result := types.RenderResult{
		RecipientIndex: index,
		Unmatched:      unmatched,
	}

	mergeClient.advanceState(types.JobStateRendering, types.JobStateExporting)
	outputPath, bytesWritten, err := mergeClient.ExportClient.Export(context.WithoutCancel(ctx), document, loaded.Job.Format, index, recipientCount)
	if err != nil {
		mergeClient.Logger.Warnf("Recipient %d failed: %v", index, err)
		result.Status = types.ResultStatusFailed
		result.Reason = err.Error()
		result.Err = err
		return result
	}

	result.Status = types.ResultStatusSuccess
	result.OutputPath = outputPath
	result.BytesWritten = bytesWritten
	return result
}

func (mergeClient *MergeClient) workers() int {
	if mergeClient.Job.Workers < 1 {
		return 1
	}
	return mergeClient.Job.Workers
}

func (mergeClient *MergeClient) logSummary(report *types.MergeReport) {
	counts := report.Counts()
	entry := mergeClient.Logger.WithFields(logrus.Fields{
		"runId":     report.RunID,
		"success":   counts.Success,
		"failed":    counts.Failed,
		"cancelled": counts.Cancelled,
	})
	if counts.Failed > 0 || counts.Cancelled > 0 {
		entry.Warnf("Merge finished with %d of %d recipients not exported", counts.Failed+counts.Cancelled, len(report.Entries))
		return
	}
	entry.Infof("Merge finished, %d documents written to %s", counts.Success, report.OutputPath)
}

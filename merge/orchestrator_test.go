package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edumerge/mail-merge/binder"
	"github.com/edumerge/mail-merge/datasource"
	"github.com/edumerge/mail-merge/export"
	"github.com/edumerge/mail-merge/render"
	"github.com/edumerge/mail-merge/templateparser"
	"github.com/edumerge/mail-merge/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockTemplateClient struct {
	Template *types.Template
	Err      error
	Called   bool
}

func (m *mockTemplateClient) Load(ctx context.Context, path string) (*types.Template, error) {
	m.Called = true
	return m.Template, m.Err
}

type mockDataSourceClient struct {
	DataSet *types.DataSet
	Err     error
	Called  bool
}

func (m *mockDataSourceClient) Read(ctx context.Context, path string, format types.DataSourceFormat) (*types.DataSet, error) {
	m.Called = true
	return m.DataSet, m.Err
}

type mockExportClient struct {
	mutex    sync.Mutex
	Exported []int
	FailFor  map[int]bool
	OnExport func(index int)
}

func (m *mockExportClient) Export(ctx context.Context, document *types.Document, format types.ExportFormat, recipientIndex int, recipientCount int) (string, int64, error) {
	m.mutex.Lock()
	m.Exported = append(m.Exported, recipientIndex)
	m.mutex.Unlock()
	if m.OnExport != nil {
		m.OnExport(recipientIndex)
	}
	if m.FailFor[recipientIndex] {
		return "", 0, types.NewExportError(format, "out", recipientIndex, errors.New("encoder failed"))
	}
	return fmt.Sprintf("out/%s_%d.%s", document.Name, recipientIndex+1, format), int64(len(document.Text())), nil
}

func (m *mockExportClient) calls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.Exported)
}

func gradeTemplate(t *testing.T) *types.Template {
	t.Helper()
	template, err := templateparser.ParseText("grades", "Dear {{Name}}, your grade is {{Grade}}.")
	require.NoError(t, err)
	return template
}

func dataSet(count int) *types.DataSet {
	dataSet := &types.DataSet{Fields: []string{"Name", "Grade"}}
	for i := 0; i < count; i++ {
		dataSet.Records = append(dataSet.Records, &types.RecipientRecord{
			Index:  i,
			Values: map[string]string{"Name": fmt.Sprintf("Student %d", i), "Grade": "A"},
		})
	}
	return dataSet
}

func newMergeClient(job types.MergeJob, template *types.Template, data *types.DataSet, exportClient export.IExportClient) *MergeClient {
	logger := logrus.New()
	return NewMergeClient(
		job,
		&mockTemplateClient{Template: template},
		&mockDataSourceClient{DataSet: data},
		binder.NewBinderClient(false, logger),
		render.NewTextRenderEngine(logger),
		exportClient,
		logger,
	)
}

func TestMergeClient_Run_OneEntryPerRecipientInOrder(t *testing.T) {
	exportClient := &mockExportClient{}
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatText}, gradeTemplate(t), dataSet(5), exportClient)

	report, err := mergeClient.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Entries, 5)
	for i, entry := range report.Entries {
		assert.Equal(t, i, entry.RecipientIndex)
		assert.Equal(t, types.ResultStatusSuccess, entry.Status)
	}
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, types.JobStateDone, mergeClient.State())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, exportClient.Exported)
}

func TestMergeClient_Run_ExportFailureDoesNotAbort(t *testing.T) {
	exportClient := &mockExportClient{FailFor: map[int]bool{1: true}}
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatPdf}, gradeTemplate(t), dataSet(3), exportClient)

	report, err := mergeClient.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.ReportCounts{Success: 2, Failed: 1}, report.Counts())
	failed := report.Entries[1]
	assert.Equal(t, types.ResultStatusFailed, failed.Status)
	assert.Contains(t, failed.Reason, "encoder failed")
	var exportErr *types.ExportError
	assert.True(t, errors.As(failed.Err, &exportErr))
	assert.Equal(t, 3, exportClient.calls())
}

func TestMergeClient_Run_AllFailedStillReports(t *testing.T) {
	exportClient := &mockExportClient{FailFor: map[int]bool{0: true, 1: true}}
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatDocx}, gradeTemplate(t), dataSet(2), exportClient)

	report, err := mergeClient.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.ReportCounts{Failed: 2}, report.Counts())
	assert.Len(t, report.Failures(), 2)
}

func TestMergeClient_Run_UnmatchedPlaceholderIsFlagged(t *testing.T) {
	template, err := templateparser.ParseText("grades", "Dear {{Name}} {{Missing}}")
	require.NoError(t, err)
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatText, OnUnmatched: types.UnmatchedPolicyEmpty}, template, dataSet(2), &mockExportClient{})

	report, err := mergeClient.Run(context.Background())
	require.NoError(t, err)

	for _, entry := range report.Entries {
		assert.Equal(t, types.ResultStatusSuccess, entry.Status)
		assert.Equal(t, []string{"Missing"}, entry.Unmatched)
	}
}

func TestMergeClient_Run_UnmatchedAbortPolicy(t *testing.T) {
	template, err := templateparser.ParseText("grades", "Dear {{Missing}}")
	require.NoError(t, err)
	exportClient := &mockExportClient{}
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatText, OnUnmatched: types.UnmatchedPolicyAbort}, template, dataSet(2), exportClient)

	report, err := mergeClient.Run(context.Background())

	var schemaErr *types.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Missing"}, schemaErr.Fields)
	assert.Nil(t, report)
	assert.Equal(t, types.JobStateFailed, mergeClient.State())
	assert.Zero(t, exportClient.calls())
}

func TestMergeClient_Run_LoadingFailures(t *testing.T) {
	logger := logrus.New()
	exportClient := &mockExportClient{}
	dataSourceClient := &mockDataSourceClient{Err: types.NewSchemaError("duplicate header names", "Name")}
	mergeClient := NewMergeClient(
		types.MergeJob{Format: types.ExportFormatText},
		&mockTemplateClient{Template: gradeTemplate(t)},
		dataSourceClient,
		binder.NewBinderClient(false, logger),
		render.NewTextRenderEngine(logger),
		exportClient,
		logger,
	)

	report, err := mergeClient.Run(context.Background())

	var schemaErr *types.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
	assert.Nil(t, report)
	assert.True(t, dataSourceClient.Called)
	assert.Zero(t, exportClient.calls())
	assert.Equal(t, types.JobStateFailed, mergeClient.State())
}

func TestMergeClient_Run_TemplateParseFailure(t *testing.T) {
	logger := logrus.New()
	templateClient := &mockTemplateClient{Err: types.NewParseError("unterminated placeholder", "{{Name", 5)}
	dataSourceClient := &mockDataSourceClient{DataSet: dataSet(1)}
	mergeClient := NewMergeClient(types.MergeJob{}, templateClient, dataSourceClient, binder.NewBinderClient(false, logger), render.NewTextRenderEngine(logger), &mockExportClient{}, logger)

	_, err := mergeClient.Run(context.Background())

	var parseErr *types.ParseError
	assert.True(t, errors.As(err, &parseErr))
	assert.True(t, templateClient.Called)
	assert.False(t, dataSourceClient.Called)
}

func TestMergeClient_Run_CancelAfterFirstRecipient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exportClient := &mockExportClient{OnExport: func(index int) {
		if index == 0 {
			cancel()
		}
	}}
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatText}, gradeTemplate(t), dataSet(3), exportClient)

	report, err := mergeClient.Run(ctx)
	require.NoError(t, err)

	require.Len(t, report.Entries, 3)
	assert.Equal(t, types.ResultStatusSuccess, report.Entries[0].Status)
	assert.Equal(t, types.ResultStatusCancelled, report.Entries[1].Status)
	assert.Equal(t, types.ResultStatusCancelled, report.Entries[2].Status)
	assert.Equal(t, types.ReportCounts{Success: 1, Cancelled: 2}, report.Counts())
	assert.Equal(t, []int{0}, exportClient.Exported)
}

func TestMergeClient_Run_WorkerPool(t *testing.T) {
	failFor := map[int]bool{}
	for i := 1; i < 40; i += 2 {
		failFor[i] = true
	}
	exportClient := &mockExportClient{FailFor: failFor}
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatText, Workers: 4}, gradeTemplate(t), dataSet(40), exportClient)

	report, err := mergeClient.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Entries, 40)
	for i, entry := range report.Entries {
		assert.Equal(t, i, entry.RecipientIndex)
		if i%2 == 1 {
			assert.Equal(t, types.ResultStatusFailed, entry.Status)
		} else {
			assert.Equal(t, types.ResultStatusSuccess, entry.Status)
			assert.Equal(t, fmt.Sprintf("out/grades_%d.txt", i+1), entry.OutputPath)
		}
	}
	assert.Equal(t, 40, exportClient.calls())
}

func TestMergeClient_Run_WorkerPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exportClient := &mockExportClient{}
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatText, Workers: 3}, gradeTemplate(t), dataSet(6), exportClient)

	report, err := mergeClient.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, types.ReportCounts{Cancelled: 6}, report.Counts())
	assert.Zero(t, exportClient.calls())
}

func TestMergeClient_State(t *testing.T) {
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatText}, gradeTemplate(t), dataSet(1), &mockExportClient{})
	assert.Equal(t, types.JobStateIdle, mergeClient.State())

	_, err := mergeClient.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.JobStateLoading, mergeClient.State())

	_, err = mergeClient.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.JobStateDone, mergeClient.State())
}

func TestMergeClient_Run_EndToEnd(t *testing.T) {
	folder := t.TempDir()
	templatePath := filepath.Join(folder, "grades.txt")
	dataPath := filepath.Join(folder, "students.csv")
	outputPath := filepath.Join(folder, "out")
	require.NoError(t, os.WriteFile(templatePath, []byte("Dear {{Name}}, your grade is {{Grade}}."), 0644))
	require.NoError(t, os.WriteFile(dataPath, []byte("Name,Grade\nAna,A\nBo,B\n"), 0644))

	logger := logrus.New()
	job := types.MergeJob{
		TemplatePath: templatePath,
		DataPath:     dataPath,
		Format:       types.ExportFormatText,
		OutputPath:   outputPath,
		IOTimeout:    time.Second,
	}
	mergeClient := NewMergeClient(
		job,
		templateparser.NewTemplateClient(job.IOTimeout, logger),
		datasource.NewDataSourceClient(0, "", job.IOTimeout, logger),
		binder.NewBinderClient(false, logger),
		render.NewTextRenderEngine(logger),
		export.NewExportClient(outputPath, types.ExistingFileSuffix, job.IOTimeout, logger),
		logger,
	)

	report, err := mergeClient.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Entries, 2)
	first, err := os.ReadFile(report.Entries[0].OutputPath)
	require.NoError(t, err)
	second, err := os.ReadFile(report.Entries[1].OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "Dear Ana, your grade is A.", string(first))
	assert.Equal(t, "Dear Bo, your grade is B.", string(second))
	assert.NotEqual(t, report.Entries[0].OutputPath, report.Entries[1].OutputPath)
	assert.Equal(t, filepath.Join(outputPath, "grades_1.txt"), report.Entries[0].OutputPath)
}

func TestMergeClient_Run_EndToEndDuplicateHeaders(t *testing.T) {
	folder := t.TempDir()
	templatePath := filepath.Join(folder, "grades.txt")
	dataPath := filepath.Join(folder, "students.csv")
	outputPath := filepath.Join(folder, "out")
	require.NoError(t, os.WriteFile(templatePath, []byte("Dear {{Name}}"), 0644))
	require.NoError(t, os.WriteFile(dataPath, []byte("Name,Name\nAna,Bo\n"), 0644))

	logger := logrus.New()
	job := types.MergeJob{TemplatePath: templatePath, DataPath: dataPath, Format: types.ExportFormatText, OutputPath: outputPath}
	mergeClient := NewMergeClient(
		job,
		templateparser.NewTemplateClient(0, logger),
		datasource.NewDataSourceClient(0, "", 0, logger),
		binder.NewBinderClient(false, logger),
		render.NewTextRenderEngine(logger),
		export.NewExportClient(outputPath, types.ExistingFileSuffix, 0, logger),
		logger,
	)

	_, err := mergeClient.Run(context.Background())

	var schemaErr *types.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeClient_Load_TemplateWithoutPlaceholders(t *testing.T) {
	template, err := templateparser.ParseText("notice", "School is closed on Friday.")
	require.NoError(t, err)
	exportClient := &mockExportClient{}
	mergeClient := newMergeClient(types.MergeJob{Format: types.ExportFormatText, OnUnmatched: types.UnmatchedPolicyEmpty}, template, dataSet(2), exportClient)

	report, err := mergeClient.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.ReportCounts{Success: 2}, report.Counts())
	assert.Equal(t, 2, exportClient.calls())
}

func TestMergeClient_Load_TemplateWithoutPlaceholdersAborts(t *testing.T) {
	template, err := templateparser.ParseText("notice", "School is closed on Friday.")
	require.NoError(t, err)
	logger := logrus.New()
	dataSourceClient := &mockDataSourceClient{DataSet: dataSet(2)}
	exportClient := &mockExportClient{}
	mergeClient := NewMergeClient(
		types.MergeJob{Format: types.ExportFormatText, OnUnmatched: types.UnmatchedPolicyAbort},
		&mockTemplateClient{Template: template},
		dataSourceClient,
		binder.NewBinderClient(false, logger),
		render.NewTextRenderEngine(logger),
		exportClient,
		logger,
	)

	_, err = mergeClient.Run(context.Background())

	var schemaErr *types.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Message, "no placeholders")
	assert.False(t, dataSourceClient.Called)
	assert.Zero(t, exportClient.calls())
	assert.Equal(t, types.JobStateFailed, mergeClient.State())
}

func TestMergeClient_Run_EndToEndRerunKeepsEarlierFiles(t *testing.T) {
	folder := t.TempDir()
	templatePath := filepath.Join(folder, "grades.txt")
	dataPath := filepath.Join(folder, "students.csv")
	outputPath := filepath.Join(folder, "out")
	require.NoError(t, os.WriteFile(templatePath, []byte("Dear {{Name}}"), 0644))
	require.NoError(t, os.WriteFile(dataPath, []byte("Name\nAna\n"), 0644))

	run := func(onExisting types.ExistingFilePolicy) *types.MergeReport {
		logger := logrus.New()
		job := types.MergeJob{TemplatePath: templatePath, DataPath: dataPath, Format: types.ExportFormatText, OutputPath: outputPath, OnExisting: onExisting}
		mergeClient := NewMergeClient(
			job,
			templateparser.NewTemplateClient(0, logger),
			datasource.NewDataSourceClient(0, "", 0, logger),
			binder.NewBinderClient(false, logger),
			render.NewTextRenderEngine(logger),
			export.NewExportClient(outputPath, job.OnExisting, 0, logger),
			logger,
		)
		report, err := mergeClient.Run(context.Background())
		require.NoError(t, err)
		return report
	}

	first := run(types.ExistingFileSuffix)
	second := run(types.ExistingFileSuffix)
	third := run(types.ExistingFileRefuse)

	assert.Equal(t, filepath.Join(outputPath, "grades_1.txt"), first.Entries[0].OutputPath)
	assert.Equal(t, filepath.Join(outputPath, "grades_1(1).txt"), second.Entries[0].OutputPath)
	assert.Equal(t, types.ResultStatusFailed, third.Entries[0].Status)
	var exportErr *types.ExportError
	assert.True(t, errors.As(third.Entries[0].Err, &exportErr))
}

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edumerge/mail-merge/binder"
	"github.com/edumerge/mail-merge/csv"
	"github.com/edumerge/mail-merge/datasource"
	"github.com/edumerge/mail-merge/export"
	"github.com/edumerge/mail-merge/filepathparser"
	"github.com/edumerge/mail-merge/hcl"
	"github.com/edumerge/mail-merge/json"
	"github.com/edumerge/mail-merge/merge"
	"github.com/edumerge/mail-merge/render"
	"github.com/edumerge/mail-merge/templateparser"
	"github.com/edumerge/mail-merge/types"
	"github.com/edumerge/mail-merge/yaml"
)

var log = logrus.New()

const exitCodePartialFailure = 2

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Merge a template with a recipient list",
	Long: `The run command performs the merge:

1. Parses the template (plain text or DOCX) and its {{Field}} placeholders
2. Reads the recipient list (CSV, TSV or XLSX) and checks its header row
3. Binds placeholders to columns, warning about placeholders without a column
4. Renders and exports one document per recipient into the output folder
5. (Optional) Writes the merge report as CSV, JSON or YAML

Examples:
  # Merge a DOCX letter into one PDF per student
  edumerge run --template ./grades.docx --data ./students.xlsx --format pdf --output ./out

  # Use four workers and keep a CSV report
  edumerge run -t ./letter.txt -d ./students.csv -f docx -w 4 --reportCsv ./report.csv

  # Run a job described in an HCL file, overriding its output format
  edumerge run --job ./grades.hcl --format txt`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		job, err := buildMergeJob(ctx, cmd)
		if err != nil {
			log.Fatalf("Error building merge job: %v", err)
		}

		mergeClient := merge.NewMergeClient(
			job,
			templateparser.NewTemplateClient(job.IOTimeout, log),
			datasource.NewDataSourceClient(job.Delimiter, job.Sheet, job.IOTimeout, log),
			binder.NewBinderClient(job.StrictFieldCase, log),
			render.NewTextRenderEngine(log),
			export.NewExportClient(job.OutputPath, job.OnExisting, job.IOTimeout, log),
			log,
		)

		report, err := mergeClient.Run(ctx)
		if err != nil {
			log.Fatalf("Merge job failed while loading: %v", err)
		}

		if err := writeReports(report, job.IOTimeout); err != nil {
			log.Errorf("Error writing merge report: %v", err)
		}

		printSummary(os.Stdout, report)

		counts := report.Counts()
		if viper.GetBool("failOnPartial") && counts.Failed+counts.Cancelled > 0 {
			os.Exit(exitCodePartialFailure)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.PersistentFlags().StringP("template", "t", "", "Template file (.txt or .docx)")
	viper.BindPFlag("template", runCmd.PersistentFlags().Lookup("template"))
	runCmd.PersistentFlags().StringP("data", "d", "", "Recipient list (.csv, .tsv, .xlsx)")
	viper.BindPFlag("data", runCmd.PersistentFlags().Lookup("data"))
	runCmd.PersistentFlags().String("dataFormat", "", "Recipient list format (csv, xlsx), detected from the extension when empty")
	viper.BindPFlag("dataFormat", runCmd.PersistentFlags().Lookup("dataFormat"))
	runCmd.PersistentFlags().String("sheet", "", "Spreadsheet sheet to read, the first sheet when empty")
	viper.BindPFlag("sheet", runCmd.PersistentFlags().Lookup("sheet"))
	runCmd.PersistentFlags().String("delimiter", "", "CSV delimiter, ',' by default and tab for .tsv files")
	viper.BindPFlag("delimiter", runCmd.PersistentFlags().Lookup("delimiter"))
	runCmd.PersistentFlags().StringP("format", "f", string(types.ExportFormatDocx), "Output format (docx, pdf, txt)")
	viper.BindPFlag("format", runCmd.PersistentFlags().Lookup("format"))
	runCmd.PersistentFlags().StringP("output", "o", "", "Output folder, <template>_merged next to the template when empty")
	viper.BindPFlag("output", runCmd.PersistentFlags().Lookup("output"))
	runCmd.PersistentFlags().IntP("workers", "w", 1, "Number of recipients processed in parallel")
	viper.BindPFlag("workers", runCmd.PersistentFlags().Lookup("workers"))
	runCmd.PersistentFlags().Duration("ioTimeout", 0, "Timeout for every file read and write, none when 0")
	viper.BindPFlag("ioTimeout", runCmd.PersistentFlags().Lookup("ioTimeout"))
	runCmd.PersistentFlags().String("onUnmatched", string(types.UnmatchedPolicyEmpty), "What to do with placeholders without a column (empty, abort)")
	viper.BindPFlag("onUnmatched", runCmd.PersistentFlags().Lookup("onUnmatched"))
	runCmd.PersistentFlags().String("onExisting", string(types.ExistingFileSuffix), "What to do when an output file already exists (suffix, refuse, overwrite)")
	viper.BindPFlag("onExisting", runCmd.PersistentFlags().Lookup("onExisting"))
	runCmd.PersistentFlags().Bool("strictCase", false, "Match placeholders to columns case-sensitively only")
	viper.BindPFlag("strictCase", runCmd.PersistentFlags().Lookup("strictCase"))
	runCmd.PersistentFlags().String("reportCsv", "", "Write the merge report as CSV to this file")
	viper.BindPFlag("reportCsv", runCmd.PersistentFlags().Lookup("reportCsv"))
	runCmd.PersistentFlags().String("reportJson", "", "Write the merge report as JSON to this file")
	viper.BindPFlag("reportJson", runCmd.PersistentFlags().Lookup("reportJson"))
	runCmd.PersistentFlags().String("reportYaml", "", "Write the merge report as YAML to this file")
	viper.BindPFlag("reportYaml", runCmd.PersistentFlags().Lookup("reportYaml"))
	runCmd.PersistentFlags().StringP("job", "j", "", "HCL job file, flags given explicitly override its values")
	viper.BindPFlag("job", runCmd.PersistentFlags().Lookup("job"))
	runCmd.PersistentFlags().Bool("failOnPartial", false, "Exit with code 2 when any recipient failed or was cancelled")
	viper.BindPFlag("failOnPartial", runCmd.PersistentFlags().Lookup("failOnPartial"))
}

// buildMergeJob starts from the job file when one is given and applies the flags the
// user set explicitly. Without a job file, flags, config file and environment apply.
func buildMergeJob(ctx context.Context, cmd *cobra.Command) (types.MergeJob, error) {
	job := types.MergeJob{}
	fromFlags := func(name string) bool { return true }

	if jobPath := viper.GetString("job"); jobPath != "" {
		path, err := filepathparser.ParsePath(jobPath)
		if err != nil {
			return job, fmt.Errorf("error getting job file path: %w", err)
		}
		fileJob, err := hcl.NewHclClient(viper.GetDuration("ioTimeout"), log).LoadJob(ctx, path)
		if err != nil {
			return job, err
		}
		job = *fileJob
		fromFlags = func(name string) bool { return cmd.Flags().Changed(name) }
	}

	var err error
	if fromFlags("template") {
		if job.TemplatePath, err = filepathparser.ParseOptionalPath(viper.GetString("template")); err != nil {
			return job, fmt.Errorf("error getting template path: %w", err)
		}
	}
	if fromFlags("data") {
		if job.DataPath, err = filepathparser.ParseOptionalPath(viper.GetString("data")); err != nil {
			return job, fmt.Errorf("error getting data path: %w", err)
		}
	}
	if fromFlags("output") {
		if job.OutputPath, err = filepathparser.ParseOptionalPath(viper.GetString("output")); err != nil {
			return job, fmt.Errorf("error getting output path: %w", err)
		}
	}
	if fromFlags("dataFormat") {
		job.DataFormat = types.DataSourceFormat(viper.GetString("dataFormat"))
	}
	if fromFlags("sheet") {
		job.Sheet = viper.GetString("sheet")
	}
	if fromFlags("delimiter") {
		if job.Delimiter, err = parseDelimiter(viper.GetString("delimiter")); err != nil {
			return job, err
		}
	}
	if fromFlags("format") {
		job.Format = types.ExportFormat(viper.GetString("format"))
	}
	if fromFlags("workers") {
		job.Workers = viper.GetInt("workers")
	}
	if fromFlags("ioTimeout") {
		job.IOTimeout = viper.GetDuration("ioTimeout")
	}
	if fromFlags("onUnmatched") {
		job.OnUnmatched = types.UnmatchedPolicy(viper.GetString("onUnmatched"))
	}
	if fromFlags("onExisting") {
		job.OnExisting = types.ExistingFilePolicy(viper.GetString("onExisting"))
	}
	if fromFlags("strictCase") {
		job.StrictFieldCase = viper.GetBool("strictCase")
	}

	if err := validateMergeJob(&job); err != nil {
		return job, err
	}
	return job, nil
}

func validateMergeJob(job *types.MergeJob) error {
	if job.TemplatePath == "" {
		return fmt.Errorf("a template is required")
	}
	if job.DataPath == "" {
		return fmt.Errorf("a data source is required")
	}
	if job.OutputPath == "" {
		job.OutputPath = filepathparser.DefaultOutputPath(job.TemplatePath)
	}
	if !job.DataFormat.IsValidDataSourceFormat() {
		return fmt.Errorf("unsupported data format %q", job.DataFormat)
	}
	if !job.Format.IsValidExportFormat() {
		return fmt.Errorf("unsupported output format %q", job.Format)
	}
	if job.OnUnmatched == "" {
		job.OnUnmatched = types.UnmatchedPolicyEmpty
	}
	if !job.OnUnmatched.IsValidUnmatchedPolicy() {
		return fmt.Errorf("unsupported unmatched placeholder policy %q", job.OnUnmatched)
	}
	if job.OnExisting == "" {
		job.OnExisting = types.ExistingFileSuffix
	}
	if !job.OnExisting.IsValidExistingFilePolicy() {
		return fmt.Errorf("unsupported existing file policy %q", job.OnExisting)
	}
	if job.Workers < 1 {
		job.Workers = 1
	}
	if job.IOTimeout < 0 {
		return fmt.Errorf("io timeout must not be negative")
	}
	return nil
}

// parseDelimiter accepts a single character, or "tab" and "\t" for tabs.
func parseDelimiter(value string) (rune, error) {
	switch value {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	delimiter, size := utf8.DecodeRuneInString(value)
	if size != len(value) || delimiter == '"' || delimiter == '\n' || delimiter == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q", value)
	}
	return delimiter, nil
}

func writeReports(report *types.MergeReport, ioTimeout time.Duration) error {
	reportCsv, err := filepathparser.ParseOptionalPath(viper.GetString("reportCsv"))
	if err != nil {
		return err
	}
	if reportCsv != "" {
		if err := csv.NewReportCsvClient(reportCsv, ioTimeout, log).Export(report); err != nil {
			return err
		}
	}

	reportJson, err := filepathparser.ParseOptionalPath(viper.GetString("reportJson"))
	if err != nil {
		return err
	}
	if reportJson != "" {
		jsonClient := json.NewJsonClient(filepath.Dir(reportJson), ioTimeout, log)
		if err := jsonClient.Export(report, filepath.Base(reportJson)); err != nil {
			return err
		}
	}

	reportYaml, err := filepathparser.ParseOptionalPath(viper.GetString("reportYaml"))
	if err != nil {
		return err
	}
	if reportYaml != "" {
		yamlClient := yaml.NewYamlClient(filepath.Dir(reportYaml), ioTimeout, log)
		if err := yamlClient.Export(report, filepath.Base(reportYaml)); err != nil {
			return err
		}
	}
	return nil
}

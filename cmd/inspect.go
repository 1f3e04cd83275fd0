/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edumerge/mail-merge/binder"
	"github.com/edumerge/mail-merge/datasource"
	"github.com/edumerge/mail-merge/filepathparser"
	"github.com/edumerge/mail-merge/templateparser"
	"github.com/edumerge/mail-merge/types"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List template placeholders and check them against a recipient list",
	Long: `The inspect command parses a template and prints its placeholders. With a
recipient list it also prints the columns each placeholder binds to and the
placeholders that would render empty. Nothing is written.

Examples:
  edumerge inspect --template ./grades.docx
  edumerge inspect --template ./grades.docx --data ./students.csv`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		templateFlag, _ := cmd.Flags().GetString("template")
		dataFlag, _ := cmd.Flags().GetString("data")
		sheet, _ := cmd.Flags().GetString("sheet")
		strictCase, _ := cmd.Flags().GetBool("strictCase")

		templatePath, err := filepathparser.ParsePath(templateFlag)
		if err != nil {
			log.Fatalf("Error getting template path: %v", err)
		}
		template, err := templateparser.NewTemplateClient(0, log).Load(ctx, templatePath)
		if err != nil {
			log.Fatalf("Error loading template: %v", err)
		}

		placeholders := template.Placeholders()
		fmt.Fprintf(os.Stdout, "Template %s (%s) has %d placeholders\n", template.Name, template.Source, len(placeholders))
		if dataFlag == "" {
			for _, name := range placeholders {
				fmt.Fprintf(os.Stdout, "  %s\n", name)
			}
			return
		}

		dataPath, err := filepathparser.ParsePath(dataFlag)
		if err != nil {
			log.Fatalf("Error getting data path: %v", err)
		}
		dataSet, err := datasource.NewDataSourceClient(0, sheet, 0, log).Read(ctx, dataPath, types.DataSourceFormatAuto)
		if err != nil {
			log.Fatalf("Error loading data source: %v", err)
		}

		binding := binder.NewBinderClient(strictCase, log).Bind(template, dataSet.Fields)
		for _, name := range placeholders {
			if field, ok := binding.Resolved[name]; ok {
				successColor.Fprintf(os.Stdout, "  %s -> %s\n", name, field)
				continue
			}
			failedColor.Fprintf(os.Stdout, "  %s (no matching column)\n", name)
		}
		fmt.Fprintf(os.Stdout, "Data source %s has %d recipients\n", dataPath, len(dataSet.Records))
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringP("template", "t", "", "Template file (.txt or .docx)")
	inspectCmd.MarkFlagRequired("template")
	inspectCmd.Flags().StringP("data", "d", "", "Recipient list (.csv, .tsv, .xlsx)")
	inspectCmd.Flags().String("sheet", "", "Spreadsheet sheet to read, the first sheet when empty")
	inspectCmd.Flags().Bool("strictCase", false, "Match placeholders to columns case-sensitively only")
}

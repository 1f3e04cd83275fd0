/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edumerge/mail-merge/filepathparser"
	"github.com/edumerge/mail-merge/json"
	"github.com/edumerge/mail-merge/types"
	"github.com/edumerge/mail-merge/yaml"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <report file>",
	Short: "Print the summary of a saved JSON or YAML merge report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reportPath, err := filepathparser.ParsePath(args[0])
		if err != nil {
			log.Fatalf("Error getting report path: %v", err)
		}

		ioTimeout, _ := cmd.Flags().GetDuration("ioTimeout")
		var report *types.MergeReport
		switch strings.ToLower(filepath.Ext(reportPath)) {
		case ".yaml", ".yml":
			report, err = yaml.NewYamlClient(filepath.Dir(reportPath), ioTimeout, log).Import(filepath.Base(reportPath))
		default:
			report, err = json.NewJsonClient(filepath.Dir(reportPath), ioTimeout, log).Import(filepath.Base(reportPath))
		}
		if err != nil {
			log.Fatalf("Error reading merge report: %v", err)
		}

		printSummary(os.Stdout, report)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Duration("ioTimeout", 0, "Timeout for reading the report, none when 0")
}

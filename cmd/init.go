/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/edumerge/mail-merge/filepathparser"
	"github.com/edumerge/mail-merge/hcl"
	"github.com/edumerge/mail-merge/types"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [job file]",
	Short: "Write a skeleton HCL job file",
	Long: `The init command writes an HCL job file that run --job can execute. Edit the
paths and options, then run it.

Examples:
  edumerge init ./grades.hcl`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobFile := "merge.hcl"
		if len(args) == 1 {
			jobFile = args[0]
		}
		jobPath, err := filepathparser.ParsePath(jobFile)
		if err != nil {
			log.Fatalf("Error getting job file path: %v", err)
		}

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(jobPath); err == nil && !force {
			log.Fatalf("Job file %s already exists, use --force to overwrite it", jobPath)
		}

		skeleton := types.MergeJob{
			TemplatePath: "template.docx",
			DataPath:     "recipients.csv",
			Format:       types.ExportFormatPdf,
			OutputPath:   "out",
			Workers:      1,
			OnUnmatched:  types.UnmatchedPolicyEmpty,
			OnExisting:   types.ExistingFileSuffix,
		}
		if err := hcl.NewHclClient(0, log).WriteJob(skeleton, jobPath); err != nil {
			log.Fatalf("Error writing job file: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing job file")
}

package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/edumerge/mail-merge/types"
)

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	failedColor    = color.New(color.FgRed, color.Bold)
	cancelledColor = color.New(color.FgYellow, color.Bold)
	detailColor    = color.New(color.Faint)
)

func printSummary(writer io.Writer, report *types.MergeReport) {
	counts := report.Counts()
	fmt.Fprintf(writer, "Merge %s: %d recipients, %s documents in %s\n", report.RunID, len(report.Entries), report.Format, report.OutputPath)
	successColor.Fprintf(writer, "  %d succeeded\n", counts.Success)
	if counts.Failed > 0 {
		failedColor.Fprintf(writer, "  %d failed\n", counts.Failed)
		for _, failure := range report.Failures() {
			detailColor.Fprintf(writer, "    recipient %d: %s\n", failure.RecipientIndex+1, failure.Reason)
		}
	}
	if counts.Cancelled > 0 {
		cancelledColor.Fprintf(writer, "  %d cancelled\n", counts.Cancelled)
	}

	unmatched := map[string]bool{}
	names := []string{}
	for _, entry := range report.Entries {
		for _, name := range entry.Unmatched {
			if !unmatched[name] {
				unmatched[name] = true
				names = append(names, name)
			}
		}
	}
	if len(names) > 0 {
		cancelledColor.Fprintf(writer, "  placeholders rendered empty: %v\n", names)
	}
}

package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the verdicts of every step as Markdown string.
func RenderMarkdown(results []*Result) string {
	var sb strings.Builder

	for _, result := range results {
		sb.WriteString(fmt.Sprintf("### Step %d: %s\n\n", result.Step, result.Decision))

		// GO Criteria table
		sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
		sb.WriteString("|---|-----------|-----------|--------|------|\n")
		for i, c := range result.GOCriteria {
			passStr := "PASS"
			if !c.Pass {
				passStr = "FAIL"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				i+1, c.Name, c.Threshold, c.Actual, passStr))
		}
		sb.WriteString("\n")

		// NO-GO Triggers table
		sb.WriteString("| # | Trigger | Condition | Actual | Status |\n")
		sb.WriteString("|---|---------|-----------|--------|--------|\n")
		for i, c := range result.NOGOChecks {
			statusStr := "NOT TRIGGERED"
			if !c.Pass { // Pass=false means triggered
				statusStr = "TRIGGERED"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				i+1, c.Name, c.Threshold, c.Actual, statusStr))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

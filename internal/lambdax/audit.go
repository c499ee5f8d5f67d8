package lambdax

import (
	"fmt"
	"strings"

	"github.com/karstlabs/platform-infra/pkg/types"
)

// Audit checks a drift report against the recorded inventory for its
// environment. The inventory counts say how many resources the stack should
// carry; the report's change summary says what the preview actually saw.
func Audit(records []ResourceRecord, report types.DriftReport) AuditResult {
	result := AuditResult{Environment: report.Environment}

	if report.Error != "" {
		result.Reasons = append(result.Reasons, fmt.Sprintf("detection failed: %s", report.Error))
	}

	if report.Counts.Delete > 0 {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("%d resource(s) pending deletion", report.Counts.Delete))
	}
	if report.Counts.Replace > 0 {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("%d resource(s) pending replacement", report.Counts.Replace))
	}

	var expected int
	for _, rec := range records {
		expected += rec.Count
	}
	observed := report.Counts.Same + report.Counts.Update + report.Counts.Delete + report.Counts.Replace
	if len(records) > 0 && observed != expected {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("resource count mismatch: inventory records %d, stack holds %d", expected, observed))
	}

	result.FindingCount = len(result.Reasons)
	result.Pass = result.FindingCount == 0
	return result
}

// FormatSummary renders the human-readable notification body.
func FormatSummary(req NotifyRequest) (subject, body string) {
	verdict := "PASS"
	if !req.Audit.Pass {
		verdict = "FAIL"
	}
	subject = fmt.Sprintf("[%s] drift audit %s: %s", req.Report.Severity, verdict, req.Report.Environment)
	// SNS rejects subjects over 100 characters
	if len(subject) > 100 {
		subject = subject[:100]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Environment: %s\n", req.Report.Environment)
	fmt.Fprintf(&b, "Stack: %s\n", req.Report.Stack)
	fmt.Fprintf(&b, "Run: %s\n", req.Report.RunID)
	fmt.Fprintf(&b, "Changes: %d create, %d update, %d delete, %d replace (%d unchanged)\n",
		req.Report.Counts.Create, req.Report.Counts.Update,
		req.Report.Counts.Delete, req.Report.Counts.Replace, req.Report.Counts.Same)
	if len(req.Audit.Reasons) > 0 {
		b.WriteString("Findings:\n")
		for _, r := range req.Audit.Reasons {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}
	return subject, b.String()
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/linkprobe/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables per-page detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with per-page details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write renders the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeViolations(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         LINKPROBE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Seed:     %s\n", report.Seed))
	sb.WriteString(fmt.Sprintf("Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", report.Duration().Round(1e6)))
	sb.WriteString(fmt.Sprintf("Pages:    %d\n", len(report.Records)))
	sb.WriteString("\n")
}

// writeSummary writes the status class summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	s := report.Summary
	if s == nil {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  2xx:       %d\n", s.Status2xx))
	sb.WriteString(fmt.Sprintf("  3xx:       %d\n", s.Status3xx))
	sb.WriteString(fmt.Sprintf("  Other:     %d\n", s.StatusOther))
	sb.WriteString(fmt.Sprintf("  Failed:    %d\n", s.Failed))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Average response: %d ms\n", s.AverageResponseMillis))

	if len(report.Rules) > 0 {
		sb.WriteString(fmt.Sprintf("  Rule violations:  %d page(s)\n", s.RuleViolations))
	}
	sb.WriteString("\n")
}

// writeViolations lists the pages whose header rules did not all pass.
func (w *SimpleWriter) writeViolations(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Rules) == 0 {
		return
	}

	var violating []*model.CrawlRecord
	for _, rec := range report.Records {
		if rec.State == model.StateFetched && !rec.RulesSatisfied() {
			violating = append(violating, rec)
		}
	}
	if len(violating) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RULE VIOLATIONS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, rec := range violating {
		sb.WriteString(fmt.Sprintf("  [!] %s\n", rec.URI))
		for name, pattern := range rec.HeadersNotVerified {
			switch {
			case pattern == nil:
				sb.WriteString(fmt.Sprintf("      %s: missing\n", name))
			case rec.Header(name) == "":
				sb.WriteString(fmt.Sprintf("      %s: missing, expected match for %q\n", name, *pattern))
			default:
				sb.WriteString(fmt.Sprintf("      %s: %q does not match %q\n", name, rec.Header(name), *pattern))
			}
		}
	}
	sb.WriteString("\n")
}

// writePages writes a per-page line for every record.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, rec := range report.Records {
		sb.WriteString(fmt.Sprintf("  [%s] %s (%s, %d links)\n",
			recordStatusText(rec), rec.URI, recordDurationText(rec), len(rec.LinksTo)))
		for _, reason := range rec.FailureReasons {
			sb.WriteString(fmt.Sprintf("      %s\n", reason))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by linkprobe\n")
	sb.WriteString("https://github.com/nao1215/linkprobe\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

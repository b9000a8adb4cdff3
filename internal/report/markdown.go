package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/linkprobe/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeRules(md, report)
	w.writeRecords(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Link Probe Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + report.Seed + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(1e6).String()},
			{"Pages", strconv.Itoa(len(report.Records))},
		},
	})
	md.PlainText("")
}

// writeSummary writes the status class summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	s := report.Summary
	if s == nil {
		return
	}

	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Class", "Count"},
		Rows: [][]string{
			{"🟢 2xx", strconv.Itoa(s.Status2xx)},
			{"🔵 3xx", strconv.Itoa(s.Status3xx)},
			{"🟡 Other status", strconv.Itoa(s.StatusOther)},
			{"🔴 Failed", strconv.Itoa(s.Failed)},
			{"**Total**", "**" + strconv.Itoa(s.TotalRecords) + "**"},
		},
	})
	md.PlainText("")

	md.PlainTextf("Average response time: %d ms", s.AverageResponseMillis)
	md.PlainText("")

	if s.TotalRecords > 0 {
		w.writePieChart(md, s)
	}

	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of the status class distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Response Status Distribution"),
		piechart.WithShowData(true),
	)

	if s.Status2xx > 0 {
		chart.LabelAndIntValue("2xx", uint64(s.Status2xx))
	}
	if s.Status3xx > 0 {
		chart.LabelAndIntValue("3xx", uint64(s.Status3xx))
	}
	if s.StatusOther > 0 {
		chart.LabelAndIntValue("Other", uint64(s.StatusOther))
	}
	if s.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.Summary) {
	switch {
	case s.RuleViolations > 0:
		md.Cautionf(
			"Header rule violations detected on %d page(s).",
			s.RuleViolations,
		)
	case s.Failed > 0:
		md.Warningf(
			"%d page(s) could not be fetched.",
			s.Failed,
		)
	case s.StatusOther > 0:
		md.Importantf(
			"%d page(s) responded outside the 2xx/3xx classes.",
			s.StatusOther,
		)
	default:
		md.Tip("All pages fetched successfully and all header rules passed.")
	}
	md.PlainText("")
}

// writeRules writes the configured header rules section.
func (w *MarkdownWriter) writeRules(md *markdown.Markdown, report *model.CrawlReport) {
	if len(report.Rules) == 0 {
		return
	}

	md.H2("Header Rules")
	md.PlainText("")

	rows := make([][]string, len(report.Rules))
	for i, rule := range report.Rules {
		expectation := "present"
		if rule.Pattern != nil {
			expectation = "matches `" + *rule.Pattern + "`"
		}
		rows[i] = []string{"`" + rule.Header + "`", expectation}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Header", "Expectation"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeRecords writes the per-page result table.
func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Records) == 0 {
		md.PlainText("No pages crawled.")
		md.PlainText("")
		return
	}

	hasRules := len(report.Rules) > 0
	headers := []string{"#", "Address", "Status", "Time", "Links"}
	if hasRules {
		headers = append(headers, "Rules")
	}

	rows := make([][]string, len(report.Records))
	for i, rec := range report.Records {
		row := []string{
			strconv.Itoa(rec.ID),
			truncateString(rec.URI, 60),
			recordStatusText(rec),
			recordDurationText(rec),
			strconv.Itoa(len(rec.LinksTo)),
		}
		if hasRules {
			row = append(row, recordRulesText(rec))
		}
		rows[i] = row
	}

	md.Table(markdown.TableSet{
		Header: headers,
		Rows:   rows,
	})
	md.PlainText("")

	// Failure details go below the table so the table stays scannable.
	for _, rec := range report.Records {
		if len(rec.FailureReasons) > 0 {
			md.Details(rec.URI, strings.Join(rec.FailureReasons, "; "))
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkprobe](https://github.com/nao1215/linkprobe)*")
}

// recordStatusText renders the per-record status cell.
func recordStatusText(rec *model.CrawlRecord) string {
	switch rec.State {
	case model.StateFetched:
		return strconv.Itoa(rec.StatusCode)
	case model.StateFailed:
		return "failed"
	default:
		return "queued"
	}
}

// recordDurationText renders the per-record response time cell.
func recordDurationText(rec *model.CrawlRecord) string {
	d, ok := rec.RequestDuration()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d ms", d.Milliseconds())
}

// recordRulesText renders the per-record rule verdict cell.
func recordRulesText(rec *model.CrawlRecord) string {
	if rec.State != model.StateFetched {
		return "-"
	}
	if rec.RulesSatisfied() {
		return "✅"
	}
	return "❌ " + strconv.Itoa(len(rec.HeadersNotVerified))
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

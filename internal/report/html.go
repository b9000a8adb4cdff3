package report

import (
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/linkprobe/internal/model"
)

// HTMLWriter outputs reports as a self-contained HTML page.
// This format is designed for opening directly in a browser.
//
// Design decision: We render through html/template rather than a
// third-party HTML builder because the template gives us contextual
// auto-escaping of crawled data (URLs and header values come from
// untrusted remote pages) and the page is a single static document
// with no interactivity.
type HTMLWriter struct {
	baseWriter
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{
		baseWriter: newBaseWriter(output),
	}
}

// htmlPage is the view model the HTML template renders. Records are
// flattened into display rows up front because templates cannot call
// methods with multiple return values.
type htmlPage struct {
	Seed     string
	Started  string
	Duration string
	Summary  *model.Summary
	Rules    []htmlRule
	Rows     []htmlRow
	HasRules bool
}

// htmlRule is one configured header rule for display.
type htmlRule struct {
	Header      string
	Expectation string
}

// htmlRow is one record flattened for display.
type htmlRow struct {
	ID             int
	URI            string
	Status         string
	StatusClass    string
	Duration       string
	Links          int
	RuleVerdict    string
	FailureReasons []string
}

// Write renders the full report as an HTML page.
func (w *HTMLWriter) Write(report *model.CrawlReport) (int, error) {
	counting := &countingWriter{dst: w.output}
	if err := htmlTemplate.Execute(counting, buildHTMLPage(report)); err != nil {
		return counting.n, err
	}
	return counting.n, nil
}

// buildHTMLPage flattens a report into the template's view model.
func buildHTMLPage(report *model.CrawlReport) *htmlPage {
	page := &htmlPage{
		Seed:     report.Seed,
		Started:  report.StartedAt.Format("2006-01-02 15:04:05 MST"),
		Duration: report.Duration().Round(time.Millisecond).String(),
		Summary:  report.Summary,
		HasRules: len(report.Rules) > 0,
	}

	for _, rule := range report.Rules {
		expectation := "present"
		if rule.Pattern != nil {
			expectation = "matches " + strconv.Quote(*rule.Pattern)
		}
		page.Rules = append(page.Rules, htmlRule{
			Header:      rule.Header,
			Expectation: expectation,
		})
	}

	for _, rec := range report.Records {
		page.Rows = append(page.Rows, htmlRow{
			ID:             rec.ID,
			URI:            rec.URI,
			Status:         recordStatusText(rec),
			StatusClass:    htmlStatusClass(rec),
			Duration:       recordDurationText(rec),
			Links:          len(rec.LinksTo),
			RuleVerdict:    htmlRuleVerdict(rec),
			FailureReasons: rec.FailureReasons,
		})
	}

	return page
}

// htmlStatusClass maps a record to the CSS class of its status cell.
func htmlStatusClass(rec *model.CrawlRecord) string {
	switch rec.State {
	case model.StateFailed:
		return "failed"
	case model.StateQueued:
		return "queued"
	}
	switch {
	case rec.StatusCode >= 200 && rec.StatusCode < 300:
		return "ok"
	case rec.StatusCode >= 300 && rec.StatusCode < 400:
		return "redirect"
	default:
		return "error"
	}
}

// htmlRuleVerdict renders the rule cell text for a record.
func htmlRuleVerdict(rec *model.CrawlRecord) string {
	if rec.State != model.StateFetched {
		return "-"
	}
	if rec.RulesSatisfied() {
		return "pass"
	}
	var names []string
	for name := range rec.HeadersNotVerified {
		names = append(names, name)
	}
	return "fail: " + strings.Join(names, ", ")
}

// countingWriter tracks how many bytes pass through to the destination.
type countingWriter struct {
	dst io.Writer
	n   int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.dst.Write(p)
	c.n += n
	return n, err
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Link Probe Report - {{.Seed}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 72rem; padding: 0 1rem; color: #1f2328; }
h1, h2 { border-bottom: 1px solid #d1d9e0; padding-bottom: .3rem; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { border: 1px solid #d1d9e0; padding: .4rem .6rem; text-align: left; font-size: .9rem; }
th { background: #f6f8fa; }
td.ok { color: #1a7f37; }
td.redirect { color: #0969da; }
td.error { color: #9a6700; }
td.failed { color: #d1242f; }
td.queued { color: #59636e; }
.uri { font-family: ui-monospace, monospace; word-break: break-all; }
.reasons { color: #d1242f; font-size: .85rem; }
</style>
</head>
<body>
<h1>Link Probe Report</h1>
<table>
<tr><th>Seed</th><td class="uri">{{.Seed}}</td></tr>
<tr><th>Started</th><td>{{.Started}}</td></tr>
<tr><th>Duration</th><td>{{.Duration}}</td></tr>
</table>

{{with .Summary}}
<h2>Summary</h2>
<table>
<tr><th>Total pages</th><th>2xx</th><th>3xx</th><th>Other</th><th>Failed</th><th>Rule violations</th><th>Average response</th></tr>
<tr>
<td>{{.TotalRecords}}</td>
<td>{{.Status2xx}}</td>
<td>{{.Status3xx}}</td>
<td>{{.StatusOther}}</td>
<td>{{.Failed}}</td>
<td>{{.RuleViolations}}</td>
<td>{{.AverageResponseMillis}} ms</td>
</tr>
</table>
{{end}}

{{if .Rules}}
<h2>Header Rules</h2>
<table>
<tr><th>Header</th><th>Expectation</th></tr>
{{range .Rules}}<tr><td>{{.Header}}</td><td>{{.Expectation}}</td></tr>
{{end}}</table>
{{end}}

<h2>Pages</h2>
<table>
<tr><th>#</th><th>Address</th><th>Status</th><th>Time</th><th>Links</th>{{if .HasRules}}<th>Rules</th>{{end}}</tr>
{{range .Rows}}<tr>
<td>{{.ID}}</td>
<td class="uri">{{.URI}}{{range .FailureReasons}}<div class="reasons">{{.}}</div>{{end}}</td>
<td class="{{.StatusClass}}">{{.Status}}</td>
<td>{{.Duration}}</td>
<td>{{.Links}}</td>
{{if $.HasRules}}<td>{{.RuleVerdict}}</td>{{end}}
</tr>
{{end}}</table>

<hr>
<p><em>Report generated by <a href="https://github.com/nao1215/linkprobe">linkprobe</a></em></p>
</body>
</html>
`))

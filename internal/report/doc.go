// Package report renders finished crawl reports in multiple output formats.
//
// The package defines a Writer interface with implementations for JSON
// (tool integration), HTML (browsable result pages), Markdown
// (documentation and sharing), and plain text (terminal display).
// Writers only render; they never mutate the report.
package report

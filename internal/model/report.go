package model

import (
	"time"
)

// RuleSpec is the serializable form of a configured header rule.
// Pattern is nil for presence-only rules.
type RuleSpec struct {
	// Header is the lower-cased header name the rule targets.
	Header string `json:"header"`

	// Pattern is the expected value pattern, nil when the rule only
	// checks for the header's presence.
	Pattern *string `json:"pattern"`
}

// CrawlReport is the finished result of a single crawl run. It carries the
// run metadata, the configuration that shaped the run, and the complete
// record collection. Once assembled it is read-only; writers in the report
// package only render it.
type CrawlReport struct {
	// Seed is the normalized seed address the crawl started from.
	Seed string `json:"seed"`

	// StartedAt is when the run began, before the first fetch.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last record finished processing.
	FinishedAt time.Time `json:"finished_at"`

	// Rules lists the configured header rules, in evaluation order.
	Rules []RuleSpec `json:"header_rules,omitempty"`

	// Records is the full record collection in discovery order.
	Records []*CrawlRecord `json:"records"`

	// Summary holds the aggregate statistics computed by Finalize.
	Summary *Summary `json:"summary,omitempty"`
}

// Summary contains the aggregate statistics of a crawl run.
type Summary struct {
	// TotalRecords is the number of records in the collection.
	TotalRecords int `json:"total_records"`

	// Status2xx counts records that completed with a 2xx status.
	Status2xx int `json:"status_2xx"`

	// Status3xx counts records that completed with a 3xx status.
	Status3xx int `json:"status_3xx"`

	// StatusOther counts completed records outside the 2xx/3xx classes.
	StatusOther int `json:"status_other"`

	// Failed counts records whose fetch failed at the transport level.
	Failed int `json:"failed"`

	// RuleViolations counts records with at least one unverified rule.
	RuleViolations int `json:"rule_violations"`

	// AverageResponseMillis is the mean request duration in milliseconds
	// across records that completed their fetch. Zero when none did.
	AverageResponseMillis int64 `json:"average_response_ms"`

	// DurationMillis is the overall run duration in milliseconds.
	DurationMillis int64 `json:"duration_ms"`
}

// NewCrawlReport creates a report for a run starting now.
func NewCrawlReport(seed string, rules []RuleSpec) *CrawlReport {
	return &CrawlReport{
		Seed:      seed,
		StartedAt: time.Now(),
		Rules:     rules,
	}
}

// Finalize attaches the finished record collection, stamps the end of the
// run, and computes the summary. The records must not be mutated afterwards.
func (r *CrawlReport) Finalize(records []*CrawlRecord, finishedAt time.Time) {
	r.Records = records
	r.FinishedAt = finishedAt
	r.Summary = r.buildSummary()
}

// Duration returns the overall run duration.
func (r *CrawlReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// buildSummary computes aggregate statistics over the record collection.
func (r *CrawlReport) buildSummary() *Summary {
	s := &Summary{
		TotalRecords:   len(r.Records),
		DurationMillis: r.Duration().Milliseconds(),
	}

	var totalResponse time.Duration
	var completed int

	for _, rec := range r.Records {
		switch rec.State {
		case StateFailed:
			s.Failed++
		case StateFetched:
			switch {
			case rec.StatusCode >= 200 && rec.StatusCode < 300:
				s.Status2xx++
			case rec.StatusCode >= 300 && rec.StatusCode < 400:
				s.Status3xx++
			default:
				s.StatusOther++
			}
		case StateQueued:
			// Unvisited records only exist if the run was cancelled;
			// they count toward the total but no status class.
		}

		if d, ok := rec.RequestDuration(); ok {
			totalResponse += d
			completed++
		}

		if !rec.RulesSatisfied() {
			s.RuleViolations++
		}
	}

	if completed > 0 {
		s.AverageResponseMillis = (totalResponse / time.Duration(completed)).Milliseconds()
	}

	return s
}

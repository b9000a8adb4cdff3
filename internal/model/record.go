package model

import (
	"net/http"
	"strings"
	"time"
)

// RecordState describes how far a crawl record has progressed through its
// lifecycle. Field availability on CrawlRecord follows the state: timestamps
// and status fields are only populated once the record leaves StateQueued.
//
// Design decision: We use an explicit state enum rather than scattering
// nil-checks across consumers. A record's state is set exactly once per
// transition by the crawl engine, so consumers can switch on it safely.
type RecordState int

const (
	// StateQueued means the record was discovered but not yet fetched.
	StateQueued RecordState = iota

	// StateFetched means the HTTP fetch completed and status, headers,
	// and timestamps are populated. A non-2xx status is still StateFetched;
	// only transport-level failures produce StateFailed.
	StateFetched

	// StateFailed means the fetch failed at the transport level
	// (timeout, DNS, connection reset). Status fields remain absent and
	// FailureReasons holds at least one entry.
	StateFailed
)

// String returns the human-readable state name.
func (s RecordState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateFetched:
		return "fetched"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the state as its string name.
func (s RecordState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// CrawlRecord is the per-URI unit of crawl state and outcome.
// Exactly one record exists per distinct normalized in-origin URI during a
// run. The crawl engine is the sole creator of records; the verifier and
// extractor mutate only the record handed to them.
type CrawlRecord struct {
	// ID is a stable identifier assigned at creation, immutable afterwards.
	// Link edges reference IDs so they never need to re-resolve a URI.
	ID int `json:"id"`

	// URI is the absolute, normalized target address. It is the identity
	// key for deduplication and never changes after creation.
	URI string `json:"uri"`

	// State tracks the record lifecycle. See RecordState.
	State RecordState `json:"state"`

	// RequestStartedAt is stamped immediately before the fetch begins.
	// Nil until then.
	RequestStartedAt *time.Time `json:"request_started_at,omitempty"`

	// RequestFinishedAt is stamped immediately after the fetch completes,
	// before any verification or extraction, so the derived duration
	// reflects network cost only. Nil until then and nil forever for
	// failed fetches.
	RequestFinishedAt *time.Time `json:"request_finished_at,omitempty"`

	// StatusCode is the HTTP response status. Zero while absent.
	StatusCode int `json:"status_code,omitempty"`

	// StatusDescription is the HTTP status text (e.g. "200 OK").
	StatusDescription string `json:"status_description,omitempty"`

	// Headers maps lower-cased header names to their space-joined values.
	// Populated only on successful fetch.
	Headers map[string]string `json:"headers,omitempty"`

	// HeadersVerified maps rule keys to the rule's expected pattern
	// (nil for presence-only rules) for rules that passed verification.
	HeadersVerified map[string]*string `json:"headers_verified,omitempty"`

	// HeadersNotVerified is the complement partition. A rule key appears
	// in exactly one of the two maps after verification runs.
	HeadersNotVerified map[string]*string `json:"headers_not_verified,omitempty"`

	// FailureReasons holds human-readable fetch failure descriptions in
	// the order they occurred. Empty on full success.
	FailureReasons []string `json:"failure_reasons,omitempty"`

	// LinksTo lists the IDs of in-origin records this page links to, in
	// document order. Duplicate hrefs produce duplicate IDs; self links
	// and forward references to not-yet-fetched records are allowed.
	LinksTo []int `json:"links_to,omitempty"`
}

// NewCrawlRecord creates a queued record for the given normalized URI.
func NewCrawlRecord(id int, uri string) *CrawlRecord {
	return &CrawlRecord{
		ID:    id,
		URI:   uri,
		State: StateQueued,
	}
}

// RequestDuration returns the time between request start and finish.
// The second return value is false while either timestamp is absent.
func (r *CrawlRecord) RequestDuration() (time.Duration, bool) {
	if r.RequestStartedAt == nil || r.RequestFinishedAt == nil {
		return 0, false
	}
	return r.RequestFinishedAt.Sub(*r.RequestStartedAt), true
}

// SetResponse records the outcome of a completed fetch. Header names are
// lower-cased and multi-valued headers are space-joined, per the report
// data contract.
func (r *CrawlRecord) SetResponse(statusCode int, statusDescription string, header http.Header) {
	r.StatusCode = statusCode
	r.StatusDescription = statusDescription
	r.Headers = FlattenHeader(header)
	r.State = StateFetched
}

// Fail marks the record as failed at the transport level and appends the
// failure description. Status fields stay absent.
func (r *CrawlRecord) Fail(reason string) {
	r.State = StateFailed
	r.FailureReasons = append(r.FailureReasons, reason)
}

// AddLink appends a link edge to the given record ID. Document order is
// preserved; duplicates are intentional when a page repeats an href.
func (r *CrawlRecord) AddLink(id int) {
	r.LinksTo = append(r.LinksTo, id)
}

// Header returns the value of the given header name, case-insensitively.
// Returns empty string if the header is absent or no fetch completed.
func (r *CrawlRecord) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// RulesSatisfied reports whether every evaluated header rule was verified.
// A record with no rules evaluated trivially satisfies them.
func (r *CrawlRecord) RulesSatisfied() bool {
	return len(r.HeadersNotVerified) == 0
}

// FlattenHeader converts an http.Header into the lower-cased, space-joined
// representation stored on crawl records.
func FlattenHeader(header http.Header) map[string]string {
	if header == nil {
		return nil
	}

	flat := make(map[string]string, len(header))
	for name, values := range header {
		flat[strings.ToLower(name)] = strings.Join(values, " ")
	}
	return flat
}

package crawler

import (
	"github.com/nao1215/linkprobe/internal/config"
	"github.com/nao1215/linkprobe/internal/model"
)

// VerifyHeaders evaluates the configured header rules against the record's
// fetched headers and fills the record's verification partitions.
//
// For each rule:
//   - presence-only: the header exists (names are pre-lower-cased) → verified
//   - pattern: the header exists AND its non-empty value contains an
//     unanchored match of the pattern → verified
//
// Anything else lands in the not-verified partition. A rule key appears in
// exactly one partition; re-running verification moves keys rather than
// duplicating them. This step is purely observational: it records outcomes
// but never raises failures or aborts the crawl. Report consumers decide
// pass/fail per record from whether the not-verified partition is empty.
func VerifyHeaders(rec *model.CrawlRecord, rules []config.HeaderRule) {
	if len(rules) == 0 {
		return
	}

	if rec.HeadersVerified == nil {
		rec.HeadersVerified = make(map[string]*string)
	}
	if rec.HeadersNotVerified == nil {
		rec.HeadersNotVerified = make(map[string]*string)
	}

	for _, rule := range rules {
		value, present := rec.Headers[rule.Name]

		verified := present
		if !rule.PresenceOnly() {
			verified = present && value != "" && rule.Pattern.MatchString(value)
		}

		if verified {
			rec.HeadersVerified[rule.Name] = rule.ExpectedPattern()
			delete(rec.HeadersNotVerified, rule.Name)
		} else {
			rec.HeadersNotVerified[rule.Name] = rule.ExpectedPattern()
			delete(rec.HeadersVerified, rule.Name)
		}
	}
}

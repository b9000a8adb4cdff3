package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/linkprobe/internal/model"
)

// Extract turns a fetched body into deduplicated, origin-confined link
// edges on the record, enqueueing a new record for every address not seen
// before. Malformed hrefs and pseudo links are silently skipped; so is
// everything outside the origin.
//
// Extraction queries the existing collection before creating records, so
// re-running it against unchanged collection state creates nothing new.
func (e *Engine) Extract(rec *model.CrawlRecord, body []byte, contentType string) {
	pageURL, err := url.Parse(rec.URI)
	if err != nil {
		return
	}

	for _, href := range ExtractHrefs(body, contentType) {
		// Resolved against the record's own URI, not the global base:
		// relative links mean what they meant on that page.
		resolved := resolveHref(pageURL, href)
		if resolved == nil {
			continue
		}
		if !InOrigin(e.base, resolved) {
			continue
		}

		target := e.enqueue(resolved)
		rec.AddLink(target.ID)
	}
}

// Redirect records a redirect's Location target as the record's single
// outgoing link. The target takes the same resolution, origin, and dedup
// path as an anchor href, so a redirect out of the origin contributes
// nothing, as does a response without a Location header.
func (e *Engine) Redirect(rec *model.CrawlRecord, location string) {
	pageURL, err := url.Parse(rec.URI)
	if err != nil {
		return
	}

	resolved := resolveHref(pageURL, location)
	if resolved == nil {
		return
	}
	if !InOrigin(e.base, resolved) {
		return
	}

	rec.AddLink(e.enqueue(resolved).ID)
}

// resolveHref resolves a raw href against the page URL. Pseudo links and
// unparsable hrefs resolve to nil and are skipped by the caller.
func resolveHref(pageURL *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return nil
	}

	u, err := url.Parse(href)
	if err != nil {
		return nil
	}

	return pageURL.ResolveReference(u)
}

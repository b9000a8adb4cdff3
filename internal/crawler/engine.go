package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/linkprobe/internal/config"
	"github.com/nao1215/linkprobe/internal/model"
)

// Engine is the crawl queue engine. It owns the append-only record
// collection, is the sole writer of structural changes to it, and drives
// the sequential fetch-verify-extract iteration.
//
// Design decision: The collection is a slice iterated by index while it
// grows, not a pop-queue. Re-reading the length each pass processes records
// in discovery order while allowing growth during processing, and the
// surviving slice doubles as the report's record list without reassembly.
type Engine struct {
	// base is the seed address; it fixes the origin boundary for the run.
	base *url.URL

	// fetcher performs the HTTP fetches.
	fetcher Fetcher

	// rules are the header expectations verified on every fetched page.
	rules []config.HeaderRule

	// records is the append-only collection in discovery order.
	records []*model.CrawlRecord

	// index maps normalized URIs to their records for dedup lookups.
	index map[string]*model.CrawlRecord

	// maxPages caps processed records; 0 means no cap.
	maxPages int

	// logger is used for structured logging during the crawl.
	logger *slog.Logger

	// now returns the current time; replaced in tests.
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithHeaderRules sets the header rules verified on each fetched page.
func WithHeaderRules(rules []config.HeaderRule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithMaxPages caps the number of records processed. 0 disables the cap.
func WithMaxPages(n int) Option {
	return func(e *Engine) {
		e.maxPages = n
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces the engine's time source. Mainly for tests that
// assert timestamp and duration behavior.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine seeded with one queued record for the seed address.
// The seed must be an absolute http(s) URL.
func New(seed string, fetcher Fetcher, opts ...Option) (*Engine, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed address: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("invalid seed address: %q is not absolute", seed)
	}

	e := &Engine{
		base:    u,
		fetcher: fetcher,
		index:   make(map[string]*model.CrawlRecord),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	// The seed record exists before the crawl starts.
	e.enqueue(u)

	return e, nil
}

// Records returns the record collection in discovery order.
func (e *Engine) Records() []*model.CrawlRecord {
	return e.records
}

// Run processes the record collection from the front, one record at a time,
// until the cursor catches up with the (growing) collection. Processing of
// record N+1 never begins before record N's step fully completes, so
// traversal order maps directly to discovery order.
//
// Cancellation stops the run between records; the partial collection is
// returned with ctx's error. A failed fetch never stops the run.
func (e *Engine) Run(ctx context.Context) ([]*model.CrawlRecord, error) {
	// The length is re-read every iteration on purpose: extraction
	// appends new records while we iterate.
	for i := 0; i < len(e.records); i++ {
		if e.maxPages > 0 && i >= e.maxPages {
			e.logger.Warn("page cap reached, stopping crawl", "maxPages", e.maxPages)
			break
		}

		select {
		case <-ctx.Done():
			return e.records, ctx.Err()
		default:
		}

		e.process(ctx, e.records[i])
	}

	return e.records, nil
}

// process runs the per-record step: stamp start, fetch, stamp finish,
// verify headers, then discover links. A 3xx response contributes its
// Location target instead of parsing the body; anything else goes through
// href extraction. A transport failure short-circuits after recording the
// reason; verification and link discovery are skipped.
func (e *Engine) process(ctx context.Context, rec *model.CrawlRecord) {
	started := e.now()
	rec.RequestStartedAt = &started

	resp, err := e.fetcher.Fetch(ctx, rec.URI)
	if err != nil {
		rec.Fail(fmt.Sprintf("fetch failed: %v", err))
		e.logger.Warn("fetch failed", "uri", rec.URI, "error", err)
		return
	}

	// Stamped before any post-processing so the derived duration
	// reflects network cost only.
	finished := e.now()
	rec.RequestFinishedAt = &finished

	rec.SetResponse(resp.StatusCode, resp.Status, resp.Header)

	e.logger.Debug("fetched page",
		"uri", rec.URI,
		"status", resp.StatusCode,
		"duration", finished.Sub(started),
	)

	if len(e.rules) > 0 {
		VerifyHeaders(rec, e.rules)
	}

	// A redirect body is boilerplate served for the old address; parsing
	// its hrefs would resolve them against the wrong base.
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		e.Redirect(rec, resp.Header.Get("Location"))
		return
	}

	e.Extract(rec, resp.Body, resp.Header.Get("Content-Type"))
}

// enqueue returns the record for the given address, creating and appending
// a new queued record when the normalized URI has not been seen before.
// This is the only place records are created, which is what guarantees the
// one-record-per-URI invariant.
func (e *Engine) enqueue(u *url.URL) *model.CrawlRecord {
	key := NormalizeURL(u)
	if existing, ok := e.index[key]; ok {
		return existing
	}

	rec := model.NewCrawlRecord(len(e.records)+1, key)
	e.records = append(e.records, rec)
	e.index[key] = rec
	return rec
}


package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkprobe/internal/model"
)

// stubFetcher serves canned responses keyed by URI and records fetch order.
type stubFetcher struct {
	pages   map[string]*Response
	errs    map[string]error
	fetched []string
}

func (s *stubFetcher) Fetch(_ context.Context, uri string) (*Response, error) {
	s.fetched = append(s.fetched, uri)
	if err, ok := s.errs[uri]; ok {
		return nil, err
	}
	if resp, ok := s.pages[uri]; ok {
		return resp, nil
	}
	return &Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Header:     http.Header{},
	}, nil
}

// htmlResponse builds a 200 response whose body links to the given hrefs.
func htmlResponse(hrefs ...string) *Response {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<a href=%q>link</a>`, href)
	}
	b.WriteString("</body></html>")

	return &Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       []byte(b.String()),
	}
}

// TestEngineRun tests the crawl iteration end to end against stub fetches.
func TestEngineRun(t *testing.T) {
	t.Parallel()

	t.Run("anchor-free seed yields exactly one record", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/": htmlResponse(),
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].ID != 1 {
			t.Errorf("expected seed record ID 1, got %d", records[0].ID)
		}
		if records[0].State != model.StateFetched {
			t.Errorf("expected fetched state, got %v", records[0].State)
		}
		if records[0].StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", records[0].StatusCode)
		}
	})

	t.Run("duplicate links keep one record but both edges", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/":  htmlResponse("/a", "/a", "http://other.com/x"),
				"http://example.com/a": htmlResponse(),
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(records) != 2 {
			t.Fatalf("expected 2 records (external link excluded), got %d", len(records))
		}

		seed := records[0]
		if len(seed.LinksTo) != 2 {
			t.Fatalf("expected 2 link edges, got %d", len(seed.LinksTo))
		}
		if seed.LinksTo[0] != 2 || seed.LinksTo[1] != 2 {
			t.Errorf("expected both edges to point at record 2, got %v", seed.LinksTo)
		}

		if records[1].URI != "http://example.com/a" {
			t.Errorf("unexpected second record URI %q", records[1].URI)
		}
	})

	t.Run("fetch failure is recorded and crawl continues", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/":  htmlResponse("/broken", "/ok"),
				"http://example.com/ok": htmlResponse(),
			},
			errs: map[string]error{
				"http://example.com/broken": errors.New("context deadline exceeded"),
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}

		broken := records[1]
		if broken.State != model.StateFailed {
			t.Errorf("expected failed state, got %v", broken.State)
		}
		if len(broken.FailureReasons) != 1 {
			t.Fatalf("expected 1 failure reason, got %d", len(broken.FailureReasons))
		}
		if !strings.Contains(broken.FailureReasons[0], "fetch failed") {
			t.Errorf("unexpected failure reason %q", broken.FailureReasons[0])
		}
		if broken.StatusCode != 0 {
			t.Errorf("failed record must not carry a status code, got %d", broken.StatusCode)
		}
		if broken.RequestFinishedAt != nil {
			t.Error("failed record must not carry a finish timestamp")
		}

		if records[2].State != model.StateFetched {
			t.Errorf("crawl must continue past a failure, got state %v", records[2].State)
		}
	})

	t.Run("revisited pages are fetched exactly once", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/":  htmlResponse("/a"),
				"http://example.com/a": htmlResponse("/", "/a"),
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if len(fetcher.fetched) != 2 {
			t.Errorf("expected 2 fetches, got %d: %v", len(fetcher.fetched), fetcher.fetched)
		}
	})

	t.Run("fragment and root variants share one record", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/": htmlResponse(
					"http://example.com/#top",
					"http://example.com",
					"/",
				),
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if len(records[0].LinksTo) != 3 {
			t.Errorf("expected 3 self edges, got %v", records[0].LinksTo)
		}
	})

	t.Run("page cap stops processing but keeps queued records", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/":  htmlResponse("/a", "/b", "/c"),
				"http://example.com/a": htmlResponse(),
			},
		}

		engine, err := New("http://example.com/", fetcher, WithMaxPages(2))
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(fetcher.fetched) != 2 {
			t.Errorf("expected 2 fetches under cap, got %d", len(fetcher.fetched))
		}
		if len(records) != 4 {
			t.Fatalf("expected 4 records, got %d", len(records))
		}
		if records[2].State != model.StateQueued || records[3].State != model.StateQueued {
			t.Error("uncrawled records must remain queued")
		}
	})

	t.Run("cancellation stops the run between records", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/": htmlResponse("/a"),
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		records, err := engine.Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected the partial collection, got %d records", len(records))
		}
		if records[0].State != model.StateQueued {
			t.Error("no record should be processed after cancellation")
		}
	})

	t.Run("timestamps come from the injected clock", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/": htmlResponse(),
			},
		}

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		ticks := 0
		clock := func() time.Time {
			ticks++
			return base.Add(time.Duration(ticks) * 250 * time.Millisecond)
		}

		engine, err := New("http://example.com/", fetcher, WithClock(clock))
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		d, ok := records[0].RequestDuration()
		if !ok {
			t.Fatal("expected a derivable duration")
		}
		if d != 250*time.Millisecond {
			t.Errorf("expected 250ms duration, got %v", d)
		}
	})

	t.Run("header rules are verified on fetched pages", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/": {
					StatusCode: http.StatusOK,
					Status:     "200 OK",
					Header:     http.Header{"Server": {"nginx/1.18"}},
				},
			},
		}

		rules := mustParseRules(t, "server:nginx", "x-frame-options")
		engine, err := New("http://example.com/", fetcher, WithHeaderRules(rules))
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		rec := records[0]
		if _, ok := rec.HeadersVerified["server"]; !ok {
			t.Error("expected server rule to verify")
		}
		if _, ok := rec.HeadersNotVerified["x-frame-options"]; !ok {
			t.Error("expected x-frame-options rule to fail verification")
		}
	})

	t.Run("redirect records its own status and enqueues the target", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/": htmlResponse("jump"),
				"http://example.com/jump": {
					StatusCode: http.StatusFound,
					Status:     "302 Found",
					Header: http.Header{
						"Location":     {"docs/"},
						"Content-Type": {"text/html; charset=utf-8"},
					},
					Body: []byte(`<html><body><a href="/phantom">moved</a></body></html>`),
				},
				"http://example.com/docs/": htmlResponse("sub.html"),
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(records) != 4 {
			t.Fatalf("expected 4 records, got %d", len(records))
		}

		jump := records[1]
		if jump.StatusCode != http.StatusFound {
			t.Errorf("expected the redirect's own status 302, got %d", jump.StatusCode)
		}
		if len(jump.LinksTo) != 1 || jump.LinksTo[0] != 3 {
			t.Errorf("expected the Location target as the only edge, got %v", jump.LinksTo)
		}

		// The target resolves against the redirecting address, and the
		// target's own relative links resolve against the target.
		if records[2].URI != "http://example.com/docs/" {
			t.Errorf("unexpected target record %q", records[2].URI)
		}
		if records[3].URI != "http://example.com/docs/sub.html" {
			t.Errorf("unexpected follow-up record %q", records[3].URI)
		}

		for _, rec := range records {
			if strings.Contains(rec.URI, "phantom") {
				t.Errorf("redirect body must not be parsed for links, got %q", rec.URI)
			}
		}
	})

	t.Run("redirect outside the origin contributes nothing", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/": {
					StatusCode: http.StatusMovedPermanently,
					Status:     "301 Moved Permanently",
					Header:     http.Header{"Location": {"http://other.example/"}},
				},
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].StatusCode != http.StatusMovedPermanently {
			t.Errorf("expected status 301, got %d", records[0].StatusCode)
		}
		if len(records[0].LinksTo) != 0 {
			t.Errorf("expected no edges, got %v", records[0].LinksTo)
		}
	})

	t.Run("redirect without a location header adds nothing", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{
			pages: map[string]*Response{
				"http://example.com/": {
					StatusCode: http.StatusNotModified,
					Status:     "304 Not Modified",
					Header:     http.Header{},
				},
			},
		}

		engine, err := New("http://example.com/", fetcher)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		records, err := engine.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(records) != 1 || len(records[0].LinksTo) != 0 {
			t.Errorf("expected a lone record without edges, got %d records", len(records))
		}
	})
}

// TestEngineExtract tests link extraction in isolation from fetching.
func TestEngineExtract(t *testing.T) {
	t.Parallel()

	t.Run("relative links resolve against the page, not the seed", func(t *testing.T) {
		t.Parallel()

		engine, err := New("http://example.com/", &stubFetcher{})
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		page := model.NewCrawlRecord(99, "http://example.com/docs/guide.html")
		engine.Extract(page, []byte(`<a href="ref.html">ref</a>`), "text/html")

		records := engine.Records()
		last := records[len(records)-1]
		if last.URI != "http://example.com/docs/ref.html" {
			t.Errorf("expected page-relative resolution, got %q", last.URI)
		}
	})

	t.Run("pseudo links are skipped", func(t *testing.T) {
		t.Parallel()

		engine, err := New("http://example.com/", &stubFetcher{})
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		body := []byte(`
			<a href="javascript:void(0)">js</a>
			<a href="mailto:x@example.com">mail</a>
			<a href="tel:+1234">tel</a>
			<a href="#">hash</a>
			<a href="">empty</a>
		`)

		seed := engine.Records()[0]
		engine.Extract(seed, body, "text/html")

		if len(engine.Records()) != 1 {
			t.Errorf("expected no new records, got %d", len(engine.Records()))
		}
		if len(seed.LinksTo) != 0 {
			t.Errorf("expected no link edges, got %v", seed.LinksTo)
		}
	})

	t.Run("re-extraction creates no new records", func(t *testing.T) {
		t.Parallel()

		engine, err := New("http://example.com/", &stubFetcher{})
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		body := []byte(`<a href="/a">a</a><a href="/b">b</a>`)
		seed := engine.Records()[0]

		engine.Extract(seed, body, "text/html")
		first := len(engine.Records())

		engine.Extract(seed, body, "text/html")
		if len(engine.Records()) != first {
			t.Errorf("re-extraction grew the collection from %d to %d", first, len(engine.Records()))
		}
	})
}

// TestHTTPFetcher tests the HTTP fetcher against a local test server.
func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	t.Run("returns status, headers, and body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test", "yes")
			w.WriteHeader(http.StatusTeapot)
			fmt.Fprint(w, "short and stout")
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(5 * time.Second)
		resp, err := fetcher.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		if resp.StatusCode != http.StatusTeapot {
			t.Errorf("expected status 418, got %d", resp.StatusCode)
		}
		if resp.Header.Get("X-Test") != "yes" {
			t.Error("expected X-Test header to be preserved")
		}
		if string(resp.Body) != "short and stout" {
			t.Errorf("unexpected body %q", resp.Body)
		}
	})

	t.Run("sends configured request headers and cookie", func(t *testing.T) {
		t.Parallel()

		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(5*time.Second,
			WithUserAgent("probe-test/0.1"),
			WithRequestHeaders(map[string]string{"X-Extra": "1"}),
			WithCookie("session=abc"),
		)

		if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		if got.Get("User-Agent") != "probe-test/0.1" {
			t.Errorf("unexpected user agent %q", got.Get("User-Agent"))
		}
		if got.Get("X-Extra") != "1" {
			t.Error("expected extra request header to be sent")
		}
		if got.Get("Cookie") != "session=abc" {
			t.Errorf("unexpected cookie %q", got.Get("Cookie"))
		}
	})

	t.Run("timeout surfaces as an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(20 * time.Millisecond)
		if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
			t.Error("expected a timeout error")
		}
	})

	t.Run("body is truncated at the configured limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, strings.Repeat("x", 1024))
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(5*time.Second, WithMaxBodySize(16))
		resp, err := fetcher.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(resp.Body) != 16 {
			t.Errorf("expected 16 byte body, got %d", len(resp.Body))
		}
	})

	t.Run("redirects are returned, not followed", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/next", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "final")
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher := NewHTTPFetcher(5 * time.Second)
		resp, err := fetcher.Fetch(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		if resp.StatusCode != http.StatusMovedPermanently {
			t.Errorf("expected status 301, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Location") != "/next" {
			t.Errorf("expected Location /next, got %q", resp.Header.Get("Location"))
		}
		if string(resp.Body) == "final" {
			t.Error("fetch must not follow the redirect to the target body")
		}
	})
}

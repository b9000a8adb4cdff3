package crawler

import (
	"net/url"
	"strings"
)

// InOrigin reports whether candidate belongs to the crawl origin fixed by
// base. Both URLs must be absolute and successfully parsed; resolution
// failures are the caller's problem, never this guard's.
//
// A candidate is in origin when it shares scheme and host (including port)
// with base and its path is equal to or hierarchically beneath base's path.
// The base path is truncated to its containing directory first, so a seed of
// http://s/docs/index.html confines the crawl to /docs/. Query strings and
// fragments never affect containment.
func InOrigin(base, candidate *url.URL) bool {
	if !strings.EqualFold(candidate.Scheme, base.Scheme) {
		return false
	}
	if !strings.EqualFold(candidate.Host, base.Host) {
		return false
	}

	path := candidate.EscapedPath()
	if path == "" {
		path = "/"
	}
	return strings.HasPrefix(path, baseDir(base.EscapedPath()))
}

// baseDir truncates a path to its containing directory, always ending in "/".
// "/docs/index.html" becomes "/docs/", "/docs/" stays "/docs/", and an empty
// path becomes "/".
func baseDir(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "/"
	}
	return path[:i+1]
}

// NormalizeURL normalizes a URL into the canonical string used as the dedup
// identity key for crawl records.
//
// Design decision: We normalize because the same page can have different URL
// representations; the fragment never changes the fetched content, and an
// empty path is equivalent to "/". Adapted behavior: lowercase scheme and
// host, drop the fragment, root an empty path.
func NormalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if n.Path == "" {
		n.Path = "/"
	}
	return n.String()
}

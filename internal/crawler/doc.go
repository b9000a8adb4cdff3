// Package crawler implements the crawl queue engine for linkprobe.
//
// The engine owns an append-only, discovery-ordered collection of crawl
// records and drives the sequential fetch-verify-extract iteration until the
// collection is exhausted. Supporting pieces live alongside it: the origin
// guard that confines the crawl to the seed's origin, the HTML href parser,
// the header verifier, and the HTTP fetch collaborator. The fetcher never
// follows redirects; a 3xx is recorded on its own record and the Location
// target joins the queue like any discovered link.
//
// Termination is guaranteed because origin confinement and URI-based
// deduplication bound the set of distinct reachable addresses. A site that
// generates unbounded distinct in-origin URIs (query-string permutations)
// will not terminate without a MaxPages cap; that is an accepted limitation.
package crawler

// Package model defines the core data structures for linkprobe.
//
// This package contains the crawl record (one entry per discovered URI),
// the crawl report that aggregates a finished run, and supporting types.
// It has no dependencies on other internal packages to avoid circular imports.
package model

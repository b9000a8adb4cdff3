// Package main provides the entry point for the linkprobe CLI.
//
// linkprobe crawls a single web site breadth-first from a seed address,
// records the HTTP outcome of every page, verifies response headers
// against configurable rules, and writes HTML and JSON reports.
//
// Usage:
//
//	linkprobe <seed-url>
//	linkprobe -t 5000 -h "server:nginx" https://example.com/
//
// See --help for all available options.
package main

// main is the entry point for linkprobe.
func main() {
	Execute()
}

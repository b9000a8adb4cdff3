package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoSeed is returned when no seed address is specified.
	ErrNoSeed = errors.New("no seed specified: provide an absolute http(s) address")

	// ErrInvalidSeed is returned when the seed does not parse as an
	// absolute http(s) address.
	ErrInvalidSeed = errors.New("invalid seed: must be an absolute http(s) address")

	// ErrInvalidTimeout is returned when the per-fetch timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	// Use 0 to crawl without a cap.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrOutputDirNotFound is returned when the report output directory
	// does not exist. The directory must be created before the run starts.
	ErrOutputDirNotFound = errors.New("output directory does not exist")

	// ErrInvalidHeaderRule is returned when a header rule string is empty
	// or its pattern does not compile as a regular expression.
	ErrInvalidHeaderRule = errors.New("invalid header rule")
)

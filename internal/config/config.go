package config

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout is the per-fetch timeout. 10 seconds matches typical
	// clearnet latency; slower sites fail the individual fetch, never the run.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodySize limits the response body size to read. 5MB is
	// sufficient for HTML pages while preventing memory exhaustion from
	// unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies linkprobe in HTTP requests. A descriptive
	// User-Agent lets site operators identify probe traffic in their logs.
	DefaultUserAgent = "linkprobe/1.0 (+https://github.com/nao1215/linkprobe)"

	// AppName is the application name used for XDG directory paths.
	AppName = "linkprobe"
)

// Config holds all configuration options for a crawl run.
// This struct is populated from CLI flags (and optionally a config file)
// and passed through the application via dependency injection rather than
// global state.
type Config struct {
	// Seed is the absolute address the crawl starts from. It also fixes
	// the origin boundary: only links at or beneath the seed's path on the
	// same scheme and host are crawled.
	Seed string

	// Timeout bounds each individual fetch. It does not bound the run.
	Timeout time.Duration

	// OutputDir is the directory report files are written to. It must
	// already exist when the run starts.
	OutputDir string

	// HeaderRules are the response header expectations to verify on every
	// fetched page, in evaluation order.
	HeaderRules []HeaderRule

	// MaxPages caps the number of records processed. Zero means no cap;
	// termination then relies on the origin boundary and URI dedup
	// bounding the reachable address set.
	MaxPages int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Zero falls back to DefaultMaxBodySize.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// RequestHeaders are extra request headers applied to every fetch,
	// typically loaded from the config file for authenticated crawls.
	RequestHeaders map[string]string

	// Cookie is an HTTP cookie sent with every request ("name=value" form).
	Cookie string

	// MarkdownReport additionally writes a Markdown report next to the
	// HTML and JSON outputs.
	MarkdownReport bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .linkprobe in the current directory and then in
	// the XDG config directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero (timeout, body size,
// user agent). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		OutputDir:   ".",
		MaxBodySize: DefaultMaxBodySize,
		UserAgent:   DefaultUserAgent,
	}
}

// XDGConfigDir returns the XDG config directory for linkprobe.
// On Linux: ~/.config/linkprobe
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid. It returns a specific
// sentinel error describing the first problem found; fixing one error often
// makes others irrelevant.
func (c *Config) Validate() error {
	if c.Seed == "" {
		return ErrNoSeed
	}

	u, err := url.Parse(c.Seed)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidSeed
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	// The output directory must exist before the run; we refuse to create
	// it silently because a typo would scatter reports across disk.
	info, err := os.Stat(c.OutputDir)
	if err != nil || !info.IsDir() {
		return ErrOutputDirNotFound
	}

	return nil
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".linkprobe"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .linkprobe configuration file.
type File struct {
	// Rules maps lower-cased header names to expected value patterns.
	// An empty pattern means presence-only. File rules are evaluated
	// before rules supplied on the command line.
	Rules map[string]string `yaml:"rules,omitempty"`

	// Sites maps hostnames to site-specific request settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains request settings applied to all sites unless
	// overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// SiteConfig holds request settings for a single host. This allows crawling
// sites that require authentication headers or cookies.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP request headers for this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// LoadConfigFile loads a configuration file from the given path.
// If the file does not exist, it returns ErrConfigNotFound. Callers should
// handle this based on whether the path was explicitly specified.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. Look for .linkprobe in the current directory
//  3. Look for config.yaml in the XDG config directory
//
// Returns the path if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// GetSiteConfig returns the request settings for a specific host, merging
// the site-specific configuration over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if site, ok := cf.Sites[host]; ok {
		if site.Cookie != "" {
			result.Cookie = site.Cookie
		}
		if site.UserAgent != "" {
			result.UserAgent = site.UserAgent
		}
		if len(site.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range site.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}

// HeaderRules converts the file's rule map into compiled HeaderRules.
// Rules are sorted by header name so evaluation order is deterministic
// across runs; YAML map iteration order is not.
func (cf *File) HeaderRules() ([]HeaderRule, error) {
	names := make([]string, 0, len(cf.Rules))
	for name := range cf.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]HeaderRule, 0, len(names))
	for _, name := range names {
		spec := name
		if pattern := cf.Rules[name]; pattern != "" {
			spec = name + ":" + pattern
		}
		rule, err := ParseHeaderRule(spec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

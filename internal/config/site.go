package config

import "maps"

// SiteConfig holds per-host crawl settings from the config file.
type SiteConfig struct {
	// Cookie is sent with every request to the host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers for the host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global depth when non-zero.
	Depth int `yaml:"depth,omitempty"`

	// Workers overrides the global worker count when non-zero.
	Workers int `yaml:"workers,omitempty"`

	// IgnorePatterns are glob patterns for URL paths to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, are the only URL paths followed.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File is the structure of the .crawlpool configuration file.
type File struct {
	// Sites maps host names (e.g. "example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := merge(SiteConfig{}, cf.Defaults)
	if site, ok := cf.Sites[host]; ok {
		result = merge(result, site)
	}
	return result
}

// merge returns base with every non-empty field of override applied.
// Headers are combined; the override wins on conflicting keys.
func merge(base, override SiteConfig) SiteConfig {
	if override.Cookie != "" {
		base.Cookie = override.Cookie
	}
	if override.Depth != 0 {
		base.Depth = override.Depth
	}
	if override.Workers != 0 {
		base.Workers = override.Workers
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(base.Headers)+len(override.Headers))
		maps.Copy(headers, base.Headers)
		maps.Copy(headers, override.Headers)
		base.Headers = headers
	}
	if len(override.IgnorePatterns) > 0 {
		base.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		base.FollowPatterns = override.FollowPatterns
	}
	return base
}

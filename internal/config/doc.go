// Package config holds the crawlpool command configuration: defaults,
// validation, the optional .crawlpool YAML site file and CRAWLPOOL_*
// environment overrides.
package config

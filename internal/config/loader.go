package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".crawlpool"

// EnvPrefix is the prefix of environment variables read by ApplyEnv.
const EnvPrefix = "crawlpool"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
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
// 1. If configPath is specified, use it directly
// 2. Look for .crawlpool in the current directory
// 3. Look for .crawlpool in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envOverrides lists the settings that CRAWLPOOL_* variables may override.
type envOverrides struct {
	Workers      int           `envconfig:"WORKERS"`
	Depth        int           `envconfig:"DEPTH"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT"`
	Timeout      time.Duration `envconfig:"TIMEOUT"`
	BatchSize    int           `envconfig:"BATCH_SIZE"`
	UserAgent    string        `envconfig:"USER_AGENT"`
	MaxBodySize  int64         `envconfig:"MAX_BODY_SIZE"`
	Proxy        string        `envconfig:"PROXY"`
	DBDir        string        `envconfig:"DB_DIR"`
}

// ApplyEnv overrides c with any CRAWLPOOL_* environment variables that are
// set, for example CRAWLPOOL_WORKERS=8 or CRAWLPOOL_TIMEOUT=2m.
// Unset variables leave c unchanged.
func (c *Config) ApplyEnv() error {
	env := envOverrides{
		Workers:      c.Workers,
		Depth:        c.Depth,
		FetchTimeout: c.FetchTimeout,
		Timeout:      c.Timeout,
		BatchSize:    c.BatchSize,
		UserAgent:    c.UserAgent,
		MaxBodySize:  c.MaxBodySize,
		Proxy:        c.ProxyAddress,
		DBDir:        c.DBDir,
	}
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}

	c.Workers = env.Workers
	c.Depth = env.Depth
	c.FetchTimeout = env.FetchTimeout
	c.Timeout = env.Timeout
	c.BatchSize = env.BatchSize
	c.UserAgent = env.UserAgent
	c.MaxBodySize = env.MaxBodySize
	c.ProxyAddress = env.Proxy
	c.DBDir = env.DBDir
	return nil
}

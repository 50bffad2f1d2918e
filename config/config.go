// Package config holds the sink configuration: the ingestion key, the
// identity the logs are shipped under, and the batching limits. Values
// come from a YAML file, are overridden by LOGDNA_* environment
// variables, and are finalised with ApplyDefaults and Validate.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/formatter"
	"github.com/philipp01105/nlog-logdna/ingest"
)

const (
	// DefaultApp is used when no application name is configured
	DefaultApp = formatter.DefaultApp
	// DefaultBatchSizeLimitBytes keeps requests well under the 10 MiB endpoint limit
	DefaultBatchSizeLimitBytes = 5 * 1024 * 1024
	// DefaultBatchCountLimit is the maximum number of lines per request
	DefaultBatchCountLimit = 1000
	// DefaultPeriod is the interval between flushes
	DefaultPeriod = 5 * time.Second
	// DefaultQueueSize is the capacity of the pending line queue
	DefaultQueueSize = 10000
	// DefaultDrainTimeout bounds the final flush on close
	DefaultDrainTimeout = 5 * time.Second
)

// EnvironmentVariables are consulted in order by ResolveEnvironment
var EnvironmentVariables = []string{"LOGDNA_ENV", "APP_ENV", "GO_ENV"}

// Config is the sink configuration
type Config struct {
	APIKey    string `yaml:"api_key"`
	AppName   string `yaml:"app_name"`
	Tags      string `yaml:"tags"`
	IngestURL string `yaml:"ingest_url"`
	Hostname  string `yaml:"hostname"`
	// Env is the environment name; resolved from EnvironmentVariables when empty
	Env      string `yaml:"env"`
	MinLevel string `yaml:"min_level"`

	BatchSizeLimitBytes int           `yaml:"batch_size_limit_bytes"`
	BatchCountLimit     int           `yaml:"batch_count_limit"`
	Period              time.Duration `yaml:"period"`
	QueueSize           int           `yaml:"queue_size"`
	DrainTimeout        time.Duration `yaml:"drain_timeout"`
}

var (
	// ErrMissingAPIKey is returned by Validate when no ingestion key is set
	ErrMissingAPIKey = ingest.ErrMissingAPIKey
	// ErrMissingIngestURL is returned by Validate when the ingest URL is blank
	ErrMissingIngestURL = ingest.ErrMissingIngestURL
	// ErrNoConfigFile is returned by Load when none of the candidate files exists
	ErrNoConfigFile = errors.New("config: no configuration file found")
)

// getConfigPaths returns possible config file locations, in order of preference
func getConfigPaths() []string {
	var paths []string
	if p := os.Getenv("LOGDNA_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "nlog-logdna", "config.yaml"))
	}
	return append(paths, "logdna.yaml")
}

// Load reads the first existing file among paths (or the default
// locations when none are given) and applies environment overrides.
// When no file exists the configuration is built from the environment
// alone and ErrNoConfigFile is returned alongside it.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 || (len(paths) == 1 && paths[0] == "") {
		paths = getConfigPaths()
	}

	cfg := &Config{}
	found := false
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "config: reading %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "config: parsing %s", path)
		}
		found = true
		break
	}

	cfg.ApplyEnv()
	if !found {
		return cfg, errors.Wrapf(ErrNoConfigFile, "looked in %s", strings.Join(paths, ", "))
	}
	return cfg, nil
}

// Parse decodes a YAML document into a Config
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parsing")
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LOGDNA_* environment variables
func (c *Config) ApplyEnv() {
	override := func(dst *string, name string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	override(&c.APIKey, "LOGDNA_API_KEY")
	override(&c.AppName, "LOGDNA_APP")
	override(&c.Tags, "LOGDNA_TAGS")
	override(&c.IngestURL, "LOGDNA_INGEST_URL")
	override(&c.Hostname, "LOGDNA_HOSTNAME")
}

// ResolveEnvironment returns the first non-empty value among
// EnvironmentVariables
func ResolveEnvironment() string {
	for _, name := range EnvironmentVariables {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// ApplyDefaults fills in zero-value fields. The environment name is
// resolved here, once, so later changes to the process environment do
// not affect a running sink.
func (c *Config) ApplyDefaults() {
	if c.AppName == "" {
		c.AppName = DefaultApp
	}
	if c.IngestURL == "" {
		c.IngestURL = ingest.DefaultURL
	}
	if c.Env == "" {
		c.Env = ResolveEnvironment()
	}
	if c.BatchSizeLimitBytes == 0 {
		c.BatchSizeLimitBytes = DefaultBatchSizeLimitBytes
	}
	if c.BatchCountLimit == 0 {
		c.BatchCountLimit = DefaultBatchCountLimit
	}
	if c.Period == 0 {
		c.Period = DefaultPeriod
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
}

// Validate reports the first configuration problem found
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.IngestURL) == "" {
		return ErrMissingIngestURL
	}
	if c.MinLevel != "" {
		if _, ok := core.ParseLevel(c.MinLevel); !ok {
			return errors.Newf("config: unknown min_level %q", c.MinLevel)
		}
	}
	if c.BatchSizeLimitBytes < 0 {
		return errors.Newf("config: batch_size_limit_bytes must be positive, got %d", c.BatchSizeLimitBytes)
	}
	if c.BatchCountLimit < 0 {
		return errors.Newf("config: batch_count_limit must be positive, got %d", c.BatchCountLimit)
	}
	if c.Period < 0 {
		return errors.Newf("config: period must be positive, got %s", c.Period)
	}
	if c.QueueSize < 0 {
		return errors.Newf("config: queue_size must be positive, got %d", c.QueueSize)
	}
	return nil
}

// Level returns the configured minimum level (Verbose when unset)
func (c *Config) Level() core.Level {
	if c.MinLevel == "" {
		return core.VerboseLevel
	}
	lvl, _ := core.ParseLevel(c.MinLevel)
	return lvl
}

// MaskedAPIKey returns the API key with all but the first four
// characters hidden, for display
func (c *Config) MaskedAPIKey() string {
	const visible = 4
	if len(c.APIKey) <= visible {
		return strings.Repeat("*", 8)
	}
	return c.APIKey[:visible] + strings.Repeat("*", len(c.APIKey)-visible)
}

// Package config loads and validates CDA client configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the CDA client.
type Config struct {
	Manifest   ManifestConfig  `yaml:"manifest"`
	Source     SourceConfig    `yaml:"source"`
	Sink       SinkConfig      `yaml:"sink"`
	Savepoints SavepointConfig `yaml:"savepoints"`
	Copy       CopyConfig      `yaml:"copy"`
	Log        LogConfig       `yaml:"log"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// ManifestConfig locates the producer-published manifest document.
type ManifestConfig struct {
	// Path is a local filesystem path to a manifest JSON document.
	Path string `yaml:"path"`

	// BucketURL and Key locate the manifest inside an object store
	// (gocloud URL, e.g. "s3://bucket?region=us-east-1"). Used when Path
	// is empty.
	BucketURL string `yaml:"bucket_url"`
	Key       string `yaml:"key"`
}

// SourceConfig locates the object store holding exported partitions.
type SourceConfig struct {
	// BucketURL is a gocloud blob URL, e.g. "file:///exports",
	// "gs://bucket" or "s3://bucket?region=us-east-1".
	BucketURL string `yaml:"bucket_url"`

	// ReadRetries bounds retries of transient partition read errors.
	ReadRetries int `yaml:"read_retries"`
}

// SinkConfig locates the output destination.
type SinkConfig struct {
	BucketURL string `yaml:"bucket_url"`
	Prefix    string `yaml:"prefix"`

	// Compression selects the parquet codec: "snappy" | "zstd" | "none".
	Compression string `yaml:"compression"`
}

// SavepointConfig configures watermark persistence.
type SavepointConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// CopyConfig bounds the copy engine's concurrency.
type CopyConfig struct {
	// JobConcurrency is the number of (table, fingerprint) jobs allowed
	// to run at the same time.
	JobConcurrency int `yaml:"job_concurrency"`

	// FetchConcurrency bounds parallel partition fetches within one job.
	FetchConcurrency int `yaml:"fetch_concurrency"`

	// DryRun plans jobs and logs them without copying anything.
	DryRun bool `yaml:"dry_run"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns a configuration with usable defaults for local runs.
func Default() Config {
	return Config{
		Source: SourceConfig{
			ReadRetries: 3,
		},
		Sink: SinkConfig{
			Compression: "snappy",
		},
		Savepoints: SavepointConfig{
			Enabled: true,
			Dir:     "./savepoints",
		},
		Copy: CopyConfig{
			JobConcurrency:   4,
			FetchConcurrency: 4,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}
}

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result. An empty path loads defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded configuration.
func applyEnv(cfg *Config) {
	cfg.Manifest.Path = getenvDefault("CDA_MANIFEST_PATH", cfg.Manifest.Path)
	cfg.Manifest.BucketURL = getenvDefault("CDA_MANIFEST_BUCKET_URL", cfg.Manifest.BucketURL)
	cfg.Manifest.Key = getenvDefault("CDA_MANIFEST_KEY", cfg.Manifest.Key)
	cfg.Source.BucketURL = getenvDefault("CDA_SOURCE_BUCKET_URL", cfg.Source.BucketURL)
	cfg.Sink.BucketURL = getenvDefault("CDA_SINK_BUCKET_URL", cfg.Sink.BucketURL)
	cfg.Sink.Prefix = getenvDefault("CDA_SINK_PREFIX", cfg.Sink.Prefix)
	cfg.Sink.Compression = getenvDefault("CDA_SINK_COMPRESSION", cfg.Sink.Compression)
	cfg.Savepoints.Dir = getenvDefault("CDA_SAVEPOINT_DIR", cfg.Savepoints.Dir)
	cfg.Log.Format = getenvDefault("CDA_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Level = getenvDefault("CDA_LOG_LEVEL", cfg.Log.Level)

	if v := os.Getenv("CDA_JOB_CONCURRENCY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Copy.JobConcurrency = parsed
		}
	}
	if v := os.Getenv("CDA_FETCH_CONCURRENCY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Copy.FetchConcurrency = parsed
		}
	}
	if v := os.Getenv("CDA_DRY_RUN"); v != "" {
		cfg.Copy.DryRun = v == "true"
	}
	if v := os.Getenv("CDA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Copy.JobConcurrency < 1 {
		return fmt.Errorf("copy.job_concurrency must be >= 1, got %d", c.Copy.JobConcurrency)
	}
	if c.Copy.FetchConcurrency < 1 {
		return fmt.Errorf("copy.fetch_concurrency must be >= 1, got %d", c.Copy.FetchConcurrency)
	}
	if c.Source.ReadRetries < 0 {
		return fmt.Errorf("source.read_retries must be >= 0, got %d", c.Source.ReadRetries)
	}
	if c.Manifest.Path == "" && (c.Manifest.BucketURL == "" || c.Manifest.Key == "") {
		return fmt.Errorf("manifest.path or manifest.bucket_url + manifest.key is required")
	}
	if c.Source.BucketURL == "" {
		return fmt.Errorf("source.bucket_url is required")
	}
	if c.Sink.BucketURL == "" {
		return fmt.Errorf("sink.bucket_url is required")
	}
	switch c.Sink.Compression {
	case "", "snappy", "zstd", "none":
	default:
		return fmt.Errorf("sink.compression must be snappy, zstd or none, got %q", c.Sink.Compression)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

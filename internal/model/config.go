package model

import "runtime"

// Config is the complete cxrsect configuration.
// Field tags serve both yaml.v3 (config show/init) and viper's mapstructure decoding.
type Config struct {
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Shard       ShardConfig       `yaml:"shard" mapstructure:"shard"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Overrides   OverridesConfig   `yaml:"overrides" mapstructure:"overrides"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// ConcurrencyConfig controls the report worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ShardConfig controls output sharding
type ShardConfig struct {
	Size   int    `yaml:"size" mapstructure:"size"`     // Rows per shard file
	Prefix string `yaml:"prefix" mapstructure:"prefix"` // Shard file name prefix
}

// OutputConfig controls where and how selections are written
type OutputConfig struct {
	Dir      string   `yaml:"dir" mapstructure:"dir"`
	ErrorLog string   `yaml:"error_log" mapstructure:"error_log"` // One failed report id per line
	Clean    bool     `yaml:"clean" mapstructure:"clean"`         // Apply the text cleaner to selected text
	S3       S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config enables writing shards to an S3-compatible bucket instead of Dir
type S3Config struct {
	Bucket    string  `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string  `yaml:"prefix" mapstructure:"prefix"`
	Region    string  `yaml:"region" mapstructure:"region"`
	Endpoint  string  `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	AccessKey string  `yaml:"access_key,omitempty" mapstructure:"access_key"`
	SecretKey string  `yaml:"secret_key,omitempty" mapstructure:"secret_key"`
	Rate      float64 `yaml:"rate" mapstructure:"rate"` // Max shard uploads per second, 0 = unlimited
}

// Enabled reports whether shards should go to S3
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// OverridesConfig points at an alternate override table.
// An empty File uses the built-in MIMIC-CXR corrections.
type OverridesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// MetricsConfig exposes Prometheus metrics while a batch runs
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"` // e.g. ":9108"; empty disables the listener
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Shard: ShardConfig{
			Size:   10000,
			Prefix: "mimic_cxr",
		},
		Output: OutputConfig{
			Dir:      "./cxrsect-out",
			ErrorLog: "error.log",
			Clean:    true,
			S3: S3Config{
				Region: "us-east-1",
			},
		},
	}
}

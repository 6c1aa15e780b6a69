package cli

import (
	"fmt"

	"github.com/ppiankov/cxrsect/internal/extract"
	"github.com/ppiankov/cxrsect/internal/logging"
	"github.com/ppiankov/cxrsect/internal/model"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// setDefaults registers every config key so env vars and Unmarshal see them
func setDefaults(v *viper.Viper) {
	d := model.DefaultConfig()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("concurrency.workers", d.Concurrency.Workers)
	v.SetDefault("shard.size", d.Shard.Size)
	v.SetDefault("shard.prefix", d.Shard.Prefix)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.error_log", d.Output.ErrorLog)
	v.SetDefault("output.clean", d.Output.Clean)
	v.SetDefault("output.s3.bucket", d.Output.S3.Bucket)
	v.SetDefault("output.s3.prefix", d.Output.S3.Prefix)
	v.SetDefault("output.s3.region", d.Output.S3.Region)
	v.SetDefault("output.s3.endpoint", d.Output.S3.Endpoint)
	v.SetDefault("output.s3.access_key", d.Output.S3.AccessKey)
	v.SetDefault("output.s3.secret_key", d.Output.S3.SecretKey)
	v.SetDefault("output.s3.rate", d.Output.S3.Rate)
	v.SetDefault("overrides.file", d.Overrides.File)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// loadConfig decodes the merged flags, env, file and defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Shard.Size <= 0 {
		return nil, fmt.Errorf("shard.size must be positive, got %d", cfg.Shard.Size)
	}
	if cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = 1
	}

	return cfg, nil
}

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if verbose && level != "debug" {
		level = "debug"
	}
	return logging.New(level, cfg.Log.Format)
}

func rulesVersion() string {
	return extract.RulesVersion
}

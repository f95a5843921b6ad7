// Package config loads the CLI configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Remote  RemoteConfig  `yaml:"remote" mapstructure:"remote"`
	Sweep   SweepConfig   `yaml:"sweep" mapstructure:"sweep"`
	RunLog  RunLogConfig  `yaml:"runlog" mapstructure:"runlog"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DatasetConfig locates the persisted CSV dataset.
type DatasetConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig locates the raw-document and media caches.
type CacheConfig struct {
	HTMLDir  string `yaml:"html_dir" mapstructure:"html_dir"`
	MediaDir string `yaml:"media_dir" mapstructure:"media_dir"`
}

// RemoteConfig describes the remote question archive.
type RemoteConfig struct {
	QuestionURL string `yaml:"question_url" mapstructure:"question_url"`
	ArchiveURL  string `yaml:"archive_url" mapstructure:"archive_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DelayMillis int    `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// Timeout returns the per-request timeout as a duration.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSecs) * time.Second
}

// Delay returns the courteous inter-request delay as a duration.
func (r RemoteConfig) Delay() time.Duration {
	return time.Duration(r.DelayMillis) * time.Millisecond
}

// SweepConfig tunes the incremental sweep loop. BufferThreshold and
// MaxMissingStreak drive the termination heuristic; both are data-dependent
// and deliberately configuration, not constants.
type SweepConfig struct {
	BufferThreshold    int `yaml:"buffer_threshold" mapstructure:"buffer_threshold"`
	MaxMissingStreak   int `yaml:"max_missing_streak" mapstructure:"max_missing_streak"`
	CheckpointInterval int `yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
	ProgressEvery      int `yaml:"progress_every" mapstructure:"progress_every"`
	ArchivePages       int `yaml:"archive_pages" mapstructure:"archive_pages"`
}

// RunLogConfig locates the SQLite run-history database.
type RunLogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.path", "data/moazrovne_dataset.csv")
	v.SetDefault("cache.html_dir", "data/html")
	v.SetDefault("cache.media_dir", "data/images")
	v.SetDefault("remote.question_url", "http://moazrovne.net/q/")
	v.SetDefault("remote.archive_url", "http://moazrovne.net/chgk/")
	v.SetDefault("remote.user_agent", "harvest-cli/1.0")
	v.SetDefault("remote.timeout_secs", 20)
	v.SetDefault("remote.delay_ms", 1000)
	v.SetDefault("sweep.buffer_threshold", 3000)
	v.SetDefault("sweep.max_missing_streak", 40)
	v.SetDefault("sweep.checkpoint_interval", 25)
	v.SetDefault("sweep.progress_every", 50)
	v.SetDefault("sweep.archive_pages", 140)
	v.SetDefault("runlog.path", "data/harvest_runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

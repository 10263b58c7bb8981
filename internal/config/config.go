// Package config loads runtime settings for author-report from defaults,
// an optional YAML config file, AUTHOR_REPORT_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults reproduce the argument-free invocation: read ./input/urls.txt,
// write ./output/<timestamp>.csv, one request at a time.
const (
	DefaultInput          = "input/urls.txt"
	DefaultOutputDir      = "output"
	DefaultSuffix         = "about.json"
	DefaultConcurrency    = 1
	DefaultRequestTimeout = 30 * time.Second
	DefaultUserAgent      = "go-author-report/1.0"
	DefaultMaxBodyBytes   = 5 * 1024 * 1024
	DefaultFormat         = "text"
	DefaultLogLevel       = "warn"

	// ConfigName is looked up as author-report.yaml in the working directory.
	ConfigName = "author-report"
	envPrefix  = "AUTHOR_REPORT"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds everything a run needs.
type Config struct {
	Input          string        `mapstructure:"input"`
	OutputDir      string        `mapstructure:"output-dir"`
	Suffix         string        `mapstructure:"suffix"`
	Concurrency    int           `mapstructure:"concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	RateLimit      float64       `mapstructure:"rate-limit"`
	UserAgent      string        `mapstructure:"user-agent"`
	MaxBodyBytes   int64         `mapstructure:"max-body-bytes"`
	FailOnStatus   bool          `mapstructure:"fail-on-status"`
	Format         string        `mapstructure:"format"`
	LogLevel       string        `mapstructure:"log-level"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// Default returns a Config populated with the package defaults.
func Default() Config {
	return Config{
		Input:          DefaultInput,
		OutputDir:      DefaultOutputDir,
		Suffix:         DefaultSuffix,
		Concurrency:    DefaultConcurrency,
		RequestTimeout: DefaultRequestTimeout,
		UserAgent:      DefaultUserAgent,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		Format:         DefaultFormat,
		LogLevel:       DefaultLogLevel,
	}
}

// Load builds a Config. configFile may be empty, in which case
// author-report.yaml is searched in the working directory and silently
// skipped when absent. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("input", d.Input)
	v.SetDefault("output-dir", d.OutputDir)
	v.SetDefault("suffix", d.Suffix)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("request-timeout", d.RequestTimeout)
	v.SetDefault("rate-limit", d.RateLimit)
	v.SetDefault("user-agent", d.UserAgent)
	v.SetDefault("max-body-bytes", d.MaxBodyBytes)
	v.SetDefault("fail-on-status", d.FailOnStatus)
	v.SetDefault("format", d.Format)
	v.SetDefault("log-level", d.LogLevel)
}

// Validate checks the configuration for values a run cannot work with.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Input) == "":
		return fmt.Errorf("%w: input path is required", ErrInvalid)
	case strings.TrimSpace(c.OutputDir) == "":
		return fmt.Errorf("%w: output directory is required", ErrInvalid)
	case strings.Trim(c.Suffix, "/ ") == "":
		return fmt.Errorf("%w: suffix must not be empty", ErrInvalid)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalid, c.Concurrency)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalid)
	case c.RequestTimeout < 0:
		return fmt.Errorf("%w: request timeout must not be negative", ErrInvalid)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalid)
	case c.MaxBodyBytes < 0:
		return fmt.Errorf("%w: max body bytes must not be negative", ErrInvalid)
	}

	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown format %q (want text or json)", ErrInvalid, c.Format)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("%w: unknown log level %q", ErrInvalid, name)
	}
}

// Package config loads doccov settings from defaults, pyproject.toml,
// .doccov/config.{toml,json,yaml} and DOCCOV_* environment variables, in
// increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"doccov/internal/analyzer"
	"doccov/internal/errors"
	"doccov/internal/paths"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete doccov configuration.
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version" validate:"eq=1"`

	Scan      ScanConfig      `json:"scan" mapstructure:"scan" toml:"scan"`
	Review    ReviewConfig    `json:"review" mapstructure:"review" toml:"review"`
	Generator GeneratorConfig `json:"generator" mapstructure:"generator" toml:"generator"`
	Report    ReportConfig    `json:"report" mapstructure:"report" toml:"report"`
	History   HistoryConfig   `json:"history" mapstructure:"history" toml:"history"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" toml:"logging"`
}

// ScanConfig controls which files the analyzer visits.
type ScanConfig struct {
	Exclude          []string `json:"exclude" mapstructure:"exclude" toml:"exclude"`
	Workers          int      `json:"workers" mapstructure:"workers" toml:"workers" validate:"gte=0,lte=256"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes" toml:"maxFileSizeBytes" validate:"gte=0"`
}

// ReviewConfig selects the docstring style functions are judged against.
type ReviewConfig struct {
	Style string `json:"style" mapstructure:"style" toml:"style" validate:"oneof=google numpy rest"`
}

// GeneratorConfig selects and tunes the docstring generator.
// Mode "auto" uses the chat endpoint when an API key is present.
type GeneratorConfig struct {
	Mode           string  `json:"mode" mapstructure:"mode" toml:"mode" validate:"oneof=auto placeholder chat"`
	Endpoint       string  `json:"endpoint" mapstructure:"endpoint" toml:"endpoint" validate:"omitempty,url"`
	Model          string  `json:"model" mapstructure:"model" toml:"model" validate:"required"`
	Temperature    float64 `json:"temperature" mapstructure:"temperature" toml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSeconds int     `json:"timeoutSeconds" mapstructure:"timeoutSeconds" toml:"timeoutSeconds" validate:"gte=1,lte=600"`
	// APIKey is only read from the environment or config files, never written back.
	APIKey string `json:"-" mapstructure:"apiKey" toml:"-" validate:"required_if=Mode chat"`
}

// ReportConfig controls where coverage reports go.
type ReportConfig struct {
	Output string `json:"output" mapstructure:"output" toml:"output"`
	Format string `json:"format" mapstructure:"format" toml:"format" validate:"oneof=json yaml text"`
}

// HistoryConfig controls run persistence in .doccov/doccov.db.
type HistoryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	Keep    int  `json:"keep" mapstructure:"keep" toml:"keep" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level" toml:"level" validate:"oneof=debug info warn warning error silent"`
	File       bool   `json:"file" mapstructure:"file" toml:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" toml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups" validate:"gte=0"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	opts := analyzer.DefaultOptions()
	return &Config{
		Version: CurrentVersion,
		Scan: ScanConfig{
			Exclude:          opts.Exclude,
			Workers:          0,
			MaxFileSizeBytes: opts.MaxFileSizeBytes,
		},
		Review: ReviewConfig{
			Style: "google",
		},
		Generator: GeneratorConfig{
			Mode:           "auto",
			Endpoint:       "https://api.groq.com/openai/v1/chat/completions",
			Model:          "llama-3.3-70b-versatile",
			Temperature:    0.1,
			TimeoutSeconds: 60,
		},
		Report: ReportConfig{
			Output: "storage/coverage_report.json",
			Format: "json",
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    100,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			File:       false,
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// AnalyzerOptions converts the scan section for the analyzer.
func (c *Config) AnalyzerOptions() analyzer.Options {
	exclude := make([]string, len(c.Scan.Exclude))
	copy(exclude, c.Scan.Exclude)
	return analyzer.Options{
		Exclude:          exclude,
		Workers:          c.Scan.Workers,
		MaxFileSizeBytes: c.Scan.MaxFileSizeBytes,
	}
}

// LoadConfig loads configuration for the project rooted at repoRoot.
// A missing config file is not an error; defaults apply.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("DOCCOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// GROQ_API_KEY is honoured for compatibility with existing setups.
	_ = v.BindEnv("generator.apiKey", "DOCCOV_GENERATOR_APIKEY", "GROQ_API_KEY")

	section, err := readPyproject(filepath.Join(repoRoot, "pyproject.toml"))
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid pyproject.toml", err)
	}
	if len(section) > 0 {
		if err := v.MergeConfigMap(section); err != nil {
			return nil, errors.New(errors.ConfigInvalid, "invalid [tool.doccov] section", err)
		}
	}

	v.SetConfigName("config")
	v.AddConfigPath(paths.DataDir(repoRoot))
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.New(errors.ConfigInvalid, "cannot read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "cannot decode config", err)
	}
	return &cfg, nil
}

// setDefaults registers every key with viper so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("version", cfg.Version)

	v.SetDefault("scan.exclude", cfg.Scan.Exclude)
	v.SetDefault("scan.workers", cfg.Scan.Workers)
	v.SetDefault("scan.maxFileSizeBytes", cfg.Scan.MaxFileSizeBytes)

	v.SetDefault("review.style", cfg.Review.Style)

	v.SetDefault("generator.mode", cfg.Generator.Mode)
	v.SetDefault("generator.endpoint", cfg.Generator.Endpoint)
	v.SetDefault("generator.model", cfg.Generator.Model)
	v.SetDefault("generator.temperature", cfg.Generator.Temperature)
	v.SetDefault("generator.timeoutSeconds", cfg.Generator.TimeoutSeconds)
	v.SetDefault("generator.apiKey", "")

	v.SetDefault("report.output", cfg.Report.Output)
	v.SetDefault("report.format", cfg.Report.Format)

	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.keep", cfg.History.Keep)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.maxSize", cfg.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", cfg.Logging.MaxBackups)
}

// EnvVar describes one environment override.
type EnvVar struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Set  bool   `json:"set"`
}

// EnvVars lists the environment variables LoadConfig consults, sorted by key.
func EnvVars() []EnvVar {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	keys := v.AllKeys()
	sort.Strings(keys)

	vars := make([]EnvVar, 0, len(keys)+1)
	for _, key := range keys {
		name := "DOCCOV_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		vars = append(vars, EnvVar{Name: name, Key: key, Set: os.Getenv(name) != ""})
	}
	vars = append(vars, EnvVar{Name: "GROQ_API_KEY", Key: "generator.apikey", Set: os.Getenv("GROQ_API_KEY") != ""})
	return vars
}

// ConfigPath returns the path Save writes to.
func ConfigPath(repoRoot string) string {
	return filepath.Join(paths.DataDir(repoRoot), "config.toml")
}

// Save writes the configuration to .doccov/config.toml. The API key is never written.
func (c *Config) Save(repoRoot string) error {
	if _, err := paths.EnsureDataDir(repoRoot); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(repoRoot), data, 0644)
}

// Init writes the default configuration unless a config file already exists.
func Init(repoRoot string, force bool) (string, error) {
	path := ConfigPath(repoRoot)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, errors.New(errors.ConfigInvalid, fmt.Sprintf("%s already exists", path), nil)
		}
	}
	if err := DefaultConfig().Save(repoRoot); err != nil {
		return path, err
	}
	return path, nil
}

// Package config resolves nexora settings from flags, NEXORA_* environment
// variables, an optional .env file, the YAML config file and defaults.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/log"
)

// DefaultAPIURL is the hosted backend.
const DefaultAPIURL = "https://scopesmith-backend.onrender.com/api"

// Config holds the effective nexora configuration.
type Config struct {
	APIURL          string          `mapstructure:"api_url" json:"api_url" yaml:"api_url"`
	CredentialsFile string          `mapstructure:"credentials_file" json:"credentials_file" yaml:"credentials_file"`
	Timeout         time.Duration   `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	Output          string          `mapstructure:"output" json:"output" yaml:"output"`
	Log             LogConfig       `mapstructure:"log" json:"log" yaml:"log"`
	Telemetry       TelemetryConfig `mapstructure:"telemetry" json:"telemetry" yaml:"telemetry"`
	Contract        ContractConfig  `mapstructure:"contract" json:"contract" yaml:"contract"`
	Search          SearchConfig    `mapstructure:"search" json:"search" yaml:"search"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" json:"-" yaml:"-"`
}

// LogConfig controls the stderr logger.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`
}

// ContractConfig toggles request validation against the embedded API document.
type ContractConfig struct {
	Validate bool `mapstructure:"validate" json:"validate" yaml:"validate"`
}

// SearchConfig tunes the admin browser search box.
type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`
}

// LoadOptions selects the inputs of Load.
type LoadOptions struct {
	// ConfigFile overrides the default ~/.nexora/config.yaml lookup.
	ConfigFile string
	// EnvFile is loaded into the process environment before resolution.
	// A missing file is ignored.
	EnvFile string
	// Flags are bound by name (see FlagKeys). Nil skips flag binding.
	Flags *pflag.FlagSet
}

// FlagKeys maps persistent CLI flag names to configuration keys.
var FlagKeys = map[string]string{
	"api-url":           "api_url",
	"credentials-file":  "credentials_file",
	"timeout":           "timeout",
	"output":            "output",
	"log-level":         "log.level",
	"log-format":        "log.format",
	"validate-contract": "contract.validate",
}

// Dir returns ~/.nexora.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".nexora"), nil
}

// Load resolves the configuration. Precedence is flags, then environment,
// then config file, then defaults.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to load env file "+opts.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("NEXORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to read config file", err).
				WithSuggestion("Check the YAML syntax of your config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "failed to decode configuration", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.CredentialsFile = expandHome(cfg.CredentialsFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	dir, _ := Dir()

	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("credentials_file", filepath.Join(dir, "credentials.json"))
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("output", "text")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("contract.validate", false)
	v.SetDefault("search.debounce", 300*time.Millisecond)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewConfigInvalidError("api_url", fmt.Sprintf("%q is not an http(s) URL", c.APIURL))
	}
	if c.Timeout <= 0 {
		return errors.NewConfigInvalidError("timeout", "must be positive")
	}
	switch c.Output {
	case "text", "json", "yaml":
	default:
		return errors.NewConfigInvalidError("output", fmt.Sprintf("%q is not one of text, json, yaml", c.Output))
	}
	if _, ok := log.ParseLevel(c.Log.Level); !ok {
		return errors.NewConfigInvalidError("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.NewConfigInvalidError("telemetry.sample_rate", "must be between 0 and 1")
	}
	if c.Search.Debounce < 0 {
		return errors.NewConfigInvalidError("search.debounce", "must not be negative")
	}
	return nil
}

// LoggerConfig builds the logger configuration for these settings.
func (c *Config) LoggerConfig() log.Config {
	cfg := log.DefaultConfig()
	cfg.Level, _ = log.ParseLevel(c.Log.Level)
	cfg.Format = log.ParseFormat(c.Log.Format)
	if cfg.Level == log.LevelDebug {
		cfg.AddSource = true
	}
	return cfg
}

// Settings flattens the configuration into dotted keys, sorted for display.
func (c *Config) Settings() []Setting {
	settings := []Setting{
		{"api_url", c.APIURL},
		{"credentials_file", c.CredentialsFile},
		{"timeout", c.Timeout.String()},
		{"output", c.Output},
		{"log.level", c.Log.Level},
		{"log.format", c.Log.Format},
		{"telemetry.enabled", fmt.Sprint(c.Telemetry.Enabled)},
		{"telemetry.endpoint", c.Telemetry.Endpoint},
		{"telemetry.sample_rate", fmt.Sprint(c.Telemetry.SampleRate)},
		{"contract.validate", fmt.Sprint(c.Contract.Validate)},
		{"search.debounce", c.Search.Debounce.String()},
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings
}

// Setting is one resolved key/value pair.
type Setting struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

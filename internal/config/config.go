// Package config loads sitebuild configuration using Viper from
// .sitebuild.yml, SITEBUILD_* environment variables and command-line flags.
//
// Values are unmarshalled into Config, defaults are applied for anything
// left unset, and the result is validated before use.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
)

// FileName is the default configuration file name, without extension.
const FileName = ".sitebuild"

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "SITEBUILD"

// EnvKeyReplacer maps nested keys such as server.port to SITEBUILD_SERVER_PORT.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

type Config struct {
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`
	Styles   StylesConfig   `mapstructure:"styles" yaml:"styles"`
	Scripts  ScriptsConfig  `mapstructure:"scripts" yaml:"scripts"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	warnings []ValidationError
}

// Warnings returns the non-fatal issues found when the configuration was
// loaded.
func (c *Config) Warnings() []ValidationError {
	return c.warnings
}

type SourceConfig struct {
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Entry string `mapstructure:"entry" yaml:"entry"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type MetadataConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// StylesConfig controls the CSS post-processing step. Targets are browser
// versions such as "chrome58" or "safari11".
type StylesConfig struct {
	Targets []string `mapstructure:"targets" yaml:"targets"`
}

type ScriptsConfig struct {
	Target string `mapstructure:"target" yaml:"target"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ServerConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Open     bool   `mapstructure:"open" yaml:"open"`
	Compress bool   `mapstructure:"compress" yaml:"compress"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Source:   SourceConfig{Dir: "src", Entry: "index"},
		Output:   OutputConfig{Dir: "dist"},
		Metadata: MetadataConfig{File: "package.json"},
		Styles: StylesConfig{
			Targets: []string{"chrome58", "edge16", "firefox57", "safari11"},
		},
		Scripts: ScriptsConfig{Target: "es2017", Format: "iife"},
		Server:  ServerConfig{Host: "localhost", Port: 1337},
		Watch:   WatchConfig{Debounce: 100 * time.Millisecond},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// SetDefaults registers every key with v so that environment variables
// are picked up by Unmarshal even when no config file mentions the key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("source.dir", d.Source.Dir)
	v.SetDefault("source.entry", d.Source.Entry)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("metadata.file", d.Metadata.File)
	v.SetDefault("styles.targets", d.Styles.Targets)
	v.SetDefault("scripts.target", d.Scripts.Target)
	v.SetDefault("scripts.format", d.Scripts.Format)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.open", d.Server.Open)
	v.SetDefault("server.compress", d.Server.Compress)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the configuration from the global Viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, siteerrors.NewConfigError("failed to decode configuration", err)
	}

	// Styles targets set via environment arrive as one space separated string.
	if v.IsSet("styles.targets") && len(config.Styles.Targets) == 0 {
		config.Styles.Targets = v.GetStringSlice("styles.targets")
	}

	applyDefaults(&config)

	// Port 0 is a valid request for an ephemeral port, so only an unset key
	// falls back to the default.
	if !v.IsSet("server.port") {
		config.Server.Port = Default().Server.Port
	}

	result := Validate(&config)
	if result.HasErrors() {
		return nil, siteerrors.NewConfigError("invalid configuration", &result.Errors[0])
	}
	config.warnings = result.Warnings

	return &config, nil
}

// applyDefaults fills zero values left after unmarshalling.
func applyDefaults(config *Config) {
	d := Default()

	if config.Source.Dir == "" {
		config.Source.Dir = d.Source.Dir
	}
	if config.Source.Entry == "" {
		config.Source.Entry = d.Source.Entry
	}
	if config.Output.Dir == "" {
		config.Output.Dir = d.Output.Dir
	}
	if config.Metadata.File == "" {
		config.Metadata.File = d.Metadata.File
	}
	if len(config.Styles.Targets) == 0 {
		config.Styles.Targets = d.Styles.Targets
	}
	if config.Scripts.Target == "" {
		config.Scripts.Target = d.Scripts.Target
	}
	if config.Scripts.Format == "" {
		config.Scripts.Format = d.Scripts.Format
	}
	if config.Server.Host == "" {
		config.Server.Host = d.Server.Host
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = d.Watch.Debounce
	}
	if config.Log.Level == "" {
		config.Log.Level = d.Log.Level
	}
	if config.Log.Format == "" {
		config.Log.Format = d.Log.Format
	}
}

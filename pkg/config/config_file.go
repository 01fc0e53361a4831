package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config with optional fields for TOML and YAML files.
type FileConfig struct {
	ServiceName    string            `toml:"service_name" yaml:"service_name"`
	ServiceVersion string            `toml:"service_version" yaml:"service_version"`
	Environment    string            `toml:"environment" yaml:"environment"`
	LogLevel       string            `toml:"log_level" yaml:"log_level"`
	LogFormat      string            `toml:"log_format" yaml:"log_format"`
	LogOutput      string            `toml:"log_output" yaml:"log_output"`
	Timestamp      *bool             `toml:"timestamp" yaml:"timestamp"`
	NoColor        *bool             `toml:"no_color" yaml:"no_color"`
	ModuleLevels   map[string]string `toml:"module_levels" yaml:"module_levels"`
	Fields         map[string]string `toml:"fields" yaml:"fields"`
}

// LoadFile reads and parses a TOML or YAML config file, chosen by extension.
// Read failures are returned as-is; decode failures as *ParseError.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return FileConfig{}, &ParseError{Source: path, Err: err}
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.foundation/config.toml if the home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".foundation", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) {
	s := newConfigSetter("file", changed)

	s.setString("service-name", fc.ServiceName, &cfg.ServiceName)
	s.setString("service-version", fc.ServiceVersion, &cfg.ServiceVersion)
	s.setString("env", fc.Environment, &cfg.Environment)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("log-output", fc.LogOutput, &cfg.LogOutput)

	s.setBool("log-timestamp", fc.Timestamp, &cfg.Timestamp)
	s.setBool("log-nocolor", fc.NoColor, &cfg.NoColor)

	s.setMap("log-module-levels", fc.ModuleLevels, &cfg.ModuleLevels)
	s.setMap("log-fields", fc.Fields, &cfg.Fields)
}

// FileExists checks if a regular file exists at the given path.
func FileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

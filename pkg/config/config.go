package config

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Log outputs.
const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
)

// Config describes the process-wide logging and identity setup.
type Config struct {
	// ServiceName identifies the process. Empty means the config was
	// auto-derived rather than supplied explicitly.
	ServiceName    string `json:"service_name"`
	ServiceVersion string `json:"service_version"`
	Environment    string `json:"environment"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	LogOutput string `json:"log_output"`
	Timestamp bool   `json:"timestamp"`
	NoColor   bool   `json:"no_color"`

	// ModuleLevels overrides LogLevel for named components.
	ModuleLevels map[string]string `json:"module_levels,omitempty"`

	// Fields are attached to every log event.
	Fields map[string]string `json:"fields,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Environment: "development",
		LogLevel:    "info",
		LogFormat:   FormatConsole,
		LogOutput:   OutputStderr,
		Timestamp:   true,
	}
}

// IsDefault reports whether the config carries no explicit service identity.
func (c *Config) IsDefault() bool {
	return c.ServiceName == ""
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.ModuleLevels = maps.Clone(c.ModuleLevels)
	out.Fields = maps.Clone(c.Fields)
	return &out
}

// Validate checks the configuration for errors and normalizes values.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return &ParseError{Source: "config", Key: "log_level", Value: c.LogLevel, Err: ErrInvalidValue}
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "":
		c.LogFormat = FormatConsole
	case FormatConsole, FormatJSON:
	default:
		return &ParseError{Source: "config", Key: "log_format", Value: c.LogFormat, Err: ErrInvalidValue}
	}

	c.LogOutput = strings.ToLower(strings.TrimSpace(c.LogOutput))
	switch c.LogOutput {
	case "":
		c.LogOutput = OutputStderr
	case OutputStderr, OutputStdout:
	default:
		return &ParseError{Source: "config", Key: "log_output", Value: c.LogOutput, Err: ErrInvalidValue}
	}

	for module, level := range c.ModuleLevels {
		if _, err := zerolog.ParseLevel(level); err != nil {
			return &ParseError{Source: "config", Key: "module_levels." + module, Value: level, Err: ErrInvalidValue}
		}
	}

	return nil
}

// ErrInvalidValue marks a value that could not be parsed.
var ErrInvalidValue = errors.New("invalid value")

// ParseError reports a malformed configuration value.
// Only ParseErrors are recoverable by falling back to DefaultConfig.
type ParseError struct {
	Source string // env var name, file path, or "config"
	Key    string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: parse %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("config: parse %s (%s=%q): %v", e.Source, e.Key, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	source  string
	changed map[string]bool
}

func newConfigSetter(source string, changed map[string]bool) *configSetter {
	return &configSetter{source: source, changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a bool and sets the destination if valid.
func (s *configSetter) setBoolFromString(flag, key, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return &ParseError{Source: s.source, Key: key, Value: value, Err: err}
	}
	*dst = b
	return nil
}

// setMap replaces the destination map if value is non-empty and flag not changed.
func (s *configSetter) setMap(flag string, value map[string]string, dst *map[string]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = maps.Clone(value)
}

// setMapFromString parses "k<sep>v,k<sep>v" and sets the destination if valid.
func (s *configSetter) setMapFromString(flag, key, value string, sep byte, dst *map[string]string) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	m, err := ParsePairs(value, sep)
	if err != nil {
		return &ParseError{Source: s.source, Key: key, Value: value, Err: err}
	}
	*dst = m
	return nil
}

// ParsePairs parses a comma separated list of key<sep>value pairs.
func ParsePairs(raw string, sep byte) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		i := strings.IndexByte(item, sep)
		if i <= 0 || i == len(item)-1 {
			return nil, fmt.Errorf("%w: malformed pair %q", ErrInvalidValue, item)
		}
		out[strings.TrimSpace(item[:i])] = strings.TrimSpace(item[i+1:])
	}
	return out, nil
}

package config

import "os"

// Environment variables read by ApplyEnvConfig.
const (
	EnvServiceName     = "FOUNDATION_SERVICE_NAME"
	EnvServiceVersion  = "FOUNDATION_SERVICE_VERSION"
	EnvEnvironment     = "FOUNDATION_ENV"
	EnvLogLevel        = "FOUNDATION_LOG_LEVEL"
	EnvLogFormat       = "FOUNDATION_LOG_FORMAT"
	EnvLogOutput       = "FOUNDATION_LOG_OUTPUT"
	EnvLogTimestamp    = "FOUNDATION_LOG_TIMESTAMP"
	EnvLogNoColor      = "FOUNDATION_LOG_NOCOLOR"
	EnvLogModuleLevels = "FOUNDATION_LOG_MODULE_LEVELS"
	EnvLogFields       = "FOUNDATION_LOG_FIELDS"
	EnvConfigFile      = "FOUNDATION_CONFIG_FILE"
)

// ApplyEnvConfig applies configuration from environment variables (FOUNDATION_*).
// It respects flags that have been explicitly set (changed map).
// Malformed values are reported as *ParseError.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter("env", changed)

	s.setString("service-name", os.Getenv(EnvServiceName), &cfg.ServiceName)
	s.setString("service-version", os.Getenv(EnvServiceVersion), &cfg.ServiceVersion)
	s.setString("env", os.Getenv(EnvEnvironment), &cfg.Environment)
	s.setString("log-level", os.Getenv(EnvLogLevel), &cfg.LogLevel)
	s.setString("log-format", os.Getenv(EnvLogFormat), &cfg.LogFormat)
	s.setString("log-output", os.Getenv(EnvLogOutput), &cfg.LogOutput)

	if err := s.setBoolFromString("log-timestamp", EnvLogTimestamp, os.Getenv(EnvLogTimestamp), &cfg.Timestamp); err != nil {
		return err
	}
	if err := s.setBoolFromString("log-nocolor", EnvLogNoColor, os.Getenv(EnvLogNoColor), &cfg.NoColor); err != nil {
		return err
	}
	if err := s.setMapFromString("log-module-levels", EnvLogModuleLevels, os.Getenv(EnvLogModuleLevels), ':', &cfg.ModuleLevels); err != nil {
		return err
	}
	if err := s.setMapFromString("log-fields", EnvLogFields, os.Getenv(EnvLogFields), '=', &cfg.Fields); err != nil {
		return err
	}

	return nil
}

// Resolve layers an optional config file and the environment onto cfg, then validates it.
// A missing file at path is skipped; an unreadable one is an error.
func Resolve(cfg *Config, path string, changed map[string]bool) error {
	if path != "" && FileExists(path) {
		fc, err := LoadFile(path)
		if err != nil {
			return err
		}
		ApplyFileConfig(cfg, fc, changed)
	}

	if err := ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

// FromEnv builds a Config from defaults, FOUNDATION_CONFIG_FILE and FOUNDATION_* variables.
// A FOUNDATION_CONFIG_FILE that does not exist or cannot be read is an error,
// not a parse failure.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv(EnvConfigFile); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		ApplyFileConfig(&cfg, fc, nil)
	}

	if err := ApplyEnvConfig(&cfg, nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

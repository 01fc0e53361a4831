package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != FormatConsole {
		t.Errorf("LogFormat = %v, want console", cfg.LogFormat)
	}
	if !cfg.IsDefault() {
		t.Error("DefaultConfig should have no service identity")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		wantKey string
	}{
		{"defaults", DefaultConfig(), false, ""},
		{"empty values normalized", Config{}, false, ""},
		{"upper case level", Config{LogLevel: "DEBUG"}, false, ""},
		{"bad level", Config{LogLevel: "loud"}, true, "log_level"},
		{"bad format", Config{LogFormat: "xml"}, true, "log_format"},
		{"bad output", Config{LogOutput: "syslog"}, true, "log_output"},
		{"bad module level", Config{ModuleLevels: map[string]string{"hub": "chatty"}}, true, "module_levels.hub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if pe.Key != tt.wantKey {
				t.Errorf("ParseError.Key = %q, want %q", pe.Key, tt.wantKey)
			}
		})
	}
}

func TestConfig_ValidateNormalizes(t *testing.T) {
	cfg := Config{LogLevel: " Warn ", LogFormat: "JSON"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != FormatJSON || cfg.LogOutput != OutputStderr {
		t.Errorf("normalized config = %+v", cfg)
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fields = map[string]string{"team": "core"}

	c := cfg.Clone()
	c.Fields["team"] = "other"
	c.ServiceName = "svc"

	if cfg.Fields["team"] != "core" {
		t.Error("Clone shares Fields map with original")
	}
	if cfg.ServiceName != "" {
		t.Error("Clone shares struct with original")
	}
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		raw     string
		sep     byte
		want    map[string]string
		wantErr bool
	}{
		{"hub:debug, config:warn", ':', map[string]string{"hub": "debug", "config": "warn"}, false},
		{"team=core,,region=eu", '=', map[string]string{"team": "core", "region": "eu"}, false},
		{"", '=', map[string]string{}, false},
		{"novalue", '=', nil, true},
		{"=x", '=', nil, true},
		{"x=", '=', nil, true},
	}

	for _, tt := range tests {
		got, err := ParsePairs(tt.raw, tt.sep)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePairs(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePairs(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				EnvServiceName:     "billing",
				EnvServiceVersion:  "1.2.3",
				EnvEnvironment:     "prod",
				EnvLogLevel:        "debug",
				EnvLogFormat:       "json",
				EnvLogOutput:       "stdout",
				EnvLogTimestamp:    "false",
				EnvLogNoColor:      "1",
				EnvLogModuleLevels: "hub:warn",
				EnvLogFields:       "team=core",
			},
			changed: map[string]bool{},
			initial: Config{Timestamp: true},
			expected: Config{
				ServiceName:    "billing",
				ServiceVersion: "1.2.3",
				Environment:    "prod",
				LogLevel:       "debug",
				LogFormat:      "json",
				LogOutput:      "stdout",
				Timestamp:      false,
				NoColor:        true,
				ModuleLevels:   map[string]string{"hub": "warn"},
				Fields:         map[string]string{"team": "core"},
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				EnvServiceName: "env-name",
				EnvLogLevel:    "debug",
			},
			changed:  map[string]bool{"service-name": true},
			initial:  Config{ServiceName: "flag-name"},
			expected: Config{ServiceName: "flag-name", LogLevel: "debug"},
		},
		{
			name:     "returns error for invalid bool",
			envVars:  map[string]string{EnvLogNoColor: "maybe"},
			changed:  map[string]bool{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name:     "returns error for malformed fields",
			envVars:  map[string]string{EnvLogFields: "team"},
			changed:  map[string]bool{},
			expected: Config{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsParseError(err) {
					t.Errorf("error %v is not a ParseError", err)
				}
				return
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		t.Setenv(EnvConfigFile, "")
		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("FromEnv() = %v", err)
		}
		if !cfg.IsDefault() {
			t.Errorf("ServiceName = %q, want empty", cfg.ServiceName)
		}
	})

	t.Run("invalid level is a parse error", func(t *testing.T) {
		t.Setenv(EnvLogLevel, "shouting")
		_, err := FromEnv()
		if !IsParseError(err) {
			t.Fatalf("FromEnv() error = %v, want ParseError", err)
		}
	})

	t.Run("missing config file is not a parse error", func(t *testing.T) {
		t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.toml"))
		_, err := FromEnv()
		if err == nil {
			t.Fatal("FromEnv() should fail for a missing config file")
		}
		if IsParseError(err) {
			t.Errorf("error %v must not be a ParseError", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error %v should wrap os.ErrNotExist", err)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "service_name = \"from-file\"\nlog_level = \"warn\"\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv(EnvConfigFile, path)
		t.Setenv(EnvLogLevel, "error")

		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("FromEnv() = %v", err)
		}
		if cfg.ServiceName != "from-file" || cfg.LogLevel != "error" {
			t.Errorf("config = %+v", cfg)
		}
	})
}

func TestEnvFactory(t *testing.T) {
	var f Factory = EnvFactory{}
	d := f.Default()
	if !reflect.DeepEqual(*d, DefaultConfig()) {
		t.Errorf("Default() = %+v", d)
	}
	if f.Default() == d {
		t.Error("Default() should return a fresh config each call")
	}
}

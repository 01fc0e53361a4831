package config

// Factory builds configurations for the initialization coordinator.
type Factory interface {
	// FromEnv derives a config from the process environment.
	FromEnv() (*Config, error)

	// Default returns the fallback config used when FromEnv fails to parse.
	Default() *Config
}

// EnvFactory is the default Factory backed by FromEnv and DefaultConfig.
type EnvFactory struct{}

// FromEnv implements Factory.
func (EnvFactory) FromEnv() (*Config, error) {
	return FromEnv()
}

// Default implements Factory.
func (EnvFactory) Default() *Config {
	cfg := DefaultConfig()
	return &cfg
}
